package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BioHazard786/warproom/internal/roomview"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Session is the controller surface the room screen drives.
type Session interface {
	Snapshot() roomview.Snapshot
	Updates() <-chan struct{}
	SetCompose(text string)
	Send() error
	Retry()
}

type focusArea int

const (
	focusCompose focusArea = iota
	focusSend
	focusLogout
)

type (
	updateMsg struct{}
	closedMsg struct{}
	sentMsg   struct{ err error }
)

// RoomModel is the Bubble Tea model for the room screen.
type RoomModel struct {
	session  Session
	onLogout func()

	snap     roomview.Snapshot
	input    textinput.Model
	spinner  spinner.Model
	focus    focusArea
	sendErr  error
	width    int
	quitting bool
}

// NewRoomModel creates the room screen. onLogout runs once when the user logs
// out, before the program quits.
func NewRoomModel(session Session, onLogout func()) *RoomModel {
	in := textinput.New()
	in.Placeholder = "Type a message"
	in.Prompt = "> "
	in.CharLimit = 500
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Globe
	s.Style = SpinnerStyle

	snap := session.Snapshot()
	in.SetValue(snap.Compose)

	return &RoomModel{
		session:  session,
		onLogout: onLogout,
		snap:     snap,
		input:    in,
		spinner:  s,
	}
}

// RunRoom shows the room screen until the user logs out.
func RunRoom(session Session, onLogout func()) error {
	// Inline mode keeps previous terminal output visible
	_, err := tea.NewProgram(NewRoomModel(session, onLogout)).Run()
	return err
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listenForUpdates())
}

func (m *RoomModel) listenForUpdates() tea.Cmd {
	updates := m.session.Updates()
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return closedMsg{}
		}
		return updateMsg{}
	}
}

func (m *RoomModel) send() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return sentMsg{err: session.Send()}
	}
}

func (m *RoomModel) logout() tea.Cmd {
	m.quitting = true
	if m.onLogout != nil {
		m.onLogout()
		m.onLogout = nil
	}
	return tea.Quit
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+o":
			return m, m.logout()

		case "ctrl+r":
			if roomview.Retryable(m.snap.Err) {
				m.session.Retry()
			}
			return m, nil

		case "tab", "shift+tab":
			m.cycleFocus(msg.String() == "tab")
			return m, nil

		case "enter":
			switch m.focus {
			case focusLogout:
				return m, m.logout()
			default:
				return m, m.send()
			}
		}

		if m.focus == focusCompose {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			m.session.SetCompose(m.input.Value())
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-10)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case updateMsg:
		m.snap = m.session.Snapshot()
		cmds = append(cmds, m.listenForUpdates())

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case sentMsg:
		m.sendErr = msg.err

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *RoomModel) cycleFocus(forward bool) {
	if forward {
		m.focus = (m.focus + 1) % 3
	} else {
		m.focus = (m.focus + 2) % 3
	}
	if m.focus == focusCompose {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *RoomModel) button(label string, area focusArea) string {
	if m.focus == area {
		return ActiveButtonStyle.Render(label)
	}
	return ButtonStyle.Render(label)
}

func (m *RoomModel) View() string {
	if m.quitting {
		return ""
	}

	s := m.snap
	var b strings.Builder

	title := TitleStyle.Render(fmt.Sprintf("%s Room: %s", IconRoom, s.RoomName))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.button("Log out", focusLogout)))
	b.WriteString("\n")

	switch {
	case s.Status == roomview.StatusConnecting:
		b.WriteString(fmt.Sprintf("%s Connecting...\n", m.spinner.View()))
	case roomview.Retryable(s.Err):
		b.WriteString(ErrorBannerStyle.Render(fmt.Sprintf("%s %v\npress ctrl+r to retry", IconError, s.Err)))
		b.WriteString("\n")
	case errors.Is(s.Err, roomview.ErrPublishFailed):
		b.WriteString(NoticeStyle.Render(fmt.Sprintf("%s %v", IconWarning, roomview.ErrPublishFailed)))
		b.WriteString("\n")
	}

	if s.Local != nil {
		b.WriteString(LocalCellStyle.Render(fmt.Sprintf("%s %s (you)", IconPeer, truncate(s.Local.Identity, 24))))
		b.WriteString("\n")
	}

	b.WriteString(SectionStyle.Render("Remote Participants"))
	b.WriteString("\n")
	if len(s.Remote) == 0 {
		b.WriteString(MutedStyle.Render("Nobody else is here yet"))
	} else {
		cells := make([]string, len(s.Remote))
		for i, p := range s.Remote {
			cells[i] = RemoteCellStyle.Render(fmt.Sprintf("%s %s", IconPeer, truncate(p.Identity, 24)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	b.WriteString("\n")

	b.WriteString(SectionStyle.Render("CHAT"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("  ")
	b.WriteString(m.button("send message", focusSend))
	b.WriteString("\n")
	if m.sendErr != nil {
		b.WriteString(ErrorStyle.Render(m.sendErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("%s Chat: %s\n", IconChat, s.Received))

	b.WriteString(FooterStyle.Render("enter send • tab focus • ctrl+o log out"))

	return b.String()
}
