package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/BioHazard786/warproom/internal/roomview"
	"github.com/BioHazard786/warproom/internal/signaling"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	snap    roomview.Snapshot
	updates chan struct{}
	compose []string
	sends   int
	retries int
	sendErr error
}

func newStubSession(snap roomview.Snapshot) *stubSession {
	return &stubSession{snap: snap, updates: make(chan struct{}, 1)}
}

func (s *stubSession) Snapshot() roomview.Snapshot { return s.snap }
func (s *stubSession) Updates() <-chan struct{} { return s.updates }
func (s *stubSession) SetCompose(text string) { s.compose = append(s.compose, text) }
func (s *stubSession) Retry() { s.retries++ }

func (s *stubSession) Send() error {
	s.sends++
	return s.sendErr
}

func connectedSnapshot() roomview.Snapshot {
	return roomview.Snapshot{
		RoomName:    "demo-room",
		Status:      roomview.StatusConnected,
		Local:       &roomview.Cell{SID: "PA1", Identity: "alice"},
		Remote:      []roomview.Cell{{SID: "PA2", Identity: "bob"}},
		Received:    "bob says: hi",
		ChatEnabled: true,
	}
}

func press(m *RoomModel, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+o":
		msg = tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+r":
		msg = tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func TestRoomModel_ViewLayout(t *testing.T) {
	m := NewRoomModel(newStubSession(connectedSnapshot()), nil)
	view := m.View()

	order := []string{"Room: demo-room", "Log out", "alice (you)", "Remote Participants", "bob", "CHAT", "send message", "Chat: bob says: hi"}
	last := -1
	for _, want := range order {
		i := strings.Index(view, want)
		require.Greater(t, i, last, "%q out of order", want)
		last = i
	}
}

func TestRoomModel_TypingUpdatesCompose(t *testing.T) {
	session := newStubSession(connectedSnapshot())
	m := NewRoomModel(session, nil)

	press(m, "h")
	press(m, "i")
	require.Equal(t, []string{"h", "hi"}, session.compose)
}

func TestRoomModel_EnterSends(t *testing.T) {
	session := newStubSession(connectedSnapshot())
	session.sendErr = roomview.NewError("send", roomview.ErrPublishFailed)
	m := NewRoomModel(session, nil)

	cmd := press(m, "enter")
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.Equal(t, 1, session.sends)
	require.Contains(t, m.View(), roomview.ErrPublishFailed.Error())
}

func TestRoomModel_LogoutRunsCallback(t *testing.T) {
	calls := 0
	m := NewRoomModel(newStubSession(connectedSnapshot()), func() { calls++ })

	cmd := press(m, "ctrl+o")
	require.NotNil(t, cmd)
	require.Equal(t, 1, calls)
	require.Empty(t, m.View())

	press(m, "ctrl+o")
	require.Equal(t, 1, calls)
}

func TestRoomModel_LogoutButton(t *testing.T) {
	calls := 0
	session := newStubSession(connectedSnapshot())
	m := NewRoomModel(session, func() { calls++ })

	press(m, "tab")
	press(m, "tab")
	press(m, "enter")
	require.Equal(t, 1, calls)
	require.Zero(t, session.sends)
}

func TestRoomModel_RetryBanner(t *testing.T) {
	snap := roomview.Snapshot{
		RoomName: "demo-room",
		Status:   roomview.StatusFailed,
		Err:      roomview.NewError("connect demo-room", fmt.Errorf("%w: %w", roomview.ErrConnectionFailed, errors.New("refused"))),
	}
	session := newStubSession(snap)
	m := NewRoomModel(session, nil)

	require.Contains(t, m.View(), "press ctrl+r to retry")
	press(m, "ctrl+r")
	require.Equal(t, 1, session.retries)
}

func TestRoomModel_RetryIgnoredWhenHealthy(t *testing.T) {
	session := newStubSession(connectedSnapshot())
	m := NewRoomModel(session, nil)
	press(m, "ctrl+r")
	require.Zero(t, session.retries)
}

func TestRoomModel_ChatDisabledNotice(t *testing.T) {
	snap := connectedSnapshot()
	snap.ChatEnabled = false
	snap.Err = roomview.NewError("publish", roomview.ErrPublishFailed)
	m := NewRoomModel(newStubSession(snap), nil)

	view := m.View()
	require.Contains(t, view, roomview.ErrPublishFailed.Error())
	require.NotContains(t, view, "ctrl+r")
}

func TestRoomModel_RefreshesOnUpdate(t *testing.T) {
	session := newStubSession(roomview.Snapshot{RoomName: "demo-room", Status: roomview.StatusConnecting})
	m := NewRoomModel(session, nil)
	require.Contains(t, m.View(), "Connecting...")

	session.snap = connectedSnapshot()
	_, cmd := m.Update(updateMsg{})
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "bob")
	require.NotContains(t, m.View(), "Connecting...")
}

func TestRoomsTableView(t *testing.T) {
	require.Contains(t, RoomsTableView(nil), "No active rooms")

	view := RoomsTableView([]signaling.RoomSummary{
		{Name: "demo-room", SID: "RM1", Participants: []signaling.ParticipantInfo{{SID: "PA1", Identity: "alice"}, {SID: "PA2", Identity: "bob"}}},
	})
	require.Contains(t, view, "demo-room")
	require.Contains(t, view, "alice, bob")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	require.Equal(t, "ab", truncate("abcdef", 2))
}
