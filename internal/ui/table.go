package ui

import (
	"fmt"
	"strings"

	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
)

const maxIdentities = 60

// RoomsTableView renders the server's room listing.
func RoomsTableView(rooms []signaling.RoomSummary) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No active rooms")
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{"#", "Room", "SID", "Participants", "Who"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	for i, room := range rooms {
		who := lo.Map(room.Participants, func(p signaling.ParticipantInfo, _ int) string {
			return p.Identity
		})
		tw.AppendRow(table.Row{
			i + 1,
			truncate(room.Name, 40),
			room.SID,
			len(room.Participants),
			truncate(strings.Join(who, ", "), maxIdentities),
		})
	}

	total := lo.SumBy(rooms, func(r signaling.RoomSummary) int { return len(r.Participants) })
	tw.AppendFooter(table.Row{"", "Total", "", total, ""})

	return tw.Render()
}

func RenderRoomsTable(rooms []signaling.RoomSummary) {
	fmt.Println(RoomsTableView(rooms))
}
