package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/BioHazard786/warproom/internal/dns"
	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/BioHazard786/warproom/internal/ui"
	"github.com/spf13/cobra"
)

var roomsFlags clientFlags

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List active rooms on a signaling server",
	Long: `List the rooms that currently have participants.

Examples:
  warproom rooms
  warproom rooms --domain rooms.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRooms(cmd.Context())
	},
}

func listRooms(ctx context.Context) error {
	cfg, err := LoadConfig(roomsFlags.options(""))
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Fetching rooms...")
	defer stopSpinner()

	rooms, err := fetchRooms(ctx, cfg.GetRoomsURL())
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	stopSpinner()

	ui.RenderRoomsTable(rooms)
	return nil
}

func fetchRooms(ctx context.Context, url string) ([]signaling.RoomSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: &http.Transport{DialContext: dns.NewResolver().DialContext},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var rooms []signaling.RoomSummary
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsFlags.registerServer(roomsCmd)
}
