package cmd

import (
	"errors"
	"log/slog"

	"github.com/BioHazard786/warproom/internal/names"
	"github.com/BioHazard786/warproom/internal/roomview"
	"github.com/BioHazard786/warproom/internal/ui"
	"github.com/BioHazard786/warproom/internal/video"
	"github.com/spf13/cobra"
)

var errMissingToken = errors.New("no access token: pass --token or set WARPROOM_TOKEN")

var (
	joinFlags clientFlags
	joinToken string
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a conference room",
	Long: `Join a named conference room and chat with everyone in it.

The access token is issued outside warproom; pass it with --token or set
WARPROOM_TOKEN. Without a room name a random one is picked.

Examples:
  warproom join demo-room --token $TOKEN
  warproom join --domain rooms.example.com standup
  warproom join --relay demo-room`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := ""
		if len(args) == 1 {
			room = args[0]
		}
		return joinRoom(room)
	},
}

func joinRoom(room string) error {
	cfg, err := LoadConfig(joinFlags.options(joinToken))
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		return errMissingToken
	}

	if room == "" {
		room = names.Generate()
		ui.PrintInfof("No room given, joining %s", ui.BoldStyle.Render(room))
	}

	log := slog.Default().With("component", "room")
	controller := roomview.New(video.NewConnector(cfg, log), log)
	defer controller.Close()

	controller.Mount(roomview.Params{RoomName: room, Token: cfg.Token})

	return ui.RunRoom(controller, controller.Unmount)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinFlags.registerServer(joinCmd)
	joinFlags.registerICE(joinCmd)
	joinCmd.Flags().StringVarP(&joinToken, "token", "k", "", "Access token for the room")
}
