package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BioHazard786/warproom/internal/config"
	"github.com/BioHazard786/warproom/internal/server"
	"github.com/BioHazard786/warproom/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagServeAddr            string
	flagServeSecret          string
	flagServeMaxParticipants int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling server",
	Long: `Run the signaling server that rooms are negotiated through.

Tokens are verified with the shared secret from --secret or
WARPROOM_TOKEN_SECRET; issuing them is left to your own service.

Examples:
  warproom serve --secret $SECRET
  warproom serve --addr :9000 --max-participants 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.LoadServer(config.ServerOptions{
		Addr:            flagServeAddr,
		TokenSecret:     flagServeSecret,
		MaxParticipants: flagServeMaxParticipants,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.Default().With("component", "server")

	// 1. Create the Hub and run its event loop until shutdown
	hub := server.NewHub(server.HubOptions{
		TokenSecret:     []byte(cfg.TokenSecret),
		MaxParticipants: cfg.MaxParticipants,
		Log:             log,
	})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// 2. Serve the routes
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.PrintSuccess("Signaling server listening on " + ui.BoldStyle.Render(cfg.Addr))
	log.Info("listening", "addr", cfg.Addr, "max_participants", cfg.MaxParticipants)

	// 3. Shut down on interrupt
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	ui.PrintInfo("Signaling server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagServeAddr, "addr", "a", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&flagServeSecret, "secret", "", "Token signing secret")
	serveCmd.Flags().IntVarP(&flagServeMaxParticipants, "max-participants", "m", 0, "Participants allowed per room (default 16)")
}
