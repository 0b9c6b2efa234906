package cmd

import (
	"fmt"

	"github.com/BioHazard786/warproom/internal/config"
	"github.com/spf13/cobra"
)

// clientFlags are the connection flags shared by the client commands.
type clientFlags struct {
	domain   string
	insecure bool
	stun     string
	turn     string
	turnUser string
	turnPass string
	relay    bool
}

func (f *clientFlags) registerServer(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "Signaling server domain")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Use ws/http instead of wss/https")
}

func (f *clientFlags) registerICE(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVarP(&f.turnUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&f.turnPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
}

func (f *clientFlags) options(token string) config.Options {
	return config.Options{
		Domain:     f.domain,
		Insecure:   f.insecure,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
		Token:      token,
	}
}

// LoadConfig resolves the client configuration from flags, environment and
// defaults.
func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
