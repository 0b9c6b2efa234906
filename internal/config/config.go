package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Default configuration values
const (
	DefaultDomain          = "localhost:8080"
	DefaultSTUN            = "stun:stun.l.google.com:19302"
	DefaultAddr            = ":8080"
	DefaultMaxParticipants = 16

	envPrefix = "WARPROOM"
)

// Config holds the room client configuration
type Config struct {
	// Domain is the signaling server host (and optional port)
	Domain string `validate:"required"`

	// WebSocketURL and HTTPURL are constructed from domain
	WebSocketURL string `validate:"required,url"`
	HTTPURL      string `validate:"required,url"`

	// ICE servers for WebRTC
	STUNServer string `validate:"required"`
	TURNServer string
	TURNUser   string `validate:"required_with=TURNServer"`
	TURNPass   string `validate:"required_with=TURNServer"`
	ForceRelay bool

	// Token is the externally issued access token
	Token string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain     string
	Insecure   bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Token      string
}

// ServerConfig holds the signaling server configuration
type ServerConfig struct {
	Addr            string `validate:"required"`
	TokenSecret     string `validate:"required"`
	MaxParticipants int    `validate:"min=2,max=256"`
}

// ServerOptions for loading server config with CLI flag overrides
type ServerOptions struct {
	Addr            string
	TokenSecret     string
	MaxParticipants int
}

// environment mirrors every WARPROOM_* variable
type environment struct {
	Domain          string `envconfig:"DOMAIN"`
	Insecure        bool   `envconfig:"INSECURE"`
	STUNServer      string `envconfig:"STUN_SERVER"`
	TURNServer      string `envconfig:"TURN_SERVER"`
	TURNUser        string `envconfig:"TURN_USERNAME"`
	TURNPass        string `envconfig:"TURN_PASSWORD"`
	ForceRelay      bool   `envconfig:"FORCE_RELAY"`
	Token           string `envconfig:"TOKEN"`
	Addr            string `envconfig:"ADDR"`
	TokenSecret     string `envconfig:"TOKEN_SECRET"`
	MaxParticipants int    `envconfig:"MAX_PARTICIPANTS"`
}

var (
	dotenvOnce sync.Once
	validate   = validator.New(validator.WithRequiredStructEnabled())
)

// loadEnvironment reads a .env file if present (never overriding real
// environment variables) and decodes WARPROOM_* into env.
func loadEnvironment() (environment, error) {
	var dotenvErr error
	dotenvOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			dotenvErr = fmt.Errorf("load .env: %w", err)
		}
	})
	if dotenvErr != nil {
		return environment{}, dotenvErr
	}

	var env environment
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return environment{}, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

// first returns the first non-empty value
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Load reads client configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (and .env)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}

	domain := first(opts.Domain, env.Domain, DefaultDomain)
	insecure := opts.Insecure || env.Insecure || isLoopback(domain)

	wsScheme, httpScheme := "wss", "https"
	if insecure {
		wsScheme, httpScheme = "ws", "http"
	}

	cfg := &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", wsScheme, domain),
		HTTPURL:      fmt.Sprintf("%s://%s", httpScheme, domain),
		STUNServer:   first(opts.STUNServer, env.STUNServer, DefaultSTUN),
		TURNServer:   first(opts.TURNServer, env.TURNServer),
		TURNUser:     first(opts.TURNUser, env.TURNUser),
		TURNPass:     first(opts.TURNPass, env.TURNPass),
		ForceRelay:   opts.ForceRelay || env.ForceRelay,
		Token:        first(opts.Token, env.Token),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, errors.New("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// LoadServer reads signaling server configuration with the same priority as Load.
func LoadServer(opts ServerOptions) (*ServerConfig, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}

	maxParticipants := opts.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = env.MaxParticipants
	}
	if maxParticipants == 0 {
		maxParticipants = DefaultMaxParticipants
	}

	cfg := &ServerConfig{
		Addr:            first(opts.Addr, env.Addr, DefaultAddr),
		TokenSecret:     first(opts.TokenSecret, env.TokenSecret),
		MaxParticipants: maxParticipants,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	return cfg, nil
}

// isLoopback reports whether the domain points at this machine
func isLoopback(domain string) bool {
	host := domain
	if h, _, err := net.SplitHostPort(domain); err == nil {
		host = h
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// GetRoomsURL returns the room listing endpoint
func (c *Config) GetRoomsURL() string {
	return c.HTTPURL + "/rooms"
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
