package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":      slog.LevelDebug,
		"DEV":        slog.LevelDebug,
		"info":       slog.LevelInfo,
		"warning":    slog.LevelWarn,
		"production": slog.LevelError,
		"":           slog.LevelError,
		"nonsense":   slog.LevelError,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown", "room", "demo-room")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "room=demo-room")
}

func keepDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInit_WritesToLogFile(t *testing.T) {
	keepDefault(t)
	path := filepath.Join(t.TempDir(), "warproom.log")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_LEVEL", "info")

	require.NoError(t, Init())
	slog.Info("connected", "room", "demo-room")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "room=demo-room")
}

func TestInit_ReportsUnopenableLogFile(t *testing.T) {
	keepDefault(t)
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "missing", "warproom.log"))

	err := Init()
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.NotNil(t, slog.Default())
}
