package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BioHazard786/warproom/internal/config"
	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/stretchr/testify/require"
)

func TestFetchRooms_DecodesSummaries(t *testing.T) {
	want := []signaling.RoomSummary{{
		Name: "demo-room",
		SID:  "RM1",
		Participants: []signaling.ParticipantInfo{
			{SID: "PA1", Identity: "alice"},
			{SID: "PA2", Identity: "bob"},
		},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	rooms, err := fetchRooms(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, want, rooms)
}

func TestFetchRooms_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetchRooms(context.Background(), srv.URL)
	require.ErrorContains(t, err, "500")
}

func TestLoadConfig_LoopbackIsInsecure(t *testing.T) {
	cfg, err := LoadConfig(config.Options{Domain: "127.0.0.1:8080"})
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8080/ws", cfg.WebSocketURL)
}

func TestLoadConfig_ReportsInvalidOptions(t *testing.T) {
	_, err := LoadConfig(config.Options{Domain: "127.0.0.1:8080", ForceRelay: true})
	require.ErrorContains(t, err, "load config: ")
	require.ErrorContains(t, err, "relay")
}
