package video

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/warproom/internal/auth"
	"github.com/BioHazard786/warproom/internal/config"
	"github.com/BioHazard786/warproom/internal/logging"
	"github.com/BioHazard786/warproom/internal/server"
	"github.com/stretchr/testify/require"
)

var secret = []byte("video-test-secret")

func startSignaling(t *testing.T) *config.Config {
	t.Helper()

	log := logging.New(io.Discard, slog.LevelDebug)
	hub := server.NewHub(server.HubOptions{TokenSecret: secret, MaxParticipants: 8, Log: log})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(server.NewRouter(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	host := strings.TrimPrefix(srv.URL, "http://")
	return &config.Config{
		Domain:       host,
		WebSocketURL: "ws://" + host + "/ws",
		HTTPURL:      srv.URL,
		STUNServer:   "stun:127.0.0.1:3478",
	}
}

func grant(t *testing.T, identity, room string) string {
	t.Helper()
	tok, err := auth.Sign(secret, auth.Grant{Identity: identity, Room: room}, time.Minute)
	require.NoError(t, err)
	return tok
}

func connect(t *testing.T, cfg *config.Config, identity, room string, tracks ...LocalTrack) Room {
	t.Helper()
	c := NewConnector(cfg, logging.New(io.Discard, slog.LevelDebug))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := c.Connect(ctx, grant(t, identity, room), ConnectOptions{Name: room, Tracks: tracks})
	require.NoError(t, err)
	t.Cleanup(func() { r.Disconnect() })
	return r
}

func identities(ps []RemoteParticipant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Identity()
	}
	return out
}

func TestConnect_RequiresRoomName(t *testing.T) {
	c := NewConnector(&config.Config{WebSocketURL: "ws://127.0.0.1:1/ws"}, nil)
	_, err := c.Connect(context.Background(), "token", ConnectOptions{})
	require.ErrorIs(t, err, ErrRoomNameRequired)
}

func TestConnect_SignalingUnreachable(t *testing.T) {
	c := NewConnector(&config.Config{WebSocketURL: "ws://127.0.0.1:1/ws"}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Connect(ctx, "token", ConnectOptions{Name: "demo-room"})
	require.ErrorIs(t, err, ErrSignalingFailed)
}

func TestConnect_RejectedToken(t *testing.T) {
	cfg := startSignaling(t)
	c := NewConnector(cfg, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Connect(ctx, "not-a-token", ConnectOptions{Name: "demo-room"})
	require.ErrorIs(t, err, ErrJoinFailed)
}

func TestConnect_PublishesTracks(t *testing.T) {
	cfg := startSignaling(t)
	track := NewLocalDataTrack()
	stopped := NewLocalDataTrack()
	stopped.Stop()

	r := connect(t, cfg, "alice", "demo-room", track, stopped)

	require.Equal(t, "demo-room", r.Name())
	require.True(t, strings.HasPrefix(r.SID(), "RM"))
	require.Equal(t, RoomStateConnected, r.State())

	local := r.LocalParticipant()
	require.Equal(t, "alice", local.Identity())
	require.Equal(t, ParticipantStateConnected, local.State())
	require.Len(t, local.DataTracks(), 1)
	require.Equal(t, track.Name(), local.DataTracks()[0].Name())
	require.Empty(t, r.Participants())
}

func TestConnect_RosterFollowsServer(t *testing.T) {
	cfg := startSignaling(t)

	alice := connect(t, cfg, "alice", "demo-room")

	var mu sync.Mutex
	var events []string
	alice.OnParticipantConnected(func(p RemoteParticipant) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, "+"+p.Identity())
	})
	alice.OnParticipantDisconnected(func(p RemoteParticipant) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, "-"+p.Identity())
	})
	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), events...)
	}

	bob := connect(t, cfg, "bob", "demo-room")
	require.Equal(t, []string{"alice"}, identities(bob.Participants()))

	require.Eventually(t, func() bool {
		return len(seen()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"bob"}, identities(alice.Participants()))

	require.NoError(t, bob.Disconnect())
	require.NoError(t, bob.Disconnect())
	require.Equal(t, RoomStateDisconnected, bob.State())
	require.Equal(t, ParticipantStateDisconnected, bob.LocalParticipant().State())

	require.Eventually(t, func() bool {
		return len(seen()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"+bob", "-bob"}, seen())
	require.Empty(t, alice.Participants())
}

func TestConnect_RoomsAreIsolated(t *testing.T) {
	cfg := startSignaling(t)

	a := connect(t, cfg, "alice", "room-a")
	b := connect(t, cfg, "bob", "room-b")

	require.NotEqual(t, a.SID(), b.SID())
	require.Empty(t, a.Participants())
	require.Empty(t, b.Participants())
}

type inbox struct {
	mu  sync.Mutex
	got []string
}

func listen(p Participant) *inbox {
	in := &inbox{}
	p.OnData(func(payload string) {
		in.mu.Lock()
		defer in.mu.Unlock()
		in.got = append(in.got, payload)
	})
	return in
}

func (in *inbox) messages() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.got...)
}

// linkedPair joins alice and bob to one room and waits until both data
// channels are open.
func linkedPair(t *testing.T) (alice, bob Room, aliceTrack, bobTrack *DataTrack) {
	t.Helper()
	cfg := startSignaling(t)
	aliceTrack, bobTrack = NewLocalDataTrack(), NewLocalDataTrack()

	alice = connect(t, cfg, "alice", "demo-room", aliceTrack)
	bob = connect(t, cfg, "bob", "demo-room", bobTrack)

	require.Eventually(t, func() bool {
		return aliceTrack.attached() == 1 && bobTrack.attached() == 1
	}, 5*time.Second, 10*time.Millisecond)
	return alice, bob, aliceTrack, bobTrack
}

func TestConnect_DataReachesPeers(t *testing.T) {
	alice, bob, aliceTrack, bobTrack := linkedPair(t)

	require.Equal(t, []string{"bob"}, identities(alice.Participants()))
	require.Equal(t, []string{"alice"}, identities(bob.Participants()))
	fromAlice := listen(bob.Participants()[0])
	fromBob := listen(alice.Participants()[0])

	require.NoError(t, aliceTrack.Send("alice says: hello"))
	require.Eventually(t, func() bool {
		return len(fromAlice.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"alice says: hello"}, fromAlice.messages())

	require.NoError(t, bobTrack.Send("bob says: hi alice"))
	require.Eventually(t, func() bool {
		return len(fromBob.messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"bob says: hi alice"}, fromBob.messages())
	require.Equal(t, []string{"alice says: hello"}, fromAlice.messages())
}

func TestConnect_LeavingPeerDetachesChannel(t *testing.T) {
	alice, bob, aliceTrack, bobTrack := linkedPair(t)

	require.NoError(t, bob.Disconnect())
	require.Zero(t, bobTrack.attached())

	require.Eventually(t, func() bool {
		return aliceTrack.attached() == 0 && len(alice.Participants()) == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, aliceTrack.Send("alice says: anyone?"))
}

func TestDisconnect_NotifiesOnce(t *testing.T) {
	cfg := startSignaling(t)
	r := connect(t, cfg, "alice", "demo-room")

	ended := make(chan error, 2)
	r.OnDisconnected(func(err error) { ended <- err })

	require.NoError(t, r.Disconnect())
	require.NoError(t, r.Disconnect())
	require.Len(t, ended, 1)
	require.NoError(t, <-ended)
}

func TestConnect_SignalingLossEndsRoom(t *testing.T) {
	cfg := startSignaling(t)
	r := connect(t, cfg, "alice", "demo-room", NewLocalDataTrack())

	ended := make(chan error, 1)
	r.OnDisconnected(func(err error) { ended <- err })

	r.(*meshRoom).client.Close()

	select {
	case err := <-ended:
		require.ErrorIs(t, err, ErrSignalingLost)
	case <-time.After(2 * time.Second):
		t.Fatal("room did not report the lost signaling connection")
	}
	require.Equal(t, RoomStateDisconnected, r.State())
	require.Equal(t, ParticipantStateDisconnected, r.LocalParticipant().State())
}
