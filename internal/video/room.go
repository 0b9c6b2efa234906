package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BioHazard786/warproom/internal/config"
	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/samber/lo"
)

// MeshConnector opens rooms on a warproom signaling server.
type MeshConnector struct {
	Config *config.Config
	Log    *slog.Logger
}

// NewConnector returns a connector for the server in cfg.
func NewConnector(cfg *config.Config, log *slog.Logger) *MeshConnector {
	if log == nil {
		log = slog.Default()
	}
	return &MeshConnector{Config: cfg, Log: log}
}

// Connect joins the named room and publishes opts.Tracks. It blocks until the
// server accepts or rejects the join; peer links to participants already in
// the room are negotiated in the background.
func (c *MeshConnector) Connect(ctx context.Context, token string, opts ConnectOptions) (Room, error) {
	if opts.Name == "" {
		return nil, ErrRoomNameRequired
	}

	log := c.Log.With("room", opts.Name)
	client := signaling.NewClient(c.Config.WebSocketURL, log)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignalingFailed, err)
	}

	joined, err := client.Join(ctx, opts.Name, token)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	log = log.With("sid", joined.SID, "identity", joined.Identity)
	log.Debug("joined room", "participants", len(joined.Participants))

	r := &meshRoom{
		sid:    joined.RoomSID,
		name:   joined.Room,
		cfg:    c.Config,
		client: client,
		local:  newLocalParticipant(joined.SID, joined.Identity),
		remote: make(map[string]*remoteParticipant),
		state:  RoomStateConnected,
		log:    log,
	}

	for _, track := range opts.Tracks {
		if !r.local.publish(track) {
			log.Warn("track not published", "track", track.Name(), "error", ErrTrackStopped)
		}
	}

	for _, info := range joined.Participants {
		remote := r.addRemote(info)
		if remote == nil {
			continue
		}
		if err := r.linkPeer(remote, true); err != nil {
			log.Warn("peer link failed", "error", err)
		}
	}

	handler := &signaling.Handler{
		OnParticipantConnected:    r.handleParticipantConnected,
		OnParticipantDisconnected: r.handleParticipantDisconnected,
		OnSignal:                  r.handleSignal,
		OnError: func(text string) {
			log.Warn("signaling error", "error", text)
		},
		OnClosed: r.handleClosed,
		Log:      log,
	}
	go handler.Run(client.Incoming())

	return r, nil
}

type meshRoom struct {
	sid    string
	name   string
	cfg    *config.Config
	client *signaling.Client
	local  *localParticipant
	log    *slog.Logger

	mu     sync.Mutex
	remote map[string]*remoteParticipant
	order  []string
	state  RoomState

	connected    listeners[RemoteParticipant]
	disconnected listeners[RemoteParticipant]
	ended        listeners[error]
}

func (r *meshRoom) SID() string { return r.sid }
func (r *meshRoom) Name() string { return r.name }
func (r *meshRoom) LocalParticipant() LocalParticipant { return r.local }

func (r *meshRoom) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *meshRoom) Participants() []RemoteParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.order, func(sid string, _ int) RemoteParticipant {
		return r.remote[sid]
	})
}

func (r *meshRoom) OnParticipantConnected(fn func(RemoteParticipant)) Unsubscribe {
	return r.connected.add(fn)
}

func (r *meshRoom) OnParticipantDisconnected(fn func(RemoteParticipant)) Unsubscribe {
	return r.disconnected.add(fn)
}

func (r *meshRoom) OnDisconnected(fn func(error)) Unsubscribe {
	return r.ended.add(fn)
}

// Disconnect leaves the room and closes every peer link. Calling it again is a
// no-op.
func (r *meshRoom) Disconnect() error {
	return r.disconnect(nil)
}

// disconnect ends the session once, telling OnDisconnected listeners why.
func (r *meshRoom) disconnect(cause error) error {
	r.mu.Lock()
	if r.state == RoomStateDisconnected {
		r.mu.Unlock()
		return nil
	}
	r.state = RoomStateDisconnected
	peers := r.peersLocked()
	r.remote = make(map[string]*remoteParticipant)
	r.order = nil
	r.mu.Unlock()

	r.local.state.Store(ParticipantStateDisconnected)
	r.connected.clear()
	r.disconnected.clear()

	err := r.client.SendMessage(&signaling.Message{Type: signaling.MessageTypeLeave})
	if errors.Is(err, signaling.ErrClosed) {
		err = nil
	}
	r.client.Close()

	for _, p := range peers {
		p.close()
	}

	r.ended.emit(cause)
	r.ended.clear()
	return err
}

func (r *meshRoom) peersLocked() []*peer {
	peers := make([]*peer, 0, len(r.order))
	for _, sid := range r.order {
		if p := r.remote[sid].peer; p != nil {
			peers = append(peers, p)
		}
	}
	return peers
}

// addRemote registers a participant. It returns nil when the sid is already
// known, is the local participant, or the room is closed.
func (r *meshRoom) addRemote(info signaling.ParticipantInfo) *remoteParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RoomStateConnected || info.SID == r.local.sid {
		return nil
	}
	if _, ok := r.remote[info.SID]; ok {
		return nil
	}
	remote := newRemoteParticipant(info.SID, info.Identity)
	r.remote[info.SID] = remote
	r.order = append(r.order, info.SID)
	return remote
}

func (r *meshRoom) removeRemote(sid string) *remoteParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()

	remote, ok := r.remote[sid]
	if !ok {
		return nil
	}
	delete(r.remote, sid)
	r.order = lo.Without(r.order, sid)
	return remote
}

func (r *meshRoom) lookup(sid string) *remoteParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remote[sid]
}

// linkPeer creates the peer connection to remote. The offerer also opens the
// data channel and sends the offer.
func (r *meshRoom) linkPeer(remote *remoteParticipant, offerer bool) error {
	p, err := newPeer(r.cfg, r.local, remote, r.client.SendMessage, r.log)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != RoomStateConnected || r.remote[remote.sid] != remote {
		r.mu.Unlock()
		p.close()
		return nil
	}
	remote.peer = p
	r.mu.Unlock()

	if offerer {
		return p.offer()
	}
	return nil
}

func (r *meshRoom) handleParticipantConnected(info signaling.ParticipantInfo) {
	remote := r.addRemote(info)
	if remote == nil {
		return
	}
	// The newcomer offers; we answer once its offer arrives.
	if err := r.linkPeer(remote, false); err != nil {
		r.log.Warn("peer link failed", "error", err)
	}
	r.connected.emit(remote)
}

func (r *meshRoom) handleParticipantDisconnected(info signaling.ParticipantInfo) {
	remote := r.removeRemote(info.SID)
	if remote == nil {
		return
	}

	r.mu.Lock()
	p := remote.peer
	r.mu.Unlock()
	if p != nil {
		p.close()
	}

	r.disconnected.emit(remote)
	remote.data.clear()
}

func (r *meshRoom) handleSignal(from string, payload signaling.SignalPayload) {
	remote := r.lookup(from)
	if remote == nil {
		r.log.Debug("signal from unknown participant", "from", from, "error", ErrUnknownParticipant)
		return
	}

	r.mu.Lock()
	p := remote.peer
	r.mu.Unlock()
	if p == nil {
		r.log.Debug("signal before peer link", "from", from)
		return
	}

	if err := p.handleSignal(payload); err != nil {
		r.log.Warn("signal failed", "error", err)
	}
}

// handleClosed runs when the signaling connection ends, whether by Disconnect
// or because the server went away.
func (r *meshRoom) handleClosed() {
	r.mu.Lock()
	if r.state == RoomStateDisconnected {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.log.Warn("signaling connection lost")
	if err := r.disconnect(ErrSignalingLost); err != nil {
		r.log.Debug("disconnect after signaling loss", "error", err)
	}
}
