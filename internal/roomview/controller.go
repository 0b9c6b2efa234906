// Package roomview is the session controller behind the room screen. It
// connects to a named room, mirrors participant arrivals and departures into
// an ordered roster, and relays short chat messages over one data track.
package roomview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/BioHazard786/warproom/internal/video"
	"github.com/samber/lo"
)

// Status is the lifecycle stage of the controller's session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
	StatusClosed     Status = "closed"
)

// DefaultConnectTimeout bounds a connection attempt unless WithConnectTimeout
// says otherwise.
const DefaultConnectTimeout = 30 * time.Second

// Params select the session. Changing them recreates it.
type Params struct {
	RoomName string
	Token    string
}

// Connector opens a room session. video.MeshConnector satisfies it.
type Connector interface {
	Connect(ctx context.Context, token string, opts video.ConnectOptions) (video.Room, error)
}

// Cell is one participant tile.
type Cell struct {
	SID      string
	Identity string
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	RoomName    string
	Status      Status
	Local       *Cell
	Remote      []Cell
	Compose     string
	Received    string
	Err         error
	ChatEnabled bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithDataTrackFactory replaces video.NewLocalDataTrack as the source of the
// data track published with each session.
func WithDataTrackFactory(fn func() video.LocalDataTrack) Option {
	return func(c *Controller) { c.newTrack = fn }
}

// Controller owns at most one room session at a time.
type Controller struct {
	connector Connector
	log       *slog.Logger
	timeout   time.Duration
	newTrack  func() video.LocalDataTrack

	mu         sync.Mutex
	params     Params
	mounted    bool
	closed     bool
	generation uint64
	cancel     context.CancelFunc

	room     video.Room
	roomSubs []video.Unsubscribe
	roster   []video.RemoteParticipant
	dataSubs map[string]video.Unsubscribe

	status       Status
	err          error
	chatDisabled bool
	compose      string
	received     string

	updates chan struct{}
}

// New creates an idle controller.
func New(connector Connector, log *slog.Logger, opts ...Option) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		connector: connector,
		log:       log,
		timeout:   DefaultConnectTimeout,
		newTrack:  func() video.LocalDataTrack { return video.NewLocalDataTrack() },
		dataSubs:  make(map[string]video.Unsubscribe),
		status:    StatusIdle,
		updates:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates signals state changes. Notifications are coalesced: one pending
// signal stands for any number of changes. The channel closes with Close.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// Mount starts a session for params. A session already running or connecting
// with the same params is kept; different params tear it down first.
func (c *Controller) Mount(params Params) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.mounted && c.params == params && (c.status == StatusConnecting || c.status == StatusConnected) {
		c.mu.Unlock()
		return
	}

	stale := c.teardownLocked()

	c.mounted = true
	c.params = params
	c.generation++
	gen := c.generation
	c.status = StatusConnecting
	c.err = nil
	c.chatDisabled = false
	c.received = ""

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	track := c.newTrack()
	c.notifyLocked()
	c.mu.Unlock()

	stale.release(c.log)

	c.log.Info("connecting", "room", params.RoomName)
	go c.connect(ctx, gen, params, track)
}

func (c *Controller) connect(ctx context.Context, gen uint64, params Params, track video.LocalDataTrack) {
	room, err := c.connector.Connect(ctx, params.Token, video.ConnectOptions{
		Name:   params.RoomName,
		Tracks: []video.LocalTrack{track},
	})
	c.complete(gen, room, track, err)
}

// complete records the outcome of the connection attempt gen. A session that
// arrives for an attempt no longer current is shut down on the spot.
func (c *Controller) complete(gen uint64, room video.Room, track video.LocalDataTrack, err error) {
	c.mu.Lock()

	if gen != c.generation || !c.mounted || c.closed {
		c.mu.Unlock()
		if room != nil {
			c.log.Debug("tearing down late session", "room", room.Name())
			session{room: room}.release(c.log)
		}
		track.Stop()
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if err != nil {
		track.Stop()
		c.status = StatusFailed
		c.err = NewError("connect "+c.params.RoomName, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		c.log.Warn("connection failed", "room", c.params.RoomName, "error", err)
		c.notifyLocked()
		c.mu.Unlock()
		return
	}

	c.room = room
	c.status = StatusConnected
	local := room.LocalParticipant()

	c.roomSubs = []video.Unsubscribe{
		room.OnParticipantConnected(func(p video.RemoteParticipant) {
			c.participantConnected(gen, p)
		}),
		room.OnParticipantDisconnected(func(p video.RemoteParticipant) {
			c.participantDisconnected(gen, p)
		}),
		local.OnData(func(payload string) {
			c.dataReceived(gen, payload)
		}),
		room.OnDisconnected(func(cause error) {
			c.roomDisconnected(gen, cause)
		}),
	}

	// Participants already present may have been announced before the
	// subscriptions existed; registration is idempotent by SID.
	for _, p := range room.Participants() {
		c.registerLocked(gen, p)
	}

	if len(local.DataTracks()) == 0 {
		c.chatDisabled = true
		c.err = NewError("publish", ErrPublishFailed)
		c.log.Warn("chat disabled", "room", room.Name(), "error", ErrPublishFailed)
	}

	c.log.Info("connected", "room", room.Name(), "sid", room.SID(), "identity", local.Identity())
	c.notifyLocked()
	c.mu.Unlock()
}

// Retry re-mounts with the current params after a failed connection.
func (c *Controller) Retry() {
	c.mu.Lock()
	if c.status != StatusFailed || !c.mounted {
		c.mu.Unlock()
		return
	}
	params := c.params
	c.mu.Unlock()

	c.Mount(params)
}

// Unmount ends the current session. With no session active it only abandons
// any pending attempt, whose result is discarded on arrival.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.generation++
	stale := c.teardownLocked()
	c.status = StatusIdle
	c.err = nil
	c.chatDisabled = false
	c.notifyLocked()
	c.mu.Unlock()

	stale.release(c.log)
}

// Close unmounts and stops update notifications. The controller cannot be
// mounted again.
func (c *Controller) Close() {
	c.Unmount()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.status = StatusClosed
	close(c.updates)
}

// session is a room detached from the controller and awaiting shutdown.
type session struct {
	room video.Room
	subs []video.Unsubscribe
}

// teardownLocked detaches the current session and every listener the
// controller registered. The caller releases the returned session after
// unlocking.
func (c *Controller) teardownLocked() session {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	s := session{room: c.room, subs: c.roomSubs}
	s.subs = append(s.subs, lo.Values(c.dataSubs)...)

	c.room = nil
	c.roomSubs = nil
	c.roster = nil
	c.dataSubs = make(map[string]video.Unsubscribe)
	return s
}

// release unsubscribes, stops every local track and disconnects.
func (s session) release(log *slog.Logger) {
	for _, unsub := range s.subs {
		unsub()
	}
	if s.room == nil {
		return
	}
	for _, track := range s.room.LocalParticipant().Tracks() {
		track.Stop()
	}
	if err := s.room.Disconnect(); err != nil {
		log.Debug("disconnect", "room", s.room.Name(), "error", err)
	}
}

func (c *Controller) current(gen uint64) bool {
	return gen == c.generation && c.room != nil
}

// roomDisconnected fails the session when the room ends without Unmount.
func (c *Controller) roomDisconnected(gen uint64, cause error) {
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return
	}
	if cause == nil {
		cause = video.ErrSignalingLost
	}

	name := c.room.Name()
	stale := c.teardownLocked()
	c.status = StatusFailed
	c.err = NewError("connect "+c.params.RoomName, fmt.Errorf("%w: %w", ErrConnectionFailed, cause))
	c.chatDisabled = false
	c.log.Warn("room disconnected", "room", name, "error", cause)
	c.notifyLocked()
	c.mu.Unlock()

	stale.release(c.log)
}

func (c *Controller) participantConnected(gen uint64, p video.RemoteParticipant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return
	}
	if c.registerLocked(gen, p) {
		c.log.Debug("participant connected", "sid", p.SID(), "identity", p.Identity())
		c.notifyLocked()
	}
}

// registerLocked adds p to the roster unless it is already there or is the
// local participant.
func (c *Controller) registerLocked(gen uint64, p video.RemoteParticipant) bool {
	if p.SID() == c.room.LocalParticipant().SID() {
		return false
	}
	if lo.ContainsBy(c.roster, func(r video.RemoteParticipant) bool { return r.SID() == p.SID() }) {
		return false
	}

	c.roster = append(c.roster, p)
	c.dataSubs[p.SID()] = p.OnData(func(payload string) {
		c.dataReceived(gen, payload)
	})
	return true
}

func (c *Controller) participantDisconnected(gen uint64, p video.RemoteParticipant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return
	}

	i := slices.IndexFunc(c.roster, func(r video.RemoteParticipant) bool { return r.SID() == p.SID() })
	if i < 0 {
		return
	}
	c.roster = slices.Delete(c.roster, i, i+1)
	if unsub, ok := c.dataSubs[p.SID()]; ok {
		unsub()
		delete(c.dataSubs, p.SID())
	}

	c.log.Debug("participant disconnected", "sid", p.SID(), "identity", p.Identity())
	c.notifyLocked()
}

// dataReceived keeps only the latest payload from any sender.
func (c *Controller) dataReceived(gen uint64, payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return
	}
	c.received = payload
	c.notifyLocked()
}

// SetCompose replaces the text waiting to be sent.
func (c *Controller) SetCompose(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compose == text {
		return
	}
	c.compose = text
	c.notifyLocked()
}

// Send transmits the compose text as "<identity> says: <text>" on the
// published data track. An empty compose field sends nothing. The compose
// text is kept after sending.
func (c *Controller) Send() error {
	c.mu.Lock()
	if c.compose == "" {
		c.mu.Unlock()
		return nil
	}
	if c.room == nil || c.status != StatusConnected || c.room.State() != video.RoomStateConnected {
		c.mu.Unlock()
		return NewError("send", ErrNotConnected)
	}

	local := c.room.LocalParticipant()
	tracks := local.DataTracks()
	if c.chatDisabled || len(tracks) == 0 {
		c.mu.Unlock()
		return NewError("send", ErrPublishFailed)
	}
	payload := fmt.Sprintf("%s says: %s", local.Identity(), c.compose)
	c.mu.Unlock()

	if err := tracks[0].Send(payload); err != nil {
		return WrapError("send", err, tracks[0].Name())
	}
	return nil
}

// Snapshot returns the state to render.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		RoomName:    c.params.RoomName,
		Status:      c.status,
		Compose:     c.compose,
		Received:    c.received,
		Err:         c.err,
		ChatEnabled: c.room != nil && !c.chatDisabled,
	}
	if c.room != nil {
		local := c.room.LocalParticipant()
		s.Local = &Cell{SID: local.SID(), Identity: local.Identity()}
	}
	s.Remote = lo.Map(c.roster, func(p video.RemoteParticipant, _ int) Cell {
		return Cell{SID: p.SID(), Identity: p.Identity()}
	})
	return s
}

func (c *Controller) notifyLocked() {
	if c.closed {
		return
	}
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
