package roomview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BioHazard786/warproom/internal/video"
)

type fakeListeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *fakeListeners[T]) add(fn func(T)) video.Unsubscribe {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *fakeListeners[T]) emit(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for i := 0; i < l.next; i++ {
		if fn, ok := l.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (l *fakeListeners[T]) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

type fakeParticipant struct {
	sid      string
	identity string
	data     fakeListeners[string]
}

func newParticipant(identity string) *fakeParticipant {
	return &fakeParticipant{sid: "PA_" + identity, identity: identity}
}

func (p *fakeParticipant) SID() string { return p.sid }
func (p *fakeParticipant) Identity() string { return p.identity }
func (p *fakeParticipant) OnData(fn func(string)) video.Unsubscribe {
	return p.data.add(fn)
}

type fakeLocal struct {
	fakeParticipant
	mu     sync.Mutex
	tracks []video.LocalTrack
}

func (p *fakeLocal) State() video.ParticipantState { return video.ParticipantStateConnected }

func (p *fakeLocal) Tracks() []video.LocalTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]video.LocalTrack(nil), p.tracks...)
}

func (p *fakeLocal) DataTracks() []video.LocalDataTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []video.LocalDataTrack
	for _, t := range p.tracks {
		if dt, ok := t.(video.LocalDataTrack); ok {
			out = append(out, dt)
		}
	}
	return out
}

type fakeTrack struct {
	name string

	mu      sync.Mutex
	sent    []string
	stopped bool
	err     error
}

func (t *fakeTrack) Name() string { return t.name }

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTrack) Send(payload string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return video.ErrTrackStopped
	}
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, payload)
	return nil
}

func (t *fakeTrack) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *fakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeRoom struct {
	sid   string
	name  string
	local *fakeLocal

	mu           sync.Mutex
	participants []video.RemoteParticipant
	disconnects  int
	lost         bool

	connected    fakeListeners[video.RemoteParticipant]
	disconnected fakeListeners[video.RemoteParticipant]
	ended        fakeListeners[error]
}

func (r *fakeRoom) SID() string { return r.sid }
func (r *fakeRoom) Name() string { return r.name }
func (r *fakeRoom) LocalParticipant() video.LocalParticipant { return r.local }

func (r *fakeRoom) State() video.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disconnects > 0 || r.lost {
		return video.RoomStateDisconnected
	}
	return video.RoomStateConnected
}

func (r *fakeRoom) Participants() []video.RemoteParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]video.RemoteParticipant(nil), r.participants...)
}

func (r *fakeRoom) OnParticipantConnected(fn func(video.RemoteParticipant)) video.Unsubscribe {
	return r.connected.add(fn)
}

func (r *fakeRoom) OnParticipantDisconnected(fn func(video.RemoteParticipant)) video.Unsubscribe {
	return r.disconnected.add(fn)
}

func (r *fakeRoom) OnDisconnected(fn func(error)) video.Unsubscribe {
	return r.ended.add(fn)
}

func (r *fakeRoom) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
	return nil
}

func (r *fakeRoom) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

// join and leave play the transport: update the list, then notify.
func (r *fakeRoom) join(p *fakeParticipant) {
	r.mu.Lock()
	r.participants = append(r.participants, p)
	r.mu.Unlock()
	r.connected.emit(p)
}

func (r *fakeRoom) leave(p *fakeParticipant) {
	r.mu.Lock()
	for i, q := range r.participants {
		if q.SID() == p.SID() {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	r.disconnected.emit(p)
}

// drop ends the session from the transport side, as a lost signaling
// connection does.
func (r *fakeRoom) drop(cause error) {
	r.mu.Lock()
	r.lost = true
	r.mu.Unlock()
	r.ended.emit(cause)
}

// fakeConnector hands out rooms named after the request. When gate is set,
// Connect blocks until a value is sent on it. prepare runs on each room before
// it is returned.
type fakeConnector struct {
	identity string
	gate     chan struct{}
	fail     error
	prepare  func(*fakeRoom)

	mu    sync.Mutex
	rooms []*fakeRoom
	calls []video.ConnectOptions
}

func (c *fakeConnector) Connect(ctx context.Context, token string, opts video.ConnectOptions) (video.Room, error) {
	c.mu.Lock()
	c.calls = append(c.calls, opts)
	gate, fail := c.gate, c.fail
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail != nil {
		return nil, fail
	}
	if token == "" {
		return nil, errors.New("token required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	local := &fakeLocal{fakeParticipant: fakeParticipant{sid: "PA_" + c.identity, identity: c.identity}}
	for _, t := range opts.Tracks {
		if ft, ok := t.(*fakeTrack); ok && ft.Stopped() {
			continue
		}
		local.tracks = append(local.tracks, t)
	}
	room := &fakeRoom{sid: fmt.Sprintf("RM%d", len(c.rooms)), name: opts.Name, local: local}
	if c.prepare != nil {
		c.prepare(room)
	}
	c.rooms = append(c.rooms, room)
	return room, nil
}

func (c *fakeConnector) Rooms() []*fakeRoom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeRoom(nil), c.rooms...)
}

func (c *fakeConnector) Calls() []video.ConnectOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]video.ConnectOptions(nil), c.calls...)
}
