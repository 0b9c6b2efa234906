package video

import (
	"sync"
	"sync/atomic"
)

type localParticipant struct {
	sid      string
	identity string
	state    atomic.Value // ParticipantState

	mu         sync.Mutex
	tracks     []LocalTrack
	dataTracks []*DataTrack

	data listeners[string]
}

func newLocalParticipant(sid, identity string) *localParticipant {
	p := &localParticipant{sid: sid, identity: identity}
	p.state.Store(ParticipantStateConnected)
	return p
}

func (p *localParticipant) SID() string { return p.sid }
func (p *localParticipant) Identity() string { return p.identity }

func (p *localParticipant) State() ParticipantState {
	return p.state.Load().(ParticipantState)
}

// OnData never fires for the local participant: our own sends are not echoed.
func (p *localParticipant) OnData(fn func(string)) Unsubscribe {
	return p.data.add(fn)
}

func (p *localParticipant) Tracks() []LocalTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LocalTrack(nil), p.tracks...)
}

func (p *localParticipant) DataTracks() []LocalDataTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LocalDataTrack, len(p.dataTracks))
	for i, t := range p.dataTracks {
		out[i] = t
	}
	return out
}

// publish records the track. Stopped data tracks cannot be published.
func (p *localParticipant) publish(track LocalTrack) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dt, ok := track.(*DataTrack); ok {
		if dt.Stopped() {
			return false
		}
		p.dataTracks = append(p.dataTracks, dt)
	}
	p.tracks = append(p.tracks, track)
	return true
}

// attach exposes a newly opened peer channel to every published data track.
func (p *localParticipant) attach(sid string, ch channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.dataTracks {
		t.attach(sid, ch)
	}
}

func (p *localParticipant) detach(sid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.dataTracks {
		t.detach(sid)
	}
}

type remoteParticipant struct {
	sid      string
	identity string
	data     listeners[string]
	peer     *peer
}

func newRemoteParticipant(sid, identity string) *remoteParticipant {
	return &remoteParticipant{sid: sid, identity: identity}
}

func (p *remoteParticipant) SID() string { return p.sid }
func (p *remoteParticipant) Identity() string { return p.identity }

func (p *remoteParticipant) OnData(fn func(string)) Unsubscribe {
	return p.data.add(fn)
}
