package video

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
)

// channel is the part of a pion data channel a data track writes to.
type channel interface {
	Send(data []byte) error
	ReadyState() pion.DataChannelState
}

// DataTrack is a local data track. Once published it delivers every Send to
// each remote participant whose data channel is open.
type DataTrack struct {
	name string

	mu       sync.Mutex
	channels map[string]channel
	order    []string
	stopped  bool
}

// NewLocalDataTrack creates an unpublished data track.
func NewLocalDataTrack() *DataTrack {
	return &DataTrack{
		name:     uuid.NewString(),
		channels: make(map[string]channel),
	}
}

func (t *DataTrack) Name() string {
	return t.name
}

// Stop detaches the track from every peer. Later sends fail with ErrTrackStopped.
func (t *DataTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.channels = make(map[string]channel)
	t.order = nil
}

func (t *DataTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Send frames payload and writes it to every open peer channel. With no
// peers attached the payload goes nowhere and Send succeeds.
func (t *DataTrack) Send(payload string) error {
	frame, err := encodeData(payload)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return ErrTrackStopped
	}
	targets := make([]channel, 0, len(t.order))
	sids := make([]string, 0, len(t.order))
	for _, sid := range t.order {
		targets = append(targets, t.channels[sid])
		sids = append(sids, sid)
	}
	t.mu.Unlock()

	var errs []error
	for i, ch := range targets {
		if ch.ReadyState() != pion.DataChannelStateOpen {
			continue
		}
		if err := ch.Send(frame); err != nil {
			errs = append(errs, newPeerError("send data", sids[i], err))
		}
	}
	return errors.Join(errs...)
}

// attach routes future sends to the participant's channel.
func (t *DataTrack) attach(sid string, ch channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if _, ok := t.channels[sid]; !ok {
		t.order = append(t.order, sid)
	}
	t.channels[sid] = ch
}

func (t *DataTrack) detach(sid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[sid]; !ok {
		return
	}
	delete(t.channels, sid)
	for i, v := range t.order {
		if v == sid {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *DataTrack) attached() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}
