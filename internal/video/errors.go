package video

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNameRequired   = errors.New("room name is required")
	ErrSignalingFailed    = errors.New("signaling server unreachable")
	ErrJoinFailed         = errors.New("join failed")
	ErrSignalingLost      = errors.New("signaling connection lost")
	ErrTrackStopped       = errors.New("track stopped")
	ErrUnexpectedFrame    = errors.New("unexpected data channel frame")
	ErrUnexpectedSignal   = errors.New("unexpected signal type")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// PeerError describes a failure negotiating with one remote participant.
type PeerError struct {
	Op  string
	SID string
	Err error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.SID, e.Err)
}

func (e *PeerError) Unwrap() error {
	return e.Err
}

func newPeerError(op, sid string, err error) *PeerError {
	return &PeerError{Op: op, SID: sid, Err: err}
}
