// Package video is a small conferencing SDK: connect to a named room with an
// access token, learn who else is there, and exchange text over data tracks.
// Transport is a full mesh of WebRTC peer connections negotiated through the
// signaling server.
package video

import "context"

// RoomState is the lifecycle state of a Room.
type RoomState string

const (
	RoomStateConnected    RoomState = "connected"
	RoomStateDisconnected RoomState = "disconnected"
)

// ParticipantState is the lifecycle state of the local participant.
type ParticipantState string

const (
	ParticipantStateConnected    ParticipantState = "connected"
	ParticipantStateDisconnected ParticipantState = "disconnected"
)

// Unsubscribe removes a previously registered listener. Calling it more than
// once is harmless.
type Unsubscribe func()

// Participant is any endpoint attached to a room.
type Participant interface {
	SID() string
	Identity() string
	// OnData registers fn for every data track payload the participant sends.
	OnData(fn func(payload string)) Unsubscribe
}

// RemoteParticipant is another endpoint in the room.
type RemoteParticipant interface {
	Participant
}

// LocalParticipant is this endpoint.
type LocalParticipant interface {
	Participant
	State() ParticipantState
	// Tracks lists every published local track.
	Tracks() []LocalTrack
	// DataTracks lists the published local data tracks.
	DataTracks() []LocalDataTrack
}

// LocalTrack is a track published by the local participant.
type LocalTrack interface {
	Name() string
	Stop()
}

// LocalDataTrack carries opaque string payloads to every remote participant.
type LocalDataTrack interface {
	LocalTrack
	Send(payload string) error
}

// Room is a connected session.
type Room interface {
	SID() string
	Name() string
	State() RoomState
	LocalParticipant() LocalParticipant
	// Participants lists the remote participants present right now, in arrival order.
	Participants() []RemoteParticipant
	OnParticipantConnected(fn func(RemoteParticipant)) Unsubscribe
	OnParticipantDisconnected(fn func(RemoteParticipant)) Unsubscribe
	// OnDisconnected registers fn for the end of the session. cause is nil
	// when Disconnect was called.
	OnDisconnected(fn func(cause error)) Unsubscribe
	Disconnect() error
}

// ConnectOptions selects the room and the tracks to publish.
type ConnectOptions struct {
	Name   string
	Tracks []LocalTrack
}

// Connector opens rooms.
type Connector interface {
	Connect(ctx context.Context, token string, opts ConnectOptions) (Room, error)
}
