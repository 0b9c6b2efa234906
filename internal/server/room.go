package server

import (
	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/samber/lo"
)

// Room is a named conference. Participants are kept in arrival order.
// Only the hub goroutine touches a Room.
type Room struct {
	// Name is the client-chosen room name.
	Name string

	// SID is the server-assigned room identifier.
	SID string

	participants []*Client
}

func (r *Room) add(c *Client) {
	r.participants = append(r.participants, c)
}

func (r *Room) remove(c *Client) bool {
	before := len(r.participants)
	r.participants = lo.Without(r.participants, c)
	return len(r.participants) != before
}

func (r *Room) find(sid string) (*Client, bool) {
	return lo.Find(r.participants, func(c *Client) bool { return c.sid == sid })
}

func (r *Room) hasIdentity(identity string) bool {
	return lo.ContainsBy(r.participants, func(c *Client) bool { return c.identity == identity })
}

func (r *Room) size() int {
	return len(r.participants)
}

// infos lists the participants, optionally leaving one out.
func (r *Room) infos(except *Client) []signaling.ParticipantInfo {
	out := make([]signaling.ParticipantInfo, 0, len(r.participants))
	for _, c := range r.participants {
		if c == except {
			continue
		}
		out = append(out, c.info())
	}
	return out
}

func (r *Room) summary() signaling.RoomSummary {
	return signaling.RoomSummary{
		Name:         r.Name,
		SID:          r.SID,
		Participants: r.infos(nil),
	}
}
