package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BioHazard786/warproom/internal/auth"
	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/google/uuid"
)

var ErrHubStopped = errors.New("hub stopped")

// inbound is a message read from a client, tagged with its sender.
type inbound struct {
	client *Client
	msg    *signaling.Message
}

// HubOptions configures a Hub.
type HubOptions struct {
	TokenSecret     []byte
	MaxParticipants int
	Log             *slog.Logger
}

// Hub is the central brain of the signaling server.
// Its Run goroutine is the only one that touches rooms and clients.
type Hub struct {
	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	snapshots  chan chan []signaling.RoomSummary
	done       chan struct{}

	secret          []byte
	maxParticipants int
	log             *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(opts HubOptions) *Hub {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms:           make(map[string]*Room),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		inbound:         make(chan inbound),
		snapshots:       make(chan chan []signaling.RoomSummary),
		done:            make(chan struct{}),
		secret:          opts.TokenSecret,
		maxParticipants: opts.MaxParticipants,
		log:             log,
	}
}

func newSID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Run starts the hub's main processing loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub stopped", "rooms", len(h.rooms))
			return

		case client := <-h.register:
			h.log.Debug("client registered", "remote", client.remoteAddr())

		case client := <-h.unregister:
			h.log.Debug("client unregistered", "remote", client.remoteAddr())
			h.leave(client)
			h.closeClient(client)

		case in := <-h.inbound:
			h.handle(in.client, in.msg)

		case reply := <-h.snapshots:
			out := make([]signaling.RoomSummary, 0, len(h.rooms))
			for _, room := range h.rooms {
				out = append(out, room.summary())
			}
			reply <- out
		}
	}
}

// registerClient hands a new connection to the hub.
func (h *Hub) registerClient(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// submit forwards a client message; false once the hub has stopped.
func (h *Hub) submit(in inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

// Rooms returns a snapshot of all active rooms.
func (h *Hub) Rooms(ctx context.Context) ([]signaling.RoomSummary, error) {
	reply := make(chan []signaling.RoomSummary, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-reply, nil
}

func (h *Hub) handle(c *Client, msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypeJoin:
		h.join(c, msg)

	case signaling.MessageTypeSignal:
		h.relay(c, msg)

	case signaling.MessageTypeLeave:
		h.leave(c)

	default:
		h.log.Warn("unknown message type", "type", msg.Type, "remote", c.remoteAddr())
	}
}

func (h *Hub) join(c *Client, msg *signaling.Message) {
	if c.room != "" {
		h.deliver(c, signaling.NewErrorMessage("already joined a room"))
		return
	}
	if msg.Room == "" {
		h.deliver(c, signaling.NewErrorMessage("room name is required"))
		return
	}

	grant, err := auth.Verify(h.secret, msg.Token)
	if err != nil {
		h.log.Info("join rejected", "room", msg.Room, "error", err)
		h.deliver(c, signaling.NewErrorMessage("invalid access token"))
		return
	}
	if !grant.AllowsRoom(msg.Room) {
		h.deliver(c, signaling.NewErrorMessage("access token does not grant this room"))
		return
	}

	room, ok := h.rooms[msg.Room]
	if ok && room.hasIdentity(grant.Identity) {
		h.deliver(c, signaling.NewErrorMessage("identity already connected"))
		return
	}
	if ok && h.maxParticipants > 0 && room.size() >= h.maxParticipants {
		h.deliver(c, signaling.NewErrorMessage("room is full"))
		return
	}
	if !ok {
		room = &Room{Name: msg.Room, SID: newSID("RM")}
		h.rooms[room.Name] = room
		h.log.Info("room created", "room", room.Name, "sid", room.SID)
	}

	c.room = room.Name
	c.sid = newSID("PA")
	c.identity = grant.Identity

	joined, _ := signaling.NewMessage(signaling.MessageTypeJoined, signaling.JoinedPayload{
		RoomSID:         room.SID,
		Room:            room.Name,
		ParticipantInfo: c.info(),
		Participants:    room.infos(nil),
	})

	// Everyone already present hears about the newcomer before it can signal them.
	h.broadcast(room, nil, signaling.MessageTypeParticipantConnected, c.info())
	room.add(c)
	h.deliver(c, joined)

	h.log.Info("participant connected", "room", room.Name, "identity", c.identity, "sid", c.sid, "size", room.size())
}

func (h *Hub) relay(c *Client, msg *signaling.Message) {
	room, ok := h.rooms[c.room]
	if c.room == "" || !ok {
		h.deliver(c, signaling.NewErrorMessage("you must join a room first"))
		return
	}

	target, ok := room.find(msg.To)
	if !ok || target == c {
		h.log.Debug("signal target not in room", "room", room.Name, "to", msg.To)
		return
	}

	h.deliver(target, &signaling.Message{
		Type:    signaling.MessageTypeSignal,
		From:    c.sid,
		To:      target.sid,
		Payload: msg.Payload,
	})
}

// leave removes c from its room and tells the others. Safe to call twice.
func (h *Hub) leave(c *Client) {
	if c.room == "" {
		return
	}
	room, ok := h.rooms[c.room]
	c.room = ""
	if !ok || !room.remove(c) {
		return
	}

	h.log.Info("participant disconnected", "room", room.Name, "identity", c.identity, "sid", c.sid)

	if room.size() == 0 {
		delete(h.rooms, room.Name)
		h.log.Info("room deleted", "room", room.Name)
		return
	}
	h.broadcast(room, c, signaling.MessageTypeParticipantDisconnected, c.info())
}

func (h *Hub) broadcast(room *Room, except *Client, typ string, p signaling.ParticipantInfo) {
	msg, _ := signaling.NewMessage(typ, p)
	for _, other := range append([]*Client(nil), room.participants...) {
		if other != except {
			h.deliver(other, msg)
		}
	}
}

// deliver queues msg without ever blocking the hub. A client whose buffer
// is full is dropped.
func (h *Hub) deliver(c *Client, msg *signaling.Message) {
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.log.Warn("client send buffer full, dropping client", "remote", c.remoteAddr())
		h.leave(c)
		h.closeClient(c)
	}
}

func (h *Hub) closeClient(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
