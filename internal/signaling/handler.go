package signaling

import "log/slog"

// Handler routes incoming signaling messages to the callbacks of a joined room.
// Nil callbacks are skipped.
type Handler struct {
	OnParticipantConnected    func(ParticipantInfo)
	OnParticipantDisconnected func(ParticipantInfo)
	OnSignal                  func(from string, payload SignalPayload)
	OnError                   func(text string)

	// OnClosed runs once the message stream ends.
	OnClosed func()

	Log *slog.Logger
}

// Run dispatches messages until incoming is closed.
func (h *Handler) Run(incoming <-chan *Message) {
	for msg := range incoming {
		h.Dispatch(msg)
	}
	if h.OnClosed != nil {
		h.OnClosed()
	}
}

// Dispatch routes a single message.
func (h *Handler) Dispatch(msg *Message) {
	switch msg.Type {
	case MessageTypeParticipantConnected:
		var p ParticipantInfo
		if h.decode(msg, &p) && h.OnParticipantConnected != nil {
			h.OnParticipantConnected(p)
		}

	case MessageTypeParticipantDisconnected:
		var p ParticipantInfo
		if h.decode(msg, &p) && h.OnParticipantDisconnected != nil {
			h.OnParticipantDisconnected(p)
		}

	case MessageTypeSignal:
		var payload SignalPayload
		if h.decode(msg, &payload) && h.OnSignal != nil {
			h.OnSignal(msg.From, payload)
		}

	case MessageTypeError:
		var e ErrorPayload
		text := "unknown error from server"
		if h.decode(msg, &e) {
			text = e.Error
		}
		if h.OnError != nil {
			h.OnError(text)
		}

	default:
		h.logger().Debug("ignoring signaling message", "type", msg.Type)
	}
}

func (h *Handler) decode(msg *Message, v any) bool {
	if err := msg.DecodePayload(v); err != nil {
		h.logger().Warn("bad signaling payload", "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (h *Handler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
