package video

import (
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/BioHazard786/warproom/internal/config"
	"github.com/BioHazard786/warproom/internal/signaling"
	"github.com/samber/lo"
	pion "github.com/pion/webrtc/v4"
)

const dataChannelLabel = "data"

// peer is the mesh link to one remote participant.
type peer struct {
	remote *remoteParticipant
	local  *localParticipant
	pc     *pion.PeerConnection
	send   func(*signaling.Message) error
	log    *slog.Logger

	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit
	closed    bool
}

func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || behindRestrictiveNAT()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
}

// behindRestrictiveNAT guesses whether direct connectivity is unlikely: a VPN
// style interface is up, or an address sits in the CGNAT range 100.64.0.0/10.
func behindRestrictiveNAT() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	_, cgnat, _ := net.ParseCIDR("100.64.0.0/10")
	vpnHints := []string{"tun", "tap", "wg", "ppp", "warp"}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		name := strings.ToLower(iface.Name)
		if lo.SomeBy(vpnHints, func(h string) bool { return strings.Contains(name, h) }) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && cgnat.Contains(ipnet.IP) {
				return true
			}
		}
	}
	return false
}

func newPeer(cfg *config.Config, local *localParticipant, remote *remoteParticipant, send func(*signaling.Message) error, log *slog.Logger) (*peer, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, newPeerError("create peer connection", remote.sid, err)
	}

	p := &peer{
		remote: remote,
		local:  local,
		pc:     pc,
		send:   send,
		log:    log.With("peer", remote.sid, "identity", remote.identity),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		candidate, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		p.signal(signaling.SignalPayload{ICECandidate: candidate})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		p.log.Debug("peer connection state", "state", state.String())
	})

	// The answering side receives the offerer's channel here.
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == dataChannelLabel {
			p.bind(dc)
		}
	})

	return p, nil
}

// bind wires a data channel into the local tracks and the remote's data listeners.
func (p *peer) bind(dc *pion.DataChannel) {
	dc.OnOpen(func() {
		p.log.Debug("data channel open")
		p.local.attach(p.remote.sid, dc)
	})

	dc.OnClose(func() {
		p.local.detach(p.remote.sid)
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		payload, err := decodeData(msg.Data)
		if err != nil {
			p.log.Warn("dropping data frame", "error", err)
			return
		}
		p.remote.data.emit(payload)
	})
}

func (p *peer) signal(payload signaling.SignalPayload) {
	msg, err := signaling.NewMessage(signaling.MessageTypeSignal, payload)
	if err != nil {
		return
	}
	msg.To = p.remote.sid
	if err := p.send(msg); err != nil {
		p.log.Debug("signal not sent", "error", err)
	}
}

// offer opens the data channel and starts negotiation. Newcomers offer to
// everyone already in the room.
func (p *peer) offer() error {
	ordered := true
	dc, err := p.pc.CreateDataChannel(dataChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return newPeerError("create data channel", p.remote.sid, err)
	}
	p.bind(dc)

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return newPeerError("create offer", p.remote.sid, err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return newPeerError("set local description", p.remote.sid, err)
	}

	desc := p.pc.LocalDescription()
	p.signal(signaling.SignalPayload{Type: desc.Type.String(), SDP: desc.SDP})
	return nil
}

// handleSignal applies an SDP or ICE payload from the remote participant.
func (p *peer) handleSignal(payload signaling.SignalPayload) error {
	if payload.SDP != "" {
		if err := p.handleSDP(payload); err != nil {
			return err
		}
	}
	if len(payload.ICECandidate) > 0 {
		return p.handleICECandidate(payload.ICECandidate)
	}
	return nil
}

func (p *peer) handleSDP(payload signaling.SignalPayload) error {
	switch payload.Type {
	case "offer":
		desc := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: payload.SDP}
		if err := p.pc.SetRemoteDescription(desc); err != nil {
			return newPeerError("set remote description", p.remote.sid, err)
		}
		p.flushCandidates()

		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return newPeerError("create answer", p.remote.sid, err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return newPeerError("set local description", p.remote.sid, err)
		}
		local := p.pc.LocalDescription()
		p.signal(signaling.SignalPayload{Type: local.Type.String(), SDP: local.SDP})
		return nil

	case "answer":
		desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: payload.SDP}
		if err := p.pc.SetRemoteDescription(desc); err != nil {
			return newPeerError("set remote description", p.remote.sid, err)
		}
		p.flushCandidates()
		return nil

	default:
		return newPeerError("handle signal", p.remote.sid, ErrUnexpectedSignal)
	}
}

// handleICECandidate adds the candidate, or holds it until a remote
// description exists.
func (p *peer) handleICECandidate(raw json.RawMessage) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(raw, &ice); err != nil {
		return newPeerError("parse ICE candidate", p.remote.sid, err)
	}

	p.mu.Lock()
	if !p.remoteSet {
		p.pending = append(p.pending, ice)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(ice); err != nil {
		return newPeerError("add ICE candidate", p.remote.sid, err)
	}
	return nil
}

func (p *peer) flushCandidates() {
	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, ice := range pending {
		if err := p.pc.AddICECandidate(ice); err != nil {
			p.log.Debug("dropping buffered ICE candidate", "error", err)
		}
	}
}

func (p *peer) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.local.detach(p.remote.sid)
	if err := p.pc.Close(); err != nil {
		p.log.Debug("close peer connection", "error", err)
	}
}
