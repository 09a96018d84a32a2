// Package rtctransport carries the hub session over a WebRTC data channel.
//
// The device is the offering peer. It opens one ordered, reliable data
// channel and gathers all ICE candidates before returning its offer, so
// the hub can answer in a single signalling round trip.
package rtctransport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/menuhub/hubsync/internal/pairing"
	"github.com/menuhub/hubsync/internal/transport"
)

// ChannelLabel names the data channel the hub expects.
const ChannelLabel = "menuhub-sync"

// Transport implements transport.SessionTransport with pion/webrtc.
type Transport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	mu        sync.Mutex
	state     transport.State
	closed    bool
	onMessage func([]byte)
	onState   func(transport.State)
}

// New creates a peer connection using iceServers (STUN/TURN URLs) and
// opens the sync data channel on it.
func New(iceServers []string) (*Transport, error) {
	var cfg webrtc.Configuration
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}

	ordered := true
	dc, err := pc.CreateDataChannel(ChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating data channel: %w", err)
	}

	t := &Transport{pc: pc, dc: dc}

	dc.OnOpen(func() { t.setState(transport.StateConnected) })
	dc.OnClose(func() { t.setState(transport.StateDisconnected) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.Lock()
		handler := t.onMessage
		t.mu.Unlock()
		if handler != nil {
			handler(msg.Data)
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateConnecting:
			t.setState(transport.StateConnecting)
		case webrtc.PeerConnectionStateDisconnected:
			t.setState(transport.StateDisconnected)
		case webrtc.PeerConnectionStateFailed:
			t.setState(transport.StateFailed)
		case webrtc.PeerConnectionStateClosed:
			t.setState(transport.StateClosed)
		}
	})

	return t, nil
}

// Factory returns a transport.Factory that prefers the offer's ICE
// servers and falls back to defaults.
func Factory(defaults []string) transport.Factory {
	return func(offer pairing.Offer) (transport.SessionTransport, error) {
		servers := offer.ICEServers
		if len(servers) == 0 {
			servers = defaults
		}
		return New(servers)
	}
}

// OnMessage implements transport.SessionTransport.
func (t *Transport) OnMessage(f func([]byte)) {
	t.mu.Lock()
	t.onMessage = f
	t.mu.Unlock()
}

// OnStateChange implements transport.SessionTransport.
func (t *Transport) OnStateChange(f func(transport.State)) {
	t.mu.Lock()
	t.onState = f
	t.mu.Unlock()
}

// CreateOffer implements transport.SessionTransport. It blocks until ICE
// gathering completes or ctx ends.
func (t *Transport) CreateOffer(ctx context.Context) (transport.SessionDescription, error) {
	if t.isClosed() {
		return transport.SessionDescription{}, transport.ErrClosed
	}

	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return transport.SessionDescription{}, fmt.Errorf("creating offer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return transport.SessionDescription{}, fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return transport.SessionDescription{}, fmt.Errorf("gathering ICE candidates: %w", ctx.Err())
	}

	local := t.pc.LocalDescription()
	if local == nil {
		return transport.SessionDescription{}, fmt.Errorf("local description missing after gathering")
	}
	return transport.SessionDescription{Type: local.Type.String(), SDP: local.SDP}, nil
}

// SetRemoteAnswer implements transport.SessionTransport.
func (t *Transport) SetRemoteAnswer(_ context.Context, answer transport.SessionDescription) error {
	if t.isClosed() {
		return transport.ErrClosed
	}
	if answer.SDP == "" {
		return fmt.Errorf("applying answer: empty SDP")
	}
	err := t.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.SDP,
	})
	if err != nil {
		return fmt.Errorf("applying answer: %w", err)
	}
	return nil
}

// Send implements transport.SessionTransport.
func (t *Transport) Send(data []byte) error {
	if t.isClosed() || t.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return transport.ErrNotOpen
	}
	if err := t.dc.SendText(string(data)); err != nil {
		return fmt.Errorf("sending on data channel: %w", err)
	}
	return nil
}

// Close implements transport.SessionTransport. No state change is reported
// for an explicit close.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if err := t.pc.Close(); err != nil {
		return fmt.Errorf("closing peer connection: %w", err)
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// setState deduplicates transitions and suppresses them after Close.
// Once terminal, later transitions are ignored.
func (t *Transport) setState(s transport.State) {
	t.mu.Lock()
	if t.closed || t.state == s || t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = s
	handler := t.onState
	t.mu.Unlock()

	if handler != nil {
		handler(s)
	}
}
