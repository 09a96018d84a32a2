package transport

import (
	"context"

	"github.com/menuhub/hubsync/internal/pairing"
)

// State is the lifecycle state of a session transport.
type State int

// Transport states.
const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the channel can no longer carry messages.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateFailed || s == StateClosed
}

// SessionDescription is an opaque offer or answer exchanged during
// signalling.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp,omitempty"`
}

// SessionTransport is one attempt at a channel to the hub.
//
// Callbacks must be registered before CreateOffer. They may be invoked
// from transport-owned goroutines and must not block.
type SessionTransport interface {
	// CreateOffer prepares the local session and returns its description.
	CreateOffer(ctx context.Context) (SessionDescription, error)
	// SetRemoteAnswer applies the hub's answer. The channel opens
	// asynchronously; watch OnStateChange for StateConnected.
	SetRemoteAnswer(ctx context.Context, answer SessionDescription) error
	// Send writes one text frame. Returns ErrNotOpen unless connected.
	Send(data []byte) error
	OnMessage(func(data []byte))
	OnStateChange(func(State))
	// Close releases all resources. Safe to call more than once.
	Close() error
}

// Factory builds a fresh transport for a connection attempt.
type Factory func(offer pairing.Offer) (SessionTransport, error)

// SignalRequest is what a Signaler delivers to the hub.
type SignalRequest struct {
	HubID     string             `json:"hubId"`
	DeviceID  string             `json:"deviceId"`
	SignalURL string             `json:"-"`
	Offer     SessionDescription `json:"offer"`
}

// Signaler obtains the hub's answer for a local offer.
type Signaler interface {
	Exchange(ctx context.Context, req SignalRequest) (SessionDescription, error)
}

// SignalerFunc adapts a function to Signaler.
type SignalerFunc func(ctx context.Context, req SignalRequest) (SessionDescription, error)

// Exchange implements Signaler.
func (f SignalerFunc) Exchange(ctx context.Context, req SignalRequest) (SessionDescription, error) {
	return f(ctx, req)
}
