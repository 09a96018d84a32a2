// Package wstransport carries the hub session over a plain WebSocket to the
// endpoint advertised in the pairing offer. It suits hubs on the same LAN
// where a peer-to-peer negotiation adds nothing.
package wstransport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/menuhub/hubsync/internal/pairing"
	"github.com/menuhub/hubsync/internal/transport"
)

// OfferType is the session description type this transport produces.
const OfferType = "websocket"

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Transport implements transport.SessionTransport over gorilla/websocket.
type Transport struct {
	endpoint string
	dialer   *websocket.Dialer
	header   http.Header

	mu        sync.Mutex
	conn      *websocket.Conn
	state     transport.State
	closed    bool
	onMessage func([]byte)
	onState   func(transport.State)

	writeMu sync.Mutex
}

// New creates a transport for endpoint. A nil dialer uses
// websocket.DefaultDialer.
func New(endpoint string, dialer *websocket.Dialer, header http.Header) *Transport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Transport{endpoint: endpoint, dialer: dialer, header: header}
}

// Factory returns a transport.Factory dialling each offer's endpoint.
func Factory(dialer *websocket.Dialer, header http.Header) transport.Factory {
	return func(offer pairing.Offer) (transport.SessionTransport, error) {
		u, err := url.Parse(offer.Endpoint)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return nil, fmt.Errorf("%w: endpoint %q", transport.ErrNoEndpoint, offer.Endpoint)
		}
		return New(offer.Endpoint, dialer, header), nil
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

// CreateOffer implements transport.SessionTransport. There is nothing to
// negotiate; the description only marks the transport kind.
func (t *Transport) CreateOffer(context.Context) (transport.SessionDescription, error) {
	if err := t.setState(transport.StateConnecting); err != nil {
		return transport.SessionDescription{}, err
	}
	return transport.SessionDescription{Type: OfferType}, nil
}

// SetRemoteAnswer implements transport.SessionTransport by dialling the
// endpoint. The answer content is ignored.
func (t *Transport) SetRemoteAnswer(ctx context.Context, _ transport.SessionDescription) error {
	conn, resp, err := t.dialer.DialContext(ctx, t.endpoint, t.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // Handshake response body is unused
	}
	if err != nil {
		t.setState(transport.StateFailed) //nolint:errcheck // Reporting failure, closed is fine
		return fmt.Errorf("dialling hub %s: %w", t.endpoint, err)
	}
	conn.SetReadLimit(maxMessageSize)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close() //nolint:errcheck // Raced with Close
		return transport.ErrClosed
	}
	t.conn = conn
	t.mu.Unlock()

	t.setState(transport.StateConnected) //nolint:errcheck // Not closed, checked above
	go t.readLoop(conn)
	return nil
}

// Send implements transport.SessionTransport.
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	conn, state := t.conn, t.state
	t.mu.Unlock()
	if conn == nil || state != transport.StateConnected {
		return transport.ErrNotOpen
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck // Fails only on closed conn, caught by write
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
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
	t.state = transport.StateClosed
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage, //nolint:errcheck // Peer may already be gone
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return conn.Close()
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.setState(transport.StateDisconnected) //nolint:errcheck // Suppressed after Close
			return
		}
		t.mu.Lock()
		handler := t.onMessage
		t.mu.Unlock()
		if handler != nil {
			handler(data)
		}
	}
}

// setState records s and notifies the callback unless the transport was
// closed or s repeats the current state.
func (t *Transport) setState(s transport.State) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	if t.state == s {
		t.mu.Unlock()
		return nil
	}
	t.state = s
	handler := t.onState
	t.mu.Unlock()

	if handler != nil {
		handler(s)
	}
	return nil
}
