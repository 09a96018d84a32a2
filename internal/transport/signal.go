package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Signalling limits.
const (
	defaultSignalTimeout = 15 * time.Second
	maxAnswerBytes       = 64 << 10
)

// HTTPSignaler posts the offer to the hub's signalUrl and reads the answer
// from the response body.
type HTTPSignaler struct {
	client *http.Client
}

// NewHTTPSignaler creates a signaler. A nil client gets a default with a
// request timeout.
func NewHTTPSignaler(client *http.Client) *HTTPSignaler {
	if client == nil {
		client = &http.Client{Timeout: defaultSignalTimeout}
	}
	return &HTTPSignaler{client: client}
}

// Exchange implements Signaler.
func (s *HTTPSignaler) Exchange(ctx context.Context, req SignalRequest) (SessionDescription, error) {
	if req.SignalURL == "" {
		return SessionDescription{}, fmt.Errorf("%w: offer has no signalUrl", ErrSignaling)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return SessionDescription{}, fmt.Errorf("%w: encoding offer: %w", ErrSignaling, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.SignalURL, bytes.NewReader(body))
	if err != nil {
		return SessionDescription{}, fmt.Errorf("%w: %w", ErrSignaling, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SessionDescription{}, fmt.Errorf("%w: %w", ErrSignaling, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // Best effort error detail
		return SessionDescription{}, fmt.Errorf("%w: hub returned %d: %s", ErrSignaling, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var answer SessionDescription
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAnswerBytes)).Decode(&answer); err != nil {
		return SessionDescription{}, fmt.Errorf("%w: decoding answer: %w", ErrSignaling, err)
	}
	if answer.SDP == "" {
		return SessionDescription{}, fmt.Errorf("%w: empty answer", ErrSignaling)
	}
	return answer, nil
}

// ManualSignaler parks the local offer until an answer is delivered by
// other means, typically by scanning a QR code the hub displays.
type ManualSignaler struct {
	mu      sync.Mutex
	pending *SignalRequest
	answer  chan SessionDescription
	changed chan struct{}
}

// NewManualSignaler creates an idle manual signaler.
func NewManualSignaler() *ManualSignaler {
	return &ManualSignaler{changed: make(chan struct{}, 1)}
}

// Exchange implements Signaler. It blocks until Deliver is called or ctx
// ends. A new Exchange replaces any offer still waiting.
func (s *ManualSignaler) Exchange(ctx context.Context, req SignalRequest) (SessionDescription, error) {
	answer := make(chan SessionDescription, 1)

	s.mu.Lock()
	s.pending = &req
	s.answer = answer
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		if s.answer == answer {
			s.pending = nil
			s.answer = nil
		}
		s.mu.Unlock()
	}()

	select {
	case sd := <-answer:
		return sd, nil
	case <-ctx.Done():
		return SessionDescription{}, fmt.Errorf("%w: waiting for answer: %w", ErrSignaling, ctx.Err())
	}
}

// PendingOffer returns the offer awaiting an answer, if any.
func (s *ManualSignaler) PendingOffer() (SignalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return SignalRequest{}, false
	}
	return *s.pending, true
}

// Changed is signalled whenever a new offer starts waiting.
func (s *ManualSignaler) Changed() <-chan struct{} {
	return s.changed
}

// Deliver hands the hub's answer to the waiting Exchange.
func (s *ManualSignaler) Deliver(answer SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answer == nil {
		return ErrNoPendingOffer
	}
	s.answer <- answer
	s.pending = nil
	s.answer = nil
	return nil
}

func (s *ManualSignaler) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// DirectSignaler answers immediately for transports that need no
// out-of-band exchange.
type DirectSignaler struct{}

// Exchange implements Signaler.
func (DirectSignaler) Exchange(_ context.Context, req SignalRequest) (SessionDescription, error) {
	return SessionDescription{Type: "answer", SDP: req.Offer.SDP}, nil
}
