package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPSignaler_Exchange(t *testing.T) {
	var got SignalRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(SessionDescription{Type: "answer", SDP: "v=0 answer"}) //nolint:errcheck // Test server
	}))
	defer srv.Close()

	answer, err := NewHTTPSignaler(nil).Exchange(context.Background(), SignalRequest{
		HubID:     "hub-1",
		DeviceID:  "device_1_a",
		SignalURL: srv.URL,
		Offer:     SessionDescription{Type: "offer", SDP: "v=0 offer"},
	})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if answer.SDP != "v=0 answer" {
		t.Errorf("answer = %+v", answer)
	}
	if got.HubID != "hub-1" || got.DeviceID != "device_1_a" || got.Offer.SDP != "v=0 offer" {
		t.Errorf("hub received %+v", got)
	}
}

func TestHTTPSignaler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "hub busy", http.StatusServiceUnavailable)
		}},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>")) //nolint:errcheck // Test server
		}},
		{"empty answer", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"type":"answer"}`)) //nolint:errcheck // Test server
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPSignaler(srv.Client()).Exchange(context.Background(), SignalRequest{SignalURL: srv.URL})
			if !errors.Is(err, ErrSignaling) {
				t.Errorf("Exchange() error = %v, want ErrSignaling", err)
			}
		})
	}

	t.Run("missing url", func(t *testing.T) {
		_, err := NewHTTPSignaler(nil).Exchange(context.Background(), SignalRequest{})
		if !errors.Is(err, ErrSignaling) {
			t.Errorf("Exchange() error = %v, want ErrSignaling", err)
		}
	})
}

func TestManualSignaler(t *testing.T) {
	s := NewManualSignaler()

	if err := s.Deliver(SessionDescription{SDP: "early"}); !errors.Is(err, ErrNoPendingOffer) {
		t.Errorf("Deliver() with nothing pending = %v, want ErrNoPendingOffer", err)
	}

	result := make(chan SessionDescription, 1)
	go func() {
		sd, err := s.Exchange(context.Background(), SignalRequest{HubID: "hub-1", Offer: SessionDescription{SDP: "offer"}})
		if err != nil {
			t.Errorf("Exchange() error = %v", err)
		}
		result <- sd
	}()

	select {
	case <-s.Changed():
	case <-time.After(time.Second):
		t.Fatal("Changed() not signalled")
	}

	pending, ok := s.PendingOffer()
	if !ok || pending.HubID != "hub-1" || pending.Offer.SDP != "offer" {
		t.Fatalf("PendingOffer() = %+v, %v", pending, ok)
	}

	if err := s.Deliver(SessionDescription{Type: "answer", SDP: "answer"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	select {
	case sd := <-result:
		if sd.SDP != "answer" {
			t.Errorf("Exchange() = %+v", sd)
		}
	case <-time.After(time.Second):
		t.Fatal("Exchange() did not return after Deliver")
	}

	if _, ok := s.PendingOffer(); ok {
		t.Error("PendingOffer() should be empty after Deliver")
	}
}

func TestManualSignaler_ContextCancel(t *testing.T) {
	s := NewManualSignaler()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Exchange(ctx, SignalRequest{HubID: "hub-1"})
	if !errors.Is(err, ErrSignaling) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Exchange() error = %v, want ErrSignaling wrapping deadline", err)
	}
	if _, ok := s.PendingOffer(); ok {
		t.Error("abandoned offer should not stay pending")
	}
}

func TestDirectSignaler(t *testing.T) {
	sd, err := DirectSignaler{}.Exchange(context.Background(), SignalRequest{Offer: SessionDescription{Type: "websocket"}})
	if err != nil || sd.Type != "answer" {
		t.Errorf("Exchange() = %+v, %v", sd, err)
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		state    State
		name     string
		terminal bool
	}{
		{StateNew, "new", false},
		{StateConnecting, "connecting", false},
		{StateConnected, "connected", false},
		{StateDisconnected, "disconnected", true},
		{StateFailed, "failed", true},
		{StateClosed, "closed", true},
		{State(99), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.name {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.name)
		}
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.name, got, tt.terminal)
		}
	}
}
