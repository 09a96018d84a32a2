package hubclient

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/identity"
	"github.com/menuhub/hubsync/internal/infrastructure/logging"
	"github.com/menuhub/hubsync/internal/pairing"
	"github.com/menuhub/hubsync/internal/protocol"
	"github.com/menuhub/hubsync/internal/transport"
)

const testRestaurant = "rest_42"

var testEpoch = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
}

func newFakeClock() *fakeClock { return &fakeClock{now: testEpoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Advance moves time forward and fires every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	live := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.stopped = true
			due = append(due, t)
		default:
			live = append(live, t)
		}
	}
	c.timers = live
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending returns the delays of armed timers relative to now.
func (c *fakeClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped {
			out = append(out, t.at.Sub(c.now))
		}
	}
	return out
}

// fakeTransport opens as soon as the answer is applied unless hold is set.
type fakeTransport struct {
	mu      sync.Mutex
	hold    bool
	open    bool
	closed  bool
	sent    [][]byte
	onMsg   func([]byte)
	onState func(transport.State)
}

func (f *fakeTransport) CreateOffer(context.Context) (transport.SessionDescription, error) {
	return transport.SessionDescription{Type: "offer", SDP: "v=0 fake"}, nil
}

func (f *fakeTransport) SetRemoteAnswer(context.Context, transport.SessionDescription) error {
	f.mu.Lock()
	if f.hold || f.closed {
		f.mu.Unlock()
		return nil
	}
	f.open = true
	cb := f.onState
	f.mu.Unlock()
	cb(transport.StateConnected)
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return transport.ErrNotOpen
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) OnMessage(fn func([]byte)) {
	f.mu.Lock()
	f.onMsg = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnStateChange(fn func(transport.State)) {
	f.mu.Lock()
	f.onState = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed = true
	return nil
}

// deliver simulates an inbound frame from the hub.
func (f *fakeTransport) deliver(frame string) {
	f.mu.Lock()
	cb := f.onMsg
	f.mu.Unlock()
	cb([]byte(frame))
}

// report simulates a channel state change.
func (f *fakeTransport) report(s transport.State) {
	f.mu.Lock()
	if s.Terminal() {
		f.open = false
	}
	cb := f.onState
	f.mu.Unlock()
	cb(s)
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) messages(t *testing.T) []protocol.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Message, 0, len(f.sent))
	for _, frame := range f.sent {
		msg, err := protocol.Decode(frame)
		if err != nil {
			t.Fatalf("client sent malformed frame %q: %v", frame, err)
		}
		out = append(out, msg)
	}
	return out
}

// fakeFactory hands out fakeTransports and remembers them.
type fakeFactory struct {
	mu    sync.Mutex
	hold  bool
	fail  error
	made  []*fakeTransport
	offer []pairing.Offer
}

func (f *fakeFactory) build(offer pairing.Offer) (transport.SessionTransport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offer = append(f.offer, offer)
	if f.fail != nil {
		return nil, f.fail
	}
	tr := &fakeTransport{hold: f.hold}
	f.made = append(f.made, tr)
	return tr, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.offer)
}

func (f *fakeFactory) last(t *testing.T) *fakeTransport {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.made) == 0 {
		t.Fatal("no transport created")
	}
	return f.made[len(f.made)-1]
}

// recorder is a synchronous Publisher.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *recorder) ofKind(k events.Kind) []events.Event {
	var out []events.Event
	for _, e := range r.all() {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) errs() []error {
	var out []error
	for _, e := range r.ofKind(events.KindError) {
		out = append(out, e.(events.Error).Err)
	}
	return out
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type harness struct {
	client   *Client
	clock    *fakeClock
	factory  *fakeFactory
	events   *recorder
	identity *identity.Manager
}

type harnessOption func(*Deps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{clock: newFakeClock(), factory: &fakeFactory{}, events: &recorder{}}
	h.identity = identity.NewManager(identity.NewMemoryStore(), h.clock.Now)
	if err := h.identity.SetInfo(context.Background(), identity.Info{
		DeviceName:   "Bar iPad",
		DeviceRole:   "waiter",
		RestaurantID: testRestaurant,
	}); err != nil {
		t.Fatalf("SetInfo() error = %v", err)
	}

	deps := Deps{
		Identity:   h.identity,
		Transports: func(o pairing.Offer) (transport.SessionTransport, error) { return h.factory.build(o) },
		Events:     h.events,
		Logger:     logging.Discard(),
		Clock:      h.clock,
		Options:    Options{SyncOnReconnect: true},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.client = New(deps)
	t.Cleanup(func() { h.client.Close() }) //nolint:errcheck // Close never fails
	return h
}

func testOffer() pairing.Offer {
	return pairing.Offer{
		Type:         "hub_offer",
		HubID:        "hub_main",
		RestaurantID: testRestaurant,
		HubName:      "Kitchen Hub",
		Endpoint:     "ws://hub.local:8421/sync",
	}
}

func encodedOffer(t *testing.T, o pairing.Offer) string {
	t.Helper()
	raw, err := pairing.EncodeBase64(o)
	if err != nil {
		t.Fatalf("EncodeBase64() error = %v", err)
	}
	return raw
}

func (h *harness) connect(t *testing.T) *fakeTransport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.client.ConnectToHub(ctx, encodedOffer(t, testOffer())); err != nil {
		t.Fatalf("ConnectToHub() error = %v", err)
	}
	return h.factory.last(t)
}

func hasErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
