package hubclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/protocol"
)

func TestPlaceOrder_StampsAndSends(t *testing.T) {
	h := newHarness(t)
	tr := h.connect(t)

	order := protocol.Order{"table": "12", "total": 42.5}
	items := []protocol.Item{{"name": "Margherita", "qty": 2}}
	res, err := h.client.PlaceOrder(context.Background(), order, items)
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if !res.Success || res.Deferred || res.ClientID == "" {
		t.Fatalf("PlaceOrder() = %+v", res)
	}
	if order.ClientID() != res.ClientID {
		t.Errorf("order client_id = %q, result = %q", order.ClientID(), res.ClientID)
	}

	msgs := tr.messages(t)
	last := msgs[len(msgs)-1]
	if last.Type != protocol.TypeNewOrder {
		t.Fatalf("last frame type = %q, want new_order", last.Type)
	}
	var sent protocol.NewOrder
	if err := last.DecodePayload(&sent); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if sent.Order.ClientID() != res.ClientID || sent.Order["table"] != "12" || len(sent.Items) != 1 {
		t.Errorf("sent payload = %+v", sent)
	}
}

func TestPlaceOrder_RetryKeepsClientID(t *testing.T) {
	h := newHarness(t)
	tr := h.connect(t)
	ctx := context.Background()

	order := protocol.Order{"table": "3"}
	first, err := h.client.PlaceOrder(ctx, order, nil)
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	second, err := h.client.PlaceOrder(ctx, order, nil)
	if err != nil {
		t.Fatalf("PlaceOrder() retry error = %v", err)
	}
	if first.ClientID != second.ClientID {
		t.Errorf("client ids differ: %q vs %q", first.ClientID, second.ClientID)
	}
	if got := len(tr.messages(t)); got != 3 {
		t.Errorf("frames sent = %d, want register plus two orders", got)
	}
}

func TestPlaceOrder_NotConnected(t *testing.T) {
	h := newHarness(t)

	order := protocol.Order{"table": "7"}
	res, err := h.client.PlaceOrder(context.Background(), order, nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PlaceOrder() error = %v, want ErrNotConnected", err)
	}
	if res.Success || res.ClientID == "" {
		t.Errorf("PlaceOrder() = %+v, want failure carrying the stamped id", res)
	}
	if order.ClientID() != res.ClientID {
		t.Error("order was not stamped in place")
	}
}

func TestUpdateOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID string
		updates  map[string]any
		wantErr  error
	}{
		{"empty id", "", map[string]any{"status": "ready"}, ErrInvalidOrder},
		{"no updates", "order_1_abc", nil, ErrInvalidOrder},
		{"offline", "order_1_abc", map[string]any{"status": "ready"}, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.client.UpdateOrder(ctx, tt.clientID, tt.updates); !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateOrder() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	tr := h.connect(t)
	res, err := h.client.UpdateOrder(ctx, "order_1_abc", map[string]any{"status": "ready"})
	if err != nil || !res.Success {
		t.Fatalf("UpdateOrder() = %+v, %v", res, err)
	}
	msgs := tr.messages(t)
	var upd protocol.OrderUpdate
	if err := msgs[len(msgs)-1].DecodePayload(&upd); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if upd.ClientID != "order_1_abc" || upd.Updates["status"] != "ready" {
		t.Errorf("sent update = %+v", upd)
	}
}

type offlineRecorder struct {
	mu      sync.Mutex
	fail    error
	orders  []protocol.NewOrder
	updates []protocol.OrderUpdate
	devices []string
}

func (o *offlineRecorder) SubmitOrder(_ context.Context, deviceID string, order protocol.NewOrder) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.orders = append(o.orders, order)
	o.devices = append(o.devices, deviceID)
	return nil
}

func (o *offlineRecorder) SubmitUpdate(_ context.Context, deviceID string, update protocol.OrderUpdate) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.updates = append(o.updates, update)
	o.devices = append(o.devices, deviceID)
	return nil
}

func TestPlaceOrder_OfflineHandler(t *testing.T) {
	offline := &offlineRecorder{}
	h := newHarness(t, func(d *Deps) { d.Offline = offline })
	h.connect(t)
	deviceID := h.client.Status().DeviceID
	if err := h.client.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	res, err := h.client.PlaceOrder(context.Background(), protocol.Order{"table": "9"}, nil)
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if !res.Success || !res.Deferred {
		t.Errorf("PlaceOrder() = %+v, want deferred success", res)
	}
	if _, err := h.client.UpdateOrder(context.Background(), res.ClientID, map[string]any{"status": "paid"}); err != nil {
		t.Fatalf("UpdateOrder() error = %v", err)
	}

	offline.mu.Lock()
	defer offline.mu.Unlock()
	if len(offline.orders) != 1 || offline.orders[0].Order.ClientID() != res.ClientID {
		t.Errorf("offline orders = %+v", offline.orders)
	}
	if len(offline.updates) != 1 {
		t.Errorf("offline updates = %+v", offline.updates)
	}
	for _, d := range offline.devices {
		if d != deviceID {
			t.Errorf("offline submission device = %q, want %q", d, deviceID)
		}
	}
}

func TestPlaceOrder_OfflineHandlerFails(t *testing.T) {
	offline := &offlineRecorder{fail: errors.New("broker down")}
	h := newHarness(t, func(d *Deps) { d.Offline = offline })

	res, err := h.client.PlaceOrder(context.Background(), protocol.Order{}, nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PlaceOrder() error = %v, want ErrNotConnected", err)
	}
	if res.Success || res.Deferred {
		t.Errorf("PlaceOrder() = %+v", res)
	}
}

func TestRequestSync_CarriesCursor(t *testing.T) {
	h := newHarness(t)
	tr := h.connect(t)
	ctx := context.Background()

	if err := h.client.RequestSync(ctx); err != nil {
		t.Fatalf("RequestSync() error = %v", err)
	}
	tr.deliver(`{"type":"sync_response","payload":{"orders":[{"client_id":"order_1_a"}]}}`)
	eventually(t, "sync response", func() bool { return len(h.events.ofKind(events.KindSyncResponse)) == 1 })

	if err := h.client.RequestSync(ctx); err != nil {
		t.Fatalf("RequestSync() error = %v", err)
	}

	var reqs []protocol.SyncRequest
	for _, m := range tr.messages(t) {
		if m.Type != protocol.TypeSyncRequest {
			continue
		}
		var r protocol.SyncRequest
		if err := m.DecodePayload(&r); err != nil {
			t.Fatalf("DecodePayload() error = %v", err)
		}
		reqs = append(reqs, r)
	}
	if len(reqs) != 2 {
		t.Fatalf("sync requests = %d, want 2", len(reqs))
	}
	if reqs[0].Since != 0 {
		t.Errorf("first since = %d, want 0", reqs[0].Since)
	}
	if reqs[1].Since != testEpoch.UnixMilli() {
		t.Errorf("second since = %d, want %d", reqs[1].Since, testEpoch.UnixMilli())
	}
	if reqs[0].DeviceID != h.client.Status().DeviceID {
		t.Errorf("deviceId = %q", reqs[0].DeviceID)
	}
}

func TestInboundFrames(t *testing.T) {
	h := newHarness(t)
	tr := h.connect(t)

	frames := []string{
		`{"type":"new_order","payload":{"order":{"client_id":"order_9_x","table":"4"},"items":[{"name":"Soup"}]}}`,
		`this is not json`,
		`{"type":"order_update","payload":{"clientId":"order_9_x","updates":{"status":"cooking"}}}`,
		`{"type":"register","payload":{}}`,
		`{"type":"mystery"}`,
		`{"type":"sync_response","payload":{"custom":true}}`,
		`{"type":"error","payload":{"error":"table locked"}}`,
	}
	for _, f := range frames {
		tr.deliver(f)
	}
	eventually(t, "hub error", func() bool { return hasErr(h.events.errs(), ErrHub) })

	var kinds []events.Kind
	for _, e := range h.events.all() {
		if e.Kind() != events.KindConnected {
			kinds = append(kinds, e.Kind())
		}
	}
	want := []events.Kind{events.KindNewOrder, events.KindOrderUpdate, events.KindSyncResponse, events.KindError}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, kinds[i], want[i])
		}
	}

	no := h.events.ofKind(events.KindNewOrder)[0].(events.NewOrder)
	if no.Order.ClientID() != "order_9_x" || len(no.Items) != 1 || len(no.Raw) == 0 {
		t.Errorf("NewOrder = %+v", no)
	}
	sr := h.events.ofKind(events.KindSyncResponse)[0].(events.SyncResponse)
	if string(sr.Raw) != `{"custom":true}` {
		t.Errorf("SyncResponse.Raw = %s", sr.Raw)
	}
	if h.client.Status().State != StateConnected {
		t.Error("malformed frames changed the connection state")
	}
}

func TestKeepalive(t *testing.T) {
	h := newHarness(t)
	tr := h.connect(t)

	countType := func(typ protocol.Type) int {
		n := 0
		for _, m := range tr.messages(t) {
			if m.Type == typ {
				n++
			}
		}
		return n
	}

	h.clock.Advance(DefaultPingInterval)
	eventually(t, "first ping", func() bool {
		return countType(protocol.TypePing) == 1 && len(h.clock.Pending()) == 1
	})
	h.clock.Advance(DefaultPingInterval)
	eventually(t, "second ping", func() bool { return countType(protocol.TypePing) == 2 })

	tr.deliver(`{"type":"pong","payload":{"timestamp":1}}`)
	eventually(t, "pong recorded", func() bool { return !h.client.Status().LastPongAt.IsZero() })

	tr.deliver(`{"type":"ping","payload":{"timestamp":77}}`)
	eventually(t, "pong reply", func() bool { return countType(protocol.TypePong) == 1 })

	if got := len(h.events.all()); got != 1 {
		t.Errorf("keepalive traffic published %d events, want only the connect", got)
	}
}

func TestSend_RequiresConnection(t *testing.T) {
	h := newHarness(t)
	msg, err := protocol.New(protocol.TypeSyncRequest, protocol.SyncRequest{DeviceID: "d"}, testEpoch)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := h.client.Send(context.Background(), msg); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.client.Send(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Errorf("Send() with cancelled ctx error = %v", err)
	}
}
