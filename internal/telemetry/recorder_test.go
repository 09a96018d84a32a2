package telemetry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/hubclient"
	"github.com/menuhub/hubsync/internal/protocol"
)

type point struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	at          time.Time
}

type memWriter struct{ points []point }

func (w *memWriter) WritePoint(m string, tags map[string]string, fields map[string]any, at time.Time) {
	w.points = append(w.points, point{m, tags, fields, at})
}

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestRecorder_ConnectionSession(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w)

	r.OnConnected(events.Connected{HubID: "hub_main", At: t0})
	r.OnDisconnected(events.Disconnected{
		HubID:       "hub_main",
		Reason:      fmt.Errorf("%w: channel failed", hubclient.ErrTransport),
		ReconnectIn: 5 * time.Second,
		At:          t0.Add(90 * time.Second),
	})
	r.OnDisconnected(events.Disconnected{HubID: "hub_main", At: t0.Add(2 * time.Minute)})

	if len(w.points) != 3 {
		t.Fatalf("wrote %d points, want 3", len(w.points))
	}
	up := w.points[0]
	if up.measurement != MeasurementConnection || up.tags["state"] != "connected" || up.fields["up"] != 1 {
		t.Errorf("connect point = %+v", up)
	}

	down := w.points[1]
	if down.tags["reason"] != hubclient.CategoryTransport {
		t.Errorf("reason tag = %q", down.tags["reason"])
	}
	if down.fields["session_seconds"] != 90.0 || down.fields["reconnect_in_ms"] != int64(5000) {
		t.Errorf("disconnect fields = %v", down.fields)
	}

	requested := w.points[2]
	if requested.tags["reason"] != "requested" {
		t.Errorf("reason tag = %q, want requested", requested.tags["reason"])
	}
	if _, ok := requested.fields["session_seconds"]; ok {
		t.Error("session length recorded without a matching connect")
	}
}

func TestRecorder_OrderTraffic(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w)

	r.OnNewOrder(events.NewOrder{Items: []protocol.Item{{}, {}}, At: t0})
	r.OnOrderUpdate(events.OrderUpdate{Updates: map[string]any{"status": "ready"}, At: t0})
	r.OnSyncResponse(events.SyncResponse{
		Response: protocol.SyncResponse{Orders: []protocol.Order{{}, {}, {}}},
		Raw:      []byte(`{"orders":[{},{},{}]}`),
		At:       t0,
	})

	want := []struct {
		kind  string
		field string
		value any
	}{
		{"new_order", "items", 2},
		{"order_update", "fields", 1},
		{"sync_response", "orders", 3},
	}
	if len(w.points) != len(want) {
		t.Fatalf("wrote %d points, want %d", len(w.points), len(want))
	}
	for i, tt := range want {
		p := w.points[i]
		if p.measurement != MeasurementOrders || p.tags["kind"] != tt.kind {
			t.Errorf("point %d = %s %v", i, p.measurement, p.tags)
		}
		if p.fields[tt.field] != tt.value {
			t.Errorf("point %d %s = %v, want %v", i, tt.field, p.fields[tt.field], tt.value)
		}
	}
}

func TestRecorder_Errors(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w)

	r.OnError(events.Error{Err: fmt.Errorf("%w: a vs b", hubclient.ErrRestaurantMismatch), At: t0})
	r.OnError(events.Error{Err: errors.New("unexpected"), At: t0})

	if got := w.points[0].tags["kind"]; got != hubclient.CategoryRestaurantMismatch {
		t.Errorf("kind = %q", got)
	}
	if got := w.points[1].tags["kind"]; got != hubclient.CategoryOther {
		t.Errorf("kind = %q", got)
	}
	if w.points[1].fields["message"] != "unexpected" {
		t.Errorf("message = %v", w.points[1].fields["message"])
	}
}
