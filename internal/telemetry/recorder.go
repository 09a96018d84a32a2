// Package telemetry turns hub session events into time-series points.
package telemetry

import (
	"sync"
	"time"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/hubclient"
)

// Measurement names.
const (
	MeasurementConnection = "hub_connection"
	MeasurementOrders     = "hub_orders"
	MeasurementErrors     = "hub_errors"
)

// PointWriter is satisfied by *influxdb.Client.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time)
}

// Recorder is an events.Listener that writes one point per event.
type Recorder struct {
	w PointWriter

	mu          sync.Mutex
	connectedAt time.Time
}

var _ events.Listener = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w PointWriter) *Recorder {
	return &Recorder{w: w}
}

// OnConnected implements events.Listener.
func (r *Recorder) OnConnected(e events.Connected) {
	r.mu.Lock()
	r.connectedAt = e.At
	r.mu.Unlock()

	r.w.WritePoint(MeasurementConnection,
		map[string]string{"hub_id": e.HubID, "state": "connected"},
		map[string]any{"up": 1, "reconnect": e.Reconnect},
		e.At)
}

// OnDisconnected implements events.Listener. The session length is
// recorded when the matching connect was seen.
func (r *Recorder) OnDisconnected(e events.Disconnected) {
	r.mu.Lock()
	since := r.connectedAt
	r.connectedAt = time.Time{}
	r.mu.Unlock()

	reason := "requested"
	if e.Reason != nil {
		reason = hubclient.Category(e.Reason)
	}
	fields := map[string]any{
		"up":              0,
		"reconnect_in_ms": e.ReconnectIn.Milliseconds(),
	}
	if !since.IsZero() {
		fields["session_seconds"] = e.At.Sub(since).Seconds()
	}
	r.w.WritePoint(MeasurementConnection,
		map[string]string{"hub_id": e.HubID, "state": "disconnected", "reason": reason},
		fields,
		e.At)
}

// OnNewOrder implements events.Listener.
func (r *Recorder) OnNewOrder(e events.NewOrder) {
	r.order(events.KindNewOrder, map[string]any{"count": 1, "items": len(e.Items)}, e.At)
}

// OnOrderUpdate implements events.Listener.
func (r *Recorder) OnOrderUpdate(e events.OrderUpdate) {
	r.order(events.KindOrderUpdate, map[string]any{"count": 1, "fields": len(e.Updates)}, e.At)
}

// OnSyncResponse implements events.Listener.
func (r *Recorder) OnSyncResponse(e events.SyncResponse) {
	r.order(events.KindSyncResponse, map[string]any{
		"count":   1,
		"orders":  len(e.Response.Orders),
		"updates": len(e.Response.Updates),
		"bytes":   len(e.Raw),
	}, e.At)
}

// OnError implements events.Listener.
func (r *Recorder) OnError(e events.Error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	r.w.WritePoint(MeasurementErrors,
		map[string]string{"kind": hubclient.Category(e.Err)},
		map[string]any{"count": 1, "message": msg},
		e.At)
}

func (r *Recorder) order(kind events.Kind, fields map[string]any, at time.Time) {
	r.w.WritePoint(MeasurementOrders,
		map[string]string{"kind": string(kind), "direction": "inbound"},
		fields,
		at)
}
