package events

import (
	"encoding/json"
	"time"

	"github.com/menuhub/hubsync/internal/protocol"
)

// Kind names an event for logging and relaying.
type Kind string

// Event kinds.
const (
	KindConnected    Kind = "connected"
	KindDisconnected Kind = "disconnected"
	KindNewOrder     Kind = "new_order"
	KindOrderUpdate  Kind = "order_update"
	KindSyncResponse Kind = "sync_response"
	KindError        Kind = "error"
)

// Event is one of the concrete event types in this package.
type Event interface {
	Kind() Kind
	deliver(Listener)
}

// Listener receives every event kind.
type Listener interface {
	OnConnected(Connected)
	OnDisconnected(Disconnected)
	OnNewOrder(NewOrder)
	OnOrderUpdate(OrderUpdate)
	OnSyncResponse(SyncResponse)
	OnError(Error)
}

// Connected is published when the session channel opens and the device
// has registered.
type Connected struct {
	HubID        string    `json:"hubId"`
	RestaurantID string    `json:"restaurantId"`
	Reconnect    bool      `json:"reconnect"`
	At           time.Time `json:"at"`
}

// Disconnected is published once per lost session.
type Disconnected struct {
	HubID string `json:"hubId"`
	// Reason is nil for an explicit disconnect.
	Reason error `json:"-"`
	// ReconnectIn is the scheduled delay, zero when no reconnect is pending.
	ReconnectIn time.Duration `json:"reconnectIn"`
	At          time.Time     `json:"at"`
}

// NewOrder is an order created on another device and relayed by the hub.
type NewOrder struct {
	Order protocol.Order  `json:"order"`
	Items []protocol.Item `json:"items"`
	Raw   json.RawMessage `json:"-"`
	At    time.Time       `json:"at"`
}

// OrderUpdate is a change to an existing order.
type OrderUpdate struct {
	ClientID string          `json:"clientId"`
	Updates  map[string]any  `json:"updates"`
	Raw      json.RawMessage `json:"-"`
	At       time.Time       `json:"at"`
}

// SyncResponse carries the hub's replay after a sync request.
type SyncResponse struct {
	Response protocol.SyncResponse `json:"response"`
	Raw      json.RawMessage       `json:"-"`
	At       time.Time             `json:"at"`
}

// Error reports a pairing, transport or hub-side failure.
type Error struct {
	Err error     `json:"-"`
	At  time.Time `json:"at"`
}

func (Connected) Kind() Kind    { return KindConnected }
func (Disconnected) Kind() Kind { return KindDisconnected }
func (NewOrder) Kind() Kind     { return KindNewOrder }
func (OrderUpdate) Kind() Kind  { return KindOrderUpdate }
func (SyncResponse) Kind() Kind { return KindSyncResponse }
func (Error) Kind() Kind        { return KindError }

func (e Connected) deliver(l Listener)    { l.OnConnected(e) }
func (e Disconnected) deliver(l Listener) { l.OnDisconnected(e) }
func (e NewOrder) deliver(l Listener)     { l.OnNewOrder(e) }
func (e OrderUpdate) deliver(l Listener)  { l.OnOrderUpdate(e) }
func (e SyncResponse) deliver(l Listener) { l.OnSyncResponse(e) }
func (e Error) deliver(l Listener)        { l.OnError(e) }

// Funcs adapts optional callbacks to a Listener. Nil fields are skipped.
type Funcs struct {
	Connected    func(Connected)
	Disconnected func(Disconnected)
	NewOrder     func(NewOrder)
	OrderUpdate  func(OrderUpdate)
	SyncResponse func(SyncResponse)
	Error        func(Error)
}

func (f Funcs) OnConnected(e Connected) {
	if f.Connected != nil {
		f.Connected(e)
	}
}

func (f Funcs) OnDisconnected(e Disconnected) {
	if f.Disconnected != nil {
		f.Disconnected(e)
	}
}

func (f Funcs) OnNewOrder(e NewOrder) {
	if f.NewOrder != nil {
		f.NewOrder(e)
	}
}

func (f Funcs) OnOrderUpdate(e OrderUpdate) {
	if f.OrderUpdate != nil {
		f.OrderUpdate(e)
	}
}

func (f Funcs) OnSyncResponse(e SyncResponse) {
	if f.SyncResponse != nil {
		f.SyncResponse(e)
	}
}

func (f Funcs) OnError(e Error) {
	if f.Error != nil {
		f.Error(e)
	}
}
