package protocol

import "encoding/json"

// Register announces the device to the hub. First frame after the
// channel opens.
type Register struct {
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName"`
	DeviceRole   string `json:"deviceRole"`
	RestaurantID string `json:"restaurantId"`
}

// NewOrder carries a freshly created order and its line items.
type NewOrder struct {
	Order Order  `json:"order"`
	Items []Item `json:"items"`
}

// OrderUpdate mutates an existing order identified by its client id.
type OrderUpdate struct {
	ClientID string         `json:"clientId"`
	Updates  map[string]any `json:"updates"`
}

// SyncRequest asks the hub to replay state. Since is the unix-millis time
// of the last sync response this device received, 0 for everything.
type SyncRequest struct {
	DeviceID  string `json:"deviceId"`
	Timestamp int64  `json:"timestamp"`
	Since     int64  `json:"since,omitempty"`
}

// SyncResponse is hub-defined. The raw body is kept for listeners and the
// common fields are decoded when present.
type SyncResponse struct {
	Orders  []Order         `json:"orders,omitempty"`
	Updates []OrderUpdate   `json:"updates,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Heartbeat is the payload of both ping and pong.
type Heartbeat struct {
	Timestamp int64 `json:"timestamp"`
}

// ErrorReport is the payload of a hub error message.
type ErrorReport struct {
	Error string `json:"error"`
}
