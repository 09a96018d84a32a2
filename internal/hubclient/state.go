package hubclient

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the lifecycle state of the hub connection.
type State int

// Lifecycle states.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, candidate := range []State{StateIdle, StateConnecting, StateConnected, StateDisconnected} {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", name)
}

// Status is a point-in-time view of the client.
type Status struct {
	State            State     `json:"state"`
	HubID            string    `json:"hubId,omitempty"`
	HubName          string    `json:"hubName,omitempty"`
	RestaurantID     string    `json:"restaurantId,omitempty"`
	DeviceID         string    `json:"deviceId,omitempty"`
	ReconnectPending bool      `json:"reconnectPending"`
	Attempts         int       `json:"attempts"`
	ConnectedAt      time.Time `json:"connectedAt,omitzero"`
	LastPongAt       time.Time `json:"lastPongAt,omitzero"`
}
