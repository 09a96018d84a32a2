package hubclient

import (
	"errors"

	"github.com/menuhub/hubsync/internal/pairing"
)

var (
	// ErrNotConnected is returned when sending while no channel is open.
	ErrNotConnected = errors.New("hubclient: not connected to hub")

	// ErrRestaurantMismatch is returned when a pairing offer belongs to a
	// different restaurant than the device.
	ErrRestaurantMismatch = errors.New("hubclient: hub belongs to a different restaurant")

	// ErrTransport wraps failures to establish or keep the session channel.
	ErrTransport = errors.New("hubclient: transport failure")

	// ErrHub wraps error messages reported by the hub.
	ErrHub = errors.New("hubclient: hub reported an error")

	// ErrReconnectExhausted is emitted when the reconnect policy gives up.
	ErrReconnectExhausted = errors.New("hubclient: reconnect attempts exhausted")

	// ErrAborted is returned to a pending connect call when the attempt is
	// cancelled by Disconnect or a newer pairing.
	ErrAborted = errors.New("hubclient: connection attempt aborted")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("hubclient: client closed")

	// ErrInvalidOrder is returned for malformed order submissions.
	ErrInvalidOrder = errors.New("hubclient: invalid order")
)

// Error categories returned by Category.
const (
	CategoryInvalidPairingCode = "invalid_pairing_code"
	CategoryOfferRejected      = "offer_rejected"
	CategoryRestaurantMismatch = "restaurant_mismatch"
	CategoryTransport          = "transport_error"
	CategoryNotConnected       = "not_connected"
	CategoryHub                = "hub_error"
	CategoryReconnectExhausted = "reconnect_exhausted"
	CategoryInvalidOrder       = "invalid_order"
	CategoryOther              = "internal_error"
)

// Category maps err to a stable snake_case name for metrics and API
// responses.
func Category(err error) string {
	switch {
	case errors.Is(err, pairing.ErrInvalidFormat):
		return CategoryInvalidPairingCode
	case errors.Is(err, pairing.ErrOfferRejected):
		return CategoryOfferRejected
	case errors.Is(err, ErrRestaurantMismatch):
		return CategoryRestaurantMismatch
	case errors.Is(err, ErrReconnectExhausted):
		return CategoryReconnectExhausted
	case errors.Is(err, ErrNotConnected):
		return CategoryNotConnected
	case errors.Is(err, ErrTransport):
		return CategoryTransport
	case errors.Is(err, ErrHub):
		return CategoryHub
	case errors.Is(err, ErrInvalidOrder):
		return CategoryInvalidOrder
	default:
		return CategoryOther
	}
}
