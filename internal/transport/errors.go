package transport

import "errors"

var (
	// ErrNotOpen is returned by Send when the channel is not open.
	ErrNotOpen = errors.New("transport: channel not open")

	// ErrClosed is returned when using a transport after Close.
	ErrClosed = errors.New("transport: closed")

	// ErrNoEndpoint is returned when the pairing offer lacks the address
	// the transport needs.
	ErrNoEndpoint = errors.New("transport: offer has no usable endpoint")

	// ErrSignaling is returned when the answer could not be obtained.
	ErrSignaling = errors.New("transport: signalling failed")

	// ErrNoPendingOffer is returned when an answer is delivered while no
	// offer is waiting.
	ErrNoPendingOffer = errors.New("transport: no offer awaiting an answer")
)
