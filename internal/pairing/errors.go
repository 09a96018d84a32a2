package pairing

import "errors"

var (
	// ErrInvalidFormat is returned when a scanned payload cannot be turned
	// into a hub offer.
	ErrInvalidFormat = errors.New("pairing: invalid pairing code")

	// ErrOfferRejected is returned by a Validator that refuses an offer
	// which decoded correctly.
	ErrOfferRejected = errors.New("pairing: offer rejected")
)
