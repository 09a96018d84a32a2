package pairing

import (
	"fmt"
	"time"
)

// Validator inspects a decoded offer before a connection attempt.
// Returning an error aborts pairing.
type Validator func(Offer) error

// Chain runs validators in order and returns the first error.
func Chain(validators ...Validator) Validator {
	return func(o Offer) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(o); err != nil {
				return err
			}
		}
		return nil
	}
}

// MaxAge rejects offers without an issuedAt stamp or issued more than
// maxAge before now(). A maxAge of zero accepts everything.
func MaxAge(maxAge time.Duration, now func() time.Time) Validator {
	return func(o Offer) error {
		if maxAge <= 0 {
			return nil
		}
		issued := o.Issued()
		if issued.IsZero() {
			return fmt.Errorf("%w: offer has no issue time", ErrOfferRejected)
		}
		if age := now().Sub(issued); age > maxAge {
			return fmt.Errorf("%w: offer is %s old, limit %s", ErrOfferRejected, age.Truncate(time.Second), maxAge)
		}
		return nil
	}
}
