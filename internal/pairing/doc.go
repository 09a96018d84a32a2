// Package pairing decodes the QR payload a hub displays so a staff device
// can connect to it.
//
// Three encodings of the same base64 JSON offer are accepted:
//
//	https://menuhub.app/r/<slug>/hub-connect?data=<b64>   (deep link)
//	menuhub://connect?data=<b64>                           (legacy scheme)
//	<b64>                                                  (bare payload)
//
// Decode is pure: it never touches device state. A failure of any step
// returns an error wrapping ErrInvalidFormat.
//
// # Usage
//
//	offer, err := pairing.Decode(scanned)
//	if errors.Is(err, pairing.ErrInvalidFormat) {
//	    // ask the user to rescan
//	}
package pairing
