package protocol

import "errors"

// Domain errors for message handling.
var (
	// ErrParse is returned when a frame is not a JSON object with a type.
	ErrParse = errors.New("protocol: malformed message")

	// ErrPayload is returned when a payload does not match its type.
	ErrPayload = errors.New("protocol: invalid payload")
)
