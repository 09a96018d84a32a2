// Package protocol defines the JSON message envelope exchanged between a
// staff device and the restaurant hub over the session channel.
//
// Every frame is a single JSON object:
//
//	{"type": "new_order", "payload": {...}, "timestamp": 1767225600000}
//
// Timestamps are unix milliseconds. Payload shape depends on type; see the
// payload structs in this package. Orders are opaque JSON objects apart
// from client_id and created_at, which the authoring device stamps once.
//
// # Usage
//
//	msg, err := protocol.New(protocol.TypePing, protocol.Ping{Timestamp: now}, time.Now())
//	frame, err := protocol.Encode(msg)
//
//	in, err := protocol.Decode(frame)
//	if errors.Is(err, protocol.ErrParse) {
//	    // drop the frame
//	}
package protocol
