// Package api implements the local agent HTTP API and event stream used by
// the staff UI running on the same device.
//
// This package provides:
//   - REST endpoints for pairing, device identity, orders and sync
//   - A WebSocket relay that forwards session events by kind
//   - Manual signalling endpoints for entering a hub answer by hand
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Endpoints
//
// All routes live under /api/v1:
//
//	GET    /health            dependency checks and hub state
//	GET    /status            hub session snapshot
//	GET    /device            device descriptor
//	PATCH  /device            update name, role or restaurant
//	POST   /pairing           {"code": "...", "wait": true}
//	DELETE /pairing           disconnect and forget the hub
//	GET    /pairing/offer     offer awaiting a manual answer
//	POST   /pairing/answer    deliver the hub's answer
//	POST   /orders            place an order
//	PATCH  /orders/{clientID} update an order
//	POST   /sync              request a replay from the hub
//	GET    /ws                event stream
//
// Errors carry {"status", "code", "message"}. Session failures use the
// codes returned by hubclient.Category.
//
// # Event Stream
//
// Clients send {"type": "subscribe", "payload": {"channels": ["new_order"]}}
// and then receive {"type": "event", "event_type": "new_order", ...} frames.
//
// The API binds to loopback by default and has no authentication.
package api
