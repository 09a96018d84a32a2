// Package transport defines the session channel between a staff device and
// its hub, and the signalling step that completes it.
//
// A SessionTransport is created per connection attempt from the pairing
// offer. The device creates a local session offer, a Signaler carries it
// to the hub and returns the hub's answer, and SetRemoteAnswer finalises
// the channel. State changes and inbound frames are reported through
// callbacks registered before CreateOffer.
//
// Signalling is vanilla ICE: candidates are gathered before the offer is
// published, so one round trip (offer → answer) is enough.
//
// Implementations live in sub-packages:
//   - rtctransport: WebRTC data channel
//   - wstransport: plain WebSocket to the hub's endpoint
package transport
