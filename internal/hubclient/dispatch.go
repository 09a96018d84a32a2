package hubclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/protocol"
)

// handleFrame routes one inbound frame. Malformed or unexpected frames are
// logged and dropped; none of them changes the lifecycle state.
func (c *Client) handleFrame(gen uint64, data []byte) {
	if gen != c.gen || c.state != StateConnected {
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		c.logger.Warn("dropping malformed frame", "error", err, "size", len(data))
		return
	}
	now := c.clock.Now()

	switch msg.Type {
	case protocol.TypeNewOrder:
		var p protocol.NewOrder
		if err := msg.DecodePayload(&p); err != nil {
			c.logger.Warn("dropping new_order", "error", err)
			return
		}
		c.publish(events.NewOrder{Order: p.Order, Items: p.Items, Raw: msg.Payload, At: now})

	case protocol.TypeOrderUpdate:
		var p protocol.OrderUpdate
		if err := msg.DecodePayload(&p); err != nil {
			c.logger.Warn("dropping order_update", "error", err)
			return
		}
		c.publish(events.OrderUpdate{ClientID: p.ClientID, Updates: p.Updates, Raw: msg.Payload, At: now})

	case protocol.TypeSyncResponse:
		// The body is hub-defined; decode what we recognise and pass the rest through.
		var p protocol.SyncResponse
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.logger.Debug("sync_response body not in the common shape", "error", err)
				p = protocol.SyncResponse{}
			}
		}
		p.Raw = msg.Payload
		if err := c.identity.SetLastSyncAt(context.Background(), now); err != nil {
			c.logger.Warn("sync cursor not saved", "error", err)
		}
		c.publish(events.SyncResponse{Response: p, Raw: msg.Payload, At: now})

	case protocol.TypePing:
		var p protocol.Heartbeat
		if len(msg.Payload) > 0 {
			_ = msg.DecodePayload(&p) //nolint:errcheck // Timestamp is informational
		}
		c.answerPing(p)

	case protocol.TypePong:
		c.onPong()

	case protocol.TypeError:
		var p protocol.ErrorReport
		if err := msg.DecodePayload(&p); err != nil || p.Error == "" {
			p.Error = "unspecified hub error"
		}
		err := fmt.Errorf("%w: %s", ErrHub, p.Error)
		c.logger.Warn("hub reported error", "error", p.Error)
		c.publish(events.Error{Err: err, At: now})

	default:
		c.logger.Warn("dropping unexpected message", "type", string(msg.Type))
	}
}
