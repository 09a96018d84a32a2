package hubclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/menuhub/hubsync/internal/protocol"
)

// OrderResult reports the outcome of an order submission.
type OrderResult struct {
	Success  bool   `json:"success"`
	ClientID string `json:"clientId"`
	// Deferred is true when the hub was unreachable and the offline
	// handler accepted the submission instead.
	Deferred bool `json:"deferred,omitempty"`
}

// Send writes msg to the hub. It fails with ErrNotConnected unless the
// client is connected and the channel is open. Delivery is at most once.
func (c *Client) Send(ctx context.Context, msg protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	conn := c.liveConn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := conn.Send(frame); err != nil {
		// Any write failure means the channel is gone or going.
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return nil
}

// PlaceOrder stamps order with a client id and creation time if it has
// none and sends it to the hub. The stamp is written into order, so
// retrying with the same value reuses the id.
func (c *Client) PlaceOrder(ctx context.Context, order protocol.Order, items []protocol.Item) (OrderResult, error) {
	if order == nil {
		return OrderResult{}, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if items == nil {
		items = []protocol.Item{}
	}
	now := c.clock.Now()
	clientID := order.Stamp(now)
	payload := protocol.NewOrder{Order: order, Items: items}

	msg, err := protocol.New(protocol.TypeNewOrder, payload, now)
	if err != nil {
		return OrderResult{ClientID: clientID}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	err = c.Send(ctx, msg)
	if err == nil {
		return OrderResult{Success: true, ClientID: clientID}, nil
	}
	if errors.Is(err, ErrNotConnected) && c.offline != nil {
		offErr := c.offline.SubmitOrder(ctx, c.Status().DeviceID, payload)
		if offErr == nil {
			c.logger.Info("order handed to offline handler", "client_id", clientID)
			return OrderResult{Success: true, ClientID: clientID, Deferred: true}, nil
		}
		c.logger.Warn("offline handler refused order", "client_id", clientID, "error", offErr)
	}
	return OrderResult{ClientID: clientID}, err
}

// UpdateOrder sends a change to an existing order.
func (c *Client) UpdateOrder(ctx context.Context, clientID string, updates map[string]any) (OrderResult, error) {
	if clientID == "" {
		return OrderResult{}, fmt.Errorf("%w: empty client id", ErrInvalidOrder)
	}
	if len(updates) == 0 {
		return OrderResult{ClientID: clientID}, fmt.Errorf("%w: no updates", ErrInvalidOrder)
	}
	payload := protocol.OrderUpdate{ClientID: clientID, Updates: updates}

	msg, err := protocol.New(protocol.TypeOrderUpdate, payload, c.clock.Now())
	if err != nil {
		return OrderResult{ClientID: clientID}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	err = c.Send(ctx, msg)
	if err == nil {
		return OrderResult{Success: true, ClientID: clientID}, nil
	}
	if errors.Is(err, ErrNotConnected) && c.offline != nil {
		offErr := c.offline.SubmitUpdate(ctx, c.Status().DeviceID, payload)
		if offErr == nil {
			return OrderResult{Success: true, ClientID: clientID, Deferred: true}, nil
		}
		c.logger.Warn("offline handler refused update", "client_id", clientID, "error", offErr)
	}
	return OrderResult{ClientID: clientID}, err
}

// RequestSync asks the hub to replay everything since the last sync
// response this device received.
func (c *Client) RequestSync(ctx context.Context) error {
	msg, err := c.syncRequest(ctx, c.Status().DeviceID)
	if err != nil {
		return err
	}
	return c.Send(ctx, msg)
}

func (c *Client) syncRequest(ctx context.Context, deviceID string) (protocol.Message, error) {
	now := c.clock.Now()
	req := protocol.SyncRequest{DeviceID: deviceID, Timestamp: now.UnixMilli()}
	since, err := c.identity.LastSyncAt(ctx)
	if err != nil {
		c.logger.Warn("sync cursor unavailable, requesting full replay", "error", err)
	} else if !since.IsZero() {
		req.Since = since.UnixMilli()
	}
	return protocol.New(protocol.TypeSyncRequest, req, now)
}
