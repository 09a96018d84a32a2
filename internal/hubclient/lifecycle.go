package hubclient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/pairing"
	"github.com/menuhub/hubsync/internal/protocol"
	"github.com/menuhub/hubsync/internal/transport"
)

// ConnectToHub decodes a scanned pairing payload and connects to the hub
// it describes. See ConnectToOffer.
func (c *Client) ConnectToHub(ctx context.Context, raw string) error {
	offer, err := pairing.Decode(raw)
	if err != nil {
		c.logger.Warn("pairing code rejected", "error", err)
		c.publish(events.Error{Err: err, At: c.clock.Now()})
		return err
	}
	return c.ConnectToOffer(ctx, offer)
}

// ConnectToOffer starts a connection to the hub in offer and waits until
// the device is registered, the attempt fails, or ctx ends.
//
// A call for the session already being negotiated waits on that attempt.
// Any other offer supersedes it and earlier callers get ErrAborted.
//
// It returns nil immediately when already connected. A restaurant
// mismatch or a validator rejection returns an error and leaves the state
// unchanged. A failed attempt returns an error wrapping ErrTransport but
// still schedules a reconnect. Cancelling ctx stops the wait, not the
// attempt.
func (c *Client) ConnectToOffer(ctx context.Context, offer pairing.Offer) error {
	if c.validator != nil {
		if err := c.validator(offer); err != nil {
			c.logger.Warn("pairing offer rejected", "hub_id", offer.HubID, "error", err)
			c.publish(events.Error{Err: err, At: c.clock.Now()})
			return err
		}
	}

	// Resolved by the loop with the outcome, or nil when already connected.
	result := make(chan error, 1)
	if err := c.call(ctx, func() { c.beginPairing(ctx, offer, result) }); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// beginPairing runs on the loop.
func (c *Client) beginPairing(ctx context.Context, offer pairing.Offer, result chan error) {
	if c.state == StateConnected {
		result <- nil
		return
	}
	if c.state == StateConnecting && c.offer != nil && sameSession(*c.offer, offer) {
		c.waiters = append(c.waiters, result)
		return
	}

	desc, err := c.identity.Descriptor(ctx)
	if err != nil {
		result <- fmt.Errorf("loading device identity: %w", err)
		return
	}
	if offer.RestaurantID != desc.RestaurantID {
		err := fmt.Errorf("%w: offer is for %q, device is configured for %q",
			ErrRestaurantMismatch, offer.RestaurantID, desc.RestaurantID)
		c.logger.Warn("pairing refused", "hub_id", offer.HubID, "error", err)
		c.publish(events.Error{Err: err, At: c.clock.Now()})
		result <- err
		return
	}

	// A new pairing supersedes any attempt or reconnect in progress.
	c.abortAttempt(ErrAborted)
	c.reconnect.stop()

	c.offer = &offer
	c.desc = desc
	c.attempts = 0
	c.everConnected = false
	c.waiters = append(c.waiters, result)

	c.logger.Info("pairing with hub", "hub_id", offer.HubID, "hub_name", offer.HubName)
	c.startAttempt()
}

// sameSession reports whether b describes the attempt already running for
// a. A rescanned code with a new endpoint or ICE set restarts the attempt.
func sameSession(a, b pairing.Offer) bool {
	return a.HubID == b.HubID &&
		a.Endpoint == b.Endpoint &&
		a.SignalURL == b.SignalURL &&
		a.IssuedAt == b.IssuedAt &&
		slices.Equal(a.ICEServers, b.ICEServers)
}

// startAttempt creates a transport and negotiates in the background.
func (c *Client) startAttempt() {
	c.gen++
	gen := c.gen
	offer := *c.offer

	c.state = StateConnecting
	c.syncStatus(nil)

	tr, err := c.factory(offer)
	if err != nil {
		c.attemptFailed(gen, fmt.Errorf("creating transport: %w", err))
		return
	}
	tr.OnStateChange(func(s transport.State) {
		c.post(func() { c.onTransportState(gen, s) })
	})
	tr.OnMessage(func(data []byte) {
		c.post(func() { c.handleFrame(gen, data) })
	})
	c.tr = tr

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelAttempt = cancel
	c.connectTimer.arm(c.clock, c.opts.ConnectTimeout, func(seq uint64) {
		c.post(func() { c.onConnectTimeout(gen, seq) })
	})

	req := transport.SignalRequest{
		HubID:     offer.HubID,
		DeviceID:  c.desc.DeviceID,
		SignalURL: offer.SignalURL,
	}
	go c.negotiate(ctx, gen, tr, req)
}

// negotiate runs off the loop: local offer, signalling, remote answer.
func (c *Client) negotiate(ctx context.Context, gen uint64, tr transport.SessionTransport, req transport.SignalRequest) {
	local, err := tr.CreateOffer(ctx)
	if err != nil {
		c.post(func() { c.attemptFailed(gen, fmt.Errorf("creating session offer: %w", err)) })
		return
	}
	req.Offer = local

	answer, err := c.signaler.Exchange(ctx, req)
	if err != nil {
		c.post(func() { c.attemptFailed(gen, err) })
		return
	}

	if err := tr.SetRemoteAnswer(ctx, answer); err != nil {
		c.post(func() { c.attemptFailed(gen, fmt.Errorf("applying hub answer: %w", err)) })
	}
}

func (c *Client) onConnectTimeout(gen, seq uint64) {
	if !c.connectTimer.claim(seq) || gen != c.gen {
		return
	}
	c.attemptFailed(gen, fmt.Errorf("no channel after %s", c.opts.ConnectTimeout))
}

func (c *Client) attemptFailed(gen uint64, cause error) {
	if gen != c.gen || c.state != StateConnecting {
		return
	}
	err := fmt.Errorf("%w: %w", ErrTransport, cause)
	c.logger.Warn("hub connection attempt failed", "hub_id", c.offer.HubID, "attempt", c.attempts+1, "error", err)
	c.publish(events.Error{Err: err, At: c.clock.Now()})
	c.enterDisconnected(err)
}

func (c *Client) onTransportState(gen uint64, s transport.State) {
	if gen != c.gen {
		return
	}
	switch {
	case s == transport.StateConnected && c.state == StateConnecting:
		c.enterConnected()
	case s.Terminal() && (c.state == StateConnecting || c.state == StateConnected):
		c.enterDisconnected(fmt.Errorf("%w: channel %s", ErrTransport, s))
	}
}

func (c *Client) enterConnected() {
	c.connectTimer.stop()

	register, err := protocol.New(protocol.TypeRegister, protocol.Register{
		DeviceID:     c.desc.DeviceID,
		DeviceName:   c.desc.DeviceName,
		DeviceRole:   c.desc.DeviceRole,
		RestaurantID: c.desc.RestaurantID,
	}, c.clock.Now())
	if err == nil {
		err = c.sendFrame(register)
	}
	if err != nil {
		c.attemptFailed(c.gen, fmt.Errorf("registering: %w", err))
		return
	}

	reconnected := c.everConnected
	c.everConnected = true
	c.attempts = 0
	c.state = StateConnected

	if reconnected && c.opts.SyncOnReconnect {
		if msg, err := c.syncRequest(context.Background(), c.desc.DeviceID); err == nil {
			if err := c.sendFrame(msg); err != nil {
				c.logger.Warn("sync request after reconnect failed", "error", err)
			}
		}
	}

	now := c.clock.Now()
	c.syncStatus(func(s *Status) { s.ConnectedAt = now })
	c.armPing()

	c.logger.Info("hub connected", "hub_id", c.offer.HubID, "reconnect", reconnected)
	c.publish(events.Connected{
		HubID:        c.offer.HubID,
		RestaurantID: c.offer.RestaurantID,
		Reconnect:    reconnected,
		At:           now,
	})
	c.resolveWaiters(nil)
}

// enterDisconnected tears down the channel, reports the loss once and
// schedules exactly one reconnect.
func (c *Client) enterDisconnected(reason error) {
	c.releaseTransport()
	c.state = StateDisconnected

	c.attempts++
	delay, retry := c.policy.Next(c.attempts)
	if retry {
		c.reconnect.arm(c.clock, delay, func(seq uint64) {
			c.post(func() { c.onReconnectTimer(seq) })
		})
	} else {
		c.reconnect.stop()
	}
	c.syncStatus(nil)

	hubID := c.offer.HubID
	ev := events.Disconnected{HubID: hubID, Reason: reason, At: c.clock.Now()}
	if retry {
		ev.ReconnectIn = delay
	}
	c.logger.Warn("hub disconnected", "hub_id", hubID, "reason", reason, "reconnect_in", ev.ReconnectIn)
	c.publish(ev)

	if !retry {
		err := fmt.Errorf("%w: after %d attempts", ErrReconnectExhausted, c.attempts)
		c.logger.Error("giving up on hub", "hub_id", hubID, "attempts", c.attempts)
		c.publish(events.Error{Err: err, At: c.clock.Now()})
	}
	c.resolveWaiters(reason)
}

func (c *Client) onReconnectTimer(seq uint64) {
	if !c.reconnect.claim(seq) {
		return
	}
	if c.state != StateDisconnected || c.offer == nil {
		return
	}
	c.logger.Info("reconnecting to hub", "hub_id", c.offer.HubID, "attempt", c.attempts)
	c.startAttempt()
}

// Disconnect closes the session, cancels pending timers and forgets the
// paired hub. It is safe to call in any state and more than once.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.call(ctx, func() { c.teardown(ErrAborted) })
}

func (c *Client) teardown(waiterErr error) {
	wasConnected := c.state == StateConnected
	c.reconnect.stop()
	c.abortAttempt(waiterErr)

	var hubID string
	if c.offer != nil {
		hubID = c.offer.HubID
	}
	c.state = StateIdle
	c.offer = nil
	c.attempts = 0
	c.everConnected = false
	c.syncStatus(func(s *Status) { s.LastPongAt = time.Time{} })

	if wasConnected {
		c.logger.Info("hub disconnected by request", "hub_id", hubID)
		c.publish(events.Disconnected{HubID: hubID, At: c.clock.Now()})
	}
}

// abortAttempt drops the current transport and fails pending connect calls.
func (c *Client) abortAttempt(waiterErr error) {
	c.releaseTransport()
	c.resolveWaiters(waiterErr)
}

// releaseTransport stops attempt-scoped timers and closes the transport.
// Bumping gen makes callbacks still queued from it stale.
func (c *Client) releaseTransport() {
	c.pingTimer.stop()
	c.connectTimer.stop()
	if c.cancelAttempt != nil {
		c.cancelAttempt()
		c.cancelAttempt = nil
	}
	if c.tr != nil {
		if err := c.tr.Close(); err != nil {
			c.logger.Debug("closing transport", "error", err)
		}
		c.tr = nil
	}
	c.gen++
}

func (c *Client) resolveWaiters(err error) {
	for _, w := range c.waiters {
		w <- err
	}
	c.waiters = nil
}

// sendFrame encodes and writes msg on the current transport. Loop only.
func (c *Client) sendFrame(msg protocol.Message) error {
	if c.tr == nil {
		return ErrNotConnected
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := c.tr.Send(frame); err != nil {
		if errors.Is(err, transport.ErrNotOpen) {
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		return err
	}
	return nil
}
