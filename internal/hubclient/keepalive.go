package hubclient

import "github.com/menuhub/hubsync/internal/protocol"

// armPing schedules the next keepalive ping.
func (c *Client) armPing() {
	c.pingTimer.arm(c.clock, c.opts.PingInterval, func(seq uint64) {
		c.post(func() { c.onPingTimer(seq) })
	})
}

func (c *Client) onPingTimer(seq uint64) {
	if !c.pingTimer.claim(seq) || c.state != StateConnected {
		return
	}

	now := c.clock.Now()
	msg, err := protocol.New(protocol.TypePing, protocol.Heartbeat{Timestamp: now.UnixMilli()}, now)
	if err == nil {
		err = c.sendFrame(msg)
	}
	if err != nil {
		// A dead channel is reported by the transport itself.
		c.logger.Debug("keepalive ping not sent", "error", err)
	}
	c.armPing()
}

// onPong records the hub's keepalive answer. It has no other effect.
func (c *Client) onPong() {
	now := c.clock.Now()
	c.syncStatus(func(s *Status) { s.LastPongAt = now })
}

// answerPing replies to a hub-initiated ping.
func (c *Client) answerPing(ping protocol.Heartbeat) {
	now := c.clock.Now()
	msg, err := protocol.New(protocol.TypePong, protocol.Heartbeat{Timestamp: ping.Timestamp}, now)
	if err == nil {
		err = c.sendFrame(msg)
	}
	if err != nil {
		c.logger.Debug("pong not sent", "error", err)
	}
}
