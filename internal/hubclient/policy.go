package hubclient

import "time"

// ReconnectPolicy decides how long to wait before reconnect attempt n
// (starting at 1). Returning false stops reconnecting.
type ReconnectPolicy interface {
	Next(attempt int) (time.Duration, bool)
}

// DefaultReconnectInterval is the fixed delay used when no policy is set.
const DefaultReconnectInterval = 5 * time.Second

// FixedInterval retries at a constant interval. MaxAttempts of zero
// retries forever.
type FixedInterval struct {
	Interval    time.Duration
	MaxAttempts int
}

// Next implements ReconnectPolicy.
func (p FixedInterval) Next(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	if p.Interval <= 0 {
		return DefaultReconnectInterval, true
	}
	return p.Interval, true
}

// DefaultMaxBackoff caps Backoff when Max is unset.
const DefaultMaxBackoff = time.Hour

// Backoff doubles the delay after each failed attempt, from Initial up to
// Max (DefaultMaxBackoff when zero). MaxAttempts of zero retries forever.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Next implements ReconnectPolicy.
func (p Backoff) Next(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	limit := p.Max
	if limit <= 0 {
		limit = DefaultMaxBackoff
	}
	d := p.Initial
	if d <= 0 {
		d = time.Second
	}
	// Compare against half the limit so the doubling cannot overflow.
	for i := 1; i < attempt; i++ {
		if d > limit/2 {
			return limit, true
		}
		d *= 2
	}
	return min(d, limit), true
}
