package hubclient

import (
	"context"
	"sync"
	"time"

	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/identity"
	"github.com/menuhub/hubsync/internal/infrastructure/logging"
	"github.com/menuhub/hubsync/internal/mailbox"
	"github.com/menuhub/hubsync/internal/pairing"
	"github.com/menuhub/hubsync/internal/protocol"
	"github.com/menuhub/hubsync/internal/transport"
)

// Defaults applied by New when Options leaves a field zero.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultConnectTimeout = 20 * time.Second
)

// Identity is the device descriptor source.
type Identity interface {
	Descriptor(ctx context.Context) (identity.Descriptor, error)
	LastSyncAt(ctx context.Context) (time.Time, error)
	SetLastSyncAt(ctx context.Context, t time.Time) error
}

// Publisher receives lifecycle and order events.
type Publisher interface {
	Publish(events.Event)
}

// OfflineHandler takes submissions that could not be sent to the hub.
// Returning nil means the submission was accepted elsewhere.
type OfflineHandler interface {
	SubmitOrder(ctx context.Context, deviceID string, order protocol.NewOrder) error
	SubmitUpdate(ctx context.Context, deviceID string, update protocol.OrderUpdate) error
}

// Options tunes the lifecycle.
type Options struct {
	PingInterval   time.Duration
	ConnectTimeout time.Duration
	// SyncOnReconnect sends a sync_request right after re-registering.
	SyncOnReconnect bool
}

// Deps contains the collaborators of a Client.
type Deps struct {
	Identity   Identity
	Transports transport.Factory
	Signaler   transport.Signaler
	Events     Publisher
	Logger     *logging.Logger

	// Optional.
	Clock     Clock
	Reconnect ReconnectPolicy
	Validator pairing.Validator
	Offline   OfflineHandler
	Options   Options
}

// Client maintains the session with one hub.
type Client struct {
	identity  Identity
	factory   transport.Factory
	signaler  transport.Signaler
	events    Publisher
	logger    *logging.Logger
	clock     Clock
	policy    ReconnectPolicy
	validator pairing.Validator
	offline   OfflineHandler
	opts      Options

	queue     *mailbox.Mailbox[func()]
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Loop-owned. Touch only from functions run on the loop goroutine.
	state         State
	offer         *pairing.Offer
	desc          identity.Descriptor
	gen           uint64
	tr            transport.SessionTransport
	cancelAttempt context.CancelFunc
	waiters       []chan error
	everConnected bool
	attempts      int
	pingTimer     timerSlot
	connectTimer  timerSlot
	reconnect     timerSlot

	// Snapshot for callers off the loop.
	mu       sync.RWMutex
	status   Status
	liveConn transport.SessionTransport
}

// New creates a Client and starts its loop.
func New(deps Deps) *Client {
	c := &Client{
		identity:  deps.Identity,
		factory:   deps.Transports,
		signaler:  deps.Signaler,
		events:    deps.Events,
		logger:    deps.Logger,
		clock:     deps.Clock,
		policy:    deps.Reconnect,
		validator: deps.Validator,
		offline:   deps.Offline,
		opts:      deps.Options,
		queue:     mailbox.New[func()](),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	c.logger = c.logger.With("component", "hubclient")
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.policy == nil {
		c.policy = FixedInterval{Interval: DefaultReconnectInterval}
	}
	if c.signaler == nil {
		c.signaler = transport.DirectSignaler{}
	}
	if c.opts.PingInterval <= 0 {
		c.opts.PingInterval = DefaultPingInterval
	}
	if c.opts.ConnectTimeout <= 0 {
		c.opts.ConnectTimeout = DefaultConnectTimeout
	}

	go c.run()
	return c
}

// Status returns a snapshot of the connection state.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Close disconnects and stops the loop. The client is unusable afterwards.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		done := make(chan struct{})
		if c.queue.Post(func() {
			c.teardown(ErrClosed)
			close(done)
		}) {
			<-done
		}
		c.queue.Close()
		close(c.stop)
	})
	<-c.done
	return nil
}

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case <-c.queue.Ready():
			for _, fn := range c.queue.Drain() {
				fn()
			}
		case <-c.stop:
			return
		}
	}
}

// post queues fn on the loop. Returns false once the client is closed.
func (c *Client) post(fn func()) bool {
	return c.queue.Post(fn)
}

// call runs fn on the loop and waits for it.
func (c *Client) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !c.post(func() { fn(); close(finished) }) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) publish(e events.Event) {
	if c.events != nil {
		c.events.Publish(e)
	}
}

// syncStatus copies loop-owned state into the snapshot.
func (c *Client) syncStatus(mutate func(*Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = c.state
	c.status.ReconnectPending = c.reconnect.armed()
	c.status.Attempts = c.attempts
	c.status.DeviceID = c.desc.DeviceID
	if c.offer != nil {
		c.status.HubID = c.offer.HubID
		c.status.HubName = c.offer.HubName
		c.status.RestaurantID = c.offer.RestaurantID
	} else {
		c.status.HubID, c.status.HubName, c.status.RestaurantID = "", "", ""
	}
	if c.state == StateConnected {
		c.liveConn = c.tr
	} else {
		c.liveConn = nil
		c.status.ConnectedAt = time.Time{}
	}
	if mutate != nil {
		mutate(&c.status)
	}
}
