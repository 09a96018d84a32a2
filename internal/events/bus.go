package events

import (
	"fmt"
	"sync"

	"github.com/menuhub/hubsync/internal/mailbox"
)

// Logger is the subset of the application logger the bus needs.
type Logger interface {
	Error(msg string, args ...any)
}

// Bus fans events out to subscribed listeners.
//
// Thread Safety:
//   - Publish, Subscribe and Close are safe for concurrent use.
//   - Listeners are invoked from a single goroutine, never concurrently.
type Bus struct {
	logger Logger

	mu        sync.RWMutex
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64

	queue     *mailbox.Mailbox[Event]
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBus creates a bus and starts its delivery goroutine.
func NewBus(logger Logger) *Bus {
	b := &Bus{
		logger:    logger,
		listeners: make(map[uint64]Listener),
		queue:     mailbox.New[Event](),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe registers l and returns a function that removes it.
// Events already queued may still reach l after Subscribe returns.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = l
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish queues e for delivery. It never blocks. Events published after
// Close are dropped.
func (b *Bus) Publish(e Event) {
	b.queue.Post(e)
}

// Close stops accepting events, delivers what is already queued and waits
// for the delivery goroutine to exit.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.queue.Close()
		close(b.stop)
	})
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case <-b.queue.Ready():
			b.dispatch(b.queue.Drain())
		case <-b.stop:
			b.dispatch(b.queue.Drain())
			return
		}
	}
}

func (b *Bus) dispatch(batch []Event) {
	for _, e := range batch {
		b.mu.RLock()
		targets := make([]Listener, 0, len(b.order))
		for _, id := range b.order {
			targets = append(targets, b.listeners[id])
		}
		b.mu.RUnlock()

		for _, l := range targets {
			b.deliver(l, e)
		}
	}
}

func (b *Bus) deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("event listener panicked",
				"kind", string(e.Kind()),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	e.deliver(l)
}
