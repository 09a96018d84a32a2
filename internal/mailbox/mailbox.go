// Package mailbox provides an unbounded FIFO used to hand work to a single
// consumer goroutine without ever blocking the producer.
//
// Producers (transport callbacks, timers, API calls) Post; the owning loop
// waits on Ready and processes Drain in order.
//
//	for {
//	    select {
//	    case <-done:
//	        return
//	    case <-mb.Ready():
//	        for _, item := range mb.Drain() {
//	            handle(item)
//	        }
//	    }
//	}
package mailbox

import "sync"

// Mailbox is an unbounded, ordered, multi-producer single-consumer queue.
// The zero value is not usable; call New.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{}
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Post appends item. It never blocks. Returns false if the mailbox is closed
// and the item was discarded.
func (m *Mailbox[T]) Post(item T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, item)
	m.mu.Unlock()

	m.signal()
	return true
}

// Ready is signalled at least once after items become available.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Drain removes and returns everything queued, oldest first.
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

// Len reports the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close rejects further posts. Items already queued stay drainable.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mailbox[T]) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
