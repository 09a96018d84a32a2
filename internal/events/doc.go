// Package events delivers hub session notifications to application code.
//
// Events are published by the hub client and delivered asynchronously, in
// publication order, on the bus's own goroutine. A listener that panics is
// logged and skipped; other listeners still receive the event.
//
// # Usage
//
//	bus := events.NewBus(logger)
//	defer bus.Close()
//
//	unsubscribe := bus.Subscribe(events.Funcs{
//	    NewOrder: func(e events.NewOrder) { kitchen.Show(e.Order) },
//	    Error:    func(e events.Error) { logger.Warn("hub error", "error", e.Err) },
//	})
//	defer unsubscribe()
package events
