package state

import (
	"log"
	"slices"
	"sync"
)

// Observer receives change events.
type Observer interface {
	OnEvent(Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event) error

func (f ObserverFunc) OnEvent(ev Event) error { return f(ev) }

// ObserverID identifies a registration for RemoveObserver.
type ObserverID uint64

type registration struct {
	id       ObserverID
	observer Observer
}

// notifier fans events out to observers in registration order.
// Events are queued in commit order and drained by one goroutine at a time,
// so an observer that triggers another transaction never deadlocks and
// never sees events out of order.
type notifier struct {
	mu        sync.Mutex
	observers []registration
	nextID    ObserverID
	seq       uint64
	queue     []Event
	draining  bool
	logger    *log.Logger
}

func (n *notifier) add(o Observer) ObserverID {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.observers = append(n.observers, registration{id: n.nextID, observer: o})
	return n.nextID
}

func (n *notifier) remove(id ObserverID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := slices.IndexFunc(n.observers, func(r registration) bool { return r.id == id })
	if i < 0 {
		return false
	}
	n.observers = slices.Delete(n.observers, i, i+1)
	return true
}

// enqueue stamps sequence numbers and queues events. Callers hold the state
// lock so queue order equals commit order.
func (n *notifier) enqueue(events []Event) {
	if len(events) == 0 {
		return
	}
	n.mu.Lock()
	for _, ev := range events {
		n.seq++
		ev.Seq = n.seq
		n.queue = append(n.queue, ev)
	}
	n.mu.Unlock()
}

// drain delivers queued events. If another call is already draining, it
// returns immediately and that call delivers the new events too.
func (n *notifier) drain() {
	n.mu.Lock()
	if n.draining {
		n.mu.Unlock()
		return
	}
	n.draining = true
	for len(n.queue) > 0 {
		ev := n.queue[0]
		n.queue = n.queue[1:]
		observers := slices.Clone(n.observers)
		n.mu.Unlock()

		for _, r := range observers {
			n.deliver(r, ev)
		}

		n.mu.Lock()
	}
	n.draining = false
	n.mu.Unlock()
}

// deliver calls one observer. Errors and panics are logged, never propagated.
func (n *notifier) deliver(r registration, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			n.logger.Printf("observer %d panicked on %s: %v", r.id, ev.Kind, p)
		}
	}()
	if err := r.observer.OnEvent(ev); err != nil {
		n.logger.Printf("observer %d failed on %s: %v", r.id, ev.Kind, err)
	}
}
