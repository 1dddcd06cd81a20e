package store

import (
	"sync"
)

// ChangeType is the kind of change an Event reports.
type ChangeType int

const (
	// Created reports a new file or directory
	Created ChangeType = iota + 1
	// Changed reports new content for an existing file
	Changed
	// Deleted reports a removed entry
	Deleted
)

func (c ChangeType) String() string {
	switch c {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MarshalText lets events serialize with readable type names.
func (c ChangeType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Event is a single change notification.
type Event struct {
	Type ChangeType `json:"type"`
	Path string     `json:"path"`
}

// Listener receives change events. It runs synchronously inside the
// mutating call and must not mutate the store itself.
type Listener func(Event)

// Subscription is a handle to a registered listener. Close may be called
// any number of times, from any goroutine.
type Subscription interface {
	Close()
}

// emitter is the publish point for change events.
type emitter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener
	order     []uint64
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[uint64]Listener)}
}

func (e *emitter) subscribe(fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[id] = fn
	e.order = append(e.order, id)

	return &subscription{emitter: e, id: id}
}

func (e *emitter) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.listeners[id]; !ok {
		return
	}
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the listeners in subscription order.
func (e *emitter) snapshot() []Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Listener, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.listeners[id])
	}
	return out
}

func (e *emitter) count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

func (e *emitter) fire(events []Event) {
	listeners := e.snapshot()
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

type subscription struct {
	emitter *emitter
	id      uint64
	once    sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.emitter.remove(s.id)
	})
}

// nopSubscription is returned by Watch, which registers nothing.
type nopSubscription struct{}

func (nopSubscription) Close() {}
