package wallet

import (
	"sync"

	"github.com/aptokit/aptokit/types"
)

// EventKind names a wallet lifecycle notification.
type EventKind string

const (
	EventConnect        EventKind = "connect"
	EventDisconnect     EventKind = "disconnect"
	EventAccountChanged EventKind = "accountChanged"
	EventNetworkChanged EventKind = "networkChanged"
)

// Event is the typed payload delivered to wallet event handlers.
type Event struct {
	Kind    EventKind
	Address types.Address
	Network string
}

// emitter is a minimal publish/subscribe hub. Every registration returns an
// unsubscribe func so handlers never leak across the manager's lifetime.
type emitter struct {
	mu       sync.Mutex
	nextID   int
	handlers map[EventKind]map[int]func(Event)
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventKind]map[int]func(Event))}
}

func (e *emitter) on(kind EventKind, fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers[kind] == nil {
		e.handlers[kind] = make(map[int]func(Event))
	}
	id := e.nextID
	e.nextID++
	e.handlers[kind][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[kind], id)
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.handlers[ev.Kind]))
	for _, fn := range e.handlers[ev.Kind] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *emitter) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = make(map[EventKind]map[int]func(Event))
}
