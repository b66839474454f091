// Package hooks holds the listener registry and the dispatcher that fans
// stream events out to application callbacks.
//
// Listeners declare interest explicitly, either one handler at a time:
//
//	reg := hooks.NewRegistry()
//	hooks.OnThreadNew(reg, func(ctx context.Context, ev events.ThreadNewEvent) error {
//		fmt.Println(ev.Thread.Title)
//		return nil
//	})
//
// or by handing over an object that lists its hooks:
//
//	type Bot struct{}
//
//	func (b *Bot) Hooks() []hooks.Hook {
//		return []hooks.Hook{
//			{Kinds: []events.Kind{events.ThreadNew, events.ThreadUpdate}, Handler: b.onThread},
//		}
//	}
//
//	reg.AddHooks(&Bot{})
//
// Registration is append-only. Adding the same handler twice for a kind
// makes it run twice.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rubiojr/edstream/pkg/events"
)

// Handler is a listener callback.
type Handler func(ctx context.Context, ev events.Event) error

// Hook binds a handler to one or more event kinds.
type Hook struct {
	Kinds   []events.Kind
	Handler Handler
}

// Source is implemented by objects that carry their own hook declarations.
type Source interface {
	Hooks() []Hook
}

// Registration identifies a handler added to a Registry.
type Registration struct {
	id uint64
}

// ID returns the registration sequence number. Listener failures report it
// in ListenerError.Registration.
func (r Registration) ID() uint64 { return r.id }

type entry struct {
	id      uint64
	handler Handler
}

// Registry maps event kinds to ordered handler lists. It is safe for
// concurrent use, though registering while dispatching is not expected.
type Registry struct {
	mu          sync.RWMutex
	listeners   map[events.Kind][]entry
	nextID      uint64
	maxParallel int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		listeners:   make(map[events.Kind][]entry),
		maxParallel: -1,
	}
}

// SetMaxConcurrent bounds how many listeners run at once for a single
// event. n <= 0 means no limit.
func (r *Registry) SetMaxConcurrent(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		n = -1
	}
	r.maxParallel = n
}

// Add appends handler to the listener list of every given kind.
func (r *Registry) Add(handler Handler, kinds ...events.Kind) (Registration, error) {
	if handler == nil {
		return Registration{}, fmt.Errorf("nil handler")
	}
	if len(kinds) == 0 {
		return Registration{}, fmt.Errorf("handler registered without event kinds")
	}
	for _, k := range kinds {
		if !k.Valid() {
			return Registration{}, fmt.Errorf("unknown event kind %q", k)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	for _, k := range kinds {
		r.listeners[k] = append(r.listeners[k], entry{id: id, handler: handler})
	}
	return Registration{id: id}, nil
}

// AddHooks registers every hook declared by src, in order.
func (r *Registry) AddHooks(src Source) ([]Registration, error) {
	hooks := src.Hooks()
	regs := make([]Registration, 0, len(hooks))
	for i, h := range hooks {
		reg, err := r.Add(h.Handler, h.Kinds...)
		if err != nil {
			return regs, fmt.Errorf("hook %d of %T: %w", i, src, err)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// Listeners returns a snapshot of the handlers registered for kind.
func (r *Registry) Listeners(kind events.Kind) []Handler {
	entries := r.snapshot(kind)
	out := make([]Handler, len(entries))
	for i, e := range entries {
		out[i] = e.handler
	}
	return out
}

func (r *Registry) snapshot(kind events.Kind) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entry(nil), r.listeners[kind]...)
}

// Count returns the number of handlers registered for kind.
func (r *Registry) Count(kind events.Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[kind])
}
