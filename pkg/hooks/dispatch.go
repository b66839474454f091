package hooks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/log"
	"golang.org/x/sync/errgroup"
)

// ListenerError reports a listener that returned an error or panicked.
type ListenerError struct {
	Kind         events.Kind
	Index        int    // position among the handlers for Kind
	Registration uint64 // ID of the Registration that added the listener
	Err          error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %d (registration %d) for %s: %v", e.Index, e.Registration, e.Kind, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// Dispatch runs every listener registered for ev's kind concurrently and
// waits for all of them. A failing or panicking listener never stops its
// siblings; each failure is logged and the joined failures are returned.
// No listeners is not an error.
func (r *Registry) Dispatch(ctx context.Context, ev events.Event) error {
	if ev == nil {
		return nil
	}
	kind := ev.Kind()
	entries := r.snapshot(kind)
	if len(entries) == 0 {
		return nil
	}

	r.mu.RLock()
	limit := r.maxParallel
	r.mu.RUnlock()

	l := log.ForService("hooks")
	l.Debugf("dispatching %s to %d listeners", kind, len(entries))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []*ListenerError
	)
	g.SetLimit(limit)

	for i, e := range entries {
		g.Go(func() error {
			if err := invoke(ctx, e.handler, ev); err != nil {
				lerr := &ListenerError{Kind: kind, Index: i, Registration: e.id, Err: err}
				l.Errorf("%v", lerr)
				mu.Lock()
				errs = append(errs, lerr)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		return nil
	}
	// Report failures in registration order, not completion order.
	slices.SortFunc(errs, func(a, b *ListenerError) int { return a.Index - b.Index })
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

func invoke(ctx context.Context, h Handler, ev events.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, ev)
}
