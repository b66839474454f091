package hooks

import (
	"context"
	"fmt"

	"github.com/rubiojr/edstream/pkg/events"
)

// typed adapts a variant-specific callback to a Handler.
func typed[E events.Event](fn func(context.Context, E) error) Handler {
	return func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(E)
		if !ok {
			return fmt.Errorf("unexpected event %T", ev)
		}
		return fn(ctx, e)
	}
}

// OnThreadNew registers fn for new threads.
func OnThreadNew(r *Registry, fn func(context.Context, events.ThreadNewEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.ThreadNew)
}

// OnThreadUpdate registers fn for edited threads.
func OnThreadUpdate(r *Registry, fn func(context.Context, events.ThreadUpdateEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.ThreadUpdate)
}

// OnThreadDelete registers fn for deleted threads. Only Thread.ID is set.
func OnThreadDelete(r *Registry, fn func(context.Context, events.ThreadDeleteEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.ThreadDelete)
}

// OnCommentNew registers fn for new comments and answers.
func OnCommentNew(r *Registry, fn func(context.Context, events.CommentNewEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.CommentNew)
}

// OnCommentUpdate registers fn for edited comments.
func OnCommentUpdate(r *Registry, fn func(context.Context, events.CommentUpdateEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.CommentUpdate)
}

// OnCommentDelete registers fn for deleted comments. Only Comment.ID and ThreadID are set.
func OnCommentDelete(r *Registry, fn func(context.Context, events.CommentDeleteEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.CommentDelete)
}

// OnCourseCount registers fn for course viewer count updates.
func OnCourseCount(r *Registry, fn func(context.Context, events.CourseCountEvent) error) (Registration, error) {
	return r.Add(typed(fn), events.CourseCount)
}
