// Package events defines the closed set of events produced from the Ed
// stream. Each variant is an immutable value carrying a (possibly partially
// populated) domain object.
package events

import "github.com/rubiojr/edstream/pkg/models"

// Kind tags an event variant. Listeners are registered per Kind.
type Kind string

const (
	ThreadNew     Kind = "ThreadNewEvent"
	ThreadUpdate  Kind = "ThreadUpdateEvent"
	ThreadDelete  Kind = "ThreadDeleteEvent"
	CommentNew    Kind = "CommentNewEvent"
	CommentUpdate Kind = "CommentUpdateEvent"
	CommentDelete Kind = "CommentDeleteEvent"
	CourseCount   Kind = "CourseCountEvent"
)

// Kinds returns every event kind.
func Kinds() []Kind {
	return []Kind{ThreadNew, ThreadUpdate, ThreadDelete, CommentNew, CommentUpdate, CommentDelete, CourseCount}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Event is implemented by every variant.
type Event interface {
	Kind() Kind
}

// ThreadNewEvent is emitted when a thread is created.
type ThreadNewEvent struct {
	Thread models.Thread
}

// ThreadUpdateEvent is emitted when a thread changes. The thread may be incomplete.
type ThreadUpdateEvent struct {
	Thread models.Thread
}

// ThreadDeleteEvent is emitted when a thread is deleted. Only Thread.ID is set.
type ThreadDeleteEvent struct {
	Thread models.Thread
}

// CommentNewEvent is emitted when a comment is posted.
type CommentNewEvent struct {
	Comment models.Comment
}

// CommentUpdateEvent is emitted when a comment changes. The comment may be incomplete.
type CommentUpdateEvent struct {
	Comment models.Comment
}

// CommentDeleteEvent is emitted when a comment is deleted. Only Comment.ID
// and Comment.ThreadID are set.
type CommentDeleteEvent struct {
	Comment models.Comment
}

// CourseCountEvent reports how many users are viewing a course.
type CourseCountEvent struct {
	CourseID int64
	Count    int64
}

func (ThreadNewEvent) Kind() Kind     { return ThreadNew }
func (ThreadUpdateEvent) Kind() Kind  { return ThreadUpdate }
func (ThreadDeleteEvent) Kind() Kind  { return ThreadDelete }
func (CommentNewEvent) Kind() Kind    { return CommentNew }
func (CommentUpdateEvent) Kind() Kind { return CommentUpdate }
func (CommentDeleteEvent) Kind() Kind { return CommentDelete }
func (CourseCountEvent) Kind() Kind   { return CourseCount }
