package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/models"
)

// ErrUnknownFrame is returned by Classify for frame types it does not know.
var ErrUnknownFrame = errors.New("unknown frame type")

// Frame is one inbound server message.
type Frame struct {
	ID   *uint64        `json:"id,omitempty"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// DecodeFrame parses a text frame. Numbers inside Data are kept as
// json.Number so large ids survive intact.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decoding frame: missing type")
	}
	return f, nil
}

// Classify maps a frame to the event it carries. Frames that carry no
// event (chat.init, course.subscribe) yield a nil event and no error.
func Classify(f Frame) (events.Event, error) {
	data := f.Data
	switch f.Type {
	case "chat.init", TypeSubscribe:
		return nil, nil
	case "thread.new":
		return events.ThreadNewEvent{Thread: models.ThreadFromMap(object(data, "thread"))}, nil
	case "thread.update":
		return events.ThreadUpdateEvent{Thread: models.ThreadFromMap(object(data, "thread"))}, nil
	case "thread.delete":
		return events.ThreadDeleteEvent{Thread: models.Thread{ID: integer(data, "thread_id")}}, nil
	case "comment.new":
		return events.CommentNewEvent{Comment: models.CommentFromMap(object(data, "comment"))}, nil
	case "comment.update":
		return events.CommentUpdateEvent{Comment: models.CommentFromMap(object(data, "comment"))}, nil
	case "comment.delete":
		return events.CommentDeleteEvent{Comment: models.Comment{
			ID:       integer(data, "comment_id"),
			ThreadID: integer(data, "thread_id"),
		}}, nil
	case "course.count":
		courseID := integer(data, "id")
		if courseID == 0 {
			courseID = integer(data, "course_id")
		}
		return events.CourseCountEvent{CourseID: courseID, Count: integer(data, "count")}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
}

func object(data map[string]any, key string) map[string]any {
	m, _ := data[key].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func integer(data map[string]any, key string) int64 {
	n, _ := models.ToInt(data[key])
	return n
}
