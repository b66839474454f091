package stream

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/models"
)

func mustDecode(t *testing.T, raw string) Frame {
	t.Helper()
	f, err := DecodeFrame([]byte(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return f
}

func TestDecodeFrame(t *testing.T) {
	f := mustDecode(t, `{"id":3,"type":"course.subscribe"}`)
	if f.ID == nil || *f.ID != 3 || f.Type != TypeSubscribe {
		t.Fatalf("unexpected frame %+v", f)
	}

	f = mustDecode(t, `{"type":"thread.delete","data":{"thread_id":42}}`)
	if f.ID != nil {
		t.Fatalf("expected no id, got %d", *f.ID)
	}

	if _, err := DecodeFrame([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for frame without type")
	}
	if _, err := DecodeFrame([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestClassifyThreadDelete(t *testing.T) {
	ev, err := Classify(mustDecode(t, `{"type":"thread.delete","data":{"thread_id":42}}`))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := events.ThreadDeleteEvent{Thread: models.Thread{ID: 42}}
	if !reflect.DeepEqual(ev, want) {
		t.Fatalf("expected %+v, got %+v", want, ev)
	}
}

func TestClassifyCommentNew(t *testing.T) {
	raw := `{"type":"comment.new","data":{"comment":{
		"id": 501, "user_id": 7, "course_id": 12345, "thread_id": 42,
		"original_id": null, "parent_id": 500, "editor_id": 9,
		"number": 3, "type": "answer", "kind": "normal",
		"content": "<document>hi</document>", "document": "hi",
		"flag_count": 1, "vote_count": 4,
		"is_endorsed": true, "is_anonymous": false, "is_private": true, "is_resolved": true,
		"created_at": "2024-03-01T10:00:00Z", "updated_at": "2024-03-01T11:00:00Z", "deleted_at": null,
		"anonymous_id": 77, "vote": 1, "comments": []
	}}}`
	ev, err := Classify(mustDecode(t, raw))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	cn, ok := ev.(events.CommentNewEvent)
	if !ok {
		t.Fatalf("expected CommentNewEvent, got %T", ev)
	}
	c := cn.Comment

	checks := []struct {
		name      string
		got, want any
	}{
		{"id", c.ID, int64(501)},
		{"user_id", c.UserID, int64(7)},
		{"course_id", c.CourseID, int64(12345)},
		{"thread_id", c.ThreadID, int64(42)},
		{"number", c.Number, int64(3)},
		{"type", c.Type, "answer"},
		{"kind", c.Kind, "normal"},
		{"content", c.Content, "<document>hi</document>"},
		{"document", c.Document, "hi"},
		{"flag_count", c.FlagCount, int64(1)},
		{"vote_count", c.VoteCount, int64(4)},
		{"is_endorsed", c.IsEndorsed, true},
		{"is_anonymous", c.IsAnonymous, false},
		{"is_private", c.IsPrivate, true},
		{"is_resolved", c.IsResolved, true},
		{"created_at", c.CreatedAt, "2024-03-01T10:00:00Z"},
		{"anonymous_id", c.AnonymousID, int64(77)},
		{"vote", c.Vote, int64(1)},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s: expected %v, got %v", ck.name, ck.want, ck.got)
		}
	}
	if c.OriginalID != nil || c.DeletedAt != nil {
		t.Errorf("expected null fields to stay nil")
	}
	if c.ParentID == nil || *c.ParentID != 500 || c.EditorID == nil || *c.EditorID != 9 {
		t.Errorf("unexpected parent/editor ids: %v %v", c.ParentID, c.EditorID)
	}
	if c.UpdatedAt == nil || *c.UpdatedAt != "2024-03-01T11:00:00Z" {
		t.Errorf("unexpected updated_at: %v", c.UpdatedAt)
	}
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want events.Event
	}{
		{"chat.init", `{"type":"chat.init","data":{}}`, nil},
		{"course.subscribe", `{"id":1,"type":"course.subscribe"}`, nil},
		{
			"comment.delete",
			`{"type":"comment.delete","data":{"comment_id":9,"thread_id":42}}`,
			events.CommentDeleteEvent{Comment: models.Comment{ID: 9, ThreadID: 42}},
		},
		{
			"course.count",
			`{"type":"course.count","data":{"id":12345,"count":17}}`,
			events.CourseCountEvent{CourseID: 12345, Count: 17},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify(mustDecode(t, tt.raw))
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if !reflect.DeepEqual(ev, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, ev)
			}
		})
	}
}

func TestClassifyPartialThreads(t *testing.T) {
	ev, err := Classify(mustDecode(t, `{"type":"thread.update","data":{"thread":{"id":5,"title":"Edited"}}}`))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	up, ok := ev.(events.ThreadUpdateEvent)
	if !ok {
		t.Fatalf("expected ThreadUpdateEvent, got %T", ev)
	}
	if up.Thread.ID != 5 || up.Thread.Title != "Edited" || up.Thread.CourseID != 0 {
		t.Fatalf("unexpected partial thread %+v", up.Thread)
	}

	// A frame missing its object still classifies to an empty thread.
	ev, err = Classify(mustDecode(t, `{"type":"thread.new"}`))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if tn := ev.(events.ThreadNewEvent); tn.Thread.ID != 0 {
		t.Fatalf("expected empty thread, got %+v", tn.Thread)
	}
}

func TestClassifyUnknown(t *testing.T) {
	ev, err := Classify(mustDecode(t, `{"type":"unknown.kind","data":{"x":1}}`))
	if ev != nil {
		t.Fatalf("expected no event, got %#v", ev)
	}
	if !errors.Is(err, ErrUnknownFrame) {
		t.Fatalf("expected ErrUnknownFrame, got %v", err)
	}
}
