package models

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestThreadFromMapPartial(t *testing.T) {
	th := ThreadFromMap(map[string]any{"id": float64(42)})

	if th.ID != 42 {
		t.Fatalf("expected id 42, got %d", th.ID)
	}
	if th.Title != "" || th.CourseID != 0 || th.Type != "" || th.User != nil || th.UpdatedAt != nil {
		t.Fatalf("expected all other fields unset, got %+v", th)
	}
}

func TestThreadFromMapFull(t *testing.T) {
	m := decode(t, `{
		"id": 7, "user_id": 3, "course_id": 12345, "original_id": null,
		"editor_id": 9, "number": 11, "type": "question", "title": "Help",
		"content": "<document/>", "category": "General", "vote_count": 2,
		"is_pinned": true, "updated_at": "2024-01-02T03:04:05Z",
		"user": {"id": 3, "name": "Ada", "course_role": "student"},
		"comments": [{"id": 100, "thread_id": 7, "content": "hi"}]
	}`)

	th := ThreadFromMap(m)

	if th.ID != 7 || th.UserID != 3 || th.CourseID != 12345 || th.Number != 11 {
		t.Fatalf("unexpected ids: %+v", th)
	}
	if th.OriginalID != nil {
		t.Fatalf("expected nil original id for JSON null")
	}
	if th.EditorID == nil || *th.EditorID != 9 {
		t.Fatalf("expected editor id 9, got %v", th.EditorID)
	}
	if th.Type != ThreadQuestion || th.Title != "Help" || th.Category != "General" {
		t.Fatalf("unexpected strings: %+v", th)
	}
	if !th.IsPinned || th.VoteCount != 2 {
		t.Fatalf("unexpected flags: %+v", th)
	}
	if th.UpdatedAt == nil || *th.UpdatedAt != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected updated_at: %v", th.UpdatedAt)
	}
	if th.User == nil || th.User.Name != "Ada" || th.User.CourseRole != "student" {
		t.Fatalf("unexpected user: %+v", th.User)
	}
	if len(th.Comments) != 1 || th.Comments[0].ID != 100 || th.Comments[0].ThreadID != 7 {
		t.Fatalf("unexpected comments: %+v", th.Comments)
	}
}

func TestCommentFromMapMistypedFields(t *testing.T) {
	c := CommentFromMap(map[string]any{
		"id":         "55",
		"thread_id":  true,
		"content":    12,
		"is_private": "yes",
	})

	if c.ID != 55 {
		t.Fatalf("expected numeric string id to parse, got %d", c.ID)
	}
	if c.ThreadID != 0 || c.Content != "" || c.IsPrivate {
		t.Fatalf("expected mistyped fields to stay zero, got %+v", c)
	}
}

func TestParseThreadType(t *testing.T) {
	for _, s := range []string{"post", "question", "announcement"} {
		if _, err := ParseThreadType(s); err != nil {
			t.Errorf("ParseThreadType(%q): %v", s, err)
		}
	}
	if _, err := ParseThreadType("poll"); err == nil {
		t.Errorf("expected error for unknown thread type")
	}
}

func TestEnrollmentFromMap(t *testing.T) {
	m := decode(t, `{"course": {"id": 1, "code": "CS101", "status": "active"}, "role": {"role": "admin"}}`)
	e := EnrollmentFromMap(m)

	if e.Course.ID != 1 || e.Course.Code != "CS101" || e.Role != "admin" {
		t.Fatalf("unexpected enrollment: %+v", e)
	}
}

func TestCourseUserTutorials(t *testing.T) {
	m := decode(t, `{"id": 2, "name": "Bob", "tutorials": {"10": "T01", "x": "bad"}}`)
	u := CourseUserFromMap(m)

	if len(u.Tutorials) != 1 || u.Tutorials[10] != "T01" {
		t.Fatalf("unexpected tutorials: %v", u.Tutorials)
	}
}
