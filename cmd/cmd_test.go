package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/edstream/pkg/api"
	"github.com/rubiojr/edstream/pkg/client"
	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/models"
)

func TestThreadTypeLabel(t *testing.T) {
	tests := map[models.ThreadType]string{
		models.ThreadQuestion:     "Question",
		models.ThreadAnnouncement: "Announcement",
		"":                        "Thread",
	}
	for in, want := range tests {
		if got := threadTypeLabel(in); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestEventLabel(t *testing.T) {
	if got := eventLabel(events.CommentDelete); got != "Comment Delete" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestRenderEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	thread := models.Thread{ID: 3, Number: 12, Title: "Exam dates", Type: models.ThreadAnnouncement, CourseID: 12345}

	out := renderEvent(events.ThreadNewEvent{Thread: thread}, now)
	for _, want := range []string{"Thread New", "10:30:00", "#12 Exam dates", "Announcement", "course 12345"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	out = renderEvent(events.CommentDeleteEvent{Comment: models.Comment{ID: 9, ThreadID: 42}}, now)
	if !strings.Contains(out, "comment 9 on thread 42") {
		t.Errorf("unexpected delete rendering: %s", out)
	}

	out = renderEvent(events.CourseCountEvent{CourseID: 7, Count: 3}, now)
	if !strings.Contains(out, "course 7: 3 viewing") {
		t.Errorf("unexpected count rendering: %s", out)
	}
}

func TestRenderUser(t *testing.T) {
	info := &api.UserInfo{
		User: models.User{ID: 1, Name: "Ada", Email: "ada@example.com"},
		Courses: []models.Enrollment{
			{Course: models.Course{ID: 12345, Code: "CS101", Name: "Intro", Session: "Fall", Year: "2024"}, Role: "student"},
		},
	}
	out := renderUser(info)
	for _, want := range []string{"Ada", "ada@example.com", "CS101", "Student", "Fall 2024"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	empty := renderUser(&api.UserInfo{User: models.User{Name: "Bob"}})
	if !strings.Contains(empty, "Not enrolled") {
		t.Errorf("expected empty enrollment notice, got %s", empty)
	}
}

func TestRenderThreadList(t *testing.T) {
	out := renderThreadList(&api.ThreadList{Threads: []models.Thread{
		{ID: 1, Number: 1, Title: "First", Type: models.ThreadQuestion},
		{ID: 2, Number: 2, Title: strings.Repeat("x", 100), Type: models.ThreadPost},
	}})
	if !strings.Contains(out, "Question") || !strings.Contains(out, "First") || !strings.Contains(out, "…") {
		t.Fatalf("unexpected list rendering:\n%s", out)
	}
	if !strings.Contains(renderThreadList(&api.ThreadList{}), "No threads") {
		t.Fatal("expected empty list notice")
	}
}

func TestEventPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf, json: true, now: time.Now}

	raw := map[string]any{"id": float64(3), "title": "Exam dates"}
	if err := p.print(context.Background(), events.ThreadNewEvent{Thread: models.Thread{ID: 3, Raw: raw}}); err != nil {
		t.Fatal(err)
	}
	if err := p.print(context.Background(), events.ThreadDeleteEvent{Thread: models.Thread{ID: 42}}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %s", len(lines), buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["kind"] != "ThreadNewEvent" || first["thread"].(map[string]any)["title"] != "Exam dates" {
		t.Fatalf("unexpected first record %v", first)
	}
	if second["kind"] != "ThreadDeleteEvent" || second["thread_id"] != float64(42) {
		t.Fatalf("unexpected second record %v", second)
	}
}

func TestEventPrinterHooksCoverAllKinds(t *testing.T) {
	p := &eventPrinter{out: &bytes.Buffer{}, now: time.Now}
	hs := p.Hooks()
	if len(hs) != 1 || len(hs[0].Kinds) != len(events.Kinds()) {
		t.Fatalf("expected one hook for every kind, got %+v", hs)
	}
}

func TestReloadCoursesSubscribesNewOnes(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	cl, err := client.New(client.Options{BaseURL: "http://127.0.0.1:1", Token: "x"})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cl.Close() }()

	write(`courses = ["1", "2"]`)
	if err := reloadCourses(path, cl); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := len(cl.Subscribed()); n != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", n)
	}

	write(`courses = ["1", "2", "3"]`)
	if err := reloadCourses(path, cl); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := len(cl.Subscribed()); n != 3 {
		t.Fatalf("expected 3 subscriptions, got %d", n)
	}

	write(`courses = ["nope"]`)
	if err := reloadCourses(path, cl); err == nil {
		t.Fatal("expected invalid config to be reported")
	}
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "edstream", "config.toml")

	if err := initConfig(path, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := initConfig(path, false); err == nil {
		t.Fatal("expected existing config to be kept")
	}
	if err := initConfig(path, true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}
