package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func newTestServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /api/user", auth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"user": map[string]any{"id": 1, "name": "Ada", "email": "ada@example.com"},
			"courses": []any{
				map[string]any{"course": map[string]any{"id": 12345, "code": "CS101"}, "role": map[string]any{"role": "student"}},
				map[string]any{"course": map[string]any{"id": 999, "code": "MATH1"}, "role": map[string]any{"role": "tutor"}},
			},
		})
	}))
	mux.HandleFunc("GET /api/threads/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"thread": map[string]any{"id": 7, "title": "Hello", "type": "post", "course_id": 12345},
			"users":  []any{map[string]any{"id": 1, "name": "Ada"}},
		})
	}))
	mux.HandleFunc("GET /api/courses/{id}/threads", auth(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" || r.URL.Query().Get("sort") != "new" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{
			"threads": []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
		})
	}))
	mux.HandleFunc("POST /api/renew_token", auth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"token": "stream-token"})
	}))
	mux.HandleFunc("GET /api/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("GET /api/unavailable", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("GET /api/text", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain body"))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(ts *httptest.Server, token string) *Client {
	return New(Options{
		BaseURL:     ts.URL,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
	})
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t, "secret")
	c := newTestClient(ts, "secret")

	info, err := c.GetUser(context.Background())
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if info.User.Name != "Ada" || len(info.Courses) != 2 {
		t.Fatalf("unexpected user info: %+v", info)
	}
	if info.Courses[1].Role != "tutor" || info.Courses[1].Course.Code != "MATH1" {
		t.Fatalf("unexpected enrollment: %+v", info.Courses[1])
	}
}

func TestGetCourse(t *testing.T) {
	ts := newTestServer(t, "secret")
	c := newTestClient(ts, "secret")

	course, err := c.GetCourse(context.Background(), 12345)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if course.Code != "CS101" {
		t.Fatalf("unexpected course: %v", course)
	}

	if _, err := c.GetCourse(context.Background(), 1); !errors.Is(err, ErrRequest) {
		t.Fatalf("expected ErrRequest for unknown course, got %v", err)
	}
}

func TestGetThreadAndList(t *testing.T) {
	ts := newTestServer(t, "secret")
	c := newTestClient(ts, "secret")
	ctx := context.Background()

	view, err := c.GetThread(ctx, 7)
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if view.Thread.Title != "Hello" || len(view.Users) != 1 {
		t.Fatalf("unexpected thread view: %+v", view)
	}

	if _, err := c.GetThread(ctx, 8); !errors.Is(err, ErrRequest) {
		t.Fatalf("expected ErrRequest for 404, got %v", err)
	}

	list, err := c.ListThreads(ctx, 12345, ListOptions{Limit: 5, Sort: "new"})
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(list.Threads) != 2 || list.Threads[1].ID != 2 {
		t.Fatalf("unexpected thread list: %+v", list)
	}
}

func TestRenewToken(t *testing.T) {
	ts := newTestServer(t, "secret")
	c := newTestClient(ts, "secret")

	tok, err := c.RenewToken(context.Background())
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if tok != "stream-token" {
		t.Fatalf("unexpected token %q", tok)
	}
}

func TestStatusMapping(t *testing.T) {
	ts := newTestServer(t, "secret")
	ctx := context.Background()

	t.Run("bad token is an authentication error", func(t *testing.T) {
		c := newTestClient(ts, "wrong")
		err := c.Get(ctx, "/api/user", nil)
		if !errors.Is(err, ErrAuthentication) {
			t.Fatalf("expected ErrAuthentication, got %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected StatusError 401, got %v", err)
		}
	})

	t.Run("forbidden is a request error", func(t *testing.T) {
		c := newTestClient(ts, "secret")
		if err := c.Get(ctx, "/api/forbidden", nil); !errors.Is(err, ErrRequest) {
			t.Fatalf("expected ErrRequest, got %v", err)
		}
	})

	t.Run("503 is transient", func(t *testing.T) {
		c := newTestClient(ts, "secret")
		if err := c.Get(ctx, "/api/unavailable", nil); !errors.Is(err, ErrTransient) {
			t.Fatalf("expected ErrTransient, got %v", err)
		}
	})

	t.Run("raw text body", func(t *testing.T) {
		c := newTestClient(ts, "secret")
		var body string
		if err := c.Get(ctx, "/api/text", &body); err != nil {
			t.Fatalf("get text: %v", err)
		}
		if body != "plain body" {
			t.Fatalf("unexpected body %q", body)
		}
	})
}

func TestConnectorFailureIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(Options{
		BaseURL:     url,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}),
	})
	err := c.Get(context.Background(), "/api/user", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient for refused connection, got %v", err)
	}
}

func TestMissingToken(t *testing.T) {
	ts := newTestServer(t, "secret")
	c := New(Options{BaseURL: ts.URL})

	err := c.Get(context.Background(), "/api/user", nil)
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("expected missing token to be a request error, got %v", err)
	}
}
