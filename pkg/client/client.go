// Package client is the entry point for applications: it wires the REST
// client, the token store, the listener registry and the stream connection
// together.
//
//	c, err := client.New(client.Options{Token: os.Getenv("ED_API_TOKEN")})
//	hooks.OnThreadNew(c.Hooks(), func(ctx context.Context, ev events.ThreadNewEvent) error {
//		fmt.Println(ev.Thread.Title)
//		return nil
//	})
//	err = c.Subscribe(ctx, "12345")
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rubiojr/edstream/pkg/api"
	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/hooks"
	"github.com/rubiojr/edstream/pkg/log"
	"github.com/rubiojr/edstream/pkg/models"
	"github.com/rubiojr/edstream/pkg/stream"
	"github.com/rubiojr/edstream/pkg/tokenstore"
)

// ErrInvalidCourseID is returned for course ids that are not integers.
var ErrInvalidCourseID = errors.New("course ID must be an integer or integer-like string")

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	// BaseURL of the REST API. The stream endpoint is derived from it.
	BaseURL string
	// Token is the bearer token. Empty falls back to ED_API_TOKEN.
	Token string
	// Tokens overrides the in-memory token store built from Token.
	Tokens     tokenstore.Store
	HTTPClient *http.Client

	Backoff          time.Duration
	MaxAuthAttempts  int
	Heartbeat        time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	SentRetention    time.Duration
	SentCapacity     int

	// MaxConcurrent bounds concurrent listeners per event. 0 is unbounded.
	MaxConcurrent int
}

// Client is a persistent connection to the forum service.
type Client struct {
	api    *api.Client
	hooks  *hooks.Registry
	conn   *stream.Conn
	tokens tokenstore.Store
	log    *log.Logger

	// mu guards the user state and serializes AddCourses.
	mu      sync.RWMutex
	user    models.User
	courses []models.Enrollment

	// subMu is only held while touching subscribed, never around calls
	// into the stream, so the stream can read it from its replay hook.
	subMu      sync.Mutex
	subscribed map[int64]bool
}

// New builds a disconnected client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = api.DefaultBaseURL
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = tokenstore.NewMemory(opts.Token)
	}

	apiClient := api.New(api.Options{
		BaseURL:     opts.BaseURL,
		TokenSource: tokens,
		HTTPClient:  opts.HTTPClient,
	})

	registry := hooks.NewRegistry()
	registry.SetMaxConcurrent(opts.MaxConcurrent)

	c := &Client{
		api:        apiClient,
		hooks:      registry,
		tokens:     tokens,
		log:        log.ForService("client"),
		subscribed: make(map[int64]bool),
	}

	endpoint, err := stream.EndpointFor(apiClient.BaseURL())
	if err != nil {
		return nil, err
	}
	conn, err := stream.New(stream.Options{
		URL:              endpoint,
		Tokens:           tokens,
		Renewer:          apiClient,
		Dispatcher:       registry,
		Backoff:          opts.Backoff,
		MaxAuthAttempts:  opts.MaxAuthAttempts,
		Heartbeat:        opts.Heartbeat,
		HandshakeTimeout: opts.HandshakeTimeout,
		WriteTimeout:     opts.WriteTimeout,
		SentRetention:    opts.SentRetention,
		SentCapacity:     opts.SentCapacity,
		Replay:           c.resubscribe,
	})
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// ParseCourseID accepts integer-like course ids such as "12345".
func ParseCourseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCourseID, s)
	}
	return id, nil
}

// AddEventHooks registers every hook src declares.
func (c *Client) AddEventHooks(src hooks.Source) ([]hooks.Registration, error) {
	return c.hooks.AddHooks(src)
}

// On registers handler for the given kinds.
func (c *Client) On(handler hooks.Handler, kinds ...events.Kind) (hooks.Registration, error) {
	return c.hooks.Add(handler, kinds...)
}

// Hooks exposes the registry for the typed helpers in package hooks.
func (c *Client) Hooks() *hooks.Registry {
	return c.hooks
}

// API returns the REST client.
func (c *Client) API() *api.Client {
	return c.api
}

// State reports the stream connection state.
func (c *Client) State() stream.State {
	return c.conn.State()
}

// Subscribe queues a subscription for each course, loads the current user
// and then keeps the stream connected until ctx is cancelled, Close is
// called or the stream fails for good.
func (c *Client) Subscribe(ctx context.Context, courseIDs ...string) error {
	if err := c.AddCourses(courseIDs...); err != nil {
		return err
	}

	info, err := c.api.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	c.mu.Lock()
	c.user = info.User
	c.courses = info.Courses
	c.mu.Unlock()
	c.log.Infof("Logged in as %s", info.User.Name)

	return c.conn.Run(ctx)
}

// AddCourses subscribes to more courses. Ids are validated before any
// command is sent and courses already subscribed are skipped.
func (c *Client) AddCourses(courseIDs ...string) error {
	ids := make([]int64, 0, len(courseIDs))
	for _, s := range courseIDs {
		id, err := ParseCourseID(s)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if c.isSubscribed(id) {
			continue
		}
		if _, err := c.conn.Send(stream.Subscribe(id)); err != nil {
			return fmt.Errorf("subscribing to course %d: %w", id, err)
		}
		c.subMu.Lock()
		c.subscribed[id] = true
		c.subMu.Unlock()
	}
	return nil
}

func (c *Client) isSubscribed(id int64) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.subscribed[id]
}

// Subscribed lists the course ids subscribed so far, in ascending order.
func (c *Client) Subscribed() []int64 {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	ids := make([]int64, 0, len(c.subscribed))
	for id := range c.subscribed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// resubscribe is the stream's replay hook: every new socket subscribes to
// all courses again.
func (c *Client) resubscribe() []stream.Message {
	ids := c.Subscribed()
	msgs := make([]stream.Message, len(ids))
	for i, id := range ids {
		msgs[i] = stream.Subscribe(id)
	}
	return msgs
}

// User returns the user loaded by Subscribe.
func (c *Client) User() models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Courses returns the enrollments loaded by Subscribe.
func (c *Client) Courses() []models.Enrollment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Enrollment(nil), c.courses...)
}

// Close stops the stream. A pending Subscribe returns nil.
func (c *Client) Close() error {
	return c.conn.Close()
}
