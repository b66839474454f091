// Package stream owns the persistent websocket to the forum service: it
// connects and authenticates, renews the stream token when the handshake is
// rejected, queues commands while disconnected and turns inbound frames into
// events for a Dispatcher.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rubiojr/edstream/pkg/events"
	"github.com/rubiojr/edstream/pkg/log"
	"github.com/rubiojr/edstream/pkg/version"
)

const (
	DefaultBackoff          = 5 * time.Second
	DefaultMaxAuthAttempts  = 10
	DefaultHeartbeat        = 60 * time.Second
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultSentRetention    = 10 * time.Minute
	DefaultSentCapacity     = 1024
)

var (
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("stream closed")
	// ErrAuthExhausted is returned when the handshake keeps being rejected
	// after MaxAuthAttempts tries.
	ErrAuthExhausted = errors.New("stream authentication failed")
)

// HandshakeError is a handshake the server answered with a non-upgrade status.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("stream handshake failed with status %d: %v", e.StatusCode, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// TokenStore holds the stream token used in the handshake.
type TokenStore interface {
	StreamToken() string
	SetStreamToken(token string) error
}

// Renewer obtains a fresh stream token.
type Renewer interface {
	RenewToken(ctx context.Context) (string, error)
}

// Dispatcher delivers an event to its listeners and returns once they have
// all finished.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event) error
}

// Options configures a Conn. Zero durations and sizes take the defaults above.
type Options struct {
	// URL is the stream endpoint, e.g. wss://us.edstem.org/api/stream.
	URL        string
	Tokens     TokenStore
	Renewer    Renewer
	Dispatcher Dispatcher

	Backoff          time.Duration
	MaxAuthAttempts  int
	Heartbeat        time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	SentRetention    time.Duration
	SentCapacity     int

	// Replay returns the messages every new socket must carry, such as
	// subscriptions made on an earlier connection. They are sent after the
	// queue is flushed. It runs while the connection lock is held and must
	// not call back into the Conn.
	Replay func() []Message

	Dialer *websocket.Dialer
}

// Conn is a single logical stream connection. At most one socket is open
// at any time.
type Conn struct {
	opts   Options
	dialer *websocket.Dialer
	log    *log.Logger

	state    atomic.Int32
	attempts atomic.Int32

	// mu guards the socket, the queue and id assignment, and serializes
	// every data write so flushes and live sends keep caller order.
	mu     sync.Mutex
	ws     *websocket.Conn
	queue  queue
	nextID uint64
	sent   *sentTable

	done      chan struct{}
	closeOnce sync.Once
}

// EndpointFor derives the stream endpoint from the REST base URL.
func EndpointFor(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/stream"
	u.RawQuery = ""
	return u.String(), nil
}

// New creates a disconnected Conn.
func New(opts Options) (*Conn, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("stream: URL is required")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("stream: token store is required")
	}
	if opts.Renewer == nil {
		return nil, fmt.Errorf("stream: token renewer is required")
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.MaxAuthAttempts <= 0 {
		opts.MaxAuthAttempts = DefaultMaxAuthAttempts
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.SentRetention <= 0 {
		opts.SentRetention = DefaultSentRetention
	}
	if opts.SentCapacity <= 0 {
		opts.SentCapacity = DefaultSentCapacity
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		}
	}

	c := &Conn{
		opts:   opts,
		dialer: dialer,
		log:    log.ForService("stream").Named(uuid.NewString()[:8]),
		sent:   newSentTable(opts.SentCapacity, opts.SentRetention),
		done:   make(chan struct{}),
	}
	c.state.Store(int32(Disconnected))
	return c, nil
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Attempts returns how many consecutive handshakes were rejected as unauthorized.
func (c *Conn) Attempts() int {
	return int(c.attempts.Load())
}

// Pending returns the number of queued, unsent messages.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.len()
}

// setState moves to s unless the connection is closing.
func (c *Conn) setState(s State) bool {
	for {
		cur := c.state.Load()
		if State(cur) == Closing {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

func (c *Conn) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Connect opens the stream and listens until the socket closes, returning
// nil in that case. It is a no-op when a connection is already being
// established or is open.
//
// Unauthorized handshakes renew the stream token and retry; after
// MaxAuthAttempts of them Connect returns ErrAuthExhausted. Service
// unavailable and other failures retry after Backoff without limit.
func (c *Conn) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		if c.State() == Closing {
			return ErrClosed
		}
		return nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	interrupted := func() error {
		c.setState(Disconnected)
		if c.closing() {
			return ErrClosed
		}
		return parent.Err()
	}

	c.attempts.Store(0)
	for {
		if ctx.Err() != nil {
			return interrupted()
		}

		ws, err := c.dial(ctx)
		if err == nil {
			c.log.Infof("Connection to websocket established.")
			c.attempts.Store(0)
			if err := c.attach(ws); err != nil {
				if c.closing() {
					return ErrClosed
				}
				c.log.Warnf("flushing queued messages: %v", err)
			} else {
				c.listen(ctx, ws)
			}
			if c.closing() || parent.Err() != nil {
				return interrupted()
			}
			return nil
		}

		if ctx.Err() != nil {
			return interrupted()
		}

		var he *HandshakeError
		switch {
		case errors.As(err, &he) && he.StatusCode == http.StatusUnauthorized:
			c.setState(Authenticating)
			n := int(c.attempts.Add(1))
			c.log.Infof("Authentication failed (attempt %d/%d).", n, c.opts.MaxAuthAttempts)
			if n >= c.opts.MaxAuthAttempts {
				c.log.Errorf("giving up after %d rejected handshakes", n)
				c.setState(Disconnected)
				return fmt.Errorf("%w after %d attempts: %w", ErrAuthExhausted, n, err)
			}
			c.log.Infof("Attempting to renew token...")
			if err := c.renew(ctx); err != nil {
				if ctx.Err() != nil {
					return interrupted()
				}
				c.setState(Disconnected)
				return err
			}
			c.setState(Connecting)
		case errors.As(err, &he) && he.StatusCode == http.StatusServiceUnavailable:
			c.log.Infof("Stream unavailable, retrying in %s", c.opts.Backoff)
		default:
			c.log.Errorf("Failed to connect to websocket: %v. Retrying in %s", err, c.opts.Backoff)
		}

		if err := c.wait(ctx); err != nil {
			return interrupted()
		}
	}
}

// Run keeps the stream connected, reconnecting Backoff after the socket
// drops, until ctx is cancelled, Close is called, or Connect fails fatally.
// It returns nil after Close.
func (c *Conn) Run(ctx context.Context) error {
	for {
		err := c.Connect(ctx)
		switch {
		case errors.Is(err, ErrClosed):
			return nil
		case err != nil:
			return err
		}
		if st := c.State(); st == Disconnected {
			c.log.Infof("Reconnecting in %s...", c.opts.Backoff)
		}
		// The session ended or another caller owns the connection.
		if err := c.wait(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Send assigns the next sequence id to msg and transmits it, or queues it
// when the stream is not open. It never waits for an acknowledgment.
func (c *Conn) Send(msg Message) (uint64, error) {
	if c.closing() {
		return 0, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	msg.ID = c.nextID
	c.sent.record(msg)

	if c.ws == nil {
		c.queue.push(msg)
		c.log.Debugf("queued message %d (%s)", msg.ID, msg.Type)
		return msg.ID, nil
	}
	if err := c.write(c.ws, msg); err != nil {
		c.log.Warnf("sending message %d failed, queued for next connection: %v", msg.ID, err)
		c.queue.push(msg)
	}
	return msg.ID, nil
}

// Close shuts the connection down for good and wakes any pending wait.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(Closing))
		close(c.done)

		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), c.deadline())
			err = ws.Close()
		}
	})
	return err
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing stream URL: %w", err)
	}
	q := u.Query()
	q.Set("_token", c.opts.Tokens.StreamToken())
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	ws, resp, err := c.dialer.DialContext(dialCtx, u.String(), header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("dialing stream: %w", err)
	}
	return ws, nil
}

func (c *Conn) renew(ctx context.Context) error {
	token, err := c.opts.Renewer.RenewToken(ctx)
	if err != nil {
		return err
	}
	if err := c.opts.Tokens.SetStreamToken(token); err != nil {
		c.log.Warnf("storing renewed stream token: %v", err)
	}
	return nil
}

// wait sleeps for the backoff interval.
func (c *Conn) wait(ctx context.Context) error {
	t := time.NewTimer(c.opts.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	case <-t.C:
		return nil
	}
}

// attach installs ws and flushes the queue before any new Send can write.
func (c *Conn) attach(ws *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.setState(Connected) {
		_ = ws.Close()
		return ErrClosed
	}

	pending := c.queue.drain()
	for i, m := range pending {
		if err := c.write(ws, m); err != nil {
			c.queue.requeue(pending[i:])
			_ = ws.Close()
			c.setState(Disconnected)
			return fmt.Errorf("message %d: %w", m.ID, err)
		}
	}
	if len(pending) > 0 {
		c.log.Debugf("flushed %d queued messages", len(pending))
	}
	if err := c.replay(ws, pending); err != nil {
		_ = ws.Close()
		c.setState(Disconnected)
		return err
	}

	c.ws = ws
	c.setState(Listening)
	return nil
}

type replayKey struct {
	typ string
	oid int64
}

// replay sends the Replay messages on a fresh socket, skipping any that
// match a message just flushed from the queue. Called with c.mu held.
func (c *Conn) replay(ws *websocket.Conn, flushed []Message) error {
	if c.opts.Replay == nil {
		return nil
	}
	seen := make(map[replayKey]bool, len(flushed))
	for _, m := range flushed {
		seen[replayKey{m.Type, m.OID}] = true
	}

	n := 0
	for _, m := range c.opts.Replay() {
		if seen[replayKey{m.Type, m.OID}] {
			continue
		}
		c.nextID++
		m.ID = c.nextID
		c.sent.record(m)
		if err := c.write(ws, m); err != nil {
			return fmt.Errorf("replaying message %d: %w", m.ID, err)
		}
		n++
	}
	if n > 0 {
		c.log.Infof("Replayed %d message(s) on new connection.", n)
	}
	return nil
}

func (c *Conn) release(ws *websocket.Conn) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.mu.Unlock()
	_ = ws.Close()
	c.setState(Disconnected)
}

func (c *Conn) write(ws *websocket.Conn, m Message) error {
	if err := ws.SetWriteDeadline(c.deadline()); err != nil {
		return err
	}
	return ws.WriteJSON(m)
}

func (c *Conn) deadline() time.Time {
	return time.Now().Add(c.opts.WriteTimeout)
}

// listen reads frames until the socket fails or closes. Each frame is fully
// dispatched before the next one is read.
func (c *Conn) listen(ctx context.Context, ws *websocket.Conn) {
	defer c.release(ws)

	pongWait := c.opts.Heartbeat * 3 / 2
	extend := func() error { return ws.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend()
	ws.SetPongHandler(func(string) error { return extend() })

	stop := make(chan struct{})
	defer close(stop)
	go c.heartbeat(ctx, ws, stop)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.logClose(err)
			return
		}
		_ = extend()
		c.handle(ctx, data)
	}
}

// heartbeat pings the server and closes the socket when ctx ends so the
// blocked read returns.
func (c *Conn) heartbeat(ctx context.Context, ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			_ = ws.Close()
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, c.deadline()); err != nil {
				c.log.Debugf("ping failed: %v", err)
				return
			}
		}
	}
}

func (c *Conn) logClose(err error) {
	if c.closing() {
		c.log.Debugf("stream closed: %v", err)
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.log.Warnf("WebSocket disconnected with the following: code=%d %s", ce.Code, ce.Text)
		return
	}
	c.log.Errorf("Websocket connection closed with exception %v", err)
}

func (c *Conn) handle(ctx context.Context, data []byte) {
	f, err := DecodeFrame(data)
	if err != nil {
		c.log.Warnf("dropping frame: %v", err)
		return
	}
	c.log.Debugf("Event: %s - Payload: %v", f.Type, f.Data)

	if f.Type == TypeSubscribe {
		c.acknowledge(f)
		return
	}

	ev, err := Classify(f)
	if err != nil {
		c.log.Warnf("Unknown event. Event: %s - Payload: %v", f.Type, f.Data)
		return
	}
	if ev == nil || c.opts.Dispatcher == nil {
		return
	}
	if err := c.opts.Dispatcher.Dispatch(ctx, ev); err != nil {
		c.log.Warnf("listeners failed for %s: %v", ev.Kind(), err)
	}
}

func (c *Conn) acknowledge(f Frame) {
	if f.ID == nil {
		c.log.Warnf("subscription acknowledgment without id")
		return
	}
	m, ok := c.sent.ack(*f.ID)
	if !ok {
		c.log.Debugf("acknowledgment for unknown message %d", *f.ID)
		return
	}
	c.log.Infof("Course %d subscribed.", m.OID)
}
