// Package api is the request/response side of the Ed client: authenticated
// GET and POST calls against the REST surface of the forum service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/edstream/pkg/log"
	"github.com/rubiojr/edstream/pkg/version"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the REST endpoint of the US Ed region.
const DefaultBaseURL = "https://us.edstem.org"

// Options configures a Client.
type Options struct {
	// BaseURL is the scheme and host of the service (DefaultBaseURL if empty).
	BaseURL string
	// TokenSource supplies the bearer token for every request.
	TokenSource oauth2.TokenSource
	// HTTPClient optionally provides the base transport.
	HTTPClient *http.Client
	// Timeout bounds each request (30s if zero).
	Timeout time.Duration
}

// Client issues authenticated calls against the Ed REST API.
type Client struct {
	h       *http.Client
	baseURL string
}

type missingTokenSource struct{}

func (missingTokenSource) Token() (*oauth2.Token, error) { return nil, ErrMissingToken }

// New creates a Client. A missing token is reported on the first request,
// not here.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	src := opts.TokenSource
	if src == nil {
		src = missingTokenSource{}
	}

	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}

	return &Client{
		baseURL: baseURL,
		h: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: src,
				Base:   gzhttp.Transport(base),
			},
		},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs method against path. body, when not nil, is sent as JSON.
// out may be nil (response discarded), *string (raw body), *map[string]any
// (decoded with json.Number for numbers) or any JSON-decodable value.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	l := log.ForService("api")
	l.Debugf("%s %s", method, path)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: building %s %s: %v", ErrRequest, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.h.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingToken):
			return ErrMissingToken
		case ctx.Err() != nil:
			return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		l.Warnf("%s %s: connection failed: %v", method, path, err)
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Kind: classifyStatus(resp.StatusCode)}
	}

	return decodeBody(resp.Body, out)
}

func decodeBody(r io.Reader, out any) error {
	switch v := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, r)
		return nil
	case *string:
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("%w: reading response: %v", ErrTransient, err)
		}
		*v = string(data)
		return nil
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Get is shorthand for Do(ctx, GET, path, nil, out).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post is shorthand for Do(ctx, POST, path, body, out).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}
