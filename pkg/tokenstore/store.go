// Package tokenstore keeps the two credentials the client needs: the
// long-lived bearer token used for REST calls and the short-lived stream
// token used to open the websocket.
package tokenstore

import (
	"os"
	"sync"

	"github.com/rubiojr/edstream/pkg/api"
	"golang.org/x/oauth2"
)

// EnvToken is the environment variable consulted when no bearer token is
// passed explicitly.
const EnvToken = "ED_API_TOKEN"

// Store supplies credentials. It is an oauth2.TokenSource for the bearer
// token so it plugs straight into the REST client.
type Store interface {
	oauth2.TokenSource
	StreamToken() string
	SetStreamToken(token string) error
}

// Memory keeps credentials in memory only.
type Memory struct {
	mu          sync.RWMutex
	bearer      string
	streamToken string
}

// NewMemory creates a store for the given bearer token. When bearer is empty
// the ED_API_TOKEN environment variable is used. A token that is missing in
// both places is reported by Token, not here.
func NewMemory(bearer string) *Memory {
	if bearer == "" {
		bearer = os.Getenv(EnvToken)
	}
	return &Memory{bearer: bearer}
}

// Token implements oauth2.TokenSource.
func (m *Memory) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.bearer == "" {
		return nil, api.ErrMissingToken
	}
	return &oauth2.Token{AccessToken: m.bearer, TokenType: "Bearer"}, nil
}

// StreamToken returns the current stream token, empty until the first renewal.
func (m *Memory) StreamToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streamToken
}

// SetStreamToken replaces the stream token.
func (m *Memory) SetStreamToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamToken = token
	return nil
}
