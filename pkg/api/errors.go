package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication means the bearer token was rejected (400/401).
	ErrAuthentication = errors.New("authentication failed")
	// ErrRequest covers missing permissions, unknown endpoints and other
	// non-retryable failures.
	ErrRequest = errors.New("request failed")
	// ErrTransient covers connector failures and 503s. Callers may retry.
	ErrTransient = errors.New("service temporarily unavailable")
	// ErrMissingToken is returned on first use when no bearer token was
	// provided or found in the environment.
	ErrMissingToken = fmt.Errorf("%w: Ed API token is not provided and cannot be loaded from environment", ErrRequest)
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %v (%d %s)", e.Method, e.Path, e.Kind, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error { return e.Kind }

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusForbidden, http.StatusNotFound:
		return ErrRequest
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrTransient
	}
	return ErrRequest
}
