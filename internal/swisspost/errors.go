package swisspost

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfig credentials are missing; returned by constructors.
	ErrConfig = errors.New("swisspost: credentials not configured")
	// ErrAuth the OAuth exchange failed or the service rejected the token.
	ErrAuth = errors.New("swisspost: authentication failed")
	// ErrNetwork transport failure, timeout or unexpected HTTP status.
	ErrNetwork = errors.New("swisspost: network error")
	// ErrNoMatch a lookup returned nothing. Expected, not a failure.
	ErrNoMatch = errors.New("swisspost: no match found")
	// ErrMalformedResponse the payload did not have the expected shape.
	ErrMalformedResponse = errors.New("swisspost: malformed response")
)

// APIError is a non-200 answer from the address service.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("swisspost %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Unwrap maps the status to ErrAuth (401/403) or ErrNetwork.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrAuth
	}
	return ErrNetwork
}

// degrade turns any lookup failure into ErrNoMatch while keeping the cause.
func degrade(err error) error {
	if err == nil || errors.Is(err, ErrNoMatch) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNoMatch, err)
}
