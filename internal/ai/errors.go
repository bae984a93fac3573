package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arin/scholar/internal/config"
)

// ErrProviderMisconfigured is returned before any network call when the active
// provider lacks a credential, base URL or model.
var ErrProviderMisconfigured = config.ErrMisconfigured

// RequestError is a non-success HTTP response from a provider.
type RequestError struct {
	Provider config.Provider
	Status   int
	Body     string
}

func (e *RequestError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s request failed (status %d)", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s request failed (status %d): %s", e.Provider, e.Status, body)
}

// TransportError is a connection or read failure while talking to a provider.
type TransportError struct {
	Provider config.Provider
	BaseURL  string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Provider.Native() || e.BaseURL == "" {
		return fmt.Sprintf("could not reach %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("could not reach %s at %s: %v — check that the server is running and reachable (CORS or network)",
		e.Provider, e.BaseURL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRequestError reports whether err carries a provider HTTP status.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
