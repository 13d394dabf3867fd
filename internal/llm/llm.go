package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned by Generate when a provider has no credential
// or endpoint to talk to.
var ErrNotConfigured = errors.New("llm provider not configured")

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// Provider is the interface for LLM providers.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
}

// StatusError reports a non-success HTTP status from an upstream API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Code, e.Body)
}

// IsRateLimited reports whether err carries an HTTP 429 from upstream.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}
