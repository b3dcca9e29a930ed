package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredential is returned when a provider that needs an API key has none.
	ErrMissingCredential = errors.New("API key is not configured")

	// ErrMissingEndpoint is returned when a custom or Ollama provider has no URL.
	ErrMissingEndpoint = errors.New("endpoint URL is required for this provider")

	// ErrUnsupportedProvider is returned for a provider kind outside the closed set.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrUnexpectedResponse is returned when a response body matches none of the
	// known envelope shapes.
	ErrUnexpectedResponse = errors.New("unexpected response format from API; check that the endpoint speaks the chat-completions protocol")
)

// APIError is a non-2xx response carrying the provider's own error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, msg)
}

// ConnectionError wraps a transport failure with remediation hints.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: could not reach %s (%v). Check:\n"+
		"  1. the URL is correct\n"+
		"  2. the server is running and reachable\n"+
		"  3. CORS settings, if the server is remote\n"+
		"  4. your network connection", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// missingEndpointError names the provider kind in the message.
func missingEndpointError(k Kind) error {
	switch k {
	case KindOllama:
		return fmt.Errorf("%w: set the Ollama URL, e.g. http://localhost:11434/v1", ErrMissingEndpoint)
	default:
		return fmt.Errorf("%w: set the URL of your %s API", ErrMissingEndpoint, k)
	}
}
