package ai

import (
	"context"
	"net/http"
)

// StreamProvider is an optional interface for providers that can deliver a
// response incrementally. Callers detect support via a type assertion and fall
// back to [Provider.SendMessage] otherwise.
type StreamProvider interface {
	Provider
	// StreamMessage sends a chat request and returns a ChatStream yielding
	// deltas as they arrive. Errors raised before the first byte (auth, bad
	// request, network) are returned directly; later failures are yielded by
	// the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// Provider is the contract every chat backend satisfies.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response ends the model's turn.
	IsStopMessage(message *ChatResponse) bool

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}
