package client

import (
	"context"

	"github.com/spyword/undercover/providers/ai"
)

// SendFunc is one synchronous hop of the request pipeline.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// StreamFunc is one streaming hop of the request pipeline.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Middleware wraps a SendFunc.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware wraps a StreamFunc.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs the send and stream variants of a middleware. Send
// is required; a nil Stream means the middleware is skipped for streaming
// calls.
type MiddlewareConfig struct {
	Send   Middleware
	Stream StreamMiddleware
}

// buildSendChain wraps the provider so that middlewares[0] runs first.
func buildSendChain(provider ai.Provider, middlewares []MiddlewareConfig) SendFunc {
	var chain SendFunc = provider.SendMessage

	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i].Send(chain)
	}
	return chain
}

// buildStreamChain is buildSendChain for streaming. Providers that do not
// implement ai.StreamProvider are adapted with a single-event stream.
func buildStreamChain(provider ai.Provider, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		if streamProvider, ok := provider.(ai.StreamProvider); ok {
			return streamProvider.StreamMessage(ctx, request)
		}

		response, err := provider.SendMessage(ctx, request)
		if err != nil {
			return nil, err
		}
		return ai.NewSingleEventStream(response), nil
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}
	return chain
}
