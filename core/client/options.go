package client

import (
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/memory"
	"github.com/spyword/undercover/providers/observability"
)

// Option configures a Client at construction.
type Option func(*Client)

// WithDefaultModel sets the model used when a call does not name one.
func WithDefaultModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithMemory makes the client stateful: every turn is appended to mem and
// replayed on the next call.
func WithMemory(mem memory.Provider) Option {
	return func(c *Client) {
		c.memory = mem
	}
}

// WithObserver enables spans, metrics and logs for every call. The
// observability middleware is installed outermost so it also measures the
// user-supplied middlewares.
func WithObserver(observer observability.Provider) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithGenerationConfig sets the sampling parameters of every request.
func WithGenerationConfig(cfg ai.GenerationConfig) Option {
	return func(c *Client) {
		c.generation = &cfg
	}
}

// WithMiddleware appends middlewares. The first one given is the outermost.
//
//	client.New(provider,
//	    client.WithMiddleware(
//	        middleware.NewLoggingMiddleware(logger, middleware.LogLevelStandard),
//	        middleware.NewTimeoutMiddleware(30*time.Second),
//	    ),
//	)
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}
