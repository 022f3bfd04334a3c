package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spyword/undercover/core/overview"
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/memory"
	"github.com/spyword/undercover/providers/observability"
)

// ErrEmptyPrompt is returned when a call is made with a blank prompt.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// Client sends prompts to a provider through a middleware chain. It is
// immutable after New and safe for concurrent use when its memory is.
type Client struct {
	provider     ai.Provider
	defaultModel string
	systemPrompt string
	memory       memory.Provider
	observer     observability.Provider
	generation   *ai.GenerationConfig
	middlewares  []MiddlewareConfig

	send   SendFunc
	stream StreamFunc
}

// New builds a client around provider.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New("provider must not be nil")
	}

	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}

	for i, mw := range c.middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("middleware %d has no Send function", i)
		}
	}

	chain := c.middlewares
	if c.observer != nil {
		chain = append([]MiddlewareConfig{NewObservabilityMiddleware(c.observer, c.defaultModel)}, chain...)
	}
	c.send = buildSendChain(provider, chain)
	c.stream = buildStreamChain(provider, chain)

	return c, nil
}

// Observer returns the configured observer, or nil.
func (c *Client) Observer() observability.Provider {
	return c.observer
}

// Memory returns the configured memory, or nil for a stateless client.
func (c *Client) Memory() memory.Provider {
	return c.memory
}

// DefaultModel returns the model used when a request names none.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// SendMessage sends prompt as a user message and waits for the full reply.
// With memory configured the prompt and the reply are recorded; on failure
// the prompt is rolled back so the history stays alternating.
func (c *Client) SendMessage(ctx context.Context, prompt string) (*ai.ChatResponse, error) {
	request, err := c.prepare(ctx, prompt)
	if err != nil {
		return nil, err
	}

	ov := overview.OverviewFromContext(&ctx)
	ov.AddRequest(&request)

	response, err := c.send(ctx, request)
	if err != nil {
		ov.AddFailure()
		c.rollback(ctx)
		return nil, err
	}

	ov.AddResponse(response)
	c.remember(ctx, response)
	return response, nil
}

// StreamMessage sends prompt and returns the reply as a stream. Memory is
// updated when the stream has been fully consumed without error.
func (c *Client) StreamMessage(ctx context.Context, prompt string) (*ai.ChatStream, error) {
	request, err := c.prepare(ctx, prompt)
	if err != nil {
		return nil, err
	}

	ov := overview.OverviewFromContext(&ctx)
	ov.AddRequest(&request)

	stream, err := c.stream(ctx, request)
	if err != nil {
		ov.AddFailure()
		c.rollback(ctx)
		return nil, err
	}

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		var content, reasoning strings.Builder
		collected := &ai.ChatResponse{Model: request.Model}

		for event, err := range stream.Iter() {
			if err != nil {
				ov.AddFailure()
				c.rollback(ctx)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				content.WriteString(event.Content)
			case ai.StreamEventReasoning:
				reasoning.WriteString(event.Reasoning)
			case ai.StreamEventUsage:
				collected.Usage = event.Usage
			case ai.StreamEventDone:
				collected.FinishReason = event.FinishReason
			}

			if !yield(event, nil) {
				c.rollback(ctx)
				return
			}
		}

		collected.Content = content.String()
		collected.Reasoning = reasoning.String()
		ov.AddResponse(collected)
		c.remember(ctx, collected)
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// prepare validates prompt, records it in memory and builds the request.
func (c *Client) prepare(ctx context.Context, prompt string) (ai.ChatRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return ai.ChatRequest{}, ErrEmptyPrompt
	}

	userMessage := ai.Message{Role: ai.RoleUser, Content: prompt}
	messages := []ai.Message{userMessage}

	if c.memory != nil {
		history, err := c.memory.AllMessages(ctx)
		if err != nil {
			return ai.ChatRequest{}, fmt.Errorf("failed to read memory: %w", err)
		}
		messages = append(history, userMessage)
		c.memory.AppendMessage(ctx, &userMessage)
	}

	return ai.ChatRequest{
		Model:            c.defaultModel,
		SystemPrompt:     c.systemPrompt,
		Messages:         messages,
		GenerationConfig: c.generation,
	}, nil
}

func (c *Client) remember(ctx context.Context, response *ai.ChatResponse) {
	if c.memory == nil {
		return
	}
	c.memory.AppendMessage(ctx, &ai.Message{
		Role:      ai.RoleAssistant,
		Content:   response.Content,
		Reasoning: response.Reasoning,
	})
}

func (c *Client) rollback(ctx context.Context) {
	if c.memory == nil {
		return
	}
	if _, err := c.memory.PopLastMessage(ctx); err != nil && c.observer != nil {
		c.observer.Warn(ctx, "failed to roll back memory", observability.Error(err))
	}
}
