package undercover

import (
	"context"
	"iter"

	"github.com/spyword/undercover/core/client"
)

// LanguageModel is the text-generation capability players delegate to.
// Errors are returned as-is; the game never retries.
type LanguageModel interface {
	// Complete returns the full reply to prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Stream returns the reply as chunks that concatenate to the full text.
	// Chunks may be empty. A failure after the first chunk is yielded as a
	// non-nil error that ends the sequence.
	Stream(ctx context.Context, prompt string) (iter.Seq2[string, error], error)
}

// ClientModel adapts a core/client Client to LanguageModel. Every player
// prompt is self-contained, so the client should be stateless (no memory).
type ClientModel struct {
	client *client.Client
}

var _ LanguageModel = (*ClientModel)(nil)

// NewClientModel wraps c.
func NewClientModel(c *client.Client) *ClientModel {
	return &ClientModel{client: c}
}

// Complete sends prompt and returns the reply content.
func (m *ClientModel) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := m.client.SendMessage(ctx, prompt)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Stream sends prompt and yields the content deltas of the reply.
func (m *ClientModel) Stream(ctx context.Context, prompt string) (iter.Seq2[string, error], error) {
	stream, err := m.client.StreamMessage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return stream.Text(), nil
}
