package memory

import (
	"context"

	"github.com/spyword/undercover/providers/ai"
)

// Provider stores the conversation history of a client. Read methods return
// errors so that external stores can report failures.
type Provider interface {
	AppendMessage(ctx context.Context, message *ai.Message)
	Count(ctx context.Context) (int, error)
	AllMessages(ctx context.Context) ([]ai.Message, error)
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)
	PopLastMessage(ctx context.Context) (*ai.Message, error)
	ClearMessages(ctx context.Context)
}
