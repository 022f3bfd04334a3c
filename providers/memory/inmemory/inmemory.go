package inmemory

import (
	"context"
	"sync"

	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/memory"
	"github.com/spyword/undercover/providers/observability"
)

// ArrayMemory is a concurrency-safe, slice-backed message store. With a
// window set, only the most recent messages are kept.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
	window   int
}

// Option configures an ArrayMemory.
type Option func(*ArrayMemory)

// WithWindow keeps at most n messages, dropping the oldest ones first.
// n <= 0 means unbounded.
func WithWindow(n int) Option {
	return func(m *ArrayMemory) {
		m.window = n
	}
}

// New returns an empty ArrayMemory.
func New(opts ...Option) *ArrayMemory {
	m := &ArrayMemory{messages: []ai.Message{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message. Nil is ignored. The span in ctx, if
// any, gets an append event and the new history size.
func (m *ArrayMemory) AppendMessage(ctx context.Context, message *ai.Message) {
	if message == nil {
		return
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len([]rune(message.Content))),
		)
	}

	m.mu.Lock()
	m.messages = append(m.messages, *message)
	if m.window > 0 && len(m.messages) > m.window {
		dropped := len(m.messages) - m.window
		m.messages = append(m.messages[:0], m.messages[dropped:]...)
	}
	total := len(m.messages)
	m.mu.Unlock()

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalMessages, total))
	}
}

// Count returns the number of stored messages.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages), nil
}

// AllMessages returns a copy of the history, oldest first.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ai.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// LastMessages returns a copy of the last n messages (all of them if n is
// larger than the history, none if n <= 0).
func (m *ArrayMemory) LastMessages(_ context.Context, n int) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return []ai.Message{}, nil
	}
	n = min(n, len(m.messages))
	out := make([]ai.Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out, nil
}

// PopLastMessage removes and returns the newest message, or nil when empty.
func (m *ArrayMemory) PopLastMessage(_ context.Context) (*ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil, nil
	}
	last := m.messages[len(m.messages)-1]
	m.messages = m.messages[:len(m.messages)-1]
	return &last, nil
}

// ClearMessages empties the store, keeping the slice capacity.
func (m *ArrayMemory) ClearMessages(ctx context.Context) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	m.mu.Lock()
	m.messages = m.messages[:0]
	m.mu.Unlock()
}
