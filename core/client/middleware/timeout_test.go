package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spyword/undercover/providers/ai"
)

// ========== Helpers ==========

func makeSendFunc(sleep time.Duration, resp *ai.ChatResponse) func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		select {
		case <-time.After(sleep):
			return resp, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// makeStreamFunc yields one content event after sleep, or the context error.
func makeStreamFunc(sleep time.Duration) func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
			select {
			case <-time.After(sleep):
				if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: "玩家A"}, nil) {
					return
				}
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
			case <-ctx.Done():
				yield(ai.StreamEvent{}, ctx.Err())
			}
		}), nil
	}
}

// ========== Send ==========

func TestTimeoutMiddleware_SendCompletesBeforeTimeout(t *testing.T) {
	chain := NewTimeoutMiddleware(100 * time.Millisecond).Send(makeSendFunc(0, &ai.ChatResponse{Content: "ok"}))

	resp, err := chain(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestTimeoutMiddleware_SendExceedsTimeout(t *testing.T) {
	chain := NewTimeoutMiddleware(10 * time.Millisecond).Send(makeSendFunc(time.Second, &ai.ChatResponse{}))

	_, err := chain(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeoutMiddleware_ZeroDisables(t *testing.T) {
	var sawDeadline bool
	next := func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		_, sawDeadline = ctx.Deadline()
		return &ai.ChatResponse{}, nil
	}

	if _, err := NewTimeoutMiddleware(0).Send(next)(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawDeadline {
		t.Error("zero timeout should not install a deadline")
	}
}

// ========== Stream ==========

func TestTimeoutMiddleware_StreamCompletes(t *testing.T) {
	chain := NewTimeoutMiddleware(100 * time.Millisecond).Stream(makeStreamFunc(0))

	stream, err := chain(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if resp.Content != "玩家A" || resp.FinishReason != "stop" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTimeoutMiddleware_StreamDeadlineCoversIteration(t *testing.T) {
	chain := NewTimeoutMiddleware(10 * time.Millisecond).Stream(makeStreamFunc(time.Second))

	stream, err := chain(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("stream should start fine, got %v", err)
	}
	if _, err := stream.Collect(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded during iteration, got %v", err)
	}
}

func TestTimeoutMiddleware_StreamStartError(t *testing.T) {
	wantErr := errors.New("connect refused")
	next := func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) { return nil, wantErr }

	_, err := NewTimeoutMiddleware(time.Second).Stream(next)(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected start error, got %v", err)
	}
}
