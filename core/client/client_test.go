package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/spyword/undercover/core/overview"
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/memory/inmemory"
)

// ========== Mock Types ==========

// mockProvider records the requests it receives and answers with
// sendMessageFunc, or a fixed reply.
type mockProvider struct {
	requests        []ai.ChatRequest
	sendMessageFunc func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error)
}

func (m *mockProvider) SendMessage(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, req)
	}
	return &ai.ChatResponse{
		Id:           "test-id",
		Model:        req.Model,
		Content:      "test response",
		FinishReason: "stop",
		Usage:        &ai.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (m *mockProvider) IsStopMessage(resp *ai.ChatResponse) bool {
	return resp.FinishReason == "stop"
}

func (m *mockProvider) WithAPIKey(string) ai.Provider           { return m }
func (m *mockProvider) WithBaseURL(string) ai.Provider          { return m }
func (m *mockProvider) WithHttpClient(*http.Client) ai.Provider { return m }

// mockStreamProvider additionally streams its reply as the given chunks.
type mockStreamProvider struct {
	mockProvider
	chunks    []string
	streamErr error
}

func (m *mockStreamProvider) StreamMessage(_ context.Context, req ai.ChatRequest) (*ai.ChatStream, error) {
	m.requests = append(m.requests, req)
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		for _, chunk := range m.chunks {
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: chunk}, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield(ai.StreamEvent{}, m.streamErr)
			return
		}
		if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: &ai.Usage{TotalTokens: 5}}, nil) {
			return
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
	}), nil
}

// ========== Construction ==========

func TestNew_NilProvider(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestNew_MiddlewareWithoutSend(t *testing.T) {
	_, err := New(&mockProvider{}, WithMiddleware(MiddlewareConfig{}))
	if err == nil || !strings.Contains(err.Error(), "no Send") {
		t.Fatalf("expected missing Send error, got %v", err)
	}
}

// ========== SendMessage ==========

func TestSendMessage_BuildsRequest(t *testing.T) {
	provider := &mockProvider{}
	c, err := New(provider,
		WithDefaultModel("glm-4-flash"),
		WithSystemPrompt("你在玩谁是卧底"),
		WithGenerationConfig(ai.GenerationConfig{Temperature: 0.8}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.SendMessage(context.Background(), "描述你的词")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("Content = %q", resp.Content)
	}

	req := provider.requests[0]
	if req.Model != "glm-4-flash" || req.SystemPrompt != "你在玩谁是卧底" {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != ai.RoleUser || req.Messages[0].Content != "描述你的词" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.Temperature != 0.8 {
		t.Errorf("generation config not forwarded: %+v", req.GenerationConfig)
	}
}

func TestSendMessage_EmptyPrompt(t *testing.T) {
	c, _ := New(&mockProvider{})
	if _, err := c.SendMessage(context.Background(), "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestSendMessage_StatelessByDefault(t *testing.T) {
	provider := &mockProvider{}
	c, _ := New(provider)

	_, _ = c.SendMessage(context.Background(), "first")
	_, _ = c.SendMessage(context.Background(), "second")

	if len(provider.requests[1].Messages) != 1 {
		t.Errorf("stateless client should not replay history, got %d messages", len(provider.requests[1].Messages))
	}
	if c.Memory() != nil {
		t.Errorf("Memory() should be nil without WithMemory")
	}
}

func TestSendMessage_WithMemoryReplaysHistory(t *testing.T) {
	ctx := context.Background()
	provider := &mockProvider{}
	mem := inmemory.New()
	c, _ := New(provider, WithMemory(mem))

	_, _ = c.SendMessage(ctx, "我叫小明")
	_, _ = c.SendMessage(ctx, "我叫什么?")

	second := provider.requests[1].Messages
	if len(second) != 3 {
		t.Fatalf("expected user/assistant/user, got %d messages", len(second))
	}
	if second[0].Content != "我叫小明" || second[1].Role != ai.RoleAssistant || second[2].Content != "我叫什么?" {
		t.Errorf("unexpected history: %+v", second)
	}
	if count, _ := mem.Count(ctx); count != 4 {
		t.Errorf("memory count = %d, want 4", count)
	}
}

func TestSendMessage_ErrorRollsBackMemory(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("upstream down")
	provider := &mockProvider{sendMessageFunc: func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
		return nil, wantErr
	}}
	mem := inmemory.New()
	c, _ := New(provider, WithMemory(mem))

	if _, err := c.SendMessage(ctx, "hello"); !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if count, _ := mem.Count(ctx); count != 0 {
		t.Errorf("failed turn should not stay in memory, count = %d", count)
	}
}

func TestSendMessage_RecordsOverview(t *testing.T) {
	ctx := context.Background()
	ov := overview.OverviewFromContext(&ctx)
	c, _ := New(&mockProvider{})

	_, _ = c.SendMessage(ctx, "a")
	_, _ = c.SendMessage(ctx, "b")

	summary := ov.Summary()
	if summary.Requests != 2 || summary.Responses != 2 {
		t.Errorf("unexpected overview: %+v", summary)
	}
	if summary.TotalUsage.TotalTokens != 60 {
		t.Errorf("TotalTokens = %d, want 60", summary.TotalUsage.TotalTokens)
	}
}

// ========== StreamMessage ==========

func TestStreamMessage_StreamProvider(t *testing.T) {
	ctx := context.Background()
	provider := &mockStreamProvider{chunks: []string{"红", "色"}}
	mem := inmemory.New()
	c, _ := New(provider, WithMemory(mem))

	stream, err := c.StreamMessage(ctx, "描述")
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	var got strings.Builder
	for text, err := range stream.Text() {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		got.WriteString(text)
	}
	if got.String() != "红色" {
		t.Errorf("streamed %q", got.String())
	}

	history, _ := mem.AllMessages(ctx)
	if len(history) != 2 || history[1].Content != "红色" {
		t.Errorf("memory should hold the collected reply, got %+v", history)
	}
}

func TestStreamMessage_FallsBackToSend(t *testing.T) {
	c, _ := New(&mockProvider{})

	stream, err := c.StreamMessage(context.Background(), "hi")
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	resp, err := stream.Collect()
	if err != nil || resp.Content != "test response" {
		t.Fatalf("Collect = %+v, %v", resp, err)
	}
}

func TestStreamMessage_MidStreamErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("connection reset")
	mem := inmemory.New()
	c, _ := New(&mockStreamProvider{chunks: []string{"partial"}, streamErr: wantErr}, WithMemory(mem))

	stream, _ := c.StreamMessage(ctx, "hi")
	if _, err := stream.Collect(); !errors.Is(err, wantErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if count, _ := mem.Count(ctx); count != 0 {
		t.Errorf("memory should be rolled back, count = %d", count)
	}
}
