package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/spyword/undercover/providers/ai"
)

// ========== Helpers ==========

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sendReturning(resp *ai.ChatResponse, err error) func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	return func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
		return resp, err
	}
}

var describeRequest = ai.ChatRequest{
	Model:    "glm-4-flash",
	Messages: []ai.Message{{Role: ai.RoleUser, Content: "你的词语是: 苹果"}},
}

// ========== Send ==========

func TestLoggingMiddleware_Send_Levels(t *testing.T) {
	response := &ai.ChatResponse{
		Model:        "glm-4-flash",
		Content:      "一种水果",
		FinishReason: "stop",
		Usage:        &ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	tests := []struct {
		level   LogLevel
		present []string
		absent  []string
	}{
		{LogLevelMinimal, []string{"glm-4-flash", "prompt_tokens=10"}, []string{"message_count", "finish_reason", "reply="}},
		{LogLevelStandard, []string{"message_count=1", "finish_reason=stop"}, []string{"reply=", "prompt="}},
		{LogLevelVerbose, []string{"prompt=", "苹果", "reply=一种水果"}, nil},
	}

	for _, tt := range tests {
		buf := &bytes.Buffer{}
		chain := NewLoggingMiddleware(testLogger(buf), tt.level).Send(sendReturning(response, nil))

		if _, err := chain(context.Background(), describeRequest); err != nil {
			t.Fatalf("level %d: unexpected error: %v", tt.level, err)
		}

		output := buf.String()
		for _, want := range tt.present {
			if !strings.Contains(output, want) {
				t.Errorf("level %d: expected %q in:\n%s", tt.level, want, output)
			}
		}
		for _, unwanted := range tt.absent {
			if strings.Contains(output, unwanted) {
				t.Errorf("level %d: did not expect %q in:\n%s", tt.level, unwanted, output)
			}
		}
	}
}

func TestLoggingMiddleware_Send_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	wantErr := errors.New("quota exceeded")
	chain := NewLoggingMiddleware(testLogger(buf), LogLevelMinimal).Send(sendReturning(nil, wantErr))

	if _, err := chain(context.Background(), describeRequest); !errors.Is(err, wantErr) {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), "llm send failed") || !strings.Contains(buf.String(), "quota exceeded") {
		t.Errorf("expected failure log, got:\n%s", buf.String())
	}
}

// ========== Stream ==========

func TestLoggingMiddleware_Stream_Completed(t *testing.T) {
	buf := &bytes.Buffer{}
	next := func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewSingleEventStream(&ai.ChatResponse{
			Content:      "红色的",
			FinishReason: "stop",
			Usage:        &ai.Usage{TotalTokens: 7},
		}), nil
	}

	stream, err := NewLoggingMiddleware(testLogger(buf), LogLevelVerbose).Stream(next)(context.Background(), describeRequest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"llm stream completed", "total_tokens=7", "ttft=", "reply_chars=3", "finish_reason=stop"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in:\n%s", want, output)
		}
	}
}

func TestLoggingMiddleware_Stream_Abandoned(t *testing.T) {
	buf := &bytes.Buffer{}
	next := func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewSingleEventStream(&ai.ChatResponse{Content: "x", FinishReason: "stop"}), nil
	}

	stream, _ := NewLoggingMiddleware(testLogger(buf), LogLevelMinimal).Stream(next)(context.Background(), describeRequest)
	for range stream.Iter() {
		break
	}

	if !strings.Contains(buf.String(), "llm stream abandoned") {
		t.Errorf("expected abandoned log, got:\n%s", buf.String())
	}
}
