package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/spyword/undercover/core/client"
	"github.com/spyword/undercover/internal/utils"
	"github.com/spyword/undercover/providers/ai"
)

// LogLevel selects how much of each call is logged.
type LogLevel int

const (
	// LogLevelMinimal logs model, duration and token counts.
	LogLevelMinimal LogLevel = iota
	// LogLevelStandard adds message count, finish reason and time to first token.
	LogLevelStandard
	// LogLevelVerbose adds the prompt and the reply, truncated.
	LogLevelVerbose
)

const truncateLen = 200

// NewLoggingMiddleware logs every call to logger. Unlike the observability
// middleware it needs no observer and is meant for quick debugging.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildSendLogging(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			logger.InfoContext(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logFailure(ctx, logger, "llm send failed", request.Model, elapsed, err)
				return nil, err
			}

			attrs := append(baseAttrs(response.Model, elapsed), responseAttrs(response.Usage, response.FinishReason, level)...)
			if level >= LogLevelVerbose && response.Content != "" {
				attrs = append(attrs, slog.String("reply", utils.TruncateString(response.Content, truncateLen)))
			}
			logger.InfoContext(ctx, "llm send completed", attrs...)
			return response, nil
		}
	}
}

func buildStreamLogging(logger *slog.Logger, level LogLevel) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			logger.InfoContext(ctx, "llm stream", requestAttrs(request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logFailure(ctx, logger, "llm stream failed", request.Model, time.Since(start), err)
				return nil, err
			}
			return wrapStreamWithLogging(ctx, stream, logger, request.Model, level, start), nil
		}
	}
}

func wrapStreamWithLogging(
	ctx context.Context,
	stream *ai.ChatStream,
	logger *slog.Logger,
	model string,
	level LogLevel,
	start time.Time,
) *ai.ChatStream {
	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		var (
			finishReason string
			usage        *ai.Usage
			firstToken   time.Duration
			chars        int
		)

		for event, err := range stream.Iter() {
			if err != nil {
				logFailure(ctx, logger, "llm stream failed", model, time.Since(start), err)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				if firstToken == 0 && event.Content != "" {
					firstToken = time.Since(start)
				}
				chars += len([]rune(event.Content))
			case ai.StreamEventUsage:
				usage = event.Usage
			case ai.StreamEventDone:
				finishReason = event.FinishReason
			}

			if !yield(event, nil) {
				logger.InfoContext(ctx, "llm stream abandoned", baseAttrs(model, time.Since(start))...)
				return
			}
		}

		attrs := append(baseAttrs(model, time.Since(start)), responseAttrs(usage, finishReason, level)...)
		if level >= LogLevelStandard && firstToken > 0 {
			attrs = append(attrs, slog.Duration("ttft", firstToken))
		}
		if level >= LogLevelVerbose {
			attrs = append(attrs, slog.Int("reply_chars", chars))
		}
		logger.InfoContext(ctx, "llm stream completed", attrs...)
	}

	return ai.NewChatStream(iteratorFunc)
}

func baseAttrs(model string, elapsed time.Duration) []any {
	return []any{
		slog.String("model", model),
		slog.Duration("duration", elapsed),
	}
}

func logFailure(ctx context.Context, logger *slog.Logger, msg, model string, elapsed time.Duration, err error) {
	logger.ErrorContext(ctx, msg, append(baseAttrs(model, elapsed), slog.String("error", err.Error()))...)
}

func requestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}
	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		attrs = append(attrs, slog.String("prompt", utils.TruncateString(last.Content, truncateLen)))
	}
	return attrs
}

func responseAttrs(usage *ai.Usage, finishReason string, level LogLevel) []any {
	var attrs []any
	if usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
			slog.Int("total_tokens", usage.TotalTokens),
		)
	}
	if level >= LogLevelStandard && finishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", finishReason))
	}
	return attrs
}
