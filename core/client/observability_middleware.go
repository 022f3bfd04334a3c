package client

import (
	"context"

	"github.com/spyword/undercover/internal/utils"
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/observability"
)

// NewObservabilityMiddleware opens a span per LLM call, counts requests and
// tokens, records latency and, for streams, time to first token. The span
// and the observer are put in the context so providers can enrich them.
func NewObservabilityMiddleware(observer observability.Provider, defaultModel string) MiddlewareConfig {
	return MiddlewareConfig{
		Send:   buildObsSend(observer, defaultModel),
		Stream: buildObsStream(observer, defaultModel),
	}
}

func startCall(ctx context.Context, observer observability.Provider, model string, streaming bool, messages int) (context.Context, observability.Span) {
	ctx, span := observer.StartSpan(ctx, observability.SpanClientSendMessage,
		observability.String(observability.AttrLLMModel, model),
		observability.Bool(observability.AttrLLMStreaming, streaming),
	)
	ctx = observability.ContextWithSpan(ctx, span)
	ctx = observability.ContextWithObserver(ctx, observer)

	observer.Debug(ctx, "llm call",
		observability.String(observability.AttrLLMModel, model),
		observability.Bool(observability.AttrLLMStreaming, streaming),
		observability.Int(observability.AttrRequestMessagesCount, messages),
	)
	return ctx, span
}

func buildObsSend(observer observability.Provider, defaultModel string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			model := effectiveModel(request.Model, defaultModel)
			ctx, span := startCall(ctx, observer, model, false, len(request.Messages))

			timer := utils.NewTimer()
			response, err := next(ctx, request)
			timer.Stop()

			if err != nil {
				recordObsFailure(ctx, span, observer, err, timer, model)
				return nil, err
			}

			recordObsSuccess(ctx, span, observer, response, timer, model)
			return response, nil
		}
	}
}

func buildObsStream(observer observability.Provider, defaultModel string) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			model := effectiveModel(request.Model, defaultModel)
			ctx, span := startCall(ctx, observer, model, true, len(request.Messages))

			timer := utils.NewTimer()
			stream, err := next(ctx, request)
			if err != nil {
				timer.Stop()
				recordObsFailure(ctx, span, observer, err, timer, model)
				return nil, err
			}

			return wrapStreamWithObservability(ctx, stream, span, observer, timer, model), nil
		}
	}
}

func wrapStreamWithObservability(
	ctx context.Context,
	stream *ai.ChatStream,
	span observability.Span,
	observer observability.Provider,
	timer *utils.Timer,
	model string,
) *ai.ChatStream {
	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		summary := &ai.ChatResponse{Model: model}
		firstToken := true

		for event, err := range stream.Iter() {
			if err != nil {
				timer.Stop()
				recordObsFailure(ctx, span, observer, err, timer, model)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				if firstToken && event.Content != "" {
					firstToken = false
					timer.MarkFirst()
					span.AddEvent(observability.EventFirstToken,
						observability.Duration(observability.AttrLLMTimeToFirstToken, timer.TimeToFirst()))
				}
			case ai.StreamEventUsage:
				summary.Usage = event.Usage
			case ai.StreamEventDone:
				summary.FinishReason = event.FinishReason
			}

			if !yield(event, nil) {
				timer.Stop()
				span.SetStatus(observability.StatusOK, "llm stream abandoned")
				span.End()
				observer.Info(ctx, "llm stream abandoned",
					observability.String(observability.AttrLLMModel, model),
					observability.Duration(observability.AttrDuration, timer.GetDuration()),
				)
				return
			}
		}

		timer.Stop()
		recordObsSuccess(ctx, span, observer, summary, timer, model)
	}

	return ai.NewChatStream(iteratorFunc)
}

func recordObsFailure(
	ctx context.Context,
	span observability.Span,
	observer observability.Provider,
	err error,
	timer *utils.Timer,
	model string,
) {
	span.RecordError(err)
	span.SetStatus(observability.StatusError, "llm call failed")
	span.End()

	observer.Error(ctx, "llm call failed",
		observability.Error(err),
		observability.Duration(observability.AttrDuration, timer.GetDuration()),
		observability.String(observability.AttrLLMModel, model),
	)
	observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "error"),
		observability.String(observability.AttrLLMModel, model),
	)
}

func recordObsSuccess(
	ctx context.Context,
	span observability.Span,
	observer observability.Provider,
	response *ai.ChatResponse,
	timer *utils.Timer,
	model string,
) {
	elapsed := timer.GetDuration()

	observer.Histogram(observability.MetricClientRequestDuration).Record(ctx, elapsed.Seconds(),
		observability.String(observability.AttrLLMModel, model),
	)
	observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "success"),
		observability.String(observability.AttrLLMModel, model),
	)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, model),
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		observability.Duration(observability.AttrDuration, elapsed),
	}

	if ttft := timer.TimeToFirst(); ttft > 0 {
		observer.Histogram(observability.MetricClientTimeToFirstToken).Record(ctx, ttft.Seconds(),
			observability.String(observability.AttrLLMModel, model),
		)
		span.SetAttributes(observability.Duration(observability.AttrLLMTimeToFirstToken, ttft))
		logAttrs = append(logAttrs, observability.Duration(observability.AttrLLMTimeToFirstToken, ttft))
	}

	if usage := response.Usage; usage != nil {
		modelAttr := observability.String(observability.AttrLLMModel, model)
		observer.Counter(observability.MetricClientTokensTotal).Add(ctx, int64(usage.TotalTokens), modelAttr)
		observer.Counter(observability.MetricClientTokensPrompt).Add(ctx, int64(usage.PromptTokens), modelAttr)
		observer.Counter(observability.MetricClientTokensCompletion).Add(ctx, int64(usage.CompletionTokens), modelAttr)

		tokenAttrs := []observability.Attribute{
			observability.Int(observability.AttrLLMTokensPrompt, usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, usage.CompletionTokens),
			observability.Int(observability.AttrLLMTokensTotal, usage.TotalTokens),
		}
		span.SetAttributes(tokenAttrs...)
		logAttrs = append(logAttrs, tokenAttrs...)
	}

	if response.Content != "" {
		logAttrs = append(logAttrs,
			observability.String(observability.AttrResponseContent, utils.TruncateString(response.Content, 100)))
	}

	observer.Debug(ctx, "llm call completed", logAttrs...)

	span.SetStatus(observability.StatusOK, "success")
	span.End()
}

func effectiveModel(requestModel, defaultModel string) string {
	if requestModel != "" {
		return requestModel
	}
	return defaultModel
}
