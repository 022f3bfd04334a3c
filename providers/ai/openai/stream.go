package openai

import (
	"context"
	"fmt"
	"io"

	"github.com/spyword/undercover/internal/utils"
	"github.com/spyword/undercover/providers/ai"
	"github.com/spyword/undercover/providers/observability"
)

// StreamMessage implements ai.StreamProvider. The request is sent with
// stream=true and include_usage, and each SSE chunk is turned into one or
// more ai.StreamEvents.
func (p *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	p.annotate(ctx, request, true)

	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	chatRequest := requestToChatCompletion(request)
	chatRequest.Stream = utils.Ptr(true)
	chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, chatRequest)
	if err != nil {
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Trace(ctx, "streaming request failed", observability.Error(err))
		}
		return nil, err
	}

	scanner := utils.NewSSEScanner(httpResponse.Body)
	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := scanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			chunk, parseErr := unmarshalStreamChunk(payload)
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
				return
			}

			for _, event := range chunkToStreamEvents(chunk) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// chunkToStreamEvents converts one chunk into events. Usage comes first since
// the usage chunk normally has no choices.
func chunkToStreamEvents(chunk *chatCompletionStreamChunk) []ai.StreamEvent {
	var events []ai.StreamEvent

	if usage := usageToGeneric(chunk.Usage); usage != nil {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage})
	}

	for _, choice := range chunk.Choices {
		delta := choice.Delta

		if delta.Content != nil && *delta.Content != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: *delta.Content})
		}
		for _, reasoning := range []*string{delta.Reasoning, delta.ReasoningContent} {
			if reasoning != nil && *reasoning != "" {
				events = append(events, ai.StreamEvent{Type: ai.StreamEventReasoning, Reasoning: *reasoning})
			}
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: *choice.FinishReason})
		}
	}

	return events
}
