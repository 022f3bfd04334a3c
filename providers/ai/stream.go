package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of delta carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent indicates a text content delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventReasoning indicates a reasoning/thinking content delta.
	StreamEventReasoning StreamEventType = "reasoning"
	// StreamEventUsage carries token usage metadata (typically the final event).
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the stream has finished normally.
	StreamEventDone StreamEventType = "done"
	// StreamEventError signals an error that terminated the stream.
	StreamEventError StreamEventType = "error"
)

// StreamEvent represents a single delta yielded while a response streams in.
// Each event carries exactly one kind of payload, identified by Type.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`       // Text delta (Type == StreamEventContent)
	Reasoning    string          `json:"reasoning,omitempty"`     // Reasoning delta (Type == StreamEventReasoning)
	Usage        *Usage          `json:"usage,omitempty"`         // Token usage (Type == StreamEventUsage)
	FinishReason string          `json:"finish_reason,omitempty"` // Present on StreamEventDone
	Error        string          `json:"error,omitempty"`         // Error message (Type == StreamEventError)
}

// ChatStream wraps a streaming iterator. It supports range-based iteration for
// real-time token processing and a Collect method for callers that only want
// the final response.
//
// Callers must consume the stream, by iterating Iter() (breaking early is
// fine) or by calling Collect(). Providers may hold an HTTP response body
// open until the iterator completes or is abandoned.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps a synchronous ChatResponse as a stream. It is the
// fallback for providers without streaming support: the whole response is
// delivered as one content event followed by usage and done events.
func NewSingleEventStream(response *ChatResponse) *ChatStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		if response.Content != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: response.Content}, nil) {
				return
			}
		}

		if response.Reasoning != "" {
			if !yield(StreamEvent{Type: StreamEventReasoning, Reasoning: response.Reasoning}, nil) {
				return
			}
		}

		if response.Usage != nil {
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: response.Usage}, nil) {
				return
			}
		}

		yield(StreamEvent{Type: StreamEventDone, FinishReason: response.FinishReason}, nil)
	}

	return NewChatStream(iteratorFunc)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Text returns an iterator over the non-empty content deltas only. Reasoning,
// usage and done events are skipped. A mid-stream error is yielded once and
// ends the sequence.
func (stream *ChatStream) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for event, err := range stream.iterator {
			if err != nil {
				yield("", err)
				return
			}
			if event.Type != StreamEventContent || event.Content == "" {
				continue
			}
			if !yield(event.Content, nil) {
				return
			}
		}
	}
}

// Collect consumes the entire stream and returns the accumulated ChatResponse.
// A mid-stream error stops collection and returns the partial response with
// the error.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var content, reasoning strings.Builder

	for event, err := range stream.iterator {
		if err != nil {
			accumulated.Content = content.String()
			accumulated.Reasoning = reasoning.String()
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			content.WriteString(event.Content)
		case StreamEventReasoning:
			reasoning.WriteString(event.Reasoning)
		case StreamEventUsage:
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}
		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason
		}
	}

	accumulated.Content = content.String()
	accumulated.Reasoning = reasoning.String()
	return accumulated, nil
}
