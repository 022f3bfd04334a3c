package graph

import (
	"context"
	"errors"
	"iter"
	"time"
)

// GraphEventType identifies what happened during a run. Each event in the
// stream carries exactly one type.
type GraphEventType string

const (
	// GraphEventNodeStart signals that a node is about to run.
	GraphEventNodeStart GraphEventType = "node_start"

	// GraphEventNodeContent carries a fragment published by the running node
	// with Emit.
	GraphEventNodeContent GraphEventType = "node_content"

	// GraphEventNodeComplete signals that a node finished. State holds the
	// state it returned and Next the node chosen after it.
	GraphEventNodeComplete GraphEventType = "node_complete"

	// GraphEventNodeError signals that a node failed. The error itself is
	// yielded right after this event.
	GraphEventNodeError GraphEventType = "node_error"

	// GraphEventDone signals that the run reached END. State holds the final
	// state.
	GraphEventDone GraphEventType = "done"
)

// GraphEvent is a single event of a streamed run.
type GraphEvent[S any] struct {
	// Type identifies what kind of event this is.
	Type GraphEventType `json:"type"`

	// Step is the 1-based node execution the event belongs to. For Done it
	// is the number of executed steps.
	Step int `json:"step"`

	// NodeID identifies the node that produced the event. Empty for Done.
	NodeID string `json:"node_id,omitempty"`

	// Content carries the emitted fragment of a NodeContent event.
	Content string `json:"content,omitempty"`

	// Duration is the node execution time of NodeComplete and NodeError.
	Duration time.Duration `json:"duration,omitempty"`

	// Next is the node chosen after a NodeComplete (END included).
	Next string `json:"next,omitempty"`

	// State is the state after a NodeComplete, or the final state for Done.
	State S `json:"-"`

	// Error is the failure description of a NodeError event.
	Error string `json:"error,omitempty"`
}

// streamCarrier holds what the iterator learned so Collect and State can
// report it after consumption.
type streamCarrier[S any] struct {
	state S
	err   error
}

// GraphStream is a run delivered as events. Nothing executes until the
// stream is consumed with Iter or Collect, and a stream runs the graph once:
// iterate it a single time.
//
// Breaking out of an Iter loop cancels the run context and stops the run
// after the current node returns.
type GraphStream[S any] struct {
	iterator iter.Seq2[GraphEvent[S], error]
	carrier  *streamCarrier[S]
}

// Stream returns a stream that runs the graph from state when consumed. Node
// lifecycle events, emitted content and the final Done event are yielded in
// order; a failure is yielded as a non-nil error after which the iteration
// ends.
func (graph *Graph[S]) Stream(ctx context.Context, state S) *GraphStream[S] {
	carrier := &streamCarrier[S]{state: state}

	iterator := func(yield func(GraphEvent[S], error) bool) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		stopped := false
		send := func(event GraphEvent[S]) bool {
			if stopped {
				return false
			}
			if !yield(event, nil) {
				stopped = true
				cancel()
			}
			return !stopped
		}

		finalState, err := graph.run(runCtx, state, send)
		carrier.state = finalState

		if errors.Is(err, errConsumerStopped) {
			return
		}
		carrier.err = err
		if err != nil && !stopped {
			var zero GraphEvent[S]
			yield(zero, err)
		}
	}

	return &GraphStream[S]{iterator: iterator, carrier: carrier}
}

// Iter returns the underlying iterator for range-over-func consumption.
//
// Example:
//
//	for event, err := range g.Stream(ctx, state).Iter() {
//	    if err != nil { return err }
//	    switch event.Type {
//	    case graph.GraphEventNodeContent:
//	        fmt.Print(event.Content)
//	    case graph.GraphEventNodeComplete:
//	        fmt.Printf("\n[节点完成: %s]\n", event.NodeID)
//	    }
//	}
func (stream *GraphStream[S]) Iter() iter.Seq2[GraphEvent[S], error] {
	return stream.iterator
}

// Collect consumes the whole stream and returns what Invoke would have
// returned: the final state, or the last state together with the error.
func (stream *GraphStream[S]) Collect() (S, error) {
	for _, err := range stream.iterator {
		if err != nil {
			return stream.carrier.state, err
		}
	}
	return stream.carrier.state, stream.carrier.err
}

// State returns the last state seen by the run. Before consumption it is the
// initial state.
func (stream *GraphStream[S]) State() S {
	return stream.carrier.state
}

// Err returns the error that ended the run, or nil.
func (stream *GraphStream[S]) Err() error {
	return stream.carrier.err
}
