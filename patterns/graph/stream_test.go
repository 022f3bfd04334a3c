package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// talkingNode emits each word as content before appending its ID.
func talkingNode(nodeID string, words ...string) NodeFunc[counterState] {
	return func(ctx context.Context, state counterState) (counterState, error) {
		for _, word := range words {
			if !Emit(ctx, word) {
				return state, ctx.Err()
			}
		}
		return appendNode(nodeID)(ctx, state)
	}
}

func eventSummary(event GraphEvent[counterState]) string {
	switch event.Type {
	case GraphEventNodeContent:
		return fmt.Sprintf("%s:%s:%s", event.Type, event.NodeID, event.Content)
	case GraphEventDone:
		return string(event.Type)
	default:
		return fmt.Sprintf("%s:%s", event.Type, event.NodeID)
	}
}

func TestStream_EventSequence(testCase *testing.T) {
	g, _ := NewStateGraph[counterState]().
		AddNode("describe", talkingNode("describe", "又大", "", "又圆")).
		AddNode("vote", appendNode("vote")).
		AddEdge(START, "describe").
		AddEdge("describe", "vote").
		AddEdge("vote", END).
		Compile()

	var got []string
	var last GraphEvent[counterState]
	for event, err := range g.Stream(context.Background(), counterState{}).Iter() {
		if err != nil {
			testCase.Fatalf("unexpected error: %v", err)
		}
		got = append(got, eventSummary(event))
		last = event
	}

	want := []string{
		"node_start:describe",
		"node_content:describe:又大",
		"node_content:describe:又圆",
		"node_complete:describe",
		"node_start:vote",
		"node_complete:vote",
		"done",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		testCase.Errorf("events:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if last.Step != 2 || strings.Join(last.State.Trail, ",") != "describe,vote" {
		testCase.Errorf("unexpected done event: %+v", last)
	}
}

func TestStream_NodeCompleteCarriesStateAndNext(testCase *testing.T) {
	g, _ := NewStateGraph[counterState]().
		AddNode("increment", incrementNode).
		AddEdge(START, "increment").
		AddConditionalEdges("increment", loopUntil(2), map[string]string{"again": "increment", "stop": END}).
		Compile()

	var completes []GraphEvent[counterState]
	for event, err := range g.Stream(context.Background(), counterState{}).Iter() {
		if err != nil {
			testCase.Fatalf("unexpected error: %v", err)
		}
		if event.Type == GraphEventNodeComplete {
			completes = append(completes, event)
		}
	}

	if len(completes) != 2 {
		testCase.Fatalf("completes = %d, want 2", len(completes))
	}
	if completes[0].State.Value != 1 || completes[0].Next != "increment" || completes[0].Step != 1 {
		testCase.Errorf("unexpected first complete: %+v", completes[0])
	}
	if completes[1].State.Value != 2 || completes[1].Next != END {
		testCase.Errorf("unexpected second complete: %+v", completes[1])
	}
}

func TestStream_NodeErrorThenError(testCase *testing.T) {
	boom := errors.New("vote failed")
	g, _ := NewStateGraph[counterState]().
		AddNode("increment", incrementNode).
		AddNode("vote", func(_ context.Context, state counterState) (counterState, error) {
			return state, boom
		}).
		AddEdge(START, "increment").
		AddEdge("increment", "vote").
		AddEdge("vote", END).
		Compile()

	stream := g.Stream(context.Background(), counterState{})
	var types []GraphEventType
	var streamErr error
	for event, err := range stream.Iter() {
		if err != nil {
			streamErr = err
			break
		}
		types = append(types, event.Type)
	}

	if !errors.Is(streamErr, boom) {
		testCase.Fatalf("expected node error, got %v", streamErr)
	}
	if types[len(types)-1] != GraphEventNodeError {
		testCase.Errorf("last event should be node_error, got %v", types)
	}
	if stream.State().Value != 1 || !errors.Is(stream.Err(), boom) {
		testCase.Errorf("State=%+v Err=%v", stream.State(), stream.Err())
	}
}

func TestStream_Collect(testCase *testing.T) {
	g, _ := NewStateGraph[counterState]().
		AddNode("increment", incrementNode).
		AddEdge(START, "increment").
		AddConditionalEdges("increment", loopUntil(3), map[string]string{"again": "increment", "stop": END}).
		Compile()

	final, err := g.Stream(context.Background(), counterState{}).Collect()
	if err != nil || final.Value != 3 {
		testCase.Fatalf("Collect = %+v, %v", final, err)
	}
}

func TestStream_CollectStepLimit(testCase *testing.T) {
	g, _ := NewStateGraph[counterState](WithMaxSteps(2)).
		AddNode("increment", incrementNode).
		AddEdge(START, "increment").
		AddConditionalEdges("increment", loopUntil(10), map[string]string{"again": "increment", "stop": END}).
		Compile()

	final, err := g.Stream(context.Background(), counterState{}).Collect()
	if !errors.Is(err, ErrStepLimit) || final.Value != 2 {
		testCase.Fatalf("Collect = %+v, %v", final, err)
	}
}

func TestStream_EarlyBreakStopsRun(testCase *testing.T) {
	var cancelled bool
	g, _ := NewStateGraph[counterState]().
		AddNode("describe", func(ctx context.Context, state counterState) (counterState, error) {
			for _, word := range []string{"a", "b", "c"} {
				if !Emit(ctx, word) {
					cancelled = ctx.Err() != nil
					return state, ctx.Err()
				}
			}
			return state, nil
		}).
		AddNode("never", appendNode("never")).
		AddEdge(START, "describe").
		AddEdge("describe", "never").
		AddEdge("never", END).
		Compile()

	stream := g.Stream(context.Background(), counterState{})
	for event, err := range stream.Iter() {
		if err != nil {
			testCase.Fatalf("unexpected error: %v", err)
		}
		if event.Type == GraphEventNodeContent {
			break
		}
	}

	if !cancelled {
		testCase.Error("node should observe a cancelled context after the consumer stops")
	}
	if len(stream.State().Trail) != 0 {
		testCase.Errorf("no further node should run, trail = %v", stream.State().Trail)
	}
	if stream.Err() != nil {
		testCase.Errorf("abandoning a stream is not an error, got %v", stream.Err())
	}
}

func TestStream_LazyUntilConsumed(testCase *testing.T) {
	calls := 0
	g, _ := NewStateGraph[counterState]().
		AddNode("count", func(_ context.Context, state counterState) (counterState, error) {
			calls++
			return state, nil
		}).
		AddEdge(START, "count").
		AddEdge("count", END).
		Compile()

	stream := g.Stream(context.Background(), counterState{})
	if calls != 0 {
		testCase.Fatal("Stream must not run the graph before consumption")
	}
	if _, err := stream.Collect(); err != nil || calls != 1 {
		testCase.Fatalf("calls = %d, err = %v", calls, err)
	}
}
