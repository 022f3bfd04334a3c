package graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spyword/undercover/core/overview"
	"github.com/spyword/undercover/internal/utils"
)

var (
	// ErrStepLimit is returned when a run executes the maximum number of
	// nodes (WithMaxSteps) without reaching END.
	ErrStepLimit = errors.New("graph step limit reached")

	// ErrUnknownRoute is returned when a router returns a key that is not in
	// its route table.
	ErrUnknownRoute = errors.New("unknown route")
)

// errConsumerStopped is returned internally when a stream consumer breaks out
// of the range loop. It is never surfaced to callers.
var errConsumerStopped = errors.New("stream consumer stopped iteration")

// NodeError reports the failure of a node. The run stops at the failing node.
type NodeError struct {
	NodeID string
	Step   int
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed at step %d: %v", e.NodeID, e.Step, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Invoke runs the graph from START until a transition reaches END and
// returns the final state.
//
// On failure Invoke returns the state as it was after the last node that
// completed (for pointer states, including whatever the failing node had
// already mutated) together with the error: a *NodeError when a node fails,
// ErrUnknownRoute when a router returns an unmapped key, ErrStepLimit when
// the step bound is hit, or the context error when the run is cancelled.
//
// Content published with Emit is discarded.
func (graph *Graph[S]) Invoke(ctx context.Context, state S) (S, error) {
	return graph.run(ctx, state, nil)
}

// run is the single execution loop behind Invoke and Stream. send receives
// every event in order; a nil send discards events. When send returns false
// the run stops with errConsumerStopped.
func (graph *Graph[S]) run(ctx context.Context, state S, send func(GraphEvent[S]) bool) (S, error) {
	if send == nil {
		send = func(GraphEvent[S]) bool { return true }
	}

	executionOverview := overview.OverviewFromContext(&ctx)
	executionOverview.StartExecution()
	defer executionOverview.EndExecution()

	if graph.config.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, graph.config.executionTimeout)
		defer cancel()
	}

	observer := graph.observeRunStart(&ctx)
	runTimer := utils.NewTimer()

	records := make([]StepRecord, 0, len(graph.nodes))
	finish := func(err error) (S, error) {
		runTimer.Stop()
		graph.setHistory(records)
		switch {
		case errors.Is(err, errConsumerStopped):
			observer.runAbandoned(ctx, len(records), runTimer.GetDuration())
		case err != nil:
			observer.runFailed(ctx, err, len(records), runTimer.GetDuration())
		default:
			observer.runCompleted(ctx, len(records), runTimer.GetDuration())
		}
		return state, err
	}

	current, err := graph.next(ctx, START, state)
	if err != nil {
		return finish(err)
	}

	for step := 1; current != END; step++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(fmt.Errorf("graph run aborted before node %q: %w", current, ctxErr))
		}
		if step > graph.config.maxSteps {
			return finish(fmt.Errorf("%w: %d steps executed without reaching END (next node %q)",
				ErrStepLimit, graph.config.maxSteps, current))
		}

		if !send(GraphEvent[S]{Type: GraphEventNodeStart, Step: step, NodeID: current}) {
			return finish(errConsumerStopped)
		}

		nodeState, duration, nodeErr := graph.executeNode(ctx, observer, graph.nodes[current], step, state, send)
		record := StepRecord{Step: step, NodeID: current, Duration: duration}

		if nodeErr != nil {
			if errors.Is(nodeErr, errConsumerStopped) {
				return finish(nodeErr)
			}
			record.Status = NodeFailed
			record.Err = nodeErr
			records = append(records, record)

			failure := &NodeError{NodeID: current, Step: step, Err: nodeErr}
			if !send(GraphEvent[S]{Type: GraphEventNodeError, Step: step, NodeID: current, Duration: duration, Error: nodeErr.Error()}) {
				return finish(errConsumerStopped)
			}
			return finish(failure)
		}

		state = nodeState
		record.Status = NodeCompleted

		next, routeErr := graph.next(ctx, current, state)
		record.Next = next
		records = append(records, record)
		if routeErr != nil {
			return finish(routeErr)
		}

		if !send(GraphEvent[S]{Type: GraphEventNodeComplete, Step: step, NodeID: current, Duration: duration, Next: next, State: state}) {
			return finish(errConsumerStopped)
		}
		current = next
	}

	if !send(GraphEvent[S]{Type: GraphEventDone, Step: len(records), State: state}) {
		return finish(errConsumerStopped)
	}
	return finish(nil)
}

// executeNode runs one node with its timeout, span and emitter. A node that
// returns without error after its deadline expired is reported as failed.
func (graph *Graph[S]) executeNode(
	ctx context.Context,
	observer *runObserver,
	graphNode *node[S],
	step int,
	state S,
	send func(GraphEvent[S]) bool,
) (S, time.Duration, error) {
	nodeCtx := ctx
	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, graphNode.timeout)
		defer cancel()
	}

	observer.nodeStart(&nodeCtx, graphNode.id, step)

	stopped := false
	nodeCtx = withEmitter(nodeCtx, func(content string) bool {
		if stopped {
			return false
		}
		if !send(GraphEvent[S]{Type: GraphEventNodeContent, Step: step, NodeID: graphNode.id, Content: content}) {
			stopped = true
		}
		return !stopped
	})

	timer := utils.NewTimer()
	nextState, err := graphNode.run(nodeCtx, state)
	timer.Stop()
	duration := timer.GetDuration()

	if stopped {
		observer.nodeAbandoned(nodeCtx, graphNode.id, step, duration)
		return state, duration, errConsumerStopped
	}
	if err == nil && nodeCtx.Err() != nil {
		err = fmt.Errorf("node exceeded its deadline: %w", nodeCtx.Err())
	}
	if err != nil {
		observer.nodeFailed(nodeCtx, graphNode.id, step, err, duration)
		return state, duration, err
	}

	observer.nodeCompleted(nodeCtx, graphNode.id, step, duration)
	return nextState, duration, nil
}

// next resolves the transition out of from.
func (graph *Graph[S]) next(ctx context.Context, from string, state S) (string, error) {
	out := graph.transitions[from]
	if !out.conditional() {
		return out.to, nil
	}

	key := out.router(ctx, state)
	target, exists := out.routes[key]
	if !exists {
		return "", fmt.Errorf("%w %q from %q (known routes: %v)",
			ErrUnknownRoute, key, from, slices.Sorted(maps.Keys(out.routes)))
	}
	return target, nil
}
