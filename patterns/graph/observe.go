package graph

import (
	"context"
	"time"

	"github.com/spyword/undercover/providers/observability"
)

// Semantic conventions for graph observability attributes.
const (
	// spanGraphRun is the span name for a whole run.
	spanGraphRun = "graph.run"

	// spanGraphNodeExecute is the span name for a single node execution.
	spanGraphNodeExecute = "graph.node.execute"

	// attrGraphNodeID identifies the node within the graph.
	attrGraphNodeID = "graph.node.id"

	// attrGraphStep is the 1-based step of a node execution.
	attrGraphStep = "graph.step"

	// attrGraphNodeStatus is the execution status of a node.
	attrGraphNodeStatus = "graph.node.status"

	// attrGraphTotalNodes is the number of nodes in the graph.
	attrGraphTotalNodes = "graph.total_nodes"

	// attrGraphMaxSteps is the configured step limit.
	attrGraphMaxSteps = "graph.max_steps"

	// attrGraphSteps is the number of steps executed by a run.
	attrGraphSteps = "graph.steps"

	// metricGraphNodeDuration is the histogram of node execution durations.
	metricGraphNodeDuration = "undercover.graph.node.duration"

	// metricGraphNodeCount counts node executions by status.
	metricGraphNodeCount = "undercover.graph.node.count"

	// metricGraphExecutionDuration is the histogram of whole-run durations.
	metricGraphExecutionDuration = "undercover.graph.execution.duration"
)

// runObserver holds the observability provider and the root span of one
// run. A nil provider disables every method.
type runObserver struct {
	provider observability.Provider
	rootSpan observability.Span
}

// observeRunStart resolves the provider (WithObserver first, then the one
// in ctx), opens the root span and puts span and provider into *ctx.
func (graph *Graph[S]) observeRunStart(ctx *context.Context) *runObserver {
	provider := graph.config.observer
	if provider == nil {
		provider = observability.ObserverFromContext(*ctx)
	}
	if provider == nil {
		return &runObserver{}
	}

	var rootSpan observability.Span
	*ctx, rootSpan = provider.StartSpan(*ctx, spanGraphRun,
		observability.Int(attrGraphTotalNodes, len(graph.nodes)),
		observability.Int(attrGraphMaxSteps, graph.config.maxSteps),
	)
	*ctx = observability.ContextWithSpan(*ctx, rootSpan)
	*ctx = observability.ContextWithObserver(*ctx, provider)

	provider.Debug(*ctx, "graph run started",
		observability.Int(attrGraphTotalNodes, len(graph.nodes)),
		observability.Int(attrGraphMaxSteps, graph.config.maxSteps),
	)

	return &runObserver{provider: provider, rootSpan: rootSpan}
}

func (observer *runObserver) runCompleted(ctx context.Context, steps int, duration time.Duration) {
	if observer.provider == nil {
		return
	}

	observer.provider.Histogram(metricGraphExecutionDuration).Record(ctx, duration.Seconds())
	observer.provider.Debug(ctx, "graph run completed",
		observability.Int(attrGraphSteps, steps),
		observability.Duration(observability.AttrDuration, duration),
	)

	if observer.rootSpan != nil {
		observer.rootSpan.SetAttributes(observability.Int(attrGraphSteps, steps))
		observer.rootSpan.SetStatus(observability.StatusOK, "graph run completed")
		observer.rootSpan.End()
	}
}

func (observer *runObserver) runFailed(ctx context.Context, runError error, steps int, duration time.Duration) {
	if observer.provider == nil {
		return
	}

	observer.provider.Histogram(metricGraphExecutionDuration).Record(ctx, duration.Seconds())
	observer.provider.Error(ctx, "graph run failed",
		observability.Error(runError),
		observability.Int(attrGraphSteps, steps),
		observability.Duration(observability.AttrDuration, duration),
	)

	if observer.rootSpan != nil {
		observer.rootSpan.RecordError(runError)
		observer.rootSpan.SetStatus(observability.StatusError, "graph run failed")
		observer.rootSpan.End()
	}
}

func (observer *runObserver) runAbandoned(ctx context.Context, steps int, duration time.Duration) {
	if observer.provider == nil {
		return
	}

	observer.provider.Info(ctx, "graph run abandoned by stream consumer",
		observability.Int(attrGraphSteps, steps),
		observability.Duration(observability.AttrDuration, duration),
	)

	if observer.rootSpan != nil {
		observer.rootSpan.SetStatus(observability.StatusOK, "graph run abandoned")
		observer.rootSpan.End()
	}
}

// nodeStart opens the node span and attaches it to *ctx.
func (observer *runObserver) nodeStart(ctx *context.Context, nodeID string, step int) {
	if observer.provider == nil {
		return
	}

	var nodeSpan observability.Span
	*ctx, nodeSpan = observer.provider.StartSpan(*ctx, spanGraphNodeExecute,
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphStep, step),
	)
	*ctx = observability.ContextWithSpan(*ctx, nodeSpan)

	observer.provider.Debug(*ctx, "node execution started",
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphStep, step),
	)
}

func (observer *runObserver) nodeCompleted(ctx context.Context, nodeID string, step int, duration time.Duration) {
	observer.nodeFinished(ctx, nodeID, step, NodeCompleted, nil, duration)
}

func (observer *runObserver) nodeFailed(ctx context.Context, nodeID string, step int, nodeError error, duration time.Duration) {
	observer.nodeFinished(ctx, nodeID, step, NodeFailed, nodeError, duration)
}

func (observer *runObserver) nodeAbandoned(ctx context.Context, nodeID string, step int, duration time.Duration) {
	if observer.provider == nil {
		return
	}
	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.SetStatus(observability.StatusOK, "node abandoned")
		nodeSpan.End()
	}
	observer.provider.Debug(ctx, "node execution abandoned",
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphStep, step),
		observability.Duration(observability.AttrDuration, duration),
	)
}

// nodeFinished records duration and outcome of a node and closes its span.
func (observer *runObserver) nodeFinished(
	ctx context.Context,
	nodeID string,
	step int,
	status NodeStatus,
	nodeError error,
	duration time.Duration,
) {
	if observer.provider == nil {
		return
	}

	observer.provider.Histogram(metricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(attrGraphNodeID, nodeID),
	)
	observer.provider.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(attrGraphNodeID, nodeID),
		observability.String(attrGraphNodeStatus, string(status)),
	)

	logAttrs := []observability.Attribute{
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphStep, step),
		observability.Duration(observability.AttrDuration, duration),
	}

	nodeSpan := observability.SpanFromContext(ctx)
	if nodeError != nil {
		observer.provider.Error(ctx, "node execution failed", append(logAttrs, observability.Error(nodeError))...)
	} else {
		observer.provider.Debug(ctx, "node execution completed", logAttrs...)
	}

	if nodeSpan == nil {
		return
	}
	nodeSpan.SetAttributes(
		observability.String(attrGraphNodeStatus, string(status)),
		observability.Duration(observability.AttrDuration, duration),
	)
	if nodeError != nil {
		nodeSpan.RecordError(nodeError)
		nodeSpan.SetStatus(observability.StatusError, "node failed")
	} else {
		nodeSpan.SetStatus(observability.StatusOK, "node completed")
	}
	nodeSpan.End()
}
