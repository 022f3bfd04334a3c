package graph

import (
	"time"

	"github.com/spyword/undercover/providers/observability"
)

// Option is a functional option for configuring Graph behavior.
// Options are applied by NewStateGraph.
type Option func(*graphConfig)

// NodeOption is a functional option for configuring an individual node.
// Node options are applied by StateGraph.AddNode.
type NodeOption func(*nodeConfig)

// nodeConfig collects node options before the node is created; it keeps the
// options independent of the state type.
type nodeConfig struct {
	timeout time.Duration
}

// --- Graph Options ---

// WithMaxSteps bounds the number of node executions in a single run. When the
// bound is reached before END, the run fails with ErrStepLimit. Values below
// 1 keep the default of 25.
//
// Example:
//
//	graph.NewStateGraph[*GameState](graph.WithMaxSteps(3*players + 1))
func WithMaxSteps(maxSteps int) Option {
	return func(config *graphConfig) {
		if maxSteps > 0 {
			config.maxSteps = maxSteps
		}
	}
}

// WithExecutionTimeout sets the maximum duration of a whole run. The run
// context is cancelled when it expires; the node running at that time sees
// the cancellation and no further node starts. A value of 0 (default) means
// no timeout.
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		config.executionTimeout = timeout
	}
}

// WithObserver sets the observability provider for runs of the graph. Without
// it, the provider stored in the run context (observability.ContextWithObserver)
// is used, and without either observability is disabled.
func WithObserver(observer observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = observer
	}
}

// --- Node Options ---

// WithNodeTimeout sets the maximum duration of a single execution of the
// node. The node context carries the deadline; a node that returns after it
// expired is reported as failed even if it returned no error. A value of 0
// (default) means no per-node timeout.
//
// Example:
//
//	builder.AddNode("describe", describe, graph.WithNodeTimeout(2*time.Minute))
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(config *nodeConfig) {
		config.timeout = timeout
	}
}
