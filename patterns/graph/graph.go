package graph

import (
	"context"
	"sync"
	"time"

	"github.com/spyword/undercover/providers/observability"
)

const (
	// START is the pseudo-node execution begins from. It can only be the
	// source of a transition.
	START = "__start__"

	// END is the pseudo-node that terminates execution. It can only be the
	// target of a transition.
	END = "__end__"
)

// NodeStatus represents the outcome of a single node execution.
type NodeStatus string

const (
	// NodeCompleted indicates the node returned without error.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed indicates the node returned an error or exceeded its timeout.
	NodeFailed NodeStatus = "failed"
)

// NodeFunc is the processing logic of a node. It receives the current state
// and returns the state handed to the next node. Pointer states may be
// mutated in place and returned.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc selects the next node after a conditional source. The returned
// key is looked up in the routes map given to AddConditionalEdges.
type RouterFunc[S any] func(ctx context.Context, state S) string

// node is a registered processing step.
type node[S any] struct {
	// id is the unique identifier of the node within the graph.
	id string

	// run is the node logic.
	run NodeFunc[S]

	// timeout bounds a single execution of the node. Zero means no timeout.
	timeout time.Duration
}

// transition is the single outgoing transition of a node (or START): either
// a fixed target or a router with its route table.
type transition[S any] struct {
	// to is the fixed target. Empty when router is set.
	to string

	// router picks a route key; routes maps it to the target node.
	router RouterFunc[S]
	routes map[string]string
}

// conditional reports whether the transition is routed.
func (t *transition[S]) conditional() bool {
	return t.router != nil
}

// graphConfig holds the configuration for a Graph, populated by Options.
type graphConfig struct {
	// maxSteps is the maximum number of node executions per run.
	maxSteps int

	// executionTimeout bounds a whole run. Zero means no timeout.
	executionTimeout time.Duration

	// observer receives spans, metrics and logs. When nil the observer in
	// the run context, if any, is used.
	observer observability.Provider
}

// defaultMaxSteps bounds runs that do not set WithMaxSteps.
const defaultMaxSteps = 25

// Graph is a compiled, executable state graph. It is created by
// StateGraph.Compile and is safe for concurrent Invoke and Stream calls; only
// History is shared between runs and reflects whichever run finished last.
type Graph[S any] struct {
	// nodes maps node IDs to their definitions.
	nodes map[string]*node[S]

	// nodeOrder preserves the insertion order of nodes.
	nodeOrder []string

	// transitions maps each source (START included) to its outgoing transition.
	transitions map[string]*transition[S]

	// config holds the execution configuration.
	config *graphConfig

	historyMu sync.Mutex
	history   []StepRecord
}

// Nodes returns the node IDs in registration order.
func (graph *Graph[S]) Nodes() []string {
	return append([]string(nil), graph.nodeOrder...)
}
