package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// StateGraph declares the nodes and transitions of a graph over state type S.
// Declaration errors are accumulated and reported together by Compile, so
// calls can be chained without checking each one.
//
// Compile enforces the following constraints:
//   - Node IDs are non-empty, unique and not START or END
//   - Every node and START has exactly one outgoing transition
//   - Transition endpoints reference existing nodes (or START/END)
//   - Every route target of a conditional transition exists
//   - Every node is reachable from START
type StateGraph[S any] struct {
	// config holds the graph-level configuration populated from Options.
	config *graphConfig

	// nodes stores all registered nodes keyed by their ID.
	nodes map[string]*node[S]

	// nodeOrder preserves the insertion order of nodes for deterministic
	// validation messages and reachability checks.
	nodeOrder []string

	// transitions stores the outgoing transition of each source.
	transitions map[string]*transition[S]

	// buildErrors accumulates errors found by AddNode/AddEdge/AddConditionalEdges.
	buildErrors []error
}

// NewStateGraph creates an empty StateGraph. Graph-level options (WithMaxSteps,
// WithExecutionTimeout, WithObserver) are applied here.
func NewStateGraph[S any](opts ...Option) *StateGraph[S] {
	config := &graphConfig{maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(config)
	}

	return &StateGraph[S]{
		config:      config,
		nodes:       make(map[string]*node[S]),
		transitions: make(map[string]*transition[S]),
	}
}

// AddNode registers a node under a unique ID.
func (builder *StateGraph[S]) AddNode(nodeID string, run NodeFunc[S], opts ...NodeOption) *StateGraph[S] {
	switch {
	case nodeID == "":
		builder.buildErrors = append(builder.buildErrors, errors.New("node ID must not be empty"))
		return builder
	case nodeID == START || nodeID == END:
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("node ID %q is reserved", nodeID))
		return builder
	case run == nil:
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("node %q has a nil function", nodeID))
		return builder
	}

	if _, exists := builder.nodes[nodeID]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("duplicate node ID %q", nodeID))
		return builder
	}

	config := &nodeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	builder.nodes[nodeID] = &node[S]{id: nodeID, run: run, timeout: config.timeout}
	builder.nodeOrder = append(builder.nodeOrder, nodeID)
	return builder
}

// AddEdge makes to the unconditional successor of from. Use START as from to
// set the entry node and END as to to finish the run after from.
func (builder *StateGraph[S]) AddEdge(from, to string) *StateGraph[S] {
	if from == "" || to == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return builder
	}

	builder.setTransition(from, &transition[S]{to: to})
	return builder
}

// AddConditionalEdges routes from to one of several targets. After from runs,
// router is called with the state and its key selects the target in routes.
// A key missing from routes fails the run.
//
// Example:
//
//	builder.AddConditionalEdges("eliminate", checkGameEnd, map[string]string{
//	    "continue": "describe",
//	    "end":      "resolve",
//	})
func (builder *StateGraph[S]) AddConditionalEdges(from string, router RouterFunc[S], routes map[string]string) *StateGraph[S] {
	switch {
	case from == "":
		builder.buildErrors = append(builder.buildErrors, errors.New("conditional edge source must not be empty"))
		return builder
	case router == nil:
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edges from %q have a nil router", from))
		return builder
	case len(routes) == 0:
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edges from %q have no routes", from))
		return builder
	}

	builder.setTransition(from, &transition[S]{router: router, routes: maps.Clone(routes)})
	return builder
}

func (builder *StateGraph[S]) setTransition(from string, next *transition[S]) {
	if existing, exists := builder.transitions[from]; exists {
		kind := "an edge"
		if existing.conditional() {
			kind = "conditional edges"
		}
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("node %q already has %s", from, kind))
		return
	}
	builder.transitions[from] = next
}

// Compile validates the declaration and returns an executable Graph. All
// problems found are joined into the returned error.
func (builder *StateGraph[S]) Compile() (*Graph[S], error) {
	errs := slices.Clone(builder.buildErrors)

	if len(builder.nodes) == 0 {
		errs = append(errs, errors.New("graph must contain at least one node"))
	}
	if _, exists := builder.transitions[START]; !exists {
		errs = append(errs, errors.New("graph has no entry point: add an edge from START"))
	}

	errs = append(errs, builder.validateTransitions()...)

	if len(errs) == 0 {
		errs = append(errs, builder.validateReachability()...)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(errs...))
	}

	return &Graph[S]{
		nodes:       builder.nodes,
		nodeOrder:   builder.nodeOrder,
		transitions: builder.transitions,
		config:      builder.config,
	}, nil
}

// validateTransitions checks every source and target and that each node has
// an outgoing transition.
func (builder *StateGraph[S]) validateTransitions() []error {
	var errs []error

	sources := slices.Sorted(maps.Keys(builder.transitions))
	for _, from := range sources {
		next := builder.transitions[from]

		if from == END {
			errs = append(errs, errors.New("END cannot have outgoing edges"))
			continue
		}
		if _, exists := builder.nodes[from]; !exists && from != START {
			errs = append(errs, fmt.Errorf("edge references non-existent source node %q", from))
		}

		if !next.conditional() {
			errs = append(errs, builder.validateTarget(from, next.to)...)
			continue
		}
		for _, key := range slices.Sorted(maps.Keys(next.routes)) {
			errs = append(errs, builder.validateTarget(from, next.routes[key])...)
		}
	}

	for _, nodeID := range builder.nodeOrder {
		if _, exists := builder.transitions[nodeID]; !exists {
			errs = append(errs, fmt.Errorf("node %q has no outgoing edge", nodeID))
		}
	}

	return errs
}

func (builder *StateGraph[S]) validateTarget(from, to string) []error {
	switch {
	case to == START:
		return []error{fmt.Errorf("edge from %q cannot target START", from)}
	case to == END:
		if from == START {
			return []error{errors.New("START cannot lead directly to END")}
		}
		return nil
	}
	if _, exists := builder.nodes[to]; !exists {
		return []error{fmt.Errorf("edge from %q references non-existent target node %q", from, to)}
	}
	return nil
}

// validateReachability walks the transitions from START and reports nodes
// that can never run.
func (builder *StateGraph[S]) validateReachability() []error {
	visited := map[string]bool{START: true}
	queue := []string{START}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next, exists := builder.transitions[current]
		if !exists {
			continue
		}

		targets := []string{next.to}
		if next.conditional() {
			targets = slices.Collect(maps.Values(next.routes))
		}
		for _, target := range targets {
			if target == END || visited[target] {
				continue
			}
			visited[target] = true
			queue = append(queue, target)
		}
	}

	var errs []error
	for _, nodeID := range builder.nodeOrder {
		if !visited[nodeID] {
			errs = append(errs, fmt.Errorf("node %q is not reachable from START", nodeID))
		}
	}
	return errs
}
