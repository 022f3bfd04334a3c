package graph

import "time"

// StepRecord describes one node execution of a run.
type StepRecord struct {
	// Step is the 1-based position of the execution in the run.
	Step int

	// NodeID is the node that ran.
	NodeID string

	// Status is NodeCompleted or NodeFailed.
	Status NodeStatus

	// Duration is the wall-clock time the node took.
	Duration time.Duration

	// Next is the node chosen after this one (END included). Empty when the
	// node failed or its router returned an unknown key.
	Next string

	// Err is the node error when Status is NodeFailed.
	Err error
}

// History returns the step records of the most recently finished run, oldest
// first. It is empty before the first run.
func (graph *Graph[S]) History() []StepRecord {
	graph.historyMu.Lock()
	defer graph.historyMu.Unlock()
	return append([]StepRecord(nil), graph.history...)
}

func (graph *Graph[S]) setHistory(records []StepRecord) {
	graph.historyMu.Lock()
	defer graph.historyMu.Unlock()
	graph.history = append([]StepRecord(nil), records...)
}
