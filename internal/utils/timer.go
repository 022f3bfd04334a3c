package utils

import "time"

// Timer measures a request from start to stop, with an optional mark for
// the first streamed token in between.
type Timer struct {
	startTime time.Time
	firstMark time.Time
	duration  time.Duration
}

// NewTimer returns a running timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Start restarts the measurement and clears any first-token mark.
func (t *Timer) Start() {
	t.startTime = time.Now()
	t.firstMark = time.Time{}
}

// MarkFirst records the first-token instant. Only the first call counts.
func (t *Timer) MarkFirst() {
	if t.firstMark.IsZero() {
		t.firstMark = time.Now()
	}
}

// TimeToFirst is the span between start and MarkFirst, or zero if no mark
// was taken.
func (t *Timer) TimeToFirst() time.Duration {
	if t.firstMark.IsZero() {
		return 0
	}
	return t.firstMark.Sub(t.startTime)
}

// Stop captures the elapsed time since start.
func (t *Timer) Stop() {
	t.duration = time.Since(t.startTime)
}

// GetDuration returns the value captured by the last Stop, zero before.
func (t *Timer) GetDuration() time.Duration {
	return t.duration
}

// SinceFirst is the time spent after the first token, i.e. the generation
// phase of a streamed reply. Zero when no mark was taken or before Stop.
func (t *Timer) SinceFirst() time.Duration {
	if t.firstMark.IsZero() || t.duration == 0 {
		return 0
	}
	return t.duration - t.TimeToFirst()
}
