package overview

import (
	"context"
	"sync"
	"time"

	"github.com/spyword/undercover/providers/ai"
)

type contextKey string

const overviewContextKey contextKey = "overview"

// Overview aggregates what happened during one execution (one game, one
// graph run): how many LLM calls were made, how many failed, and the summed
// token usage. It is safe for concurrent use.
type Overview struct {
	mu sync.Mutex

	requests     int
	responses    int
	failures     int
	totalUsage   ai.Usage
	lastResponse *ai.ChatResponse

	executionStart time.Time
	executionEnd   time.Time
}

// Summary is a point-in-time copy of an Overview.
type Summary struct {
	Requests     int           `json:"requests"`
	Responses    int           `json:"responses"`
	Failures     int           `json:"failures"`
	TotalUsage   ai.Usage      `json:"total_usage"`
	LastResponse string        `json:"last_response,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// OverviewFromContext returns the Overview bound to *ctx. When there is none
// a new one is created and *ctx is replaced by a context carrying it, so
// later callers down the chain share it.
func OverviewFromContext(ctx *context.Context) *Overview {
	if existing, ok := (*ctx).Value(overviewContextKey).(*Overview); ok {
		return existing
	}
	created := &Overview{}
	*ctx = created.ToContext(*ctx)
	return created
}

// ToContext returns a child of ctx carrying the overview.
func (o *Overview) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, overviewContextKey, o)
}

// AddRequest counts an outgoing request.
func (o *Overview) AddRequest(_ *ai.ChatRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests++
}

// AddResponse counts a completed reply and adds its usage.
func (o *Overview) AddResponse(response *ai.ChatResponse) {
	if response == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses++
	o.lastResponse = response
	o.totalUsage.Add(response.Usage)
}

// AddFailure counts a request that ended in an error.
func (o *Overview) AddFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

// IncludeUsage adds usage that did not come through AddResponse.
func (o *Overview) IncludeUsage(usage *ai.Usage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totalUsage.Add(usage)
}

// TotalUsage returns the summed token usage so far.
func (o *Overview) TotalUsage() ai.Usage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalUsage
}

// StartExecution marks the beginning of the execution.
func (o *Overview) StartExecution() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executionStart = time.Now()
}

// EndExecution marks the end of the execution.
func (o *Overview) EndExecution() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executionEnd = time.Now()
}

// ExecutionDuration is zero until both StartExecution and EndExecution ran.
func (o *Overview) ExecutionDuration() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.executionDuration()
}

func (o *Overview) executionDuration() time.Duration {
	if o.executionStart.IsZero() || o.executionEnd.IsZero() {
		return 0
	}
	return o.executionEnd.Sub(o.executionStart)
}

// Summary returns a copy of the current counters.
func (o *Overview) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	summary := Summary{
		Requests:   o.requests,
		Responses:  o.responses,
		Failures:   o.failures,
		TotalUsage: o.totalUsage,
		Duration:   o.executionDuration(),
	}
	if o.lastResponse != nil {
		summary.LastResponse = o.lastResponse.Content
	}
	return summary
}
