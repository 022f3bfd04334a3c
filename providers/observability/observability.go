package observability

import (
	"context"
	"time"
)

// Provider bundles the three signals a run reports: spans around graph
// nodes and model calls, counters and histograms for game and client
// metrics, and structured log lines.
type Provider interface {
	Tracer
	Metrics
	Logger
}

// Tracer opens spans.
type Tracer interface {
	// StartSpan opens a span named name. Work done inside the span must use
	// the returned context so child spans nest under it.
	StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Span is one timed unit of work, such as a graph run, a node step or a
// single model call.
type Span interface {
	// End closes the span. Calls after the first are ignored.
	End()
	// SetAttributes attaches attributes known only once the work is done,
	// such as the step count of a run.
	SetAttributes(attrs ...Attribute)
	// SetStatus marks the span as succeeded or failed.
	SetStatus(code StatusCode, description string)
	// RecordError attaches err to the span without changing its status.
	RecordError(err error)
	// AddEvent records a point in time inside the span, e.g. the first
	// streamed token of a reply.
	AddEvent(name string, attrs ...Attribute)
}

// StatusCode is the outcome recorded on a span.
type StatusCode int

const (
	// StatusUnset is the status of a span nobody marked.
	StatusUnset StatusCode = iota
	// StatusOK marks completed work, abandoned streams included.
	StatusOK
	// StatusError marks failed work.
	StatusError
)

// Metrics hands out named instruments. Asking twice for the same name
// returns the same instrument, so callers need not keep them around.
type Metrics interface {
	// Counter returns the counter called name, creating it on first use.
	Counter(name string) Counter
	// Histogram returns the histogram called name, creating it on first use.
	Histogram(name string) Histogram
}

// Counter only goes up: eliminations, vote fallbacks, node executions.
type Counter interface {
	Add(ctx context.Context, value int64, attrs ...Attribute)
}

// Histogram collects a distribution, in practice durations in seconds.
type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...Attribute)
}

// Logger writes leveled, structured log lines. Implementations pick up the
// active span from ctx.
type Logger interface {
	Trace(ctx context.Context, msg string, attrs ...Attribute)
	Debug(ctx context.Context, msg string, attrs ...Attribute)
	Info(ctx context.Context, msg string, attrs ...Attribute)
	Warn(ctx context.Context, msg string, attrs ...Attribute)
	Error(ctx context.Context, msg string, attrs ...Attribute)
}

// Attribute is a key/value pair attached to spans, metrics and log lines.
// Keys come from the constants in semconv.go.
type Attribute struct {
	Key   string
	Value any
}

// String builds a string attribute, e.g. a player name or a node id.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// StringSlice builds a list attribute, e.g. the candidates of a vote.
func StringSlice(key string, value []string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int builds an integer attribute such as a round or a step number.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 builds a 64-bit integer attribute, used for token counts.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration builds a latency attribute. Log handlers render it as text.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value}
}

// Error stores err's message under AttrError. A nil err yields an empty
// message rather than a nil value.
func Error(err error) Attribute {
	if err == nil {
		return Attribute{Key: AttrError, Value: ""}
	}
	return Attribute{Key: AttrError, Value: err.Error()}
}
