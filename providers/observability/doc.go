// Package observability defines the tracing, metrics and structured logging
// contract used throughout the module.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. An active provider and span travel through a context.Context via
// [ContextWithObserver] and [ContextWithSpan], and are read back with
// [ObserverFromContext] and [SpanFromContext].
//
// semconv.go holds the attribute, span and metric names shared by the client,
// the graph engine and the game.
package observability
