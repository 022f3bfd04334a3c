// Package slogobs provides an observability.Provider backed by log/slog.
// Spans and metric updates are emitted as debug records, so a plain INFO
// logger shows only the operational messages. The entry point is [New];
// tune it with [WithFormat], [WithLevel], [WithOutput] and [WithLogger].
package slogobs
