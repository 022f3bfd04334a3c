// Package ai defines the shared, provider-agnostic chat types used by every
// language-model backend in this module. Provider implementations translate
// [ChatRequest] into their own wire format and return a [ChatResponse].
//
// [Provider] covers synchronous completions; [StreamProvider] adds incremental
// delivery through [ChatStream], whose [StreamEvent] values carry text deltas,
// token usage and the final finish reason.
package ai
