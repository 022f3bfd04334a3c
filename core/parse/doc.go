// Package parse turns raw LLM text into typed values. Models wrap JSON in
// prose or markdown fences, emit slightly broken JSON, or answer with
// {"type","value"} envelopes; [ParseStringAs] recovers from each of these
// before giving up with an error.
package parse
