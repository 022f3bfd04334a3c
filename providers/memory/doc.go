// Package memory defines the Provider interface for conversation history.
// The client appends the user prompt and the assistant reply of every turn
// and replays the history on the next call. The in-process implementation
// lives in [github.com/spyword/undercover/providers/memory/inmemory].
package memory
