// Package inmemory provides [ArrayMemory], a process-local implementation of
// [memory.Provider]. Use [WithWindow] to bound the history a long-running
// chat replays to the model.
package inmemory
