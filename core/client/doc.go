// Package client sits between the game code and a raw [ai.Provider]. A
// [Client] carries the default model, an optional system prompt, optional
// conversation memory and a chain of send/stream middlewares.
//
// Build one with [New] and functional options such as [WithDefaultModel],
// [WithMemory], [WithObserver] and [WithMiddleware]. [Client.SendMessage]
// returns the whole reply; [Client.StreamMessage] returns an [ai.ChatStream].
// Per-run token totals are aggregated into the [overview.Overview] found in
// the context.
package client
