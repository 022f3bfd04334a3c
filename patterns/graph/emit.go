package graph

import "context"

type emitterKey struct{}

// withEmitter binds the content sink of the running node to ctx.
func withEmitter(ctx context.Context, emit func(string) bool) context.Context {
	return context.WithValue(ctx, emitterKey{}, emit)
}

// Emit publishes a fragment of node output, such as an LLM token, to the
// consumer of Graph.Stream. It returns false when the consumer has stopped
// reading; the node should then return as soon as possible. Outside a
// streamed run (Invoke, or a context not created by the graph) the content is
// dropped and Emit returns true. Empty content is ignored.
func Emit(ctx context.Context, content string) bool {
	emit, ok := ctx.Value(emitterKey{}).(func(string) bool)
	if !ok || content == "" {
		return true
	}
	return emit(content)
}
