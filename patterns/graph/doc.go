// Package graph implements a cyclic state graph for orchestrating multi-step
// LLM workflows. Each node is a function that receives the current state and
// returns the next one; edges decide which node runs after it.
//
// A graph is declared with [NewStateGraph], validated by [StateGraph.Compile]
// and run with [Graph.Invoke] (synchronous) or [Graph.Stream] (event
// iterator). Execution is strictly sequential: exactly one node runs at a
// time, starting from the target of the [START] transition and stopping when
// a transition leads to [END].
//
// Each node has exactly one outgoing transition: either a fixed edge
// ([StateGraph.AddEdge]) or a set of conditional edges
// ([StateGraph.AddConditionalEdges]) whose router inspects the state and
// returns a route key. Cycles are allowed; [WithMaxSteps] bounds the number of
// node executions so a routing bug cannot loop forever.
//
// Nodes can publish incremental output (for example LLM tokens) with [Emit];
// the text reaches [Graph.Stream] consumers as [GraphEventNodeContent] events
// and is discarded by [Graph.Invoke].
//
// Example:
//
//	builder := graph.NewStateGraph[*Counter]()
//	builder.AddNode("increment", func(ctx context.Context, c *Counter) (*Counter, error) {
//	    c.Value++
//	    return c, nil
//	})
//	builder.AddEdge(graph.START, "increment")
//	builder.AddConditionalEdges("increment",
//	    func(ctx context.Context, c *Counter) string {
//	        if c.Value < 3 {
//	            return "again"
//	        }
//	        return "stop"
//	    },
//	    map[string]string{"again": "increment", "stop": graph.END},
//	)
//
//	g, err := builder.Compile()
//	final, err := g.Invoke(ctx, &Counter{})
//
// Streaming:
//
//	for event, err := range g.Stream(ctx, &Counter{}).Iter() {
//	    if err != nil { log.Fatal(err) }
//	    if event.Type == graph.GraphEventNodeComplete {
//	        fmt.Printf("[节点完成: %s]\n", event.NodeID)
//	    }
//	}
package graph
