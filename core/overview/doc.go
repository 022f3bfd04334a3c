// Package overview tracks one execution: LLM request and failure counts,
// summed token usage and wall-clock duration. Obtain the instance bound to a
// context with [OverviewFromContext] and read it with [Overview.Summary].
package overview
