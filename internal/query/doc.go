// Package query implements the chainable, lazily-evaluated query builder that
// emulates the remote backend client on top of a [store.Store].
//
// A [Builder] accumulates predicates, shape and mutation intent through
// synchronous chain calls. Nothing touches the store until a terminal method
// ([Builder.Execute], [Builder.Single], [Builder.MaybeSingle]) or the
// awaitable adapter ([Builder.Async]) runs the pipeline once:
//
//	filter (AND) → count → order → range → limit → head → single → projection
//
// Malformed expressions are ignored rather than reported, unknown collections
// read as empty, and a single-row request with no match yields nil data.
// Builders are single-use; see [ErrBuilderConsumed].
package query
