// Package graph implements the operation dependency graph.
//
// A DataSet owns columns directly. An Operation hangs off a parent (a
// dataset or another operation) and derives its own result columns by running
// a Computer against the compute engine. Reading an operation's columns first
// brings its cache up to date: ancestors are computed root to leaf, unanswered
// questions stop the computation with NeedsInfo, and a successful computation
// marks every descendant dirty. Invalidation only ever travels downward.
//
// The graph is single threaded. inRecompute guards against re-entry from an
// operation's own computation; it is not a lock. Callers that share a graph
// across goroutines must serialize access themselves.
package graph
