// Package tree is the public API for matrix-encoded trees.
//
// A Forest wraps a store.Store and exposes tree construction and
// structural queries. Every node's position in its tree is captured by a
// single 2x2 integer matrix, so parent, child, sibling, ancestor and
// descendant lookups all reduce to arithmetic predicates over four
// stored columns; no adjacency walks and no recursive queries.
//
// Appends are optimistic: the next free sibling position is computed
// with an aggregate and claimed with a conditional insert, retrying on
// collision. Everything else is read-only arithmetic.
package tree
