// Package store defines the persistence contract consumed by the tree
// layer, together with the structured predicate expressions handed to it.
//
// A backend stores one row per node: the four sign-normalized encoding
// columns, a tree id, an optional parent reference, and caller payload
// attributes. All read queries are expressed as predicate expressions —
// small trees of arithmetic comparisons over the stored columns — built
// with the constructors in this package ([Eq], [Mul], [Sub], ...) and
// never by formatting values into a query string. Backends either push
// the expression into their query engine (SQL) or evaluate it with
// [Matches] after fetching candidate rows (DynamoDB, memory).
//
// # Append atomicity
//
// Appending a child is a read-then-write sequence: read the maximum
// sibling index under a parent, insert at max+1. Two concurrent appends
// under the same parent may both pick the same index, so [Store.Insert]
// must enforce uniqueness of the (tree id, a11, a21) position pair and
// fail the loser with [ErrPositionTaken]; the tree layer retries with a
// fresh index. Tree ids come from the backend's atomic
// [Store.NextTreeID] sequence, never from a read-modify-write of the
// last root.
package store
