package tree

import "errors"

var (
	// ErrCrossTree is returned when a relation predicate is asked about
	// two nodes from different trees.
	ErrCrossTree = errors.New("arbor: nodes belong to different trees")

	// ErrAppendContention is returned when an append loses the race for a
	// sibling position too many times in a row.
	ErrAppendContention = errors.New("arbor: append retries exhausted")

	// ErrMoveToDescendant is reserved for subtree moves, which would
	// cycle if the target is inside the moved subtree. Moves re-encode
	// every node in the subtree and are not implemented yet.
	ErrMoveToDescendant = errors.New("arbor: cannot move a node under its own descendant")
)
