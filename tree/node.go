package tree

import (
	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
)

// Node is one tree node as seen by callers.
type Node struct {
	// ID is the node's opaque identifier.
	ID string

	// TreeID identifies the tree the node belongs to.
	TreeID int64

	// Enc is the node's matrix encoding. Treat as read-only.
	Enc matrix.Encoding

	// ParentID is the parent node's ID, empty for a root.
	ParentID string

	// Attrs holds the caller-supplied payload.
	Attrs map[string]string
}

// Position returns the node's 0-based position among its siblings.
func (n *Node) Position() (int64, error) {
	return n.Enc.Position()
}

// IsRoot reports whether the node is its tree's root.
func (n *Node) IsRoot() bool {
	return n.Enc.IsRoot()
}

func nodeFromRow(row *store.Row) *Node {
	return &Node{
		ID:       row.ID,
		TreeID:   row.TreeID,
		Enc:      row.Enc,
		ParentID: row.ParentID,
		Attrs:    row.Attrs,
	}
}

func nodesFromRows(rows []*store.Row) []*Node {
	nodes := make([]*Node, len(rows))
	for i, row := range rows {
		nodes[i] = nodeFromRow(row)
	}
	return nodes
}
