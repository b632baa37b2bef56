package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
)

// maxAppendRetries bounds the optimistic append loop. Each retry means
// another writer claimed the computed position first; the position moves
// forward every round, so in practice a handful of retries suffices even
// under heavy sibling contention.
const maxAppendRetries = 16

// Forest manages a collection of matrix-encoded trees in one store.
type Forest struct {
	store  store.Store
	logger *slog.Logger
}

// NewForest creates a Forest over the given store. A nil logger falls
// back to slog.Default().
func NewForest(s store.Store, logger *slog.Logger) *Forest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forest{
		store:  s,
		logger: logger,
	}
}

// CreateRoot creates a new tree and returns its root node.
func (f *Forest) CreateRoot(ctx context.Context, attrs map[string]string) (*Node, error) {
	treeID, err := f.store.NextTreeID(ctx)
	if err != nil {
		return nil, err
	}

	enc, err := matrix.Root(0)
	if err != nil {
		return nil, err
	}

	row := &store.Row{
		ID:     uuid.NewString(),
		TreeID: treeID,
		Enc:    enc,
		Attrs:  attrs,
	}
	if err := f.store.Insert(ctx, row); err != nil {
		return nil, err
	}

	f.logger.Debug("created tree", "treeID", treeID, "rootID", row.ID)
	return nodeFromRow(row), nil
}

// AppendChild appends a new child after parent's current last child and
// returns it. Concurrent appends under the same parent are safe: the
// position is claimed with a conditional insert and recomputed on
// collision.
func (f *Forest) AppendChild(ctx context.Context, parent *Node, attrs map[string]string) (*Node, error) {
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		idx, found, err := f.store.Max(ctx, parent.TreeID, store.SiblingIndex(), store.ChildrenOf(parent.Enc))
		if err != nil {
			return nil, err
		}
		if !found {
			idx = 0
		}

		// idx is the last child's internal generator index, which is one
		// past its 0-based position; it is exactly the next free position.
		enc, err := matrix.Child(parent.Enc, idx)
		if err != nil {
			return nil, err
		}

		row := &store.Row{
			ID:       uuid.NewString(),
			TreeID:   parent.TreeID,
			Enc:      enc,
			ParentID: parent.ID,
			Attrs:    attrs,
		}
		err = f.store.Insert(ctx, row)
		if err == nil {
			return nodeFromRow(row), nil
		}
		if !errors.Is(err, store.ErrPositionTaken) {
			return nil, err
		}
		f.logger.Debug("append position taken, retrying",
			"treeID", parent.TreeID,
			"position", idx,
			"attempt", attempt+1,
		)
	}
	return nil, fmt.Errorf("%w: parent %s", ErrAppendContention, parent.ID)
}

// Entry describes one node of a subtree to load in bulk.
type Entry struct {
	// Attrs is the node's payload.
	Attrs map[string]string

	// Children are loaded beneath the node, in order.
	Children []Entry
}

// LoadSubtree appends entries beneath parent, depth-first, and returns
// the created nodes for the top-level entries.
func (f *Forest) LoadSubtree(ctx context.Context, parent *Node, entries []Entry) ([]*Node, error) {
	nodes := make([]*Node, 0, len(entries))
	for _, entry := range entries {
		node, err := f.AppendChild(ctx, parent, entry.Attrs)
		if err != nil {
			return nodes, err
		}
		if len(entry.Children) > 0 {
			if _, err := f.LoadSubtree(ctx, node, entry.Children); err != nil {
				return nodes, err
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Root returns the root node of the given tree.
func (f *Forest) Root(ctx context.Context, treeID int64) (*Node, error) {
	row, err := f.store.Get(ctx, treeID, 1, 1)
	if err != nil {
		return nil, err
	}
	return nodeFromRow(row), nil
}

// Roots returns the root of every existing tree, in tree id order. Trees
// whose root has been deleted are skipped.
func (f *Forest) Roots(ctx context.Context) ([]*Node, error) {
	last, err := f.store.LastTreeID(ctx)
	if err != nil {
		return nil, err
	}
	var roots []*Node
	for treeID := int64(1); treeID <= last; treeID++ {
		row, err := f.store.Get(ctx, treeID, 1, 1)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		roots = append(roots, nodeFromRow(row))
	}
	return roots, nil
}

// Parent returns the node's parent, or (nil, nil) for a root. The parent
// position pair is read straight off the child's encoding.
func (f *Forest) Parent(ctx context.Context, n *Node) (*Node, error) {
	if n.IsRoot() {
		return nil, nil
	}
	row, err := f.store.Get(ctx, n.TreeID, n.Enc.A12, n.Enc.A22)
	if err != nil {
		return nil, err
	}
	return nodeFromRow(row), nil
}

// Children returns the node's children in sibling order.
func (f *Forest) Children(ctx context.Context, n *Node) ([]*Node, error) {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.ChildrenOf(n.Enc),
		Order:  store.OrderPosition,
	})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

// ChildCount returns the number of children of the node.
func (f *Forest) ChildCount(ctx context.Context, n *Node) (int64, error) {
	return f.store.Count(ctx, n.TreeID, store.ChildrenOf(n.Enc))
}

// Siblings returns the node's siblings in sibling order, excluding the
// node itself.
func (f *Forest) Siblings(ctx context.Context, n *Node) ([]*Node, error) {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.SiblingsOf(n.Enc),
		Order:  store.OrderPosition,
	})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

// NextSibling returns the sibling immediately after the node, or
// (nil, nil) if the node is its parent's last child.
func (f *Forest) NextSibling(ctx context.Context, n *Node) (*Node, error) {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.FollowingSiblingsOf(n.Enc),
		Order:  store.OrderPosition,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return nodeFromRow(rows[0]), nil
}

// PrevSibling returns the sibling immediately before the node, or
// (nil, nil) if the node is its parent's first child.
func (f *Forest) PrevSibling(ctx context.Context, n *Node) (*Node, error) {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.PrecedingSiblingsOf(n.Enc),
		Order:  store.OrderPositionDesc,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return nodeFromRow(rows[0]), nil
}

// Ancestors returns the node's proper ancestors, root first.
func (f *Forest) Ancestors(ctx context.Context, n *Node) ([]*Node, error) {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.AncestorsOf(n.Enc),
		Order:  store.OrderDepth,
	})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

// Descendants returns the node's proper descendants ordered by position
// pair, a stable pre-order-like traversal.
func (f *Forest) Descendants(ctx context.Context, n *Node) ([]*Node, error) {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.DescendantsOf(n.Enc),
		Order:  store.OrderPosition,
	})
	if err != nil {
		return nil, err
	}
	return nodesFromRows(rows), nil
}

// Depth returns the node's depth: 0 for a root, counted as the number of
// proper ancestors.
func (f *Forest) Depth(ctx context.Context, n *Node) (int64, error) {
	return f.store.Count(ctx, n.TreeID, store.AncestorsOf(n.Enc))
}

// DeleteSubtree deletes the node and all its descendants, deepest first
// so a crash midway never leaves an orphan above a surviving child.
func (f *Forest) DeleteSubtree(ctx context.Context, n *Node) error {
	rows, err := f.store.Select(ctx, store.Query{
		TreeID: n.TreeID,
		Where:  store.DescendantsOf(n.Enc),
		Order:  store.OrderDepthDesc,
	})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := f.store.Delete(ctx, row.TreeID, row.Enc.A11, row.Enc.A21); err != nil {
			return err
		}
	}
	if err := f.store.Delete(ctx, n.TreeID, n.Enc.A11, n.Enc.A21); err != nil {
		return err
	}
	f.logger.Debug("deleted subtree",
		"treeID", n.TreeID,
		"rootID", n.ID,
		"descendants", len(rows),
	)
	return nil
}

// IsAncestor reports whether x is a proper ancestor of y. Nodes from
// different trees are unrelated and produce ErrCrossTree.
func (f *Forest) IsAncestor(x, y *Node) (bool, error) {
	if x.TreeID != y.TreeID {
		return false, ErrCrossTree
	}
	return x.Enc.AncestorOf(y.Enc), nil
}

// IsDescendant reports whether x is a proper descendant of y.
func (f *Forest) IsDescendant(x, y *Node) (bool, error) {
	if x.TreeID != y.TreeID {
		return false, ErrCrossTree
	}
	return x.Enc.DescendantOf(y.Enc), nil
}

// IsSibling reports whether x and y share a parent, excluding x == y.
func (f *Forest) IsSibling(x, y *Node) (bool, error) {
	if x.TreeID != y.TreeID {
		return false, ErrCrossTree
	}
	return x.Enc.SiblingOf(y.Enc), nil
}

// IsParent reports whether x is the parent of y.
func (f *Forest) IsParent(x, y *Node) (bool, error) {
	if x.TreeID != y.TreeID {
		return false, ErrCrossTree
	}
	return x.Enc.ParentOf(y.Enc), nil
}
