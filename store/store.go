package store

import (
	"context"
	"sort"

	"github.com/jacentio/arbor/matrix"
)

// Row is one stored node.
type Row struct {
	// ID is an opaque row identifier assigned by the caller.
	ID string

	// TreeID identifies the tree this node belongs to.
	TreeID int64

	// Enc is the sign-normalized matrix encoding. Write-once: nothing
	// mutates it after insert.
	Enc matrix.Encoding

	// ParentID is the parent row's ID, empty for a root. It is a
	// convenience reference; the structural parent is derived from Enc.
	ParentID string

	// Attrs holds caller-supplied payload fields.
	Attrs map[string]string
}

// OrderBy selects the ordering of query results.
type OrderBy uint8

const (
	// OrderNone leaves the result order backend-defined.
	OrderNone OrderBy = iota

	// OrderPosition orders by (a11, a21) ascending: sibling order, and a
	// stable pre-order-like traversal for descendant sets.
	OrderPosition

	// OrderPositionDesc orders by (a11, a21) descending.
	OrderPositionDesc

	// OrderDepth orders by a21 ascending. Along any root path a21 grows
	// strictly, so for an ancestor set this is root-first.
	OrderDepth

	// OrderDepthDesc orders by a21 descending: deepest ancestors first.
	OrderDepthDesc
)

// Query selects rows of one tree matching a predicate expression.
type Query struct {
	// TreeID scopes the query to a single tree. Required.
	TreeID int64

	// Where filters rows by their encoding columns. Nil matches all rows
	// of the tree.
	Where Expr

	// Order selects result ordering.
	Order OrderBy

	// Limit caps the number of rows returned (0 = no limit), applied
	// after ordering.
	Limit int
}

// Store is the persistence contract for node rows.
//
// Implementations must make Insert atomic with respect to concurrent
// inserts of the same position (see the package documentation) and
// NextTreeID a strictly increasing atomic sequence.
type Store interface {
	// NextTreeID allocates and returns the next tree id, starting at 1.
	NextTreeID(ctx context.Context) (int64, error)

	// LastTreeID returns the most recently allocated tree id, 0 if none.
	LastTreeID(ctx context.Context) (int64, error)

	// Insert stores a new row. It fails with ErrPositionTaken if the
	// (tree id, a11, a21) position is occupied, and with
	// ErrParentNotFound if the row is a non-root whose structural parent
	// (a11=row.a12, a21=row.a22) is absent.
	Insert(ctx context.Context, row *Row) error

	// Get returns the row of the given tree at position pair (a11, a21),
	// or ErrNotFound.
	Get(ctx context.Context, treeID, a11, a21 int64) (*Row, error)

	// Select returns the rows matching q.
	Select(ctx context.Context, q Query) ([]*Row, error)

	// Max returns the maximum value of term over the rows of the tree
	// matching where. The second result is false when no row matches.
	Max(ctx context.Context, treeID int64, term Term, where Expr) (int64, bool, error)

	// Count returns the number of rows of the tree matching where.
	Count(ctx context.Context, treeID int64, where Expr) (int64, error)

	// Delete removes (or marks deleted) the row of the given tree at
	// position pair (a11, a21). Deleting an absent row is a no-op.
	Delete(ctx context.Context, treeID, a11, a21 int64) error
}

// SortRows orders rows in place according to o. Backends that cannot
// order server-side use this after fetching.
func SortRows(rows []*Row, o OrderBy) {
	switch o {
	case OrderPosition:
		sort.Slice(rows, func(i, j int) bool { return rows[i].Enc.Before(rows[j].Enc) })
	case OrderPositionDesc:
		sort.Slice(rows, func(i, j int) bool { return rows[j].Enc.Before(rows[i].Enc) })
	case OrderDepth:
		sort.Slice(rows, func(i, j int) bool { return depthLess(rows[i], rows[j]) })
	case OrderDepthDesc:
		sort.Slice(rows, func(i, j int) bool { return depthLess(rows[j], rows[i]) })
	}
}

func depthLess(a, b *Row) bool {
	if a.Enc.A21 != b.Enc.A21 {
		return a.Enc.A21 < b.Enc.A21
	}
	return a.Enc.A11 < b.Enc.A11
}
