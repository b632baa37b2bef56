// Package memory provides an in-process Store backed by maps, guarded by
// a single mutex. It is the reference implementation of the store
// contract and the backend used by the unit tests; the mutex makes the
// read-max-then-insert append sequence trivially atomic.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jacentio/arbor/store"
)

type posKey struct {
	a11, a21 int64
}

// Store is an in-memory store.Store implementation.
type Store struct {
	mu    sync.Mutex
	trees map[int64]map[posKey]*store.Row
	seq   int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{trees: make(map[int64]map[posKey]*store.Row)}
}

var _ store.Store = (*Store)(nil)

// NextTreeID allocates the next tree id.
func (s *Store) NextTreeID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

// LastTreeID returns the most recently allocated tree id.
func (s *Store) LastTreeID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq, nil
}

// Insert stores a new row, enforcing position uniqueness and parent
// existence.
func (s *Store) Insert(ctx context.Context, row *store.Row) error {
	if err := row.Enc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.trees[row.TreeID]
	if tree == nil {
		tree = make(map[posKey]*store.Row)
		s.trees[row.TreeID] = tree
	}

	key := posKey{row.Enc.A11, row.Enc.A21}
	if _, taken := tree[key]; taken {
		return fmt.Errorf("%w: tree %d position (%d,%d)",
			store.ErrPositionTaken, row.TreeID, key.a11, key.a21)
	}
	if !row.Enc.IsRoot() {
		if _, ok := tree[posKey{row.Enc.A12, row.Enc.A22}]; !ok {
			return fmt.Errorf("%w: tree %d position (%d,%d)",
				store.ErrParentNotFound, row.TreeID, row.Enc.A12, row.Enc.A22)
		}
	}

	tree[key] = copyRow(row)
	return nil
}

// Get returns the row at position pair (a11, a21).
func (s *Store) Get(ctx context.Context, treeID, a11, a21 int64) (*store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.trees[treeID][posKey{a11, a21}]
	if !ok {
		return nil, fmt.Errorf("%w: tree %d position (%d,%d)", store.ErrNotFound, treeID, a11, a21)
	}
	return copyRow(row), nil
}

// Select returns the rows matching q.
func (s *Store) Select(ctx context.Context, q store.Query) ([]*store.Row, error) {
	s.mu.Lock()
	var rows []*store.Row
	for _, row := range s.trees[q.TreeID] {
		if q.Where == nil || q.Where.Matches(row.Enc) {
			rows = append(rows, copyRow(row))
		}
	}
	s.mu.Unlock()

	store.SortRows(rows, q.Order)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// Max returns the maximum of term over matching rows.
func (s *Store) Max(ctx context.Context, treeID int64, term store.Term, where store.Expr) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max int64
	found := false
	for _, row := range s.trees[treeID] {
		if where != nil && !where.Matches(row.Enc) {
			continue
		}
		if v := term.Value(row.Enc); !found || v > max {
			max = v
			found = true
		}
	}
	return max, found, nil
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, treeID int64, where store.Expr) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range s.trees[treeID] {
		if where == nil || where.Matches(row.Enc) {
			n++
		}
	}
	return n, nil
}

// Delete removes the row at position pair (a11, a21). Absent rows are a
// no-op.
func (s *Store) Delete(ctx context.Context, treeID, a11, a21 int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.trees[treeID], posKey{a11, a21})
	return nil
}

func copyRow(row *store.Row) *store.Row {
	out := *row
	if row.Attrs != nil {
		out.Attrs = make(map[string]string, len(row.Attrs))
		for k, v := range row.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}
