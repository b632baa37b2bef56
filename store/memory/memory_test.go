package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
)

func mustRoot(t *testing.T) matrix.Encoding {
	t.Helper()
	e, err := matrix.Root(0)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func mustChild(t *testing.T, parent matrix.Encoding, pos int64) matrix.Encoding {
	t.Helper()
	e, err := matrix.Child(parent, pos)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNextTreeIDSequence(t *testing.T) {
	s := New()
	ctx := context.Background()

	last, err := s.LastTreeID(ctx)
	if err != nil || last != 0 {
		t.Fatalf("LastTreeID = %d, %v; want 0, nil", last, err)
	}

	for want := int64(1); want <= 5; want++ {
		got, err := s.NextTreeID(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("NextTreeID = %d, want %d", got, want)
		}
	}

	last, _ = s.LastTreeID(ctx)
	if last != 5 {
		t.Errorf("LastTreeID = %d, want 5", last)
	}
}

func TestNextTreeIDConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 64
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.NextTreeID(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate tree id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct ids, want %d", len(seen), n)
	}
}

func TestInsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	root := mustRoot(t)

	row := &store.Row{ID: "r1", TreeID: 1, Enc: root, Attrs: map[string]string{"name": "root"}}
	if err := s.Insert(ctx, row); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, 1, root.A11, root.A21)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "r1" || got.Attrs["name"] != "root" {
		t.Errorf("unexpected row %+v", got)
	}

	// Returned rows must be copies, not aliases of stored state.
	got.Attrs["name"] = "mutated"
	again, _ := s.Get(ctx, 1, root.A11, root.A21)
	if again.Attrs["name"] != "root" {
		t.Error("stored row was mutated through a returned copy")
	}
}

func TestGetNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), 1, 1, 1)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertDuplicatePosition(t *testing.T) {
	s := New()
	ctx := context.Background()
	root := mustRoot(t)

	if err := s.Insert(ctx, &store.Row{ID: "a", TreeID: 1, Enc: root}); err != nil {
		t.Fatal(err)
	}
	err := s.Insert(ctx, &store.Row{ID: "b", TreeID: 1, Enc: root})
	if !errors.Is(err, store.ErrPositionTaken) {
		t.Errorf("expected ErrPositionTaken, got %v", err)
	}

	// Same encoding in another tree is fine.
	if err := s.Insert(ctx, &store.Row{ID: "c", TreeID: 2, Enc: root}); err != nil {
		t.Errorf("insert into second tree: %v", err)
	}
}

func TestInsertOrphanChild(t *testing.T) {
	s := New()
	ctx := context.Background()
	child := mustChild(t, mustRoot(t), 0)

	err := s.Insert(ctx, &store.Row{ID: "orphan", TreeID: 1, Enc: child})
	if !errors.Is(err, store.ErrParentNotFound) {
		t.Errorf("expected ErrParentNotFound, got %v", err)
	}
}

func TestInsertInvalidEncoding(t *testing.T) {
	s := New()
	err := s.Insert(context.Background(), &store.Row{
		ID: "bad", TreeID: 1,
		Enc: matrix.Encoding{A11: 2, A12: 1, A21: 2, A22: 1},
	})
	if !errors.Is(err, matrix.ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func seedTree(t *testing.T, s *Store) (root, c0, c1, g matrix.Encoding) {
	t.Helper()
	ctx := context.Background()

	root = mustRoot(t)
	c0 = mustChild(t, root, 0)
	c1 = mustChild(t, root, 1)
	g = mustChild(t, c0, 0)

	for i, enc := range []matrix.Encoding{root, c0, c1, g} {
		if err := s.Insert(ctx, &store.Row{ID: string(rune('a' + i)), TreeID: 1, Enc: enc}); err != nil {
			t.Fatal(err)
		}
	}
	return root, c0, c1, g
}

func TestSelectChildrenOrdered(t *testing.T) {
	s := New()
	root, c0, c1, _ := seedTree(t, s)

	rows, err := s.Select(context.Background(), store.Query{
		TreeID: 1,
		Where:  store.ChildrenOf(root),
		Order:  store.OrderPosition,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d children, want 2", len(rows))
	}
	if rows[0].Enc != c0 || rows[1].Enc != c1 {
		t.Errorf("children out of order: %v, %v", rows[0].Enc, rows[1].Enc)
	}
}

func TestSelectLimit(t *testing.T) {
	s := New()
	root, _, _, _ := seedTree(t, s)

	rows, err := s.Select(context.Background(), store.Query{
		TreeID: 1,
		Where:  store.DescendantsOf(root),
		Order:  store.OrderPosition,
		Limit:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestSelectOtherTreeIsEmpty(t *testing.T) {
	s := New()
	root, _, _, _ := seedTree(t, s)

	rows, err := s.Select(context.Background(), store.Query{TreeID: 2, Where: store.DescendantsOf(root)})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows in empty tree, got %d", len(rows))
	}
}

func TestMaxSiblingIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	root, _, _, _ := seedTree(t, s)

	max, ok, err := s.Max(ctx, 1, store.SiblingIndex(), store.ChildrenOf(root))
	if err != nil {
		t.Fatal(err)
	}
	if !ok || max != 2 {
		t.Errorf("Max = %d, %v; want 2, true", max, ok)
	}

	// c1 has no children.
	leaf := mustChild(t, root, 1)
	_, ok, err = s.Max(ctx, 1, store.SiblingIndex(), store.ChildrenOf(leaf))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match for childless node")
	}
}

func TestCountAncestors(t *testing.T) {
	s := New()
	ctx := context.Background()
	root, c0, _, g := seedTree(t, s)

	tests := []struct {
		name string
		enc  matrix.Encoding
		want int64
	}{
		{"root has no ancestors", root, 0},
		{"child has one", c0, 1},
		{"grandchild has two", g, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, 1, store.AncestorsOf(tt.enc))
			if err != nil {
				t.Fatal(err)
			}
			if n != tt.want {
				t.Errorf("Count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, c1, _ := seedTree(t, s)

	if err := s.Delete(ctx, 1, c1.A11, c1.A21); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, 1, c1.A11, c1.A21); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, 1, c1.A11, c1.A21); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
