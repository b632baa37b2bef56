package sqlite

import (
	"testing"

	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
)

func TestCompileWhereNil(t *testing.T) {
	sql, args, err := compileWhere(nil)
	if err != nil {
		t.Fatal(err)
	}
	if sql != "1" || len(args) != 0 {
		t.Errorf("got %q with %d args", sql, len(args))
	}
}

func TestCompileChildrenOf(t *testing.T) {
	e := matrix.Encoding{A11: 2, A12: 1, A21: 3, A22: 1}
	sql, args, err := compileWhere(store.ChildrenOf(e))
	if err != nil {
		t.Fatal(err)
	}

	want := "((a12 = ?) AND (a22 = ?))"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != int64(2) || args[1] != int64(3) {
		t.Errorf("args = %v, want [2 3]", args)
	}
}

func TestCompileAncestorsOf(t *testing.T) {
	e := matrix.Encoding{A11: 3, A12: 2, A21: 8, A22: 5}
	sql, args, err := compileWhere(store.AncestorsOf(e))
	if err != nil {
		t.Fatal(err)
	}

	want := "((? * (a21 - a22)) >= ((a11 - a12) * ?))" +
		" AND ((a11 * ?) >= (? * a21))" +
		" AND NOT ((a11 = ?) AND (a21 = ?))"
	want = "(" + want + ")"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}

	wantArgs := []int64{1, 3, 8, 3, 3, 8}
	if len(args) != len(wantArgs) {
		t.Fatalf("got %d args, want %d", len(args), len(wantArgs))
	}
	for i, w := range wantArgs {
		if args[i] != w {
			t.Errorf("args[%d] = %v, want %d", i, args[i], w)
		}
	}
}

func TestCompileQuot(t *testing.T) {
	var args []any
	sql, err := compileTerm(store.SiblingIndex(), &args)
	if err != nil {
		t.Fatal(err)
	}
	if sql != "(a11 / a12)" {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 0 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		order store.OrderBy
		want  string
	}{
		{store.OrderNone, ""},
		{store.OrderPosition, "a11, a21"},
		{store.OrderPositionDesc, "a11 DESC, a21 DESC"},
		{store.OrderDepth, "a21, a11"},
		{store.OrderDepthDesc, "a21 DESC, a11 DESC"},
	}
	for _, tt := range tests {
		if got := orderClause(tt.order); got != tt.want {
			t.Errorf("orderClause(%d) = %q, want %q", tt.order, got, tt.want)
		}
	}
}
