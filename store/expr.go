package store

import "github.com/jacentio/arbor/matrix"

// Column identifies one of the four stored encoding columns.
type Column uint8

const (
	ColA11 Column = iota
	ColA12
	ColA21
	ColA22
)

// String returns the storage-layer column name.
func (c Column) String() string {
	switch c {
	case ColA11:
		return "a11"
	case ColA12:
		return "a12"
	case ColA21:
		return "a21"
	case ColA22:
		return "a22"
	}
	return "unknown"
}

// Op is a comparison operator.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// Term is an integer-valued arithmetic expression over a row's encoding
// columns. Backends either compile terms into their query language or
// evaluate them with Value.
type Term interface {
	Value(e matrix.Encoding) int64
}

// ColTerm references a stored column.
type ColTerm struct{ C Column }

// LitTerm is a constant operand, always passed to query engines as a
// bound parameter.
type LitTerm struct{ V int64 }

// SubTerm is the difference A - B.
type SubTerm struct{ A, B Term }

// MulTerm is the product A * B.
type MulTerm struct{ A, B Term }

// QuotTerm is the integer quotient A / B (truncated). A zero divisor
// evaluates to zero rather than faulting; well-formed encodings never
// produce one.
type QuotTerm struct{ A, B Term }

// Col returns a term referencing column c.
func Col(c Column) Term { return ColTerm{c} }

// Lit returns a constant term.
func Lit(v int64) Term { return LitTerm{v} }

// Sub returns the term a - b.
func Sub(a, b Term) Term { return SubTerm{a, b} }

// Mul returns the term a * b.
func Mul(a, b Term) Term { return MulTerm{a, b} }

// Quot returns the integer-division term a / b.
func Quot(a, b Term) Term { return QuotTerm{a, b} }

func (t ColTerm) Value(e matrix.Encoding) int64 {
	switch t.C {
	case ColA11:
		return e.A11
	case ColA12:
		return e.A12
	case ColA21:
		return e.A21
	case ColA22:
		return e.A22
	}
	return 0
}

func (t LitTerm) Value(matrix.Encoding) int64 { return t.V }

func (t SubTerm) Value(e matrix.Encoding) int64 { return t.A.Value(e) - t.B.Value(e) }

func (t MulTerm) Value(e matrix.Encoding) int64 { return t.A.Value(e) * t.B.Value(e) }

func (t QuotTerm) Value(e matrix.Encoding) int64 {
	d := t.B.Value(e)
	if d == 0 {
		return 0
	}
	return t.A.Value(e) / d
}

// Expr is a boolean predicate over a row's encoding columns.
type Expr interface {
	Matches(e matrix.Encoding) bool
}

// Cmp compares two terms.
type Cmp struct {
	L  Term
	Op Op
	R  Term
}

// And is the conjunction of its elements. An empty And matches everything.
type And []Expr

// Not negates E.
type Not struct{ E Expr }

func (c Cmp) Matches(e matrix.Encoding) bool {
	l, r := c.L.Value(e), c.R.Value(e)
	switch c.Op {
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	case OpLt:
		return l < r
	case OpLe:
		return l <= r
	case OpGt:
		return l > r
	case OpGe:
		return l >= r
	}
	return false
}

func (a And) Matches(e matrix.Encoding) bool {
	for _, sub := range a {
		if !sub.Matches(e) {
			return false
		}
	}
	return true
}

func (n Not) Matches(e matrix.Encoding) bool { return !n.E.Matches(e) }

// Eq returns the predicate l = r.
func Eq(l, r Term) Expr { return Cmp{l, OpEq, r} }

// Lt returns the predicate l < r.
func Lt(l, r Term) Expr { return Cmp{l, OpLt, r} }

// Le returns the predicate l <= r.
func Le(l, r Term) Expr { return Cmp{l, OpLe, r} }

// Gt returns the predicate l > r.
func Gt(l, r Term) Expr { return Cmp{l, OpGt, r} }

// Ge returns the predicate l >= r.
func Ge(l, r Term) Expr { return Cmp{l, OpGe, r} }
