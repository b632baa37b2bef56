package matrix

// Relation predicates between two encodings of the same tree.
//
// Tree membership is not part of the encoding; callers must only compare
// encodings that share a tree id. Each predicate is a pure function of
// the eight stored integers.

// ParentOf reports whether x is the parent of y: a child's second matrix
// column equals its parent's first column.
func (x Encoding) ParentOf(y Encoding) bool {
	return y.A12 == x.A11 && y.A22 == x.A21
}

// ChildOf reports whether x is a child of y.
func (x Encoding) ChildOf(y Encoding) bool {
	return y.ParentOf(x)
}

// SiblingOf reports whether x and y are distinct children of the same
// parent.
func (x Encoding) SiblingOf(y Encoding) bool {
	return x.A12 == y.A12 && x.A22 == y.A22 && x != y
}

// AncestorOf reports whether x is a proper ancestor of y.
//
// The two inequalities compare the continued-fraction expansions of the
// positions encoded by the two matrices; they hold exactly when y's path
// from the root passes through x. The inequality directions and operand
// order are load-bearing: swapping either side turns ancestors into
// siblings-and-descendants.
func (x Encoding) AncestorOf(y Encoding) bool {
	if x == y {
		return false
	}
	return (y.A11-y.A12)*(x.A21-x.A22) >= (x.A11-x.A12)*(y.A21-y.A22) &&
		x.A11*y.A21 >= y.A11*x.A21
}

// DescendantOf reports whether x is a proper descendant of y.
func (x Encoding) DescendantOf(y Encoding) bool {
	return y.AncestorOf(x)
}

// Before reports whether x precedes y in sibling order. Siblings are
// totally ordered by (a11, a21) ascending.
func (x Encoding) Before(y Encoding) bool {
	if x.A11 != y.A11 {
		return x.A11 < y.A11
	}
	return x.A21 < y.A21
}
