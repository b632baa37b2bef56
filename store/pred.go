package store

import "github.com/jacentio/arbor/matrix"

// Domain predicate builders: each returns the persistence-layer filter
// expression for one structural relation, with the subject node's stored
// values baked in as literal (bound) operands and the candidate row's
// columns left symbolic.

// IsNode matches exactly the subject's row. Within a tree the (a11, a21)
// pair identifies a node uniquely.
func IsNode(e matrix.Encoding) Expr {
	return And{
		Eq(Col(ColA11), Lit(e.A11)),
		Eq(Col(ColA21), Lit(e.A21)),
	}
}

// ChildrenOf matches the children of the subject: rows whose second
// matrix column equals the subject's first column.
func ChildrenOf(e matrix.Encoding) Expr {
	return And{
		Eq(Col(ColA12), Lit(e.A11)),
		Eq(Col(ColA22), Lit(e.A21)),
	}
}

// SiblingsOf matches rows sharing the subject's parent signature,
// excluding the subject itself.
func SiblingsOf(e matrix.Encoding) Expr {
	return And{
		Eq(Col(ColA12), Lit(e.A12)),
		Eq(Col(ColA22), Lit(e.A22)),
		Not{IsNode(e)},
	}
}

// FollowingSiblingsOf matches siblings strictly after the subject in
// sibling order.
func FollowingSiblingsOf(e matrix.Encoding) Expr {
	return And{
		Eq(Col(ColA12), Lit(e.A12)),
		Eq(Col(ColA22), Lit(e.A22)),
		Gt(Col(ColA11), Lit(e.A11)),
		Gt(Col(ColA21), Lit(e.A21)),
	}
}

// PrecedingSiblingsOf matches siblings strictly before the subject.
func PrecedingSiblingsOf(e matrix.Encoding) Expr {
	return And{
		Eq(Col(ColA12), Lit(e.A12)),
		Eq(Col(ColA22), Lit(e.A22)),
		Lt(Col(ColA11), Lit(e.A11)),
		Lt(Col(ColA21), Lit(e.A21)),
	}
}

// AncestorsOf matches the proper ancestors of the subject. A row x is an
// ancestor of subject y iff
//
//	(y.a11-y.a12)*(x.a21-x.a22) >= (x.a11-x.a12)*(y.a21-y.a22)
//	x.a11*y.a21 >= y.a11*x.a21
//
// The operand order mirrors matrix.AncestorOf exactly; do not "simplify"
// either inequality.
func AncestorsOf(e matrix.Encoding) Expr {
	return And{
		Ge(
			Mul(Lit(e.A11-e.A12), Sub(Col(ColA21), Col(ColA22))),
			Mul(Sub(Col(ColA11), Col(ColA12)), Lit(e.A21-e.A22)),
		),
		Ge(
			Mul(Col(ColA11), Lit(e.A21)),
			Mul(Lit(e.A11), Col(ColA21)),
		),
		Not{IsNode(e)},
	}
}

// DescendantsOf matches the proper descendants of the subject: the same
// two inequalities as AncestorsOf with the directions flipped.
func DescendantsOf(e matrix.Encoding) Expr {
	return And{
		Le(
			Mul(Lit(e.A11-e.A12), Sub(Col(ColA21), Col(ColA22))),
			Mul(Sub(Col(ColA11), Col(ColA12)), Lit(e.A21-e.A22)),
		),
		Le(
			Mul(Col(ColA11), Lit(e.A21)),
			Mul(Lit(e.A11), Col(ColA21)),
		),
		Not{IsNode(e)},
	}
}

// RootsOnly matches the root row of a tree: only roots have a21 == 1.
func RootsOnly() Expr {
	return Eq(Col(ColA21), Lit(1))
}

// SiblingIndex is the term recovering a row's internal generator index,
// floor(a11 / a12). Used as the aggregate for picking the next child
// index under a parent.
func SiblingIndex() Term {
	return Quot(Col(ColA11), Col(ColA12))
}
