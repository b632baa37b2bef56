// Package matrix implements the matrix encoding scheme for tree positions.
//
// Every node of a forest is represented by a 2x2 integer matrix with
// determinant 1 (unimodular). A node's matrix is the product of its
// parent's matrix and a fixed-shape generator derived from the node's
// sibling position, so the encoding of a node never changes when other
// nodes are appended anywhere in the tree.
//
// Matrices are stored in sign-normalized form as four non-negative
// integers (a11, a12, a21, a22); the signed matrix is recovered as
// (a11, -a12, a21, -a22). All structural relations between two nodes
// (parent, sibling, ancestor, descendant, sibling order) reduce to
// arithmetic comparisons over the stored integers, so a persistence
// layer can answer them with plain filter predicates.
//
// # Key Properties
//
//   - Append-only: adding a child touches no existing encoding.
//   - A node's sibling position is recoverable from its own encoding.
//   - A child's (a12, a22) always equal its parent's (a11, a21), so the
//     parent link is derivable from the encoding alone.
//   - Ancestry between two nodes is decided by two integer inequalities.
//
// Encoding entries are capped at [MaxEntry] so that every product formed
// by the relation predicates fits exactly in an int64; [Compose] reports
// [ErrOverflow] before an oversized encoding can be stored.
package matrix
