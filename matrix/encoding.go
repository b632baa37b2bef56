package matrix

import "fmt"

// Encoding is the sign-normalized storage form of a node matrix: four
// non-negative integers persisted as columns. The signed matrix is
// (A11, -A12, A21, -A22).
type Encoding struct {
	A11, A12, A21, A22 int64
}

// Signed returns the signed matrix for e.
func (e Encoding) Signed() Matrix {
	return Matrix{e.A11, -e.A12, e.A21, -e.A22}
}

// normalize converts a signed matrix to its storage form.
func normalize(m Matrix) Encoding {
	return Encoding{abs(m.M11), abs(m.M12), abs(m.M21), abs(m.M22)}
}

// Root returns the encoding of a root node at the given 0-based position.
// A root's matrix is the bare generator: (position+1, -1, 1, 0).
func Root(position int64) (Encoding, error) {
	if position < 0 {
		return Encoding{}, fmt.Errorf("%w: %d", ErrPosition, position)
	}
	if position+1 > MaxEntry {
		return Encoding{}, fmt.Errorf("%w: root position %d", ErrOverflow, position)
	}
	return normalize(Generator(position)), nil
}

// Child returns the encoding of the child of parent at the given 0-based
// sibling position.
//
// Internally the generator index is position+1: the original scheme
// numbers children from 1 so that composed entries stay strictly
// positive. A zero generator index would produce a zero a11 and, one
// level deeper, a zero a12 that breaks position recovery and the
// ancestry inequalities.
func Child(parent Encoding, position int64) (Encoding, error) {
	if position < 0 {
		return Encoding{}, fmt.Errorf("%w: %d", ErrPosition, position)
	}
	if err := parent.Validate(); err != nil {
		return Encoding{}, fmt.Errorf("parent encoding: %w", err)
	}
	m, err := Compose(parent.Signed(), Generator(position+1))
	if err != nil {
		return Encoding{}, err
	}
	if d := m.Det(); d != 1 && d != -1 {
		return Encoding{}, fmt.Errorf("%w: composed determinant %d", ErrInvariant, d)
	}
	e := normalize(m)
	if e.A12 != parent.A11 || e.A22 != parent.A21 {
		return Encoding{}, fmt.Errorf("%w: child column (%d,%d) does not match parent (%d,%d)",
			ErrInvariant, e.A12, e.A22, parent.A11, parent.A21)
	}
	return e, nil
}

// IsRoot reports whether e encodes a root node. Only roots have a21 == 1;
// every child's a21 strictly exceeds its parent's.
func (e Encoding) IsRoot() bool {
	return e.A21 == 1
}

// Position recovers the 0-based sibling position encoded by e.
//
// The encoding is validated first: integer division would silently
// return a wrong position for a corrupted or tampered encoding, so
// ErrInvariant is surfaced instead of a bogus result.
func (e Encoding) Position() (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if e.IsRoot() {
		return e.A11 - 1, nil
	}
	return e.A11/e.A12 - 1, nil
}

// Validate checks the storage invariants: entries non-negative and within
// MaxEntry, signed determinant of magnitude 1, and the sign/shape
// constraints that every constructible encoding satisfies.
func (e Encoding) Validate() error {
	for _, v := range [4]int64{e.A11, e.A12, e.A21, e.A22} {
		if v < 0 || v > MaxEntry {
			return fmt.Errorf("%w: entry %d out of range", ErrInvariant, v)
		}
	}
	// det of the signed matrix (a11, -a12, a21, -a22)
	if d := e.A12*e.A21 - e.A11*e.A22; d != 1 && d != -1 {
		return fmt.Errorf("%w: determinant %d", ErrInvariant, d)
	}
	if e.IsRoot() {
		if e.A12 != 1 || e.A22 != 0 || e.A11 < 1 {
			return fmt.Errorf("%w: malformed root encoding %v", ErrInvariant, e)
		}
		return nil
	}
	if e.A12 < 1 || e.A11 < e.A12 || e.A22 < 1 || e.A21 <= e.A22 {
		return fmt.Errorf("%w: malformed child encoding %v", ErrInvariant, e)
	}
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
