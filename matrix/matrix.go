package matrix

import (
	"fmt"
	"math"
)

// MaxEntry is the largest magnitude allowed for any matrix entry.
//
// Keeping entries within 31 bits guarantees that every pairwise product
// computed by the relation predicates (and by SQL backends using 64-bit
// integers) fits exactly in an int64.
const MaxEntry = math.MaxInt32

// Matrix is a signed 2x2 integer matrix [[M11, M12], [M21, M22]].
type Matrix struct {
	M11, M12, M21, M22 int64
}

// Generator returns the fixed-shape matrix (index+1, -1, 1, 0) that,
// composed onto a parent matrix, encodes the child at the given
// generator index.
func Generator(index int64) Matrix {
	return Matrix{index + 1, -1, 1, 0}
}

// Compose returns the matrix product m*n.
//
// Both inputs must already be within MaxEntry; the result is checked and
// ErrOverflow returned if any entry's magnitude exceeds MaxEntry.
func Compose(m, n Matrix) (Matrix, error) {
	if err := checkWidth(m); err != nil {
		return Matrix{}, err
	}
	if err := checkWidth(n); err != nil {
		return Matrix{}, err
	}
	p := Matrix{
		M11: m.M11*n.M11 + m.M12*n.M21,
		M12: m.M11*n.M12 + m.M12*n.M22,
		M21: m.M21*n.M11 + m.M22*n.M21,
		M22: m.M21*n.M12 + m.M22*n.M22,
	}
	if err := checkWidth(p); err != nil {
		return Matrix{}, err
	}
	return p, nil
}

// Det returns the determinant of m.
func (m Matrix) Det() int64 {
	return m.M11*m.M22 - m.M12*m.M21
}

func checkWidth(m Matrix) error {
	for _, v := range [4]int64{m.M11, m.M12, m.M21, m.M22} {
		if v > MaxEntry || v < -MaxEntry {
			return fmt.Errorf("%w: entry %d exceeds %d", ErrOverflow, v, int64(MaxEntry))
		}
	}
	return nil
}
