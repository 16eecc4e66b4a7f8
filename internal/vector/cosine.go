// Package vector provides cosine similarity and bounded top-k selection over float64 embeddings.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is matched by every *DimensionMismatchError.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// DimensionMismatchError reports two vectors that cannot be compared.
type DimensionMismatchError struct {
	Got      int
	Expected int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Expected)
}

// Is lets errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Dot returns the inner product of a and b. Lengths must already be equal.
func Dot(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// maxAbs returns the largest absolute component of x.
func maxAbs(x []float64) float64 {
	var m float64
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// Norm returns the Euclidean length of x. Components are scaled by the largest one first so
// squaring neither overflows nor underflows.
func Norm(x []float64) float64 {
	scale := maxAbs(x)
	if scale == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		s := v / scale
		sum += s * s
	}
	return scale * math.Sqrt(sum)
}

// Cosine returns dot(a,b) / (|a|·|b|). Vectors of different length are an error, never
// truncated or padded. A zero-norm vector scores 0. Each vector is divided by its largest
// absolute component before the sums, which leaves the angle unchanged and keeps every
// intermediate finite for any finite input.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Got: len(b), Expected: len(a)}
	}
	sa, sb := maxAbs(a), maxAbs(b)
	if sa == 0 || sb == 0 {
		return 0, nil
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/sa, b[i]/sb
		dot += x * y
		normA += x * x
		normB += y * y
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push collinear vectors just past the bounds.
	return math.Max(-1, math.Min(1, cos)), nil
}
