package metric

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// ErrDegenerate is returned when an eigenvector is not unique.
var ErrDegenerate = errors.New("metric: eigenvector not unique")

// Eigen holds eigenvalues in descending order with unit eigenvectors that
// form a right-handed orthonormal basis.
type Eigen struct {
	Values  [3]float64
	Vectors [3]r3.Vec
}

var axes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// EigenDecompose solves the symmetric 3x3 eigenproblem with LAPACK's
// symmetric QR iteration, which reproduces t to a few ulps of its largest
// eigenvalue even when eigenvalues repeat. Values come back descending and
// the third vector is flipped, if needed, to make the basis right-handed.
func EigenDecompose(t Tensor) (Eigen, error) {
	zero := true
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Eigen{}, fmt.Errorf("metric: non-finite tensor %v", t)
		}
		zero = zero && v == 0
	}
	if zero {
		return Eigen{Vectors: axes}, nil
	}

	var es mat.EigenSym
	if !es.Factorize(t.Dense(), true) {
		return Eigen{}, fmt.Errorf("metric: eigen decomposition of %v did not converge", t)
	}
	vals := es.Values(nil) // ascending
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	var e Eigen
	for i := 0; i < 3; i++ {
		k := 2 - i
		e.Values[i] = vals[k]
		e.Vectors[i] = r3.Vec{X: vecs.At(0, k), Y: vecs.At(1, k), Z: vecs.At(2, k)}
	}
	if r3.Dot(r3.Cross(e.Vectors[0], e.Vectors[1]), e.Vectors[2]) < 0 {
		e.Vectors[2] = r3.Scale(-1, e.Vectors[2])
	}
	return e, nil
}

// nullVector returns the best-conditioned cross product of the rows of
// A-λI, normalized, and its squared length before normalization.
func nullVector(a Tensor, lambda float64) (r3.Vec, float64) {
	row0 := r3.Vec{X: a[0] - lambda, Y: a[1], Z: a[2]}
	row1 := r3.Vec{X: a[1], Y: a[3] - lambda, Z: a[4]}
	row2 := r3.Vec{X: a[2], Y: a[4], Z: a[5] - lambda}
	c := [3]r3.Vec{r3.Cross(row0, row1), r3.Cross(row0, row2), r3.Cross(row1, row2)}
	best, bestNorm := 0, r3.Norm2(c[0])
	for i := 1; i < 3; i++ {
		if n := r3.Norm2(c[i]); n > bestNorm {
			best, bestNorm = i, n
		}
	}
	if bestNorm == 0 {
		return axes[0], 0
	}
	return r3.Scale(1/math.Sqrt(bestNorm), c[best]), bestNorm
}

// EigenVector returns the unit eigenvector of t for eigenvalue lambda. It
// fails with ErrDegenerate when lambda is repeated, since the eigenvector is
// then any vector of a plane.
func EigenVector(t Tensor, lambda float64) (r3.Vec, error) {
	scale := 0.0
	for _, v := range t {
		scale = math.Max(scale, math.Abs(v))
	}
	scale = math.Max(scale, math.Abs(lambda))
	if scale == 0 {
		return r3.Vec{}, ErrDegenerate
	}
	v, n := nullVector(t.Scale(1/scale), lambda/scale)
	if n < 1e-20 {
		return r3.Vec{}, fmt.Errorf("eigenvalue %g: %w", lambda, ErrDegenerate)
	}
	return v, nil
}
