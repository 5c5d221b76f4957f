package quality

import (
	"github.com/notargets/tetsmooth/metric"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// CellMetricMeanRatio is the mean ratio of the cell mapped into metric
// space by j. With the identity it equals CellMeanRatio, so the right unit
// tetrahedron scores 0.8399473666; this is the aspect ratio the smoother
// optimizes.
func CellMetricMeanRatio(j metric.Mat3, p0, p1, p2, p3 r3.Vec) float64 {
	return CellMeanRatio(j.MulVec(p0), j.MulVec(p1), j.MulVec(p2), j.MulVec(p3))
}

// CellMetricMeanRatioDerivative returns the metric mean ratio and its
// physical gradient with respect to p0 (Jᵀ times the metric-space gradient).
func CellMetricMeanRatioDerivative(j metric.Mat3, p0, p1, p2, p3 r3.Vec) (float64, r3.Vec) {
	q, g := CellMeanRatioDerivative(j.MulVec(p0), j.MulVec(p1), j.MulVec(p2), j.MulVec(p3))
	return q, j.MulVecTrans(g)
}

// FaceMetricMeanRatio is the face mean ratio in metric space.
func FaceMetricMeanRatio(j metric.Mat3, p0, p1, p2 r3.Vec) float64 {
	return FaceMeanRatio(j.MulVec(p0), j.MulVec(p1), j.MulVec(p2))
}

// FaceMetricMeanRatioDerivative returns the metric face mean ratio and its
// physical gradient with respect to p0.
func FaceMetricMeanRatioDerivative(j metric.Mat3, p0, p1, p2 r3.Vec) (float64, r3.Vec) {
	q, g := FaceMeanRatioDerivative(j.MulVec(p0), j.MulVec(p1), j.MulVec(p2))
	return q, j.MulVecTrans(g)
}

// unit regular tetrahedron with one vertex at the origin, edges as columns
var regularInverse = func() *mat.Dense {
	w := mat.NewDense(3, 3, []float64{
		1, 0.5, 0.5,
		0, math.Sqrt(3) / 2, math.Sqrt(3) / 6,
		0, 0, math.Sqrt(2.0 / 3.0),
	})
	var inv mat.Dense
	if err := inv.Inverse(w); err != nil {
		panic(err)
	}
	return &inv
}()

// CellMetricConformity compares the cell with the unit regular tetrahedron
// of metric m. With S the map from the unit regular tetrahedron to the cell
// in metric space, it returns sign(det S) 6/(‖S‖²+‖S⁻¹‖²) using Frobenius
// norms: 1 exactly when S is a rotation, so both shape and size matter.
func CellMetricConformity(p0, p1, p2, p3 r3.Vec, m metric.Tensor) (float64, error) {
	j, err := metric.Jacobian(m)
	if err != nil {
		return 0, err
	}
	cols := [3]r3.Vec{
		j.MulVec(r3.Sub(p1, p0)),
		j.MulVec(r3.Sub(p2, p0)),
		j.MulVec(r3.Sub(p3, p0)),
	}
	e := mat.NewDense(3, 3, nil)
	for c, v := range cols {
		e.Set(0, c, v.X)
		e.Set(1, c, v.Y)
		e.Set(2, c, v.Z)
	}
	var s, sInv mat.Dense
	s.Mul(e, regularInverse)
	det := mat.Det(&s)
	if det == 0 {
		return 0, nil
	}
	if err := sInv.Inverse(&s); err != nil {
		return 0, nil
	}
	fs, fi := mat.Norm(&s, 2), mat.Norm(&sInv, 2)
	return math.Copysign(6/(fs*fs+fi*fi), det), nil
}
