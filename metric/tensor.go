package metric

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// ErrNotPositiveDefinite is returned when a tensor has an eigenvalue <= 0.
var ErrNotPositiveDefinite = errors.New("metric: tensor is not positive definite")

// Tensor is a symmetric 3x3 metric stored as xx, xy, xz, yy, yz, zz.
type Tensor [6]float64

// Mat3 is a dense 3x3 matrix indexed [row][col].
type Mat3 [3][3]float64

// Identity is the unit metric: physical length equals metric length.
func Identity() Tensor {
	return Tensor{1, 0, 0, 1, 0, 1}
}

// Isotropic returns the metric whose unit edge length is h.
func Isotropic(h float64) Tensor {
	s := 1 / (h * h)
	return Tensor{s, 0, 0, s, 0, s}
}

// Mat expands the tensor to a full symmetric matrix.
func (t Tensor) Mat() Mat3 {
	return Mat3{
		{t[0], t[1], t[2]},
		{t[1], t[3], t[4]},
		{t[2], t[4], t[5]},
	}
}

// Dense returns the tensor as a gonum symmetric matrix.
func (t Tensor) Dense() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		t[0], t[1], t[2],
		t[1], t[3], t[4],
		t[2], t[4], t[5],
	})
}

// Scale multiplies every component by f.
func (t Tensor) Scale(f float64) Tensor {
	for i := range t {
		t[i] *= f
	}
	return t
}

// Average is the component-wise mean of tensors.
func Average(ts ...Tensor) Tensor {
	var avg Tensor
	if len(ts) == 0 {
		return Identity()
	}
	for _, t := range ts {
		for i := range avg {
			avg[i] += t[i]
		}
	}
	return avg.Scale(1 / float64(len(ts)))
}

// Length is sqrt(vᵀ M v), the length of v measured in the metric.
func (t Tensor) Length(v r3.Vec) float64 {
	q := t[0]*v.X*v.X + t[3]*v.Y*v.Y + t[5]*v.Z*v.Z +
		2*(t[1]*v.X*v.Y+t[2]*v.X*v.Z+t[4]*v.Y*v.Z)
	if q <= 0 {
		return 0
	}
	return math.Sqrt(q)
}

// FromEigen rebuilds Σ λᵢ vᵢ vᵢᵀ.
func FromEigen(e Eigen) Tensor {
	var t Tensor
	for i := 0; i < 3; i++ {
		l, v := e.Values[i], e.Vectors[i]
		t[0] += l * v.X * v.X
		t[1] += l * v.X * v.Y
		t[2] += l * v.X * v.Z
		t[3] += l * v.Y * v.Y
		t[4] += l * v.Y * v.Z
		t[5] += l * v.Z * v.Z
	}
	return t
}

// Jacobian returns the symmetric square root J = V diag(√λ) Vᵀ, so that
// |J e| is the metric length of e and the metric ellipsoid maps to the unit
// sphere.
func Jacobian(t Tensor) (Mat3, error) {
	e, err := EigenDecompose(t)
	if err != nil {
		return Mat3{}, err
	}
	if e.Values[2] <= 0 {
		return Mat3{}, fmt.Errorf("eigenvalue %g: %w", e.Values[2], ErrNotPositiveDefinite)
	}
	var j Mat3
	for k := 0; k < 3; k++ {
		s := math.Sqrt(e.Values[k])
		v := [3]float64{e.Vectors[k].X, e.Vectors[k].Y, e.Vectors[k].Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				j[r][c] += s * v[r] * v[c]
			}
		}
	}
	return j, nil
}

// IdentityMat3 returns the 3x3 identity.
func IdentityMat3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// MulVec returns m·v.
func (m Mat3) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// MulVecTrans returns mᵀ·v. Gradients computed in metric space are pulled
// back to physical space with it.
func (m Mat3) MulVecTrans(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[1][0]*v.Y + m[2][0]*v.Z,
		Y: m[0][1]*v.X + m[1][1]*v.Y + m[2][1]*v.Z,
		Z: m[0][2]*v.X + m[1][2]*v.Y + m[2][2]*v.Z,
	}
}

// Add returns m + o.
func (m Mat3) Add(o Mat3) Mat3 {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] += o[r][c]
		}
	}
	return m
}

// Scale returns f·m.
func (m Mat3) Scale(f float64) Mat3 {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] *= f
		}
	}
	return m
}

// Det is the determinant.
func (m Mat3) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Dense copies m into a gonum matrix.
func (m Mat3) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}
