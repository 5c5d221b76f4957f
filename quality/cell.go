package quality

import (
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// All derivatives in this package are taken with respect to the FIRST point
// argument only; the remaining points are held fixed. To differentiate with
// respect to another node, rotate the argument list with RotateCell or
// RotateFace so that node comes first.

// CellVolume is the signed volume of tetrahedron p0..p3, positive when
// (p1-p0, p2-p0, p3-p0) is right handed.
func CellVolume(p0, p1, p2, p3 r3.Vec) float64 {
	a, b, c := r3.Sub(p1, p0), r3.Sub(p2, p0), r3.Sub(p3, p0)
	return r3.Dot(a, r3.Cross(b, c)) / 6
}

// CellVolumeDerivative returns the volume and its gradient with respect to p0.
func CellVolumeDerivative(p0, p1, p2, p3 r3.Vec) (float64, r3.Vec) {
	grad := r3.Scale(1.0/6.0, r3.Cross(r3.Sub(p3, p1), r3.Sub(p2, p1)))
	return CellVolume(p0, p1, p2, p3), grad
}

func sumEdgeLength2(p0, p1, p2, p3 r3.Vec) float64 {
	return r3.Norm2(r3.Sub(p1, p0)) + r3.Norm2(r3.Sub(p2, p0)) + r3.Norm2(r3.Sub(p3, p0)) +
		r3.Norm2(r3.Sub(p2, p1)) + r3.Norm2(r3.Sub(p3, p1)) + r3.Norm2(r3.Sub(p3, p2))
}

// CellMeanRatio is 12 (3|V|)^(2/3) sign(V) / Σ l², which is 1 for a regular
// tetrahedron, 0 when flat and negative when inverted. The right unit
// tetrahedron scores 0.8399473666.
func CellMeanRatio(p0, p1, p2, p3 r3.Vec) float64 {
	l2 := sumEdgeLength2(p0, p1, p2, p3)
	if l2 == 0 {
		return 0
	}
	v := CellVolume(p0, p1, p2, p3)
	return 12 * math.Copysign(math.Cbrt(9*v*v), v) / l2
}

// CellMeanRatioDerivative returns the mean ratio and its gradient with
// respect to p0. The gradient is zero for a flat cell where the cube root is
// not differentiable.
func CellMeanRatioDerivative(p0, p1, p2, p3 r3.Vec) (float64, r3.Vec) {
	l2 := sumEdgeLength2(p0, p1, p2, p3)
	v, dv := CellVolumeDerivative(p0, p1, p2, p3)
	if l2 == 0 || v == 0 {
		return 0, r3.Vec{}
	}
	s := math.Copysign(1, v)
	a := 3 * math.Abs(v)
	a23 := math.Cbrt(a * a)
	q := 12 * s * a23 / l2

	// d(a^(2/3))/dp0 = 2 a^(-1/3) s dv, since da = 3 s dv
	e1, e2, e3 := r3.Sub(p1, p0), r3.Sub(p2, p0), r3.Sub(p3, p0)
	dl2 := r3.Scale(-2, r3.Add(e1, r3.Add(e2, e3)))
	grad := r3.Sub(
		r3.Scale(12*2/(math.Cbrt(a)*l2), dv),
		r3.Scale(12*s*a23/(l2*l2), dl2),
	)
	return q, grad
}

// CellAspectRatio is the geometric aspect ratio 3 r_in / r_circ, signed like
// the volume. It is 1 for a regular tetrahedron and √3-1 for the right unit
// tetrahedron.
func CellAspectRatio(p0, p1, p2, p3 r3.Vec) float64 {
	q, _ := cellAspectRatio(p0, p1, p2, p3, false)
	return q
}

// CellAspectRatioDerivative returns the geometric aspect ratio and its
// gradient with respect to p0.
func CellAspectRatioDerivative(p0, p1, p2, p3 r3.Vec) (float64, r3.Vec) {
	return cellAspectRatio(p0, p1, p2, p3, true)
}

// cellAspectRatio evaluates 9V/(S R) with S the total face area and R the
// circumradius. With r_in = 3V/S this is 3 r_in / R.
func cellAspectRatio(p0, p1, p2, p3 r3.Vec, derivative bool) (float64, r3.Vec) {
	a, b, c := r3.Sub(p1, p0), r3.Sub(p2, p0), r3.Sub(p3, p0)
	d := 2 * r3.Dot(a, r3.Cross(b, c)) // 12 V
	if d == 0 {
		return 0, r3.Vec{}
	}
	bc, ca, ab := r3.Cross(b, c), r3.Cross(c, a), r3.Cross(a, b)
	na, nb, nc := r3.Norm2(a), r3.Norm2(b), r3.Norm2(c)
	num := r3.Add(r3.Scale(na, bc), r3.Add(r3.Scale(nb, ca), r3.Scale(nc, ab)))
	o := r3.Scale(1/d, num) // circumcenter - p0
	radius := r3.Norm(o)

	v := d / 12
	s := FaceArea(p0, p1, p2) + FaceArea(p0, p2, p3) + FaceArea(p0, p3, p1) + FaceArea(p1, p2, p3)
	if s == 0 || radius == 0 {
		return 0, r3.Vec{}
	}
	q := 9 * v / (s * radius)
	if !derivative {
		return q, r3.Vec{}
	}

	_, dv := CellVolumeDerivative(p0, p1, p2, p3)
	ds := r3.Add(faceAreaGrad(p0, p1, p2), r3.Add(faceAreaGrad(p0, p2, p3), faceAreaGrad(p0, p3, p1)))

	// a, b and c all move by -δ when p0 moves by δ.
	var dr r3.Vec
	for k, delta := range axes {
		dnum := r3.Scale(-2*r3.Dot(a, delta), bc)
		dnum = r3.Add(dnum, r3.Scale(na, r3.Cross(r3.Sub(c, b), delta)))
		dnum = r3.Add(dnum, r3.Scale(-2*r3.Dot(b, delta), ca))
		dnum = r3.Add(dnum, r3.Scale(nb, r3.Cross(r3.Sub(a, c), delta)))
		dnum = r3.Add(dnum, r3.Scale(-2*r3.Dot(c, delta), ab))
		dnum = r3.Add(dnum, r3.Scale(nc, r3.Cross(r3.Sub(b, a), delta)))
		dd := 12 * r3.Dot(dv, delta)
		do := r3.Scale(1/d, r3.Sub(dnum, r3.Scale(dd, o)))
		setComponent(&dr, k, r3.Dot(o, do)/radius)
	}

	sr := s * radius
	dsr := r3.Add(r3.Scale(radius, ds), r3.Scale(s, dr))
	grad := r3.Scale(9/(sr*sr), r3.Sub(r3.Scale(sr, dv), r3.Scale(v, dsr)))
	return q, grad
}

var axes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

func setComponent(v *r3.Vec, k int, x float64) {
	switch k {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}

// RotateCell returns an even permutation of nodes that puts nodes[k] first,
// preserving orientation.
func RotateCell[T any](nodes [4]T, k int) [4]T {
	switch k {
	case 1:
		return [4]T{nodes[1], nodes[0], nodes[3], nodes[2]}
	case 2:
		return [4]T{nodes[2], nodes[3], nodes[0], nodes[1]}
	case 3:
		return [4]T{nodes[3], nodes[2], nodes[1], nodes[0]}
	}
	return nodes
}

// RotateFace cycles nodes so nodes[k] comes first, preserving winding.
func RotateFace[T any](nodes [3]T, k int) [3]T {
	switch k {
	case 1:
		return [3]T{nodes[1], nodes[2], nodes[0]}
	case 2:
		return [3]T{nodes[2], nodes[0], nodes[1]}
	}
	return nodes
}
