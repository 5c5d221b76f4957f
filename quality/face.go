package quality

import (
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// FaceArea is the unsigned area of triangle p0 p1 p2.
func FaceArea(p0, p1, p2 r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0)))
}

// FaceAreaDerivative returns the area and its gradient with respect to p0.
func FaceAreaDerivative(p0, p1, p2 r3.Vec) (float64, r3.Vec) {
	return FaceArea(p0, p1, p2), faceAreaGrad(p0, p1, p2)
}

// faceAreaGrad is ½ n̂ × (p2 - p1), zero for a degenerate triangle.
func faceAreaGrad(p0, p1, p2 r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(0.5/l, r3.Cross(n, r3.Sub(p2, p1)))
}

// FaceAspectRatio is 2 r_in / r_circ = 16A²/(P·abc). Equilateral triangles
// score 1, the right isosceles triangle 2(√2-1).
func FaceAspectRatio(p0, p1, p2 r3.Vec) float64 {
	a := r3.Norm(r3.Sub(p1, p0))
	b := r3.Norm(r3.Sub(p2, p1))
	c := r3.Norm(r3.Sub(p0, p2))
	den := (a + b + c) * a * b * c
	if den == 0 {
		return 0
	}
	area := FaceArea(p0, p1, p2)
	return 16 * area * area / den
}

func sumFaceEdgeLength2(p0, p1, p2 r3.Vec) float64 {
	return r3.Norm2(r3.Sub(p1, p0)) + r3.Norm2(r3.Sub(p2, p1)) + r3.Norm2(r3.Sub(p0, p2))
}

// FaceMeanRatio is 4√3 A / Σ l², 1 for an equilateral triangle.
func FaceMeanRatio(p0, p1, p2 r3.Vec) float64 {
	l2 := sumFaceEdgeLength2(p0, p1, p2)
	if l2 == 0 {
		return 0
	}
	return 4 * math.Sqrt(3) * FaceArea(p0, p1, p2) / l2
}

// FaceMeanRatioDerivative returns the face mean ratio and its gradient with
// respect to p0.
func FaceMeanRatioDerivative(p0, p1, p2 r3.Vec) (float64, r3.Vec) {
	l2 := sumFaceEdgeLength2(p0, p1, p2)
	if l2 == 0 {
		return 0, r3.Vec{}
	}
	area, da := FaceAreaDerivative(p0, p1, p2)
	dl2 := r3.Scale(-2, r3.Add(r3.Sub(p1, p0), r3.Sub(p2, p0)))
	k := 4 * math.Sqrt(3)
	grad := r3.Scale(k/(l2*l2), r3.Sub(r3.Scale(l2, da), r3.Scale(area, dl2)))
	return k * area / l2, grad
}

// FaceAreaUV is the signed area of the triangle in surface parameter space.
// It changes sign when the winding of the corners reverses.
func FaceAreaUV(uv0, uv1, uv2 [2]float64) float64 {
	return 0.5 * ((uv1[0]-uv0[0])*(uv2[1]-uv0[1]) - (uv2[0]-uv0[0])*(uv1[1]-uv0[1]))
}

// FaceAreaUVDerivative returns the parametric area and its gradient with
// respect to uv0.
func FaceAreaUVDerivative(uv0, uv1, uv2 [2]float64) (float64, [2]float64) {
	grad := [2]float64{0.5 * (uv1[1] - uv2[1]), 0.5 * (uv2[0] - uv1[0])}
	return FaceAreaUV(uv0, uv1, uv2), grad
}

// FaceNormal is the unit normal of p0 p1 p2 by the right-hand rule, zero for
// a degenerate triangle.
func FaceNormal(p0, p1, p2 r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}
