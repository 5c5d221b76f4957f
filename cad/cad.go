// Package cad connects mesh nodes to the curves and surfaces they discretize.
//
// An Evaluator answers point and closest-parameter queries by geometry id.
// The mesh stores a curve parameter t on every boundary edge end and a
// surface parameter (u,v) on every boundary face corner; the functions in
// this package keep those parameters consistent with node coordinates.
package cad

import (
	"errors"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrUnknownGeometry is returned for geometry ids the evaluator does not
	// know.
	ErrUnknownGeometry = errors.New("cad: unknown geometry")
	// ErrNotAttached is returned when a node carries no parameter on the
	// requested geometry.
	ErrNotAttached = errors.New("cad: node not attached to geometry")
	// ErrOnCurve is returned when a surface evaluation is requested for a
	// node that is held by a curve.
	ErrOnCurve = errors.New("cad: node constrained to a curve")
)

// Evaluator maps parameters to points and points to closest parameters.
type Evaluator interface {
	EdgePoint(geom int, t float64) (r3.Vec, error)
	FacePoint(geom int, uv [2]float64) (r3.Vec, error)
	EdgeParameter(geom int, p r3.Vec) (float64, error)
	FaceParameter(geom int, p r3.Vec) ([2]float64, error)
}

// Differentiable is implemented by evaluators with analytic tangents.
type Differentiable interface {
	EdgeTangent(geom int, t float64) (r3.Vec, error)
	FaceTangents(geom int, uv [2]float64) (du, dv r3.Vec, err error)
}

// step for central differences when the evaluator has no tangents
const fdStep = 1e-6

// EdgeTangent returns dx/dt on curve geom, analytically when ev is
// Differentiable and by central differences otherwise.
func EdgeTangent(ev Evaluator, geom int, t float64) (r3.Vec, error) {
	if d, ok := ev.(Differentiable); ok {
		return d.EdgeTangent(geom, t)
	}
	hi, err := ev.EdgePoint(geom, t+fdStep)
	if err != nil {
		return r3.Vec{}, err
	}
	lo, err := ev.EdgePoint(geom, t-fdStep)
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Scale(0.5/fdStep, r3.Sub(hi, lo)), nil
}

// FaceTangents returns dx/du and dx/dv on surface geom.
func FaceTangents(ev Evaluator, geom int, uv [2]float64) (du, dv r3.Vec, err error) {
	if d, ok := ev.(Differentiable); ok {
		return d.FaceTangents(geom, uv)
	}
	diff := func(k int) (r3.Vec, error) {
		hi, lo := uv, uv
		hi[k] += fdStep
		lo[k] -= fdStep
		ph, err := ev.FacePoint(geom, hi)
		if err != nil {
			return r3.Vec{}, err
		}
		pl, err := ev.FacePoint(geom, lo)
		if err != nil {
			return r3.Vec{}, err
		}
		return r3.Scale(0.5/fdStep, r3.Sub(ph, pl)), nil
	}
	if du, err = diff(0); err != nil {
		return
	}
	dv, err = diff(1)
	return
}
