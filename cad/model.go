package cad

import (
	"fmt"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// Curve is a parametric curve x(t).
type Curve interface {
	Point(t float64) r3.Vec
	Tangent(t float64) r3.Vec
	// Parameter returns the t of the closest point to p.
	Parameter(p r3.Vec) float64
}

// Surface is a parametric surface x(u,v).
type Surface interface {
	Point(uv [2]float64) r3.Vec
	Tangents(uv [2]float64) (du, dv r3.Vec)
	// Parameter returns the (u,v) of the closest point to p.
	Parameter(p r3.Vec) [2]float64
}

// Line is Origin + t Dir.
type Line struct {
	Origin, Dir r3.Vec
}

func (l Line) Point(t float64) r3.Vec { return r3.Add(l.Origin, r3.Scale(t, l.Dir)) }
func (l Line) Tangent(float64) r3.Vec { return l.Dir }
func (l Line) Parameter(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, l.Origin), l.Dir) / r3.Norm2(l.Dir)
}

// Circle lies in the plane of the orthonormal axes U and V, with t the angle
// from U toward V.
type Circle struct {
	Center r3.Vec
	Radius float64
	U, V   r3.Vec
}

func (c Circle) Point(t float64) r3.Vec {
	s, co := math.Sincos(t)
	return r3.Add(c.Center, r3.Scale(c.Radius, r3.Add(r3.Scale(co, c.U), r3.Scale(s, c.V))))
}

func (c Circle) Tangent(t float64) r3.Vec {
	s, co := math.Sincos(t)
	return r3.Scale(c.Radius, r3.Add(r3.Scale(-s, c.U), r3.Scale(co, c.V)))
}

func (c Circle) Parameter(p r3.Vec) float64 {
	d := r3.Sub(p, c.Center)
	return math.Atan2(r3.Dot(d, c.V), r3.Dot(d, c.U))
}

// Plane is Origin + u U + v V with U and V orthogonal.
type Plane struct {
	Origin, U, V r3.Vec
}

func (pl Plane) Point(uv [2]float64) r3.Vec {
	return r3.Add(pl.Origin, r3.Add(r3.Scale(uv[0], pl.U), r3.Scale(uv[1], pl.V)))
}

func (pl Plane) Tangents([2]float64) (du, dv r3.Vec) { return pl.U, pl.V }

func (pl Plane) Parameter(p r3.Vec) [2]float64 {
	d := r3.Sub(p, pl.Origin)
	return [2]float64{r3.Dot(d, pl.U) / r3.Norm2(pl.U), r3.Dot(d, pl.V) / r3.Norm2(pl.V)}
}

// Sphere uses u as the azimuth about +z and v as the polar angle from +z.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

func (s Sphere) Point(uv [2]float64) r3.Vec {
	su, cu := math.Sincos(uv[0])
	sv, cv := math.Sincos(uv[1])
	return r3.Add(s.Center, r3.Scale(s.Radius, r3.Vec{X: sv * cu, Y: sv * su, Z: cv}))
}

func (s Sphere) Tangents(uv [2]float64) (du, dv r3.Vec) {
	su, cu := math.Sincos(uv[0])
	sv, cv := math.Sincos(uv[1])
	du = r3.Scale(s.Radius, r3.Vec{X: -sv * su, Y: sv * cu})
	dv = r3.Scale(s.Radius, r3.Vec{X: cv * cu, Y: cv * su, Z: -sv})
	return
}

// Parameter maps the center itself to the pole.
func (s Sphere) Parameter(p r3.Vec) [2]float64 {
	d := r3.Sub(p, s.Center)
	l := r3.Norm(d)
	if l == 0 {
		return [2]float64{}
	}
	return [2]float64{math.Atan2(d.Y, d.X), math.Acos(math.Max(-1, math.Min(1, d.Z/l)))}
}

// Model is an Evaluator over analytic curves and surfaces registered by
// geometry id. Curve and surface ids live in separate namespaces.
type Model struct {
	curves   map[int]Curve
	surfaces map[int]Surface
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{curves: map[int]Curve{}, surfaces: map[int]Surface{}}
}

// AddCurve registers c under each of the geometry ids.
func (m *Model) AddCurve(c Curve, geoms ...int) *Model {
	for _, g := range geoms {
		m.curves[g] = c
	}
	return m
}

// AddSurface registers s under each of the geometry ids.
func (m *Model) AddSurface(s Surface, geoms ...int) *Model {
	for _, g := range geoms {
		m.surfaces[g] = s
	}
	return m
}

func (m *Model) curve(geom int) (Curve, error) {
	c, ok := m.curves[geom]
	if !ok {
		return nil, fmt.Errorf("curve %d: %w", geom, ErrUnknownGeometry)
	}
	return c, nil
}

func (m *Model) surface(geom int) (Surface, error) {
	s, ok := m.surfaces[geom]
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", geom, ErrUnknownGeometry)
	}
	return s, nil
}

func (m *Model) EdgePoint(geom int, t float64) (r3.Vec, error) {
	c, err := m.curve(geom)
	if err != nil {
		return r3.Vec{}, err
	}
	return c.Point(t), nil
}

func (m *Model) FacePoint(geom int, uv [2]float64) (r3.Vec, error) {
	s, err := m.surface(geom)
	if err != nil {
		return r3.Vec{}, err
	}
	return s.Point(uv), nil
}

func (m *Model) EdgeParameter(geom int, p r3.Vec) (float64, error) {
	c, err := m.curve(geom)
	if err != nil {
		return 0, err
	}
	return c.Parameter(p), nil
}

func (m *Model) FaceParameter(geom int, p r3.Vec) ([2]float64, error) {
	s, err := m.surface(geom)
	if err != nil {
		return [2]float64{}, err
	}
	return s.Parameter(p), nil
}

func (m *Model) EdgeTangent(geom int, t float64) (r3.Vec, error) {
	c, err := m.curve(geom)
	if err != nil {
		return r3.Vec{}, err
	}
	return c.Tangent(t), nil
}

func (m *Model) FaceTangents(geom int, uv [2]float64) (du, dv r3.Vec, err error) {
	s, err := m.surface(geom)
	if err != nil {
		return r3.Vec{}, r3.Vec{}, err
	}
	du, dv = s.Tangents(uv)
	return du, dv, nil
}
