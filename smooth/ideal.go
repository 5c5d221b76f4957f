package smooth

import (
	"fmt"
	"github.com/notargets/tetsmooth/quality"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// idealHeight is the altitude of the unit-edge regular tetrahedron.
var idealHeight = math.Sqrt(6) / 3

const idealTries = 8

// idealPoint is the quality-weighted average over the node's cells of the
// apex that would make each cell regular on its opposite face, measured in
// the node's metric. Poor cells get the largest weights.
func (o *Optimizer) idealPoint(node int) (r3.Vec, error) {
	cells, err := o.Mesh.CellsAround(node)
	if err != nil {
		return r3.Vec{}, err
	}
	if len(cells) == 0 {
		return r3.Vec{}, fmt.Errorf("node %d cells: %w", node, quality.ErrNoElements)
	}
	m, err := o.Metric.Map(node)
	if err != nil {
		return r3.Vec{}, err
	}
	var (
		sum    r3.Vec
		weight float64
	)
	for _, c := range cells {
		nodes, err := o.Mesh.Cell(c)
		if err != nil {
			return r3.Vec{}, err
		}
		p, err := o.Mesh.CellPoints(c)
		if err != nil {
			return r3.Vec{}, err
		}
		for k, n := range nodes {
			if n == node {
				p = quality.RotateCell(p, k)
				break
			}
		}
		// b c d keep their right-handed order, so the inward normal of
		// the face seen from the node is -(c-b)x(d-b).
		dn := r3.Unit(r3.Cross(r3.Sub(p[2], p[1]), r3.Sub(p[3], p[1])))
		dn = r3.Scale(-1, dn)
		l := m.Length(dn)
		if l == 0 || math.IsNaN(dn.X) {
			continue
		}
		centroid := r3.Scale(1.0/3.0, r3.Add(p[1], r3.Add(p[2], p[3])))
		ideal := r3.Add(centroid, r3.Scale(idealHeight/l, dn))
		q, err := o.Assess.CellAR(c)
		if err != nil {
			return r3.Vec{}, err
		}
		w := 1 / math.Max(q, o.Config.MinQuality)
		sum = r3.Add(sum, r3.Scale(w, ideal))
		weight += w
	}
	if weight == 0 {
		return r3.Vec{}, fmt.Errorf("node %d: degenerate cells: %w", node, ErrNoImprovement)
	}
	return r3.Scale(1/weight, sum), nil
}

// SmoothNodeIdeal moves an interior node toward the weighted ideal apex of
// its cells, halving the step until the node aspect ratio improves.
func (o *Optimizer) SmoothNodeIdeal(node int) error {
	mv, err := o.interiorMove(node)
	if err != nil {
		return err
	}
	ideal, err := o.idealPoint(node)
	if err != nil {
		return err
	}
	q0, err := o.Assess.NodeAR(node)
	if err != nil {
		return err
	}
	d := []float64{ideal.X - mv.origin[0], ideal.Y - mv.origin[1], ideal.Z - mv.origin[2]}
	alpha := 1.0
	for try := 0; try < idealTries; try++ {
		p := mv.along(alpha, d)
		if q := mv.evaluate(p, o.Assess.NodeAR); q > q0 {
			return mv.commit(p, "smooth_node_ideal", q0, q)
		}
		alpha /= 2
	}
	return o.reject("smooth_node_ideal", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
}

// simplexPenalty scores invalid probes above any reachable -AR.
const simplexPenalty = 2.0

// SmoothNodeSimplex maximizes the aspect ratio of an interior node with a
// derivative-free Nelder-Mead search in xyz.
func (o *Optimizer) SmoothNodeSimplex(node int) error {
	mv, err := o.interiorMove(node)
	if err != nil {
		return err
	}
	q0, err := o.Assess.NodeAR(node)
	if err != nil {
		return err
	}
	h, err := o.Metric.AverageEdgeLength(node)
	if err != nil || h == 0 {
		h = 1
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			q := mv.evaluate(x, o.Assess.NodeAR)
			if math.IsInf(q, -1) {
				return simplexPenalty
			}
			return -q
		},
	}
	settings := &optimize.Settings{
		MajorIterations: o.Config.SimplexEvaluations,
		FuncEvaluations: o.Config.SimplexEvaluations,
	}
	x0 := append([]float64(nil), mv.origin...)
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: o.Config.InitialStep * h})
	if result == nil {
		return o.reject("smooth_node_simplex", node, fmt.Errorf("node %d: %v: %w", node, err, ErrNoImprovement))
	}
	// Re-measure: the search reports its own best, but only a strictly
	// better valid point is committed.
	if q := mv.evaluate(result.X, o.Assess.NodeAR); q > q0 {
		return mv.commit(result.X, "smooth_node_simplex", q0, q)
	}
	return o.reject("smooth_node_simplex", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
}
