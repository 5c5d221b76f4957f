package smooth

import (
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// laplacianPoint is the average of the node's edge neighbors.
func (o *Optimizer) laplacianPoint(node int) (r3.Vec, error) {
	nbrs, err := o.Mesh.NodeNeighbors(node)
	if err != nil {
		return r3.Vec{}, err
	}
	if len(nbrs) == 0 {
		return r3.Vec{}, fmt.Errorf("laplacian node %d: no neighbors: %w", node, ErrNotMovable)
	}
	return o.Mesh.Centroid(nbrs), nil
}

func (o *Optimizer) interiorMove(node int) (*move, error) {
	return o.classMove(node, mesh.Interior)
}

// Laplacian moves an interior node to the average of its neighbors when
// that keeps the smallest incident volume positive and no smaller.
func (o *Optimizer) Laplacian(node int) error {
	mv, err := o.interiorMove(node)
	if err != nil {
		return err
	}
	target, err := o.laplacianPoint(node)
	if err != nil {
		return err
	}
	v0, err := o.Assess.NodeMinVolume(node)
	if err != nil {
		return err
	}
	p := []float64{target.X, target.Y, target.Z}
	v := mv.evaluate(p, o.Assess.NodeMinVolume)
	if !(v > 0) {
		return o.reject("laplacian", node, fmt.Errorf("node %d: %w", node, ErrInvalidMove))
	}
	if v < v0 {
		return o.reject("laplacian", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
	}
	return mv.commit(p, "laplacian", v0, v)
}

// SmartLaplacian moves an interior node toward the average of its
// neighbors only when its aspect ratio improves, halving the step up to
// BackoffRetries times before giving up.
func (o *Optimizer) SmartLaplacian(node int) error {
	mv, err := o.interiorMove(node)
	if err != nil {
		return err
	}
	target, err := o.laplacianPoint(node)
	if err != nil {
		return err
	}
	q0, err := o.Assess.NodeAR(node)
	if err != nil {
		return err
	}
	d := []float64{target.X - mv.origin[0], target.Y - mv.origin[1], target.Z - mv.origin[2]}
	alpha := 1.0
	for try := 0; try <= o.Config.BackoffRetries; try++ {
		p := mv.along(alpha, d)
		if try == 0 {
			p = []float64{target.X, target.Y, target.Z}
		}
		if q := mv.evaluate(p, o.Assess.NodeAR); q > q0 {
			return mv.commit(p, "smart_laplacian", q0, q)
		}
		alpha /= 2
	}
	return o.reject("smart_laplacian", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
}
