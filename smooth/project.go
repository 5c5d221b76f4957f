package smooth

import (
	"fmt"
	"github.com/notargets/tetsmooth/cad"
	"github.com/notargets/tetsmooth/mesh"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// SafeProjectNode puts a boundary node back on its geometry without
// inverting its cells. When the full projection inverts a cell, the
// displacement is scaled by ratio, ratio², ... up to BackoffRetries times
// and the first valid partial displacement is kept with its parametric data
// unchanged, returning ErrBackedOff. When nothing is valid the node is
// restored exactly and ErrRetryExhausted is returned. A ratio of 1 or more
// accepts only the full projection; a ratio of 0 or less is a zero
// displacement and returns ErrRetryExhausted without touching the node.
// Interior and fixed nodes are left alone.
func (o *Optimizer) SafeProjectNode(node int, ratio float64) error {
	if o.Mesh.Frozen(node) {
		return fmt.Errorf("node %d: %w", node, ErrFrozen)
	}
	class, err := o.Mesh.Classify(node)
	if err != nil {
		return err
	}
	if class == mesh.Interior || class == mesh.Fixed {
		return nil
	}
	if o.CAD == nil {
		return fmt.Errorf("node %d: %w", node, ErrNoGeometry)
	}
	if !(ratio > 0) {
		return o.reject("safe_project", node, fmt.Errorf("node %d: zero displacement: %w", node, ErrRetryExhausted))
	}
	saved, err := o.Mesh.SaveNode(node)
	if err != nil {
		return err
	}
	if err := cad.ProjectNode(o.Mesh, o.CAD, node); err != nil {
		_ = o.Mesh.RestoreNode(saved)
		return err
	}
	if o.cellsPositive(node) {
		return nil
	}
	target, _ := o.Mesh.Node(node)
	d := r3.Sub(target, saved.X)
	for k := 1; ratio < 1 && k <= o.Config.BackoffRetries; k++ {
		d = r3.Scale(ratio, d)
		if d == (r3.Vec{}) {
			break
		}
		_ = o.Mesh.RestoreNode(saved)
		if err := o.Mesh.SetNode(node, r3.Add(saved.X, d)); err != nil {
			return err
		}
		if o.cellsPositive(node) {
			o.Log.WithFields(logrus.Fields{"op": "safe_project", "node": node, "tries": k}).Debug("projection backed off")
			return fmt.Errorf("node %d after %d tries: %w", node, k, ErrBackedOff)
		}
	}
	_ = o.Mesh.RestoreNode(saved)
	return o.reject("safe_project", node, fmt.Errorf("node %d: %w", node, ErrRetryExhausted))
}

// Project fully projects every thawed boundary node whose projection keeps
// its cells valid. Nodes that cannot be projected are left in place and
// counted in the returned error, which wraps the first failure.
func (o *Optimizer) Project() error {
	var (
		first  error
		failed int
		tried  int
	)
	for _, node := range o.Mesh.NodeIDs() {
		if o.Mesh.Frozen(node) {
			continue
		}
		tried++
		if err := o.SafeProjectNode(node, 1); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	o.Log.WithFields(logrus.Fields{"op": "project", "nodes": tried, "failed": failed}).Info("pass done")
	if first != nil {
		return fmt.Errorf("project: %d of %d nodes failed: %w", failed, tried, first)
	}
	return nil
}

// FreezeGoodNodes freezes every thawed node whose edge ratios all lie in
// (minRatio, maxRatio), whose aspect ratio exceeds goodAR and which sits
// on its geometry. It returns the number of nodes frozen.
func (o *Optimizer) FreezeGoodNodes(goodAR, minRatio, maxRatio float64) (int, error) {
	frozen := 0
	for _, node := range o.Mesh.NodeIDs() {
		if o.Mesh.Frozen(node) {
			continue
		}
		_, longest, err := o.Metric.LargestRatioEdge(node)
		if err != nil {
			continue
		}
		_, shortest, err := o.Metric.SmallestRatioEdge(node)
		if err != nil {
			continue
		}
		if !(longest < maxRatio && shortest > minRatio) {
			continue
		}
		q, err := o.Assess.NodeAR(node)
		if err != nil || !(q > goodAR) {
			continue
		}
		if err := o.SafeProjectNode(node, 1); err != nil {
			continue
		}
		if err := o.Mesh.Freeze(node); err != nil {
			return frozen, err
		}
		frozen++
	}
	o.Log.WithFields(logrus.Fields{"op": "freeze_good_nodes", "frozen": frozen}).Info("pass done")
	return frozen, nil
}
