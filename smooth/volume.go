package smooth

import (
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
	"github.com/notargets/tetsmooth/quality"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"math"
)

// equalizingStep solves the least squares problem that brings every row
// value to target, given values and their gradients in parameter space.
// Values are linear in the node position, so the step is exact when the
// system is consistent.
func equalizingStep(values []float64, grads [][]float64, target float64) ([]float64, error) {
	k, dim := len(values), len(grads[0])
	a := mat.NewDense(k, dim, nil)
	b := mat.NewVecDense(k, nil)
	for i := range values {
		a.SetRow(i, grads[i])
		b.SetVec(i, target-values[i])
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, err
	}
	return x.RawVector().Data, nil
}

// SmoothNodeVolume moves the node in its free parameters so the volumes of
// its cells approach the mesh average volume, accepting only a larger
// smallest incident volume. Tangled cells are untangled this way.
func (o *Optimizer) SmoothNodeVolume(node int) error {
	target, err := o.averageVolume()
	if err != nil {
		return err
	}
	return o.smoothNodeVolume(node, target)
}

func (o *Optimizer) volumeProposal(mv *move, target float64) ([]float64, error) {
	cells, err := o.Mesh.CellsAround(mv.node)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("node %d cells: %w", mv.node, quality.ErrNoElements)
	}
	values := make([]float64, 0, len(cells))
	grads := make([][]float64, 0, len(cells))
	for _, c := range cells {
		nodes, err := o.Mesh.Cell(c)
		if err != nil {
			return nil, err
		}
		for k, n := range nodes {
			if n != mv.node {
				continue
			}
			p, err := o.Mesh.CellPoints(c)
			if err != nil {
				return nil, err
			}
			p = quality.RotateCell(p, k)
			v, g := quality.CellVolumeDerivative(p[0], p[1], p[2], p[3])
			values = append(values, v)
			grads = append(grads, mv.direction(g))
		}
	}
	step, err := equalizingStep(values, grads, target)
	if err != nil {
		return nil, fmt.Errorf("node %d volume system: %v: %w", mv.node, err, ErrNoImprovement)
	}
	return mv.along(1, step), nil
}

func (o *Optimizer) smoothNodeVolume(node int, target float64) error {
	mv, err := o.newMove(node)
	if err != nil {
		return err
	}
	v0, err := o.Assess.NodeMinVolume(node)
	if err != nil {
		return err
	}
	p, err := o.volumeProposal(mv, target)
	if err != nil {
		return err
	}
	if v := mv.evaluate(p, o.Assess.NodeMinVolume); v > v0 {
		return mv.commit(p, "smooth_node_volume", v0, v)
	}
	return o.reject("smooth_node_volume", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
}

// SmartVolumeLaplacian moves an interior node to the better of the volume
// equalizing and the Laplacian positions, judged by the smallest incident
// volume.
func (o *Optimizer) SmartVolumeLaplacian(node int) error {
	mv, err := o.interiorMove(node)
	if err != nil {
		return err
	}
	target, err := o.averageVolume()
	if err != nil {
		return err
	}
	v0, err := o.Assess.NodeMinVolume(node)
	if err != nil {
		return err
	}
	var candidates [][]float64
	if p, err := o.volumeProposal(mv, target); err == nil {
		candidates = append(candidates, p)
	}
	if lap, err := o.laplacianPoint(node); err == nil {
		candidates = append(candidates, []float64{lap.X, lap.Y, lap.Z})
	}
	var best []float64
	vbest := v0
	for _, p := range candidates {
		if v := mv.evaluate(p, o.Assess.NodeMinVolume); v > vbest {
			best, vbest = p, v
		}
	}
	if best == nil {
		return o.reject("smart_volume_laplacian", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
	}
	return mv.commit(best, "smart_volume_laplacian", v0, vbest)
}

// RelaxNegativeCells volume-smooths every movable node of every cell whose
// volume is not positive and returns how many such cells remain. A mesh
// without cells has nothing to relax.
func (o *Optimizer) RelaxNegativeCells() (int, error) {
	if o.Mesh.NumCells() == 0 {
		o.Log.WithFields(logrus.Fields{"op": "relax_negative_cells", "remaining": 0}).Info("pass done")
		return 0, nil
	}
	target, err := o.averageVolume()
	if err != nil {
		return 0, err
	}
	for _, c := range o.Mesh.CellIDs() {
		v, err := o.Assess.CellVolume(c)
		if err != nil {
			return 0, err
		}
		if v > 0 {
			continue
		}
		nodes, _ := o.Mesh.Cell(c)
		for _, n := range nodes {
			if err := o.smoothNodeVolume(n, target); err != nil && !passable(err) {
				return 0, err
			}
		}
	}
	remaining := 0
	for _, c := range o.Mesh.CellIDs() {
		if v, _ := o.Assess.CellVolume(c); v <= 0 {
			remaining++
		}
	}
	o.Log.WithFields(logrus.Fields{"op": "relax_negative_cells", "remaining": remaining}).Info("pass done")
	return remaining, nil
}

// SmoothNodeFaceAreaUV moves a face node in (u,v) so the parametric areas
// of its faces on that surface approach their mean, accepting only a larger
// smallest parametric area.
func (o *Optimizer) SmoothNodeFaceAreaUV(node int) error {
	mv, err := o.classMove(node, mesh.OnFace)
	if err != nil {
		return err
	}
	faces, err := o.Mesh.FacesAround(node)
	if err != nil {
		return err
	}
	var (
		values []float64
		grads  [][]float64
		sum    float64
	)
	for _, id := range faces {
		f, err := o.Mesh.Face(id)
		if err != nil {
			return err
		}
		if f.Geom != mv.geom {
			continue
		}
		for k, n := range f.Nodes {
			if n != node {
				continue
			}
			uv := quality.RotateFace(f.UV, k)
			area, g := quality.FaceAreaUVDerivative(uv[0], uv[1], uv[2])
			values = append(values, area)
			grads = append(grads, g[:])
			sum += area
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("node %d faces: %w", node, quality.ErrNoElements)
	}
	a0, err := o.Assess.MinFaceAreaUV(node)
	if err != nil {
		return err
	}
	step, err := equalizingStep(values, grads, sum/float64(len(values)))
	if err != nil {
		return o.reject("smooth_node_face_area_uv", node, fmt.Errorf("node %d: %v: %w", node, err, ErrNoImprovement))
	}
	p := mv.along(1, step)
	if a := mv.evaluate(p, o.Assess.MinFaceAreaUV); a > a0 && !math.IsInf(a, 0) {
		return mv.commit(p, "smooth_node_face_area_uv", a0, a)
	}
	return o.reject("smooth_node_face_area_uv", node, fmt.Errorf("node %d: %w", node, ErrNoImprovement))
}
