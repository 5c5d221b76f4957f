package smooth

import (
	"errors"
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// SmoothNode raises the node's aspect ratio by repeated line searches along
// its gradient: in xyz for interior nodes, along the curve for edge nodes
// and in (u,v) for face nodes. Face nodes without cells smooth their face
// mean ratio instead. It returns ErrNoImprovement when no step was taken.
func (o *Optimizer) SmoothNode(node int) error {
	mv, err := o.newMove(node)
	if err != nil {
		return err
	}
	cells, _ := o.Mesh.CellsAround(node)
	if len(cells) == 0 && mv.class == mesh.OnFace {
		return o.SmoothNodeFaceMR(node)
	}
	return o.gradientSteps(node, "smooth_node", o.Assess.NodeARDerivative, o.Assess.NodeAR)
}

// SmoothNodeFaceMR raises the worst mean ratio of the boundary faces at a
// face node by line searches in (u,v).
func (o *Optimizer) SmoothNodeFaceMR(node int) error {
	mv, err := o.newMove(node)
	if err != nil {
		return err
	}
	if mv.class != mesh.OnFace {
		return fmt.Errorf("face mean ratio of %v node %d: %w", mv.class, node, ErrNotMovable)
	}
	return o.gradientSteps(node, "smooth_node_face_mr", o.Assess.NodeFaceMRDerivative, o.Assess.NodeFaceMR)
}

func (o *Optimizer) gradientSteps(node int, op string,
	derivative func(int) (float64, r3.Vec, error), objective func(int) (float64, error)) error {
	improved := false
	for it := 0; it < o.Config.MaxIterations; it++ {
		mv, err := o.newMove(node)
		if err != nil {
			return err
		}
		q0, g, err := derivative(node)
		if err != nil {
			return err
		}
		q, err := o.optimizeAlong(mv, mv.direction(g), objective, op)
		if errors.Is(err, ErrNoImprovement) {
			break
		}
		if err != nil {
			return err
		}
		improved = true
		if q-q0 < o.Config.Tolerance {
			break
		}
	}
	if !improved {
		return fmt.Errorf("node %d: %w", node, ErrNoImprovement)
	}
	return nil
}

// OptimizeXYZ line searches the aspect ratio of an interior node along dir.
func (o *Optimizer) OptimizeXYZ(node int, dir r3.Vec) error {
	mv, err := o.classMove(node, mesh.Interior)
	if err != nil {
		return err
	}
	_, err = o.optimizeAlong(mv, []float64{dir.X, dir.Y, dir.Z}, o.Assess.NodeAR, "optimize_xyz")
	return err
}

// OptimizeT line searches the aspect ratio of an edge node along its curve,
// in the direction of the sign of dt.
func (o *Optimizer) OptimizeT(node int, dt float64) error {
	mv, err := o.classMove(node, mesh.OnEdge)
	if err != nil {
		return err
	}
	_, err = o.optimizeAlong(mv, []float64{dt}, o.Assess.NodeAR, "optimize_t")
	return err
}

// OptimizeUV line searches the aspect ratio of a face node along duv in
// surface parameter space.
func (o *Optimizer) OptimizeUV(node int, duv [2]float64) error {
	mv, err := o.classMove(node, mesh.OnFace)
	if err != nil {
		return err
	}
	_, err = o.optimizeAlong(mv, duv[:], o.Assess.NodeAR, "optimize_uv")
	return err
}

// OptimizeFaceUV is OptimizeUV for the node's worst boundary face mean
// ratio.
func (o *Optimizer) OptimizeFaceUV(node int, duv [2]float64) error {
	mv, err := o.classMove(node, mesh.OnFace)
	if err != nil {
		return err
	}
	_, err = o.optimizeAlong(mv, duv[:], o.Assess.NodeFaceMR, "optimize_face_uv")
	return err
}

func (o *Optimizer) classMove(node int, want mesh.Class) (*move, error) {
	mv, err := o.newMove(node)
	if err != nil {
		return nil, err
	}
	if mv.class != want {
		return nil, fmt.Errorf("node %d is %v, want %v: %w", node, mv.class, want, ErrNotMovable)
	}
	return mv, nil
}

// SmoothFaceMR takes one damped Newton step toward face mean ratio 1 for
// every thawed face node, in id order. Each step moves (u,v) by
// damping (1-q) g/|g|² with q the node face mean ratio and g its gradient in
// parameter space. Steps that do not raise q, or that invert a valid cell,
// are undone. It returns the number of nodes moved.
func (o *Optimizer) SmoothFaceMR(damping float64) (int, error) {
	if !(damping > 0 && damping <= 1) {
		return 0, fmt.Errorf("damping %g outside (0,1]", damping)
	}
	moved := 0
	for _, node := range o.Mesh.NodeIDs() {
		mv, err := o.newMove(node)
		if err != nil {
			if Skipped(err) {
				continue
			}
			return moved, err
		}
		if mv.class != mesh.OnFace {
			continue
		}
		q, g, err := o.Assess.NodeFaceMRDerivative(node)
		if err != nil {
			if Skipped(err) {
				continue
			}
			return moved, err
		}
		d := mv.direction(g)
		gg := 0.0
		for _, x := range d {
			gg += x * x
		}
		if gg == 0 {
			continue
		}
		p := mv.along(damping*(1-q)/gg, d)
		after := mv.evaluate(p, o.Assess.NodeFaceMR)
		if !(after > q) {
			continue
		}
		if err := mv.commit(p, "smooth_face_mr", q, after); err != nil {
			return moved, err
		}
		moved++
	}
	o.Log.WithFields(logrus.Fields{"op": "smooth_face_mr", "damping": damping, "moved": moved}).Info("pass done")
	return moved, nil
}
