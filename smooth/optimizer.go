// Package smooth moves mesh nodes to improve element quality.
//
// Every node operation follows the same cycle: propose a new position,
// evaluate it with the node's incident elements, then accept it, back off
// toward the original position, or reject it. A rejected move restores the
// node's coordinates and CAD parameters exactly. Accepted moves never lower
// the targeted measure and never invert a cell when all cells around the
// node were valid before.
package smooth

import (
	"errors"
	"fmt"
	"github.com/notargets/tetsmooth/cad"
	"github.com/notargets/tetsmooth/mesh"
	"github.com/notargets/tetsmooth/metric"
	"github.com/notargets/tetsmooth/quality"
	"github.com/notargets/tetsmooth/utils"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

var (
	// ErrFrozen is returned for frozen nodes.
	ErrFrozen = errors.New("smooth: node frozen")
	// ErrNotMovable is returned for nodes whose class the operation cannot
	// move, such as CAD corners or boundary nodes in interior-only
	// operations.
	ErrNotMovable = errors.New("smooth: node not movable by this operation")
	// ErrNoImprovement is returned when no candidate beat the current
	// position. The node is unchanged.
	ErrNoImprovement = errors.New("smooth: no improvement")
	// ErrInvalidMove is returned when every candidate inverted a cell.
	ErrInvalidMove = errors.New("smooth: move would invalidate cells")
	// ErrBackedOff is returned by SafeProjectNode when only a partial,
	// valid displacement toward the geometry was committed.
	ErrBackedOff = errors.New("smooth: projection backed off")
	// ErrRetryExhausted is returned by SafeProjectNode when no displacement
	// was valid. The node is unchanged.
	ErrRetryExhausted = errors.New("smooth: projection retries exhausted")
	// ErrNoGeometry is returned for boundary moves without a CAD evaluator.
	ErrNoGeometry = errors.New("smooth: no geometry evaluator")
)

// Skipped reports whether err is one of the recoverable outcomes that
// leave the mesh as it was, so batch drivers can move on.
func Skipped(err error) bool {
	return errors.Is(err, ErrFrozen) || errors.Is(err, ErrNotMovable) ||
		errors.Is(err, ErrNoImprovement) || errors.Is(err, ErrInvalidMove) ||
		errors.Is(err, quality.ErrNoElements)
}

// Optimizer smooths nodes of Mesh measured through Metric. CAD may be nil
// when the mesh has no boundary entities that need to move.
type Optimizer struct {
	Mesh   *mesh.Mesh
	Metric *metric.Field
	Assess *quality.Assessor
	CAD    cad.Evaluator
	Config Config
	Log    *logrus.Logger
}

// New validates cfg and binds the optimizer. A nil metric means the
// identity everywhere and a nil log discards.
func New(m *mesh.Mesh, f *metric.Field, ev cad.Evaluator, cfg Config, log *logrus.Logger) (*Optimizer, error) {
	if m == nil {
		return nil, errors.New("smooth: nil mesh")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("smooth config: %w", err)
	}
	if f == nil {
		f = metric.NewField(m)
	}
	if log == nil {
		log = utils.DiscardLogger()
	}
	return &Optimizer{
		Mesh:   m,
		Metric: f,
		Assess: quality.NewAssessor(m, f),
		CAD:    ev,
		Config: cfg,
		Log:    log,
	}, nil
}

// move parameterizes a node position by xyz, surface (u,v) or curve t
// depending on the node's class.
type move struct {
	o      *Optimizer
	node   int
	class  mesh.Class
	geom   int
	origin []float64
	basis  []r3.Vec // d xyz / d parameter, one per parameter
	saved  mesh.NodeState
	// valid is true when every incident cell was positive before the move.
	valid bool
}

// newMove captures the node and its free parameters. Frozen and fixed
// nodes cannot move.
func (o *Optimizer) newMove(node int) (*move, error) {
	class, err := o.Mesh.Classify(node)
	if err != nil {
		return nil, err
	}
	if o.Mesh.Frozen(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrFrozen)
	}
	if class == mesh.Fixed {
		return nil, fmt.Errorf("node %d is %v: %w", node, class, ErrNotMovable)
	}
	saved, err := o.Mesh.SaveNode(node)
	if err != nil {
		return nil, err
	}
	mv := &move{o: o, node: node, class: class, saved: saved, geom: -1}
	switch class {
	case mesh.Interior:
		mv.origin = []float64{saved.X.X, saved.X.Y, saved.X.Z}
		mv.basis = []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	case mesh.OnEdge:
		if o.CAD == nil {
			return nil, fmt.Errorf("node %d: %w", node, ErrNoGeometry)
		}
		geoms, _ := o.Mesh.NodeEdgeGeoms(node)
		mv.geom = geoms[0]
		t, err := o.Mesh.NodeT(node, mv.geom)
		if err != nil {
			return nil, err
		}
		dt, err := cad.EdgeTangent(o.CAD, mv.geom, t)
		if err != nil {
			return nil, err
		}
		mv.origin = []float64{t}
		mv.basis = []r3.Vec{dt}
	case mesh.OnFace:
		if o.CAD == nil {
			return nil, fmt.Errorf("node %d: %w", node, ErrNoGeometry)
		}
		geoms, _ := o.Mesh.NodeFaceGeoms(node)
		mv.geom = geoms[0]
		uv, err := o.Mesh.NodeUV(node, mv.geom)
		if err != nil {
			return nil, err
		}
		du, dv, err := cad.FaceTangents(o.CAD, mv.geom, uv)
		if err != nil {
			return nil, err
		}
		mv.origin = []float64{uv[0], uv[1]}
		mv.basis = []r3.Vec{du, dv}
	}
	mv.valid = o.cellsPositive(node)
	return mv, nil
}

// cellsPositive reports whether every cell at node has positive volume.
// A node without cells counts as valid.
func (o *Optimizer) cellsPositive(node int) bool {
	v, err := o.Assess.NodeMinVolume(node)
	if errors.Is(err, quality.ErrNoElements) {
		return true
	}
	return err == nil && v > 0
}

// apply places the node at parameter p.
func (mv *move) apply(p []float64) error {
	m, ev := mv.o.Mesh, mv.o.CAD
	switch mv.class {
	case mesh.OnEdge:
		return cad.EvaluateEdgeAtT(m, ev, mv.node, p[0])
	case mesh.OnFace:
		return cad.EvaluateFaceAtUV(m, ev, mv.node, [2]float64{p[0], p[1]})
	}
	return m.SetNode(mv.node, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
}

// restore puts the node back exactly as captured.
func (mv *move) restore() {
	_ = mv.o.Mesh.RestoreNode(mv.saved)
}

// along returns origin + alpha d.
func (mv *move) along(alpha float64, d []float64) []float64 {
	p := make([]float64, len(mv.origin))
	for i := range p {
		p[i] = mv.origin[i] + alpha*d[i]
	}
	return p
}

// direction maps a physical gradient to parameter space.
func (mv *move) direction(g r3.Vec) []float64 {
	d := make([]float64, len(mv.basis))
	for i, b := range mv.basis {
		d[i] = r3.Dot(g, b)
	}
	return d
}

// physical is the xyz displacement of a unit parameter step along d.
func (mv *move) physical(d []float64) r3.Vec {
	var x r3.Vec
	for i, b := range mv.basis {
		x = r3.Add(x, r3.Scale(d[i], b))
	}
	return x
}

// evaluate measures objective at parameter p and restores the node. Probes
// that fail or invalidate a valid neighborhood score -Inf.
func (mv *move) evaluate(p []float64, objective func(int) (float64, error)) float64 {
	defer mv.restore()
	if err := mv.apply(p); err != nil {
		return math.Inf(-1)
	}
	if mv.valid && !mv.o.cellsPositive(mv.node) {
		return math.Inf(-1)
	}
	q, err := objective(mv.node)
	if err != nil || math.IsNaN(q) {
		return math.Inf(-1)
	}
	return q
}

// commit places the node at p for good.
func (mv *move) commit(p []float64, op string, before, after float64) error {
	if err := mv.apply(p); err != nil {
		mv.restore()
		return err
	}
	mv.o.Log.WithFields(logrus.Fields{
		"op":     op,
		"node":   mv.node,
		"before": before,
		"after":  after,
	}).Debug("move accepted")
	return nil
}

func (o *Optimizer) reject(op string, node int, err error) error {
	o.Log.WithFields(logrus.Fields{"op": op, "node": node}).Debugf("move rejected: %v", err)
	return err
}

// averageVolume is the mean signed cell volume, the target of the volume
// equalizing moves.
func (o *Optimizer) averageVolume() (float64, error) {
	return o.Assess.AverageVolume()
}

// stepLength is the first line search step in parameter units for
// direction d: InitialStep times the node's average edge length, divided by
// the physical length of a unit step along d.
func (o *Optimizer) stepLength(mv *move, d []float64) float64 {
	h, err := o.Metric.AverageEdgeLength(mv.node)
	if err != nil || h == 0 {
		h = 1
	}
	l := r3.Norm(mv.physical(d))
	if l == 0 {
		return 0
	}
	return o.Config.InitialStep * h / l
}

func normalize(d []float64) ([]float64, bool) {
	n := 0.0
	for _, x := range d {
		n += x * x
	}
	n = math.Sqrt(n)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, false
	}
	out := make([]float64, len(d))
	for i, x := range d {
		out[i] = x / n
	}
	return out, true
}
