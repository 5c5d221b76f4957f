package quality

import (
	"errors"
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
	"github.com/notargets/tetsmooth/metric"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// ErrNoElements is returned for node or mesh queries with nothing incident
// to aggregate over.
var ErrNoElements = errors.New("quality: no incident elements")

// Assessor evaluates quality on a mesh. Cell and face measures use the
// metric mean ratio through the averaged node Jacobians; a nil Metric means
// the identity everywhere.
type Assessor struct {
	Mesh   *mesh.Mesh
	Metric *metric.Field
}

// NewAssessor binds a mesh and its metric field.
func NewAssessor(m *mesh.Mesh, f *metric.Field) *Assessor {
	return &Assessor{Mesh: m, Metric: f}
}

func (a *Assessor) cellJacobian(nodes [4]int) (metric.Mat3, error) {
	if a.Metric == nil {
		return metric.IdentityMat3(), nil
	}
	return a.Metric.CellJacobian(nodes)
}

func (a *Assessor) faceJacobian(nodes [3]int) (metric.Mat3, error) {
	if a.Metric == nil {
		return metric.IdentityMat3(), nil
	}
	return a.Metric.FaceJacobian(nodes)
}

func (a *Assessor) points4(nodes [4]int) ([4]r3.Vec, error) {
	var p [4]r3.Vec
	for i, n := range nodes {
		var err error
		if p[i], err = a.Mesh.Node(n); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (a *Assessor) points3(nodes [3]int) ([3]r3.Vec, error) {
	var p [3]r3.Vec
	for i, n := range nodes {
		var err error
		if p[i], err = a.Mesh.Node(n); err != nil {
			return p, err
		}
	}
	return p, nil
}

// CellVolume is the signed physical volume of a cell.
func (a *Assessor) CellVolume(cell int) (float64, error) {
	p, err := a.Mesh.CellPoints(cell)
	if err != nil {
		return 0, err
	}
	return CellVolume(p[0], p[1], p[2], p[3]), nil
}

// CellAR is the metric-normalized aspect ratio (metric mean ratio) of a cell.
func (a *Assessor) CellAR(cell int) (float64, error) {
	nodes, err := a.Mesh.Cell(cell)
	if err != nil {
		return 0, err
	}
	return a.CellNodesAR(nodes)
}

// CellNodesAR is CellAR for an explicit node tuple.
func (a *Assessor) CellNodesAR(nodes [4]int) (float64, error) {
	p, err := a.points4(nodes)
	if err != nil {
		return 0, err
	}
	j, err := a.cellJacobian(nodes)
	if err != nil {
		return 0, err
	}
	return CellMetricMeanRatio(j, p[0], p[1], p[2], p[3]), nil
}

// CellAspectRatio is the metric-free geometric aspect ratio of a cell.
func (a *Assessor) CellAspectRatio(cell int) (float64, error) {
	p, err := a.Mesh.CellPoints(cell)
	if err != nil {
		return 0, err
	}
	return CellAspectRatio(p[0], p[1], p[2], p[3]), nil
}

// CellConformity is the metric conformity of a cell against the average of
// its node tensors.
func (a *Assessor) CellConformity(cell int) (float64, error) {
	nodes, err := a.Mesh.Cell(cell)
	if err != nil {
		return 0, err
	}
	p, err := a.points4(nodes)
	if err != nil {
		return 0, err
	}
	m := metric.Identity()
	if a.Metric != nil {
		if m, err = a.Metric.CellMap(nodes); err != nil {
			return 0, err
		}
	}
	return CellMetricConformity(p[0], p[1], p[2], p[3], m)
}

// CellARDerivative returns the metric aspect ratio of the cell given by
// nodes and its gradient with respect to nodes[0].
func (a *Assessor) CellARDerivative(nodes [4]int) (float64, r3.Vec, error) {
	p, err := a.points4(nodes)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	j, err := a.cellJacobian(nodes)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	q, g := CellMetricMeanRatioDerivative(j, p[0], p[1], p[2], p[3])
	return q, g, nil
}

// NodeAR is the worst aspect ratio over the cells incident to node.
func (a *Assessor) NodeAR(node int) (float64, error) {
	ar, _, err := a.worstCell(node)
	return ar, err
}

// NodeARDerivative returns the worst incident aspect ratio and its gradient
// with respect to node. The worst cell is rotated so node is its first
// argument; ties keep the first cell met.
func (a *Assessor) NodeARDerivative(node int) (float64, r3.Vec, error) {
	_, worst, err := a.worstCell(node)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	nodes, err := a.Mesh.Cell(worst)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	for k, n := range nodes {
		if n == node {
			return a.CellARDerivative(RotateCell(nodes, k))
		}
	}
	return 0, r3.Vec{}, fmt.Errorf("node %d not in cell %d: %w", node, worst, mesh.ErrNotFound)
}

func (a *Assessor) worstCell(node int) (float64, int, error) {
	cells, err := a.Mesh.CellsAround(node)
	if err != nil {
		return 0, -1, err
	}
	if len(cells) == 0 {
		return 0, -1, fmt.Errorf("node %d cells: %w", node, ErrNoElements)
	}
	worst, worstAR := -1, math.Inf(1)
	for _, c := range cells {
		ar, err := a.CellAR(c)
		if err != nil {
			return 0, -1, err
		}
		if ar < worstAR {
			worst, worstAR = c, ar
		}
	}
	return worstAR, worst, nil
}

// NodeMinVolume is the smallest signed volume of the cells incident to node.
func (a *Assessor) NodeMinVolume(node int) (float64, error) {
	cells, err := a.Mesh.CellsAround(node)
	if err != nil {
		return 0, err
	}
	if len(cells) == 0 {
		return 0, fmt.Errorf("node %d cells: %w", node, ErrNoElements)
	}
	minVol := math.Inf(1)
	for _, c := range cells {
		v, err := a.CellVolume(c)
		if err != nil {
			return 0, err
		}
		minVol = math.Min(minVol, v)
	}
	return minVol, nil
}

// MinAR is the worst cell aspect ratio in the mesh.
func (a *Assessor) MinAR() (float64, error) {
	return a.minOverCells(a.CellAR)
}

// MinVolume is the smallest signed cell volume in the mesh.
func (a *Assessor) MinVolume() (float64, error) {
	return a.minOverCells(a.CellVolume)
}

func (a *Assessor) minOverCells(measure func(int) (float64, error)) (float64, error) {
	ids := a.Mesh.CellIDs()
	if len(ids) == 0 {
		return 0, ErrNoElements
	}
	lo := math.Inf(1)
	for _, c := range ids {
		q, err := measure(c)
		if err != nil {
			return 0, err
		}
		lo = math.Min(lo, q)
	}
	return lo, nil
}

// TotalVolume sums the signed volume of every cell.
func (a *Assessor) TotalVolume() float64 {
	total := 0.0
	for _, c := range a.Mesh.CellIDs() {
		v, _ := a.CellVolume(c)
		total += v
	}
	return total
}

// AverageVolume is TotalVolume over the number of cells.
func (a *Assessor) AverageVolume() (float64, error) {
	n := a.Mesh.NumCells()
	if n == 0 {
		return 0, ErrNoElements
	}
	return a.TotalVolume() / float64(n), nil
}

// FaceMR is the metric mean ratio of a boundary face.
func (a *Assessor) FaceMR(face int) (float64, error) {
	f, err := a.Mesh.Face(face)
	if err != nil {
		return 0, err
	}
	return a.FaceNodesMR(f.Nodes)
}

// FaceNodesMR is FaceMR for an explicit node triple.
func (a *Assessor) FaceNodesMR(nodes [3]int) (float64, error) {
	p, err := a.points3(nodes)
	if err != nil {
		return 0, err
	}
	j, err := a.faceJacobian(nodes)
	if err != nil {
		return 0, err
	}
	return FaceMetricMeanRatio(j, p[0], p[1], p[2]), nil
}

// FaceMRDerivative returns the metric face mean ratio of nodes and its
// gradient with respect to nodes[0].
func (a *Assessor) FaceMRDerivative(nodes [3]int) (float64, r3.Vec, error) {
	p, err := a.points3(nodes)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	j, err := a.faceJacobian(nodes)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	q, g := FaceMetricMeanRatioDerivative(j, p[0], p[1], p[2])
	return q, g, nil
}

func (a *Assessor) worstFace(node int) (float64, int, error) {
	faces, err := a.Mesh.FacesAround(node)
	if err != nil {
		return 0, -1, err
	}
	if len(faces) == 0 {
		return 0, -1, fmt.Errorf("node %d faces: %w", node, ErrNoElements)
	}
	worst, worstMR := -1, math.Inf(1)
	for _, f := range faces {
		mr, err := a.FaceMR(f)
		if err != nil {
			return 0, -1, err
		}
		if mr < worstMR {
			worst, worstMR = f, mr
		}
	}
	return worstMR, worst, nil
}

// NodeFaceMR is the worst mean ratio of the boundary faces at node.
func (a *Assessor) NodeFaceMR(node int) (float64, error) {
	mr, _, err := a.worstFace(node)
	return mr, err
}

// NodeFaceMRDerivative returns the worst incident face mean ratio and its
// gradient with respect to node.
func (a *Assessor) NodeFaceMRDerivative(node int) (float64, r3.Vec, error) {
	_, worst, err := a.worstFace(node)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	f, err := a.Mesh.Face(worst)
	if err != nil {
		return 0, r3.Vec{}, err
	}
	for k, n := range f.Nodes {
		if n == node {
			return a.FaceMRDerivative(RotateFace(f.Nodes, k))
		}
	}
	return 0, r3.Vec{}, fmt.Errorf("node %d not in face %d: %w", node, worst, mesh.ErrNotFound)
}

// MinFaceMR is the worst boundary face mean ratio in the mesh.
func (a *Assessor) MinFaceMR() (float64, error) {
	ids := a.Mesh.FaceIDs()
	if len(ids) == 0 {
		return 0, ErrNoElements
	}
	lo := math.Inf(1)
	for _, f := range ids {
		mr, err := a.FaceMR(f)
		if err != nil {
			return 0, err
		}
		lo = math.Min(lo, mr)
	}
	return lo, nil
}

// FaceAreaUV is the signed parametric area of a boundary face.
func (a *Assessor) FaceAreaUV(face int) (float64, error) {
	f, err := a.Mesh.Face(face)
	if err != nil {
		return 0, err
	}
	return FaceAreaUV(f.UV[0], f.UV[1], f.UV[2]), nil
}

// MinFaceAreaUV is the smallest parametric area of the faces at node.
func (a *Assessor) MinFaceAreaUV(node int) (float64, error) {
	faces, err := a.Mesh.FacesAround(node)
	if err != nil {
		return 0, err
	}
	if len(faces) == 0 {
		return 0, fmt.Errorf("node %d faces: %w", node, ErrNoElements)
	}
	lo := math.Inf(1)
	for _, f := range faces {
		area, err := a.FaceAreaUV(f)
		if err != nil {
			return 0, err
		}
		lo = math.Min(lo, area)
	}
	return lo, nil
}

// MinCellFaceAreaUV is the smallest parametric area over the boundary faces
// touching any node of the cell. A cell with no boundary faces gives
// ErrNoElements.
func (a *Assessor) MinCellFaceAreaUV(nodes [4]int) (float64, error) {
	lo := math.Inf(1)
	seen := map[int]bool{}
	for _, n := range nodes {
		faces, err := a.Mesh.FacesAround(n)
		if err != nil {
			return 0, err
		}
		for _, f := range faces {
			if seen[f] {
				continue
			}
			seen[f] = true
			area, err := a.FaceAreaUV(f)
			if err != nil {
				return 0, err
			}
			lo = math.Min(lo, area)
		}
	}
	if len(seen) == 0 {
		return 0, fmt.Errorf("cell %v faces: %w", nodes, ErrNoElements)
	}
	return lo, nil
}

// RightHandedFace reports whether the face nodes followed by the opposite
// node of the owning cell form a positive cell, i.e. the right-hand normal
// points into the domain.
func (a *Assessor) RightHandedFace(face int) (bool, error) {
	f, err := a.Mesh.Face(face)
	if err != nil {
		return false, err
	}
	_, opp, err := a.Mesh.FindCellWithFace(face)
	if err != nil {
		return false, err
	}
	p, err := a.points4([4]int{f.Nodes[0], f.Nodes[1], f.Nodes[2], opp})
	if err != nil {
		return false, err
	}
	return CellVolume(p[0], p[1], p[2], p[3]) > 0, nil
}

// RightHandedBoundary reports whether every boundary face is right handed.
// Faces without an owning cell count as not right handed.
func (a *Assessor) RightHandedBoundary() bool {
	for _, f := range a.Mesh.FaceIDs() {
		if ok, err := a.RightHandedFace(f); err != nil || !ok {
			return false
		}
	}
	return true
}
