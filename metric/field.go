package metric

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// ErrIsolated is returned for spacing queries on a node without neighbors.
var ErrIsolated = errors.New("metric: node has no neighbors")

// Topology is the part of the mesh a Field needs.
type Topology interface {
	Node(id int) (r3.Vec, error)
	NodeNeighbors(id int) ([]int, error)
	NodeIDs() []int
}

type entry struct {
	set bool
	m   Tensor
	j   Mat3
}

// Field stores a metric tensor per node. Nodes never set read as the
// identity metric. The Jacobian is cached on every write.
type Field struct {
	topo    Topology
	entries []entry
}

// NewField returns an identity field over topo.
func NewField(topo Topology) *Field {
	return &Field{topo: topo}
}

// check surfaces the topology's own not-found error for unknown ids.
func (f *Field) check(node int) error {
	_, err := f.topo.Node(node)
	return err
}

// SetMap stores the metric of node.
func (f *Field) SetMap(node int, m Tensor) error {
	if err := f.check(node); err != nil {
		return err
	}
	j, err := Jacobian(m)
	if err != nil {
		return fmt.Errorf("set map node %d: %w", node, err)
	}
	for len(f.entries) <= node {
		f.entries = append(f.entries, entry{})
	}
	f.entries[node] = entry{set: true, m: m, j: j}
	return nil
}

// Map returns the metric of node.
func (f *Field) Map(node int) (Tensor, error) {
	if err := f.check(node); err != nil {
		return Tensor{}, err
	}
	if node < len(f.entries) && f.entries[node].set {
		return f.entries[node].m, nil
	}
	return Identity(), nil
}

// Jacobian returns the cached metric Jacobian of node.
func (f *Field) Jacobian(node int) (Mat3, error) {
	if err := f.check(node); err != nil {
		return Mat3{}, err
	}
	if node < len(f.entries) && f.entries[node].set {
		return f.entries[node].j, nil
	}
	return IdentityMat3(), nil
}

// Spacing is 1/√λ_min, the largest target edge length of the node's metric,
// or 0 when the smallest eigenvalue is not positive.
func (f *Field) Spacing(node int) (float64, error) {
	m, err := f.Map(node)
	if err != nil {
		return 0, err
	}
	e, err := EigenDecompose(m)
	if err != nil {
		return 0, err
	}
	if e.Values[2] <= 0 {
		return 0, nil
	}
	return 1 / math.Sqrt(e.Values[2]), nil
}

// EdgeLength is the physical distance between two nodes.
func (f *Field) EdgeLength(a, b int) (float64, error) {
	pa, err := f.topo.Node(a)
	if err != nil {
		return 0, err
	}
	pb, err := f.topo.Node(b)
	if err != nil {
		return 0, err
	}
	return r3.Norm(r3.Sub(pb, pa)), nil
}

// EdgeRatio is the length of edge a-b in metric space, using the average of
// the two endpoint Jacobians. A zero-length edge gives 0.
func (f *Field) EdgeRatio(a, b int) (float64, error) {
	pa, err := f.topo.Node(a)
	if err != nil {
		return 0, err
	}
	pb, err := f.topo.Node(b)
	if err != nil {
		return 0, err
	}
	ja, err := f.Jacobian(a)
	if err != nil {
		return 0, err
	}
	jb, err := f.Jacobian(b)
	if err != nil {
		return 0, err
	}
	j := ja.Add(jb).Scale(0.5)
	return r3.Norm(j.MulVec(r3.Sub(pb, pa))), nil
}

// AverageEdgeLength is the mean physical length of the edges at node.
func (f *Field) AverageEdgeLength(node int) (float64, error) {
	nbrs, err := f.topo.NodeNeighbors(node)
	if err != nil {
		return 0, err
	}
	if len(nbrs) == 0 {
		return 0, fmt.Errorf("node %d: %w", node, ErrIsolated)
	}
	sum := 0.0
	for _, n := range nbrs {
		l, err := f.EdgeLength(node, n)
		if err != nil {
			return 0, err
		}
		sum += l
	}
	return sum / float64(len(nbrs)), nil
}

// ResetNodeSpacing replaces the metric of node with the isotropic metric of
// its current average edge length.
func (f *Field) ResetNodeSpacing(node int) error {
	h, err := f.AverageEdgeLength(node)
	if err != nil {
		return err
	}
	if h <= 0 {
		return fmt.Errorf("reset spacing node %d: zero average edge length: %w",
			node, ErrNotPositiveDefinite)
	}
	return f.SetMap(node, Isotropic(h))
}

// ResetSpacing resets every node that has neighbors. Isolated nodes keep
// their metric.
func (f *Field) ResetSpacing() error {
	for _, n := range f.topo.NodeIDs() {
		if err := f.ResetNodeSpacing(n); err != nil && !errors.Is(err, ErrIsolated) {
			return err
		}
	}
	return nil
}

// ScaleSpacing multiplies the target edge length of node by factor in every
// direction.
func (f *Field) ScaleSpacing(node int, factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("scale spacing node %d by %g: %w", node, factor, ErrNotPositiveDefinite)
	}
	m, err := f.Map(node)
	if err != nil {
		return err
	}
	return f.SetMap(node, m.Scale(1/(factor*factor)))
}

// CopySpacing copies the metric of src onto dst.
func (f *Field) CopySpacing(src, dst int) error {
	m, err := f.Map(src)
	if err != nil {
		return err
	}
	if err := f.check(dst); err != nil {
		return err
	}
	return f.SetMap(dst, m)
}

// SetMapMatrixToAverageOfNodes sets dst to the component average of the
// metrics at a and b, as used for a node inserted on edge a-b.
func (f *Field) SetMapMatrixToAverageOfNodes(dst, a, b int) error {
	ma, err := f.Map(a)
	if err != nil {
		return err
	}
	mb, err := f.Map(b)
	if err != nil {
		return err
	}
	if err := f.check(dst); err != nil {
		return err
	}
	return f.SetMap(dst, Average(ma, mb))
}

// LargestRatioEdge returns the neighbor of node at the far end of its
// longest edge in metric space. Ties keep the first neighbor met.
func (f *Field) LargestRatioEdge(node int) (int, float64, error) {
	return f.ratioEdge(node, func(r, best float64) bool { return r > best })
}

// SmallestRatioEdge returns the neighbor at the far end of the shortest edge
// in metric space. Ties keep the first neighbor met.
func (f *Field) SmallestRatioEdge(node int) (int, float64, error) {
	return f.ratioEdge(node, func(r, best float64) bool { return r < best })
}

func (f *Field) ratioEdge(node int, better func(r, best float64) bool) (int, float64, error) {
	nbrs, err := f.topo.NodeNeighbors(node)
	if err != nil {
		return -1, 0, err
	}
	if len(nbrs) == 0 {
		return -1, 0, fmt.Errorf("node %d: %w", node, ErrIsolated)
	}
	bestNode, bestRatio := -1, 0.0
	for _, n := range nbrs {
		r, err := f.EdgeRatio(node, n)
		if err != nil {
			return -1, 0, err
		}
		if bestNode < 0 || better(r, bestRatio) {
			bestNode, bestRatio = n, r
		}
	}
	return bestNode, bestRatio, nil
}

// CellJacobian averages the Jacobians of a cell's nodes. Elements are
// measured in metric space through it.
func (f *Field) CellJacobian(nodes [4]int) (Mat3, error) {
	return f.averageJacobian(nodes[:])
}

// FaceJacobian averages the Jacobians of a face's nodes.
func (f *Field) FaceJacobian(nodes [3]int) (Mat3, error) {
	return f.averageJacobian(nodes[:])
}

// CellMap averages the tensors of a cell's nodes.
func (f *Field) CellMap(nodes [4]int) (Tensor, error) {
	ts := make([]Tensor, 0, 4)
	for _, n := range nodes {
		m, err := f.Map(n)
		if err != nil {
			return Tensor{}, err
		}
		ts = append(ts, m)
	}
	return Average(ts...), nil
}

func (f *Field) averageJacobian(nodes []int) (Mat3, error) {
	var sum Mat3
	for _, n := range nodes {
		j, err := f.Jacobian(n)
		if err != nil {
			return Mat3{}, err
		}
		sum = sum.Add(j)
	}
	return sum.Scale(1 / float64(len(nodes))), nil
}

// Remap moves stored tensors to new ids after the mesh is compacted. oldToNew
// maps removed nodes to -1.
func (f *Field) Remap(oldToNew []int) {
	var entries []entry
	for old, e := range f.entries {
		if !e.set || old >= len(oldToNew) || oldToNew[old] < 0 {
			continue
		}
		n := oldToNew[old]
		for len(entries) <= n {
			entries = append(entries, entry{})
		}
		entries[n] = e
	}
	f.entries = entries
}
