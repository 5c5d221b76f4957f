package mesh

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNotFound is returned for ids that were never allocated or have been
	// removed.
	ErrNotFound = errors.New("mesh: id not found")
	// ErrInUse is returned when removing a node still referenced by a live
	// cell, face or edge.
	ErrInUse = errors.New("mesh: node still referenced")
)

// Face is a boundary triangle on CAD surface Geom. UV holds the parametric
// coordinate of each corner on that surface.
type Face struct {
	Nodes [3]int
	Geom  int
	UV    [3][2]float64
}

// Edge is a boundary segment on CAD curve Geom with the curve parameter of
// each end in T.
type Edge struct {
	Nodes [2]int
	Geom  int
	T     [2]float64
}

// Mesh is an arena of nodes, tetrahedral cells, boundary faces and boundary
// edges. Ids are stable handles: removing an entity leaves a hole that is
// only reclaimed by Compact.
type Mesh struct {
	nodes    []r3.Vec
	nodeLive []bool
	frozen   []bool

	cells    [][4]int
	cellLive []bool

	faces    []Face
	faceLive []bool

	edges    []Edge
	edgeLive []bool

	// node -> incident entity ids, in insertion order
	nodeCells [][]int
	nodeFaces [][]int
	nodeEdges [][]int
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// AddNode appends a node and returns its id.
func (m *Mesh) AddNode(p r3.Vec) int {
	id := len(m.nodes)
	m.nodes = append(m.nodes, p)
	m.nodeLive = append(m.nodeLive, true)
	m.frozen = append(m.frozen, false)
	m.nodeCells = append(m.nodeCells, nil)
	m.nodeFaces = append(m.nodeFaces, nil)
	m.nodeEdges = append(m.nodeEdges, nil)
	return id
}

// AddCell appends a tetrahedron. Positive signed volume is the validity
// convention; AddCell does not enforce it so tangled input can be repaired.
func (m *Mesh) AddCell(nodes [4]int) (int, error) {
	if err := m.checkNodes(nodes[:]); err != nil {
		return -1, fmt.Errorf("add cell: %w", err)
	}
	id := len(m.cells)
	m.cells = append(m.cells, nodes)
	m.cellLive = append(m.cellLive, true)
	for _, n := range nodes {
		m.nodeCells[n] = append(m.nodeCells[n], id)
	}
	return id, nil
}

// AddFace appends a boundary face.
func (m *Mesh) AddFace(f Face) (int, error) {
	if err := m.checkNodes(f.Nodes[:]); err != nil {
		return -1, fmt.Errorf("add face: %w", err)
	}
	id := len(m.faces)
	m.faces = append(m.faces, f)
	m.faceLive = append(m.faceLive, true)
	for _, n := range f.Nodes {
		m.nodeFaces[n] = append(m.nodeFaces[n], id)
	}
	return id, nil
}

// AddEdge appends a boundary edge.
func (m *Mesh) AddEdge(e Edge) (int, error) {
	if err := m.checkNodes(e.Nodes[:]); err != nil {
		return -1, fmt.Errorf("add edge: %w", err)
	}
	id := len(m.edges)
	m.edges = append(m.edges, e)
	m.edgeLive = append(m.edgeLive, true)
	for _, n := range e.Nodes {
		m.nodeEdges[n] = append(m.nodeEdges[n], id)
	}
	return id, nil
}

func (m *Mesh) checkNodes(nodes []int) error {
	for i, n := range nodes {
		if !m.ValidNode(n) {
			return fmt.Errorf("node %d: %w", n, ErrNotFound)
		}
		for _, o := range nodes[:i] {
			if o == n {
				return fmt.Errorf("node %d repeated", n)
			}
		}
	}
	return nil
}

// ValidNode reports whether id refers to a live node.
func (m *Mesh) ValidNode(id int) bool {
	return id >= 0 && id < len(m.nodes) && m.nodeLive[id]
}

// ValidCell reports whether id refers to a live cell.
func (m *Mesh) ValidCell(id int) bool {
	return id >= 0 && id < len(m.cells) && m.cellLive[id]
}

// ValidFace reports whether id refers to a live face.
func (m *Mesh) ValidFace(id int) bool {
	return id >= 0 && id < len(m.faces) && m.faceLive[id]
}

// ValidEdge reports whether id refers to a live edge.
func (m *Mesh) ValidEdge(id int) bool {
	return id >= 0 && id < len(m.edges) && m.edgeLive[id]
}

// Node returns the coordinates of a node.
func (m *Mesh) Node(id int) (r3.Vec, error) {
	if !m.ValidNode(id) {
		return r3.Vec{}, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return m.nodes[id], nil
}

// SetNode overwrites the coordinates of a node.
func (m *Mesh) SetNode(id int, p r3.Vec) error {
	if !m.ValidNode(id) {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	m.nodes[id] = p
	return nil
}

// Cell returns the four node ids of a cell.
func (m *Mesh) Cell(id int) ([4]int, error) {
	if !m.ValidCell(id) {
		return [4]int{}, fmt.Errorf("cell %d: %w", id, ErrNotFound)
	}
	return m.cells[id], nil
}

// CellPoints returns the coordinates of the four nodes of a cell.
func (m *Mesh) CellPoints(id int) ([4]r3.Vec, error) {
	var p [4]r3.Vec
	if !m.ValidCell(id) {
		return p, fmt.Errorf("cell %d: %w", id, ErrNotFound)
	}
	for i, n := range m.cells[id] {
		p[i] = m.nodes[n]
	}
	return p, nil
}

// Face returns a copy of a boundary face.
func (m *Mesh) Face(id int) (Face, error) {
	if !m.ValidFace(id) {
		return Face{}, fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	return m.faces[id], nil
}

// SetFaceUV overwrites the parametric coordinates of all corners of a face.
func (m *Mesh) SetFaceUV(id int, uv [3][2]float64) error {
	if !m.ValidFace(id) {
		return fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	m.faces[id].UV = uv
	return nil
}

// Edge returns a copy of a boundary edge.
func (m *Mesh) Edge(id int) (Edge, error) {
	if !m.ValidEdge(id) {
		return Edge{}, fmt.Errorf("edge %d: %w", id, ErrNotFound)
	}
	return m.edges[id], nil
}

// NodeIDs lists live node ids in ascending order.
func (m *Mesh) NodeIDs() []int { return liveIDs(m.nodeLive) }

// CellIDs lists live cell ids in ascending order.
func (m *Mesh) CellIDs() []int { return liveIDs(m.cellLive) }

// FaceIDs lists live face ids in ascending order.
func (m *Mesh) FaceIDs() []int { return liveIDs(m.faceLive) }

// EdgeIDs lists live edge ids in ascending order.
func (m *Mesh) EdgeIDs() []int { return liveIDs(m.edgeLive) }

// NumNodes is the number of live nodes.
func (m *Mesh) NumNodes() int { return countLive(m.nodeLive) }

// NumCells is the number of live cells.
func (m *Mesh) NumCells() int { return countLive(m.cellLive) }

// NumFaces is the number of live faces.
func (m *Mesh) NumFaces() int { return countLive(m.faceLive) }

// NumEdges is the number of live edges.
func (m *Mesh) NumEdges() int { return countLive(m.edgeLive) }

// NodeCapacity is one past the largest node id ever allocated.
func (m *Mesh) NodeCapacity() int { return len(m.nodes) }

// CellCapacity is one past the largest cell id ever allocated.
func (m *Mesh) CellCapacity() int { return len(m.cells) }

func liveIDs(live []bool) []int {
	ids := make([]int, 0, len(live))
	for id, ok := range live {
		if ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func countLive(live []bool) int {
	n := 0
	for _, ok := range live {
		if ok {
			n++
		}
	}
	return n
}

// Freeze excludes a node from smoothing.
func (m *Mesh) Freeze(id int) error {
	if !m.ValidNode(id) {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	m.frozen[id] = true
	return nil
}

// Thaw makes a node eligible for smoothing again.
func (m *Mesh) Thaw(id int) error {
	if !m.ValidNode(id) {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	m.frozen[id] = false
	return nil
}

// Frozen reports whether a node is frozen. Unknown ids read as frozen.
func (m *Mesh) Frozen(id int) bool {
	if !m.ValidNode(id) {
		return true
	}
	return m.frozen[id]
}

// FreezeAll freezes every node.
func (m *Mesh) FreezeAll() {
	for i := range m.frozen {
		m.frozen[i] = true
	}
}

// ThawAll thaws every node.
func (m *Mesh) ThawAll() {
	for i := range m.frozen {
		m.frozen[i] = false
	}
}

// RemoveCell removes a cell and leaves its id as a hole.
func (m *Mesh) RemoveCell(id int) error {
	if !m.ValidCell(id) {
		return fmt.Errorf("cell %d: %w", id, ErrNotFound)
	}
	for _, n := range m.cells[id] {
		m.nodeCells[n] = without(m.nodeCells[n], id)
	}
	m.cellLive[id] = false
	return nil
}

// RemoveFace removes a boundary face.
func (m *Mesh) RemoveFace(id int) error {
	if !m.ValidFace(id) {
		return fmt.Errorf("face %d: %w", id, ErrNotFound)
	}
	for _, n := range m.faces[id].Nodes {
		m.nodeFaces[n] = without(m.nodeFaces[n], id)
	}
	m.faceLive[id] = false
	return nil
}

// RemoveEdge removes a boundary edge.
func (m *Mesh) RemoveEdge(id int) error {
	if !m.ValidEdge(id) {
		return fmt.Errorf("edge %d: %w", id, ErrNotFound)
	}
	for _, n := range m.edges[id].Nodes {
		m.nodeEdges[n] = without(m.nodeEdges[n], id)
	}
	m.edgeLive[id] = false
	return nil
}

// RemoveNode removes an unreferenced node. The id is not reused until Compact.
func (m *Mesh) RemoveNode(id int) error {
	if !m.ValidNode(id) {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if len(m.nodeCells[id])+len(m.nodeFaces[id])+len(m.nodeEdges[id]) > 0 {
		return fmt.Errorf("node %d: %w", id, ErrInUse)
	}
	m.nodeLive[id] = false
	return nil
}

func without(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
