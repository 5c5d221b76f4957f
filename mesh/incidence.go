package mesh

import (
	"fmt"
)

// Class describes how a node is allowed to move.
type Class int

const (
	Interior Class = iota // free in xyz
	OnEdge                // constrained to one CAD curve
	OnFace                // constrained to one CAD surface
	Fixed                 // corner or ridge, never moved
)

func (c Class) String() string {
	switch c {
	case Interior:
		return "interior"
	case OnEdge:
		return "edge"
	case OnFace:
		return "face"
	case Fixed:
		return "fixed"
	}
	return "unknown"
}

// CellsAround returns the ids of the cells incident to node.
func (m *Mesh) CellsAround(node int) ([]int, error) {
	if !m.ValidNode(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	return append([]int(nil), m.nodeCells[node]...), nil
}

// FacesAround returns the ids of the boundary faces incident to node.
func (m *Mesh) FacesAround(node int) ([]int, error) {
	if !m.ValidNode(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	return append([]int(nil), m.nodeFaces[node]...), nil
}

// EdgesAround returns the ids of the boundary edges incident to node.
func (m *Mesh) EdgesAround(node int) ([]int, error) {
	if !m.ValidNode(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	return append([]int(nil), m.nodeEdges[node]...), nil
}

// NodeNeighbors returns the nodes sharing a cell edge with node, in the order
// they are first met walking the incident cells. Nodes with no cells fall
// back to face and then edge adjacency.
func (m *Mesh) NodeNeighbors(node int) ([]int, error) {
	if !m.ValidNode(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	var (
		out  []int
		seen = map[int]bool{node: true}
	)
	add := func(ids []int) {
		for _, n := range ids {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	for _, c := range m.nodeCells[node] {
		add(m.cells[c][:])
	}
	if len(out) == 0 {
		for _, f := range m.nodeFaces[node] {
			add(m.faces[f].Nodes[:])
		}
	}
	if len(out) == 0 {
		for _, e := range m.nodeEdges[node] {
			add(m.edges[e].Nodes[:])
		}
	}
	return out, nil
}

// FindCellWithFace returns the cell containing all three nodes of a boundary
// face together with the cell node opposite the face.
func (m *Mesh) FindCellWithFace(face int) (cell, opposite int, err error) {
	f, err := m.Face(face)
	if err != nil {
		return -1, -1, err
	}
	for _, c := range m.nodeCells[f.Nodes[0]] {
		hits, opp := 0, -1
		for _, n := range m.cells[c] {
			if n == f.Nodes[0] || n == f.Nodes[1] || n == f.Nodes[2] {
				hits++
			} else {
				opp = n
			}
		}
		if hits == 3 {
			return c, opp, nil
		}
	}
	return -1, -1, fmt.Errorf("cell with face %d: %w", face, ErrNotFound)
}

// NodeEdgeGeoms lists the distinct curve geometry ids the node is attached to.
func (m *Mesh) NodeEdgeGeoms(node int) ([]int, error) {
	if !m.ValidNode(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	var geoms []int
	for _, e := range m.nodeEdges[node] {
		geoms = appendUnique(geoms, m.edges[e].Geom)
	}
	return geoms, nil
}

// NodeFaceGeoms lists the distinct surface geometry ids the node is attached to.
func (m *Mesh) NodeFaceGeoms(node int) ([]int, error) {
	if !m.ValidNode(node) {
		return nil, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	var geoms []int
	for _, f := range m.nodeFaces[node] {
		geoms = appendUnique(geoms, m.faces[f].Geom)
	}
	return geoms, nil
}

func appendUnique(ids []int, id int) []int {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

// Classify reports how node may move: one curve means OnEdge, two or more
// curves a corner; one surface without curves means OnFace, two or more a
// ridge. Nodes with no boundary entities are Interior.
func (m *Mesh) Classify(node int) (Class, error) {
	edgeGeoms, err := m.NodeEdgeGeoms(node)
	if err != nil {
		return Fixed, err
	}
	switch {
	case len(edgeGeoms) == 1:
		return OnEdge, nil
	case len(edgeGeoms) > 1:
		return Fixed, nil
	}
	faceGeoms, _ := m.NodeFaceGeoms(node)
	switch len(faceGeoms) {
	case 0:
		return Interior, nil
	case 1:
		return OnFace, nil
	}
	return Fixed, nil
}
