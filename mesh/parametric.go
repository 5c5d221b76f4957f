package mesh

import (
	"fmt"
	"gonum.org/v1/gonum/spatial/r3"
)

// NodeT returns the curve parameter of node on curve geom, read from the
// first incident edge on that curve.
func (m *Mesh) NodeT(node, geom int) (float64, error) {
	if !m.ValidNode(node) {
		return 0, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	for _, e := range m.nodeEdges[node] {
		edge := &m.edges[e]
		if edge.Geom != geom {
			continue
		}
		for i, n := range edge.Nodes {
			if n == node {
				return edge.T[i], nil
			}
		}
	}
	return 0, fmt.Errorf("node %d on curve %d: %w", node, geom, ErrNotFound)
}

// SetNodeT writes t into every incident edge on curve geom.
func (m *Mesh) SetNodeT(node, geom int, t float64) error {
	if !m.ValidNode(node) {
		return fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	found := false
	for _, e := range m.nodeEdges[node] {
		edge := &m.edges[e]
		if edge.Geom != geom {
			continue
		}
		for i, n := range edge.Nodes {
			if n == node {
				edge.T[i] = t
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("node %d on curve %d: %w", node, geom, ErrNotFound)
	}
	return nil
}

// NodeUV returns the surface parameters of node on surface geom, read from
// the first incident face on that surface.
func (m *Mesh) NodeUV(node, geom int) ([2]float64, error) {
	if !m.ValidNode(node) {
		return [2]float64{}, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	for _, f := range m.nodeFaces[node] {
		face := &m.faces[f]
		if face.Geom != geom {
			continue
		}
		for i, n := range face.Nodes {
			if n == node {
				return face.UV[i], nil
			}
		}
	}
	return [2]float64{}, fmt.Errorf("node %d on surface %d: %w", node, geom, ErrNotFound)
}

// SetNodeUV writes uv into every incident face on surface geom.
func (m *Mesh) SetNodeUV(node, geom int, uv [2]float64) error {
	if !m.ValidNode(node) {
		return fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	found := false
	for _, f := range m.nodeFaces[node] {
		face := &m.faces[f]
		if face.Geom != geom {
			continue
		}
		for i, n := range face.Nodes {
			if n == node {
				face.UV[i] = uv
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("node %d on surface %d: %w", node, geom, ErrNotFound)
	}
	return nil
}

// NodeState is a snapshot of everything a node move can touch: coordinates
// plus every edge-end t and face-corner uv stored for the node.
type NodeState struct {
	Node int
	X    r3.Vec
	T    map[int]float64    // edge id -> t
	UV   map[int][2]float64 // face id -> uv
}

// SaveNode captures the state of node so a rejected move can be undone
// exactly with RestoreNode.
func (m *Mesh) SaveNode(node int) (NodeState, error) {
	if !m.ValidNode(node) {
		return NodeState{}, fmt.Errorf("node %d: %w", node, ErrNotFound)
	}
	s := NodeState{
		Node: node,
		X:    m.nodes[node],
		T:    make(map[int]float64),
		UV:   make(map[int][2]float64),
	}
	for _, e := range m.nodeEdges[node] {
		for i, n := range m.edges[e].Nodes {
			if n == node {
				s.T[e] = m.edges[e].T[i]
			}
		}
	}
	for _, f := range m.nodeFaces[node] {
		for i, n := range m.faces[f].Nodes {
			if n == node {
				s.UV[f] = m.faces[f].UV[i]
			}
		}
	}
	return s, nil
}

// RestoreNode writes a snapshot back.
func (m *Mesh) RestoreNode(s NodeState) error {
	if !m.ValidNode(s.Node) {
		return fmt.Errorf("node %d: %w", s.Node, ErrNotFound)
	}
	m.nodes[s.Node] = s.X
	for e, t := range s.T {
		if !m.ValidEdge(e) {
			continue
		}
		for i, n := range m.edges[e].Nodes {
			if n == s.Node {
				m.edges[e].T[i] = t
			}
		}
	}
	for f, uv := range s.UV {
		if !m.ValidFace(f) {
			continue
		}
		for i, n := range m.faces[f].Nodes {
			if n == s.Node {
				m.faces[f].UV[i] = uv
			}
		}
	}
	return nil
}
