package partitions

import (
	"errors"
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
)

// ErrConflict is returned by Verify when two partitions could touch the same
// entity.
var ErrConflict = errors.New("partitions: schedule conflict")

// Schedule splits the nodes of a mesh for a concurrent pass. Private[p]
// holds the nodes whose every cell, face and edge lies in partition p; no
// cell, face or edge holds private nodes of two partitions, so partitions may
// be processed in parallel. Shared holds all remaining nodes, processed
// afterwards by a single goroutine. Both keep increasing node id order.
type Schedule struct {
	Private [][]int
	Shared  []int
}

// BuildSchedule assigns every live node of m to one partition's private list
// or to the shared list.
func BuildSchedule(layout *PartitionLayout, m *mesh.Mesh) (*Schedule, error) {
	s := &Schedule{Private: make([][]int, layout.NumPartitions)}
	for _, node := range m.NodeIDs() {
		p, err := privatePartition(layout, m, node)
		if err != nil {
			return nil, err
		}
		if p < 0 {
			s.Shared = append(s.Shared, node)
			continue
		}
		s.Private[p] = append(s.Private[p], node)
	}
	return s, nil
}

// privatePartition is the partition owning all of node's entities, or -1.
func privatePartition(layout *PartitionLayout, m *mesh.Mesh, node int) (int, error) {
	cells, err := m.CellsAround(node)
	if err != nil {
		return -1, err
	}
	if len(cells) == 0 {
		return -1, nil
	}
	p := layout.GetPartition(cells[0])
	if p < 0 {
		return -1, fmt.Errorf("cell %d has no partition", cells[0])
	}
	for _, c := range cells[1:] {
		if layout.GetPartition(c) != p {
			return -1, nil
		}
	}
	faces, _ := m.FacesAround(node)
	for _, f := range faces {
		c, _, err := m.FindCellWithFace(f)
		if err != nil || layout.GetPartition(c) != p {
			return -1, nil
		}
	}
	edges, _ := m.EdgesAround(node)
	for _, e := range edges {
		if !edgeInPartition(layout, m, e, cells, p) {
			return -1, nil
		}
	}
	return p, nil
}

// edgeInPartition reports whether one of cells, all around one endpoint of
// edge e, holds the other endpoint too.
func edgeInPartition(layout *PartitionLayout, m *mesh.Mesh, e int, cells []int, p int) bool {
	edge, err := m.Edge(e)
	if err != nil {
		return false
	}
	for _, c := range cells {
		nodes, _ := m.Cell(c)
		hits := 0
		for _, n := range nodes {
			if n == edge.Nodes[0] || n == edge.Nodes[1] {
				hits++
			}
		}
		if hits == 2 && layout.GetPartition(c) == p {
			return true
		}
	}
	return false
}

// Verify checks that every live node is scheduled exactly once and that no
// cell, face or edge holds private nodes of two partitions.
func (s *Schedule) Verify(m *mesh.Mesh) error {
	owner := make(map[int]int) // node -> partition, -1 shared
	for p, nodes := range s.Private {
		for _, n := range nodes {
			if _, ok := owner[n]; ok {
				return fmt.Errorf("node %d scheduled twice: %w", n, ErrConflict)
			}
			owner[n] = p
		}
	}
	for _, n := range s.Shared {
		if _, ok := owner[n]; ok {
			return fmt.Errorf("node %d scheduled twice: %w", n, ErrConflict)
		}
		owner[n] = -1
	}
	for _, n := range m.NodeIDs() {
		if _, ok := owner[n]; !ok {
			return fmt.Errorf("node %d not scheduled: %w", n, ErrConflict)
		}
	}

	check := func(kind string, id int, nodes []int) error {
		p := -1
		for _, n := range nodes {
			q := owner[n]
			if q < 0 {
				continue
			}
			if p >= 0 && q != p {
				return fmt.Errorf("%s %d holds private nodes of partitions %d and %d: %w",
					kind, id, p, q, ErrConflict)
			}
			p = q
		}
		return nil
	}
	for _, c := range m.CellIDs() {
		nodes, _ := m.Cell(c)
		if err := check("cell", c, nodes[:]); err != nil {
			return err
		}
	}
	for _, f := range m.FaceIDs() {
		face, _ := m.Face(f)
		if err := check("face", f, face.Nodes[:]); err != nil {
			return err
		}
	}
	for _, e := range m.EdgeIDs() {
		edge, _ := m.Edge(e)
		if err := check("edge", e, edge.Nodes[:]); err != nil {
			return err
		}
	}
	return nil
}

// NumPrivate is the number of privately scheduled nodes.
func (s *Schedule) NumPrivate() int {
	n := 0
	for _, nodes := range s.Private {
		n += len(nodes)
	}
	return n
}
