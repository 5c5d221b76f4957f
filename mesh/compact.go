package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Renumbering maps old ids to new ids after Compact. Removed entities map
// to -1.
type Renumbering struct {
	Nodes []int
	Cells []int
	Faces []int
	Edges []int
}

// Compact drops removed entities and re-indexes everything densely,
// preserving relative order. It is the only operation that changes ids;
// callers holding ids (metric fields, schedules) must remap them with the
// returned Renumbering.
func (m *Mesh) Compact() Renumbering {
	r := Renumbering{
		Nodes: renumber(m.nodeLive),
		Cells: renumber(m.cellLive),
		Faces: renumber(m.faceLive),
		Edges: renumber(m.edgeLive),
	}

	old := *m
	*m = Mesh{}
	for id, p := range old.nodes {
		if r.Nodes[id] < 0 {
			continue
		}
		m.AddNode(p)
		m.frozen[r.Nodes[id]] = old.frozen[id]
	}
	for id, c := range old.cells {
		if r.Cells[id] < 0 {
			continue
		}
		for i := range c {
			c[i] = r.Nodes[c[i]]
		}
		_, _ = m.AddCell(c)
	}
	for id, f := range old.faces {
		if r.Faces[id] < 0 {
			continue
		}
		for i := range f.Nodes {
			f.Nodes[i] = r.Nodes[f.Nodes[i]]
		}
		_, _ = m.AddFace(f)
	}
	for id, e := range old.edges {
		if r.Edges[id] < 0 {
			continue
		}
		for i := range e.Nodes {
			e.Nodes[i] = r.Nodes[e.Nodes[i]]
		}
		_, _ = m.AddEdge(e)
	}
	return r
}

func renumber(live []bool) []int {
	out := make([]int, len(live))
	next := 0
	for id, ok := range live {
		if !ok {
			out[id] = -1
			continue
		}
		out[id] = next
		next++
	}
	return out
}

// Centroid is the average of the live node coordinates of ids.
func (m *Mesh) Centroid(ids []int) r3.Vec {
	var (
		c r3.Vec
		n float64
	)
	for _, id := range ids {
		if m.ValidNode(id) {
			c = r3.Add(c, m.nodes[id])
			n++
		}
	}
	if n == 0 {
		return c
	}
	return r3.Scale(1/n, c)
}
