package mesh

import (
	"fmt"
	gmesh "github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"github.com/notargets/gocfd/utils"
	"gonum.org/v1/gonum/spatial/r3"
	"sort"
)

// ReadFile reads a tetrahedral mesh in any format the gocfd readers
// understand (Gambit neutral, Gmsh, SU2).
func ReadFile(path string) (*Mesh, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mesh %s: %w", path, err)
	}
	m, err := FromGocfd(msh)
	if err != nil {
		return nil, fmt.Errorf("mesh file %s: %w", path, err)
	}
	return m, nil
}

// FromGocfd converts a gocfd mesh. Tets keep their corner nodes and lower
// dimensional elements are skipped. Triangles of every boundary tag become
// faces whose geometry id is the tag id, wound so the owning cell lies on
// their positive side.
func FromGocfd(src *gmesh.Mesh) (*Mesh, error) {
	m := New()
	for i, v := range src.Vertices {
		if len(v) < 3 {
			return nil, fmt.Errorf("vertex %d has %d coordinates, need 3", i, len(v))
		}
		m.AddNode(r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}

	numTets := 0
	for k, nodes := range src.EtoV {
		if k >= len(src.ElementTypes) {
			break
		}
		switch src.ElementTypes[k] {
		case utils.Tet:
		case utils.Hex, utils.Prism, utils.Pyramid:
			return nil, fmt.Errorf("element %d is %s, only tetrahedra are supported",
				k, src.ElementTypes[k].String())
		default:
			continue
		}
		if len(nodes) < 4 {
			return nil, fmt.Errorf("tetrahedral element %d has insufficient nodes", k)
		}
		if _, err := m.AddCell([4]int{nodes[0], nodes[1], nodes[2], nodes[3]}); err != nil {
			return nil, fmt.Errorf("element %d: %w", k, err)
		}
		numTets++
	}
	if numTets == 0 {
		return nil, fmt.Errorf("mesh does not have any tets")
	}

	tagIDs := make(map[string]int, len(src.BoundaryTags))
	for id, name := range src.BoundaryTags {
		tagIDs[name] = id
	}
	names := make([]string, 0, len(src.BoundaryElements))
	for name := range src.BoundaryElements {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		geom, ok := tagIDs[name]
		if !ok {
			geom = i + 1
		}
		for _, be := range src.BoundaryElements[name] {
			if be.ElementType != utils.Triangle || len(be.Nodes) < 3 {
				continue
			}
			f := Face{Nodes: [3]int{be.Nodes[0], be.Nodes[1], be.Nodes[2]}, Geom: geom}
			id, err := m.AddFace(f)
			if err != nil {
				return nil, fmt.Errorf("boundary %s: %w", name, err)
			}
			m.orientFace(id)
		}
	}
	return m, nil
}

// orientFace swaps two corners when the cell behind the face lies on its
// negative side.
func (m *Mesh) orientFace(id int) {
	_, opp, err := m.FindCellWithFace(id)
	if err != nil {
		return
	}
	f := &m.faces[id]
	a, b, c, d := m.nodes[f.Nodes[0]], m.nodes[f.Nodes[1]], m.nodes[f.Nodes[2]], m.nodes[opp]
	if r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a))) < 0 {
		f.Nodes[1], f.Nodes[2] = f.Nodes[2], f.Nodes[1]
		f.UV[1], f.UV[2] = f.UV[2], f.UV[1]
	}
}
