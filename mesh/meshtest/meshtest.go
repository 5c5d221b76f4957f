// Package meshtest builds small meshes and an analytic CAD model for tests.
//
// The model maps surface geometry onto the plane z=0 with u = x+10 and
// v = y+20, and curve geometry onto the x axis with t = x.
package meshtest

import (
	"github.com/notargets/tetsmooth/cad"
	"github.com/notargets/tetsmooth/mesh"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
)

// Surface and curve ids known to Model.
var (
	SurfaceGeoms = []int{1, 7, 8, 10, 55}
	CurveGeoms   = []int{1, 5, 20}
)

// Model returns the analytic test geometry.
func Model() *cad.Model {
	plane := cad.Plane{Origin: r3.Vec{X: -10, Y: -20}, U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	line := cad.Line{Dir: r3.Vec{X: 1}}
	return cad.NewModel().AddSurface(plane, SurfaceGeoms...).AddCurve(line, CurveGeoms...)
}

// PlaneUV is the surface parameter of p on the test plane.
func PlaneUV(p r3.Vec) [2]float64 {
	return [2]float64{p.X + 10, p.Y + 20}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func addNodes(m *mesh.Mesh, pts ...r3.Vec) {
	for _, p := range pts {
		m.AddNode(p)
	}
}

func addCells(m *mesh.Mesh, cells ...[4]int) {
	for _, c := range cells {
		must(m.AddCell(c))
	}
}

// addPlaneFace adds a face on geom with the corners' exact plane parameters.
func addPlaneFace(m *mesh.Mesh, geom int, nodes [3]int) {
	f := mesh.Face{Nodes: nodes, Geom: geom}
	for i, n := range nodes {
		f.UV[i] = PlaneUV(must(m.Node(n)))
	}
	must(m.AddFace(f))
}

// RightTet is the unit right tetrahedron.
func RightTet() *mesh.Mesh {
	m := mesh.New()
	addNodes(m, r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	addCells(m, [4]int{0, 1, 2, 3})
	return m
}

// IsoTet is a nearly regular tetrahedron with node 0 shifted by xpert along x
// and node 3 shifted by zpert along z. Face 0-1-2 lies on surface 10 with
// the pre-perturbation parameters of node 0 recorded as 10+xpert; with edge
// set, 0-1 also lies on curve 20.
func IsoTet(xpert, zpert float64, edge bool) *mesh.Mesh {
	m := mesh.New()
	addNodes(m,
		r3.Vec{X: xpert},
		r3.Vec{X: 1},
		r3.Vec{X: 0.5, Y: 0.866},
		r3.Vec{X: 0.5, Y: 0.289, Z: 0.823 + zpert},
	)
	addCells(m, [4]int{0, 1, 2, 3})
	must(m.AddFace(mesh.Face{
		Nodes: [3]int{0, 1, 2},
		Geom:  10,
		UV:    [3][2]float64{{10 + xpert, 20}, {11, 20}, {10.5, 20.866}},
	}))
	if edge {
		must(m.AddEdge(mesh.Edge{Nodes: [2]int{0, 1}, Geom: 20, T: [2]float64{xpert, 1}}))
	}
	return m
}

// GemGrid is a ring of n nodes around the x axis between poles at x=±1, with
// an interior node at (disp,disp,disp) shared by all 2n cells. Ring node
// dent, if in [0,n), is pulled to dentRatio times the unit radius. Nodes:
// 0 and 1 are the poles, 2..n+1 the ring, n+2 the center.
func GemGrid(n int, disp float64, dent int, dentRatio float64) *mesh.Mesh {
	m := mesh.New()
	addNodes(m, r3.Vec{X: 1}, r3.Vec{X: -1})
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i-1) / float64(n)
		s := 1.0
		if i == dent {
			s = dentRatio
		}
		m.AddNode(r3.Vec{Y: s * math.Sin(angle), Z: s * math.Cos(angle)})
	}
	center := m.AddNode(r3.Vec{X: disp, Y: disp, Z: disp})
	ring := func(i int) int { return 2 + i%n }
	for i := 0; i < n; i++ {
		a, b := ring(i), ring(i+1)
		addCells(m, [4]int{0, center, a, b})
		must(m.AddFace(mesh.Face{Nodes: [3]int{0, a, b}, Geom: i + 1}))
		addCells(m, [4]int{center, 1, a, b})
		must(m.AddFace(mesh.Face{Nodes: [3]int{1, b, a}, Geom: i + 1}))
	}
	return m
}

// IsoTet4 splits a nearly regular tetrahedron into four cells around node 4,
// placed at height 0.8h above the base. h<0 tangles the mesh.
func IsoTet4(h float64) *mesh.Mesh {
	m := mesh.New()
	addNodes(m,
		r3.Vec{},
		r3.Vec{X: 1},
		r3.Vec{X: 0.5, Y: 0.866},
		r3.Vec{X: 0.5, Y: 0.35, Z: 0.8},
		r3.Vec{X: 0.5, Y: 0.35, Z: 0.8 * h},
	)
	addCells(m,
		[4]int{0, 1, 2, 4},
		[4]int{0, 3, 1, 4},
		[4]int{1, 3, 2, 4},
		[4]int{0, 2, 3, 4},
	)
	for _, f := range [][3]int{{0, 1, 2}, {0, 3, 1}, {1, 3, 2}, {0, 2, 3}} {
		must(m.AddFace(mesh.Face{Nodes: f, Geom: 10}))
	}
	return m
}

// RightTet3 is the unit right tetrahedron split into three cells around node
// 0 on its base, with node 0 pushed out to (1,1,0) so one cell is inverted.
// The base faces lie on surface 10; the side faces carry geometry 99, which
// Model does not know.
func RightTet3() *mesh.Mesh {
	m := mesh.New()
	addNodes(m, r3.Vec{X: 1, Y: 1}, r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	for _, f := range [][3]int{{1, 4, 2}, {2, 4, 3}, {1, 3, 4}} {
		must(m.AddFace(mesh.Face{Nodes: f, Geom: 99}))
	}
	addCells(m, [4]int{1, 4, 2, 0}, [4]int{2, 4, 3, 0}, [4]int{1, 3, 4, 0})
	for _, f := range [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}} {
		addPlaneFace(m, 10, f)
	}
	return m
}

// UnprojectableTet has node 0 below surface 10 such that projecting it onto
// the surface inverts the cell. With edge set, 0-1 also lies on curve 20.
func UnprojectableTet(edge bool) *mesh.Mesh {
	m := mesh.New()
	addNodes(m, r3.Vec{Z: -0.5}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: -0.1})
	addCells(m, [4]int{0, 1, 2, 3})
	must(m.AddFace(mesh.Face{Nodes: [3]int{0, 1, 2}, Geom: 10}))
	if edge {
		must(m.AddEdge(mesh.Edge{Nodes: [2]int{0, 1}, Geom: 20, T: [2]float64{0, 1}}))
	}
	return m
}

// ProjectionTet is a right tetrahedron lifted off surface 10 and curve 20,
// plus a free node 0 outside it.
func ProjectionTet() *mesh.Mesh {
	m := mesh.New()
	addNodes(m,
		r3.Vec{X: 5, Y: 5, Z: 5},
		r3.Vec{Y: 0.1, Z: 0.1},
		r3.Vec{X: 1, Y: 0.1, Z: 0.1},
		r3.Vec{Y: 1, Z: 0.1},
		r3.Vec{Z: 1},
	)
	addCells(m, [4]int{1, 2, 3, 4})
	must(m.AddFace(mesh.Face{Nodes: [3]int{1, 2, 3}, Geom: 10}))
	must(m.AddEdge(mesh.Edge{Nodes: [2]int{1, 2}, Geom: 20, T: [2]float64{0, 1}}))
	return m
}

// ThreeSurfaceTriangles fans node 3 at (x,y,0) to the corners of the unit
// right triangle on surface 55. The single cell is flat.
func ThreeSurfaceTriangles(x, y float64) *mesh.Mesh {
	m := mesh.New()
	addNodes(m, r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: x, Y: y})
	for _, f := range [][3]int{{0, 1, 3}, {1, 2, 3}, {2, 0, 3}} {
		addPlaneFace(m, 55, f)
	}
	addCells(m, [4]int{0, 1, 2, 3})
	return m
}
