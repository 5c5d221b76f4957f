package cad

import (
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
)

// ProjectNodeToEdge moves node to the closest point of curve geom and stores
// the new t on every edge end of the node on that curve.
func ProjectNodeToEdge(m *mesh.Mesh, ev Evaluator, node, geom int) error {
	if _, err := m.NodeT(node, geom); err != nil {
		return fmt.Errorf("project node %d to curve %d: %w", node, geom, ErrNotAttached)
	}
	p, err := m.Node(node)
	if err != nil {
		return err
	}
	t, err := ev.EdgeParameter(geom, p)
	if err != nil {
		return err
	}
	x, err := ev.EdgePoint(geom, t)
	if err != nil {
		return err
	}
	if err := m.SetNode(node, x); err != nil {
		return err
	}
	return m.SetNodeT(node, geom, t)
}

// ProjectNodeToFace moves node to the closest point of surface geom and
// stores the new (u,v) on every face corner of the node on that surface.
func ProjectNodeToFace(m *mesh.Mesh, ev Evaluator, node, geom int) error {
	if _, err := m.NodeUV(node, geom); err != nil {
		return fmt.Errorf("project node %d to surface %d: %w", node, geom, ErrNotAttached)
	}
	p, err := m.Node(node)
	if err != nil {
		return err
	}
	uv, err := ev.FaceParameter(geom, p)
	if err != nil {
		return err
	}
	x, err := ev.FacePoint(geom, uv)
	if err != nil {
		return err
	}
	if err := m.SetNode(node, x); err != nil {
		return err
	}
	return m.SetNodeUV(node, geom, uv)
}

// ProjectNode puts node back on its geometry according to its class. Edge
// nodes go to their curve and then have their surface parameters refreshed.
// Face nodes go to their surface. Interior and fixed nodes are left alone.
func ProjectNode(m *mesh.Mesh, ev Evaluator, node int) error {
	class, err := m.Classify(node)
	if err != nil {
		return err
	}
	switch class {
	case mesh.OnEdge:
		geoms, _ := m.NodeEdgeGeoms(node)
		if err := ProjectNodeToEdge(m, ev, node, geoms[0]); err != nil {
			return err
		}
		return UpdateFaceParameters(m, ev, node)
	case mesh.OnFace:
		geoms, _ := m.NodeFaceGeoms(node)
		return ProjectNodeToFace(m, ev, node, geoms[0])
	}
	return nil
}

// UpdateFaceParameters recomputes the (u,v) of node on every surface it
// touches from its current coordinates.
func UpdateFaceParameters(m *mesh.Mesh, ev Evaluator, node int) error {
	p, err := m.Node(node)
	if err != nil {
		return err
	}
	geoms, err := m.NodeFaceGeoms(node)
	if err != nil {
		return err
	}
	for _, g := range geoms {
		uv, err := ev.FaceParameter(g, p)
		if err != nil {
			return err
		}
		if err := m.SetNodeUV(node, g, uv); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateEdgeAtT places an edge node at parameter t of its curve and
// refreshes its surface parameters.
func EvaluateEdgeAtT(m *mesh.Mesh, ev Evaluator, node int, t float64) error {
	geoms, err := m.NodeEdgeGeoms(node)
	if err != nil {
		return err
	}
	if len(geoms) != 1 {
		return fmt.Errorf("evaluate node %d on %d curves: %w", node, len(geoms), ErrNotAttached)
	}
	x, err := ev.EdgePoint(geoms[0], t)
	if err != nil {
		return err
	}
	if err := m.SetNode(node, x); err != nil {
		return err
	}
	if err := m.SetNodeT(node, geoms[0], t); err != nil {
		return err
	}
	return UpdateFaceParameters(m, ev, node)
}

// EvaluateFaceAtUV places a face node at (u,v) of its surface. Nodes held by
// a curve are refused with ErrOnCurve.
func EvaluateFaceAtUV(m *mesh.Mesh, ev Evaluator, node int, uv [2]float64) error {
	edgeGeoms, err := m.NodeEdgeGeoms(node)
	if err != nil {
		return err
	}
	if len(edgeGeoms) > 0 {
		return fmt.Errorf("evaluate node %d: %w", node, ErrOnCurve)
	}
	geoms, _ := m.NodeFaceGeoms(node)
	if len(geoms) != 1 {
		return fmt.Errorf("evaluate node %d on %d surfaces: %w", node, len(geoms), ErrNotAttached)
	}
	x, err := ev.FacePoint(geoms[0], uv)
	if err != nil {
		return err
	}
	if err := m.SetNode(node, x); err != nil {
		return err
	}
	return m.SetNodeUV(node, geoms[0], uv)
}
