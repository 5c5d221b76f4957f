package quality

import (
	"fmt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"strings"
)

// Report summarizes the quality of a whole mesh.
type Report struct {
	Nodes, Cells, Faces, Edges int
	Frozen                     int

	MinAR, MeanAR, StdDevAR float64
	// ARHistogram counts cells per AR bin: <=0, (0,.1], ..., (.9,1].
	ARHistogram [11]int

	MinVolume, MaxVolume, TotalVolume float64
	Inverted                          int

	MinFaceMR      float64
	RightHanded    bool
	HasBoundary    bool
	MinConformity  float64
	MeanConformity float64
}

// Report collects mesh statistics. An empty mesh gives a zero Report.
func (a *Assessor) Report() (Report, error) {
	m := a.Mesh
	r := Report{
		Nodes: m.NumNodes(),
		Cells: m.NumCells(),
		Faces: m.NumFaces(),
		Edges: m.NumEdges(),
	}
	for _, n := range m.NodeIDs() {
		if m.Frozen(n) {
			r.Frozen++
		}
	}
	if r.Cells == 0 {
		return r, nil
	}

	ids := m.CellIDs()
	ars := make([]float64, len(ids))
	vols := make([]float64, len(ids))
	confs := make([]float64, len(ids))
	for i, c := range ids {
		var err error
		if ars[i], err = a.CellAR(c); err != nil {
			return r, err
		}
		if vols[i], err = a.CellVolume(c); err != nil {
			return r, err
		}
		if confs[i], err = a.CellConformity(c); err != nil {
			return r, err
		}
		if vols[i] <= 0 {
			r.Inverted++
		}
		r.ARHistogram[histogramBin(ars[i])]++
	}
	r.MinAR = floats.Min(ars)
	r.MeanAR, r.StdDevAR = stat.MeanStdDev(ars, nil)
	if len(ars) == 1 {
		r.StdDevAR = 0
	}
	r.MinVolume, r.MaxVolume = floats.Min(vols), floats.Max(vols)
	r.TotalVolume = floats.Sum(vols)
	r.MinConformity = floats.Min(confs)
	r.MeanConformity = stat.Mean(confs, nil)

	if r.Faces > 0 {
		r.HasBoundary = true
		var err error
		if r.MinFaceMR, err = a.MinFaceMR(); err != nil {
			return r, err
		}
		r.RightHanded = a.RightHandedBoundary()
	}
	return r, nil
}

func histogramBin(ar float64) int {
	if ar <= 0 {
		return 0
	}
	b := int(ar*10-1e-12) + 1
	if b > 10 {
		b = 10
	}
	return b
}

func (r Report) String() string {
	var sb strings.Builder

	sb.WriteString("=== Mesh Quality Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Nodes: %d (%d frozen)\n", r.Nodes, r.Frozen))
	sb.WriteString(fmt.Sprintf("  Cells: %d\n", r.Cells))
	sb.WriteString(fmt.Sprintf("  Boundary faces: %d, edges: %d\n", r.Faces, r.Edges))
	if r.Cells == 0 {
		return sb.String()
	}

	sb.WriteString("\n--- Aspect Ratio (metric mean ratio) ---\n")
	sb.WriteString(fmt.Sprintf("  Min: %.6f\n", r.MinAR))
	sb.WriteString(fmt.Sprintf("  Mean: %.6f (stddev %.6f)\n", r.MeanAR, r.StdDevAR))
	sb.WriteString("  Histogram:\n")
	for b, count := range r.ARHistogram {
		if count == 0 {
			continue
		}
		if b == 0 {
			sb.WriteString(fmt.Sprintf("    <= 0.0: %d\n", count))
			continue
		}
		sb.WriteString(fmt.Sprintf("    (%.1f, %.1f]: %d\n", float64(b-1)/10, float64(b)/10, count))
	}

	sb.WriteString("\n--- Volume ---\n")
	sb.WriteString(fmt.Sprintf("  Range: [%.6e, %.6e]\n", r.MinVolume, r.MaxVolume))
	sb.WriteString(fmt.Sprintf("  Total: %.6e\n", r.TotalVolume))
	sb.WriteString(fmt.Sprintf("  Non-positive cells: %d\n", r.Inverted))

	sb.WriteString("\n--- Metric Conformity ---\n")
	sb.WriteString(fmt.Sprintf("  Min: %.6f, Mean: %.6f\n", r.MinConformity, r.MeanConformity))

	if r.HasBoundary {
		sb.WriteString("\n--- Boundary ---\n")
		sb.WriteString(fmt.Sprintf("  Min face mean ratio: %.6f\n", r.MinFaceMR))
		sb.WriteString(fmt.Sprintf("  Right handed: %v\n", r.RightHanded))
	}
	return sb.String()
}
