package partitions

import (
	"fmt"
	"github.com/notargets/tetsmooth/mesh"
	"gonum.org/v1/gonum/spatial/r3"
	"math"
	"sort"
)

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	// Mesh connectivity
	Mesh *MeshConnectivity

	// Partitioning parameters
	TargetPartitionSize int // Desired cells per partition
	Strategy            PartitionStrategy
}

// MeshConnectivity provides the mesh topology needed for partitioning
type MeshConnectivity struct {
	NumElements int      // Live cells
	Capacity    int      // Cell id bound, including removed cells
	Elements    []int    // Live cell ids in increasing order
	Centroids   []r3.Vec // Centroid of Elements[i]
}

// NewMeshConnectivity snapshots the live cells of m.
func NewMeshConnectivity(m *mesh.Mesh) (*MeshConnectivity, error) {
	ids := m.CellIDs()
	mc := &MeshConnectivity{
		NumElements: len(ids),
		Capacity:    m.CellCapacity(),
		Elements:    ids,
		Centroids:   make([]r3.Vec, len(ids)),
	}
	for i, c := range ids {
		nodes, err := m.Cell(c)
		if err != nil {
			return nil, err
		}
		mc.Centroids[i] = m.Centroid(nodes[:])
	}
	return mc, nil
}

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive cell ids
	RoundRobin                              // Distribute cyclically

	SpaceFillingCurve // Morton order of cell centroids, then blocks
)

// ParseStrategy maps a configuration name to a strategy.
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch name {
	case "block":
		return BlockPartition, nil
	case "round-robin":
		return RoundRobin, nil
	case "morton":
		return SpaceFillingCurve, nil
	}
	return BlockPartition, fmt.Errorf("unknown partition strategy %q", name)
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil {
		return nil, fmt.Errorf("partition builder: no mesh")
	}
	if pb.TargetPartitionSize < 1 {
		return nil, fmt.Errorf("target partition size must be positive, got %d", pb.TargetPartitionSize)
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the elements
	eToP := pb.partitionElements(numPartitions)

	// Create partition structures
	partitions := pb.createPartitions(eToP, numPartitions)

	// Create the layout
	layout := &PartitionLayout{
		Partitions:    partitions,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}

	// Validate the layout
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateNumPartitions determines partition count
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))

	// Ensure at least one partition
	if numPartitions < 1 {
		numPartitions = 1
	}

	return numPartitions
}

// partitionElements assigns elements to partitions, indexed by cell id
func (pb *PartitionBuilder) partitionElements(numPartitions int) []int {
	eToP := make([]int, pb.Mesh.Capacity)
	for i := range eToP {
		eToP[i] = -1
	}

	order := pb.Mesh.Elements
	if pb.Strategy == SpaceFillingCurve {
		order = pb.mortonOrder()
	}

	switch pb.Strategy {
	case RoundRobin:
		// Distribute elements cyclically
		for i, elem := range order {
			eToP[elem] = i % numPartitions
		}

	default:
		// Block partitioning over the chosen order
		elementsPerPartition := int(math.Ceil(float64(len(order)) / float64(numPartitions)))
		if elementsPerPartition < 1 {
			elementsPerPartition = 1
		}
		for i, elem := range order {
			eToP[elem] = i / elementsPerPartition
			if eToP[elem] >= numPartitions {
				eToP[elem] = numPartitions - 1
			}
		}
	}

	return eToP
}

// mortonOrder sorts the live cells along a Z-order curve through their
// centroids so that blocks of the result are spatially compact.
func (pb *PartitionBuilder) mortonOrder() []int {
	n := len(pb.Mesh.Elements)
	if n == 0 {
		return nil
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, c := range pb.Mesh.Centroids {
		lo = r3.Vec{X: math.Min(lo.X, c.X), Y: math.Min(lo.Y, c.Y), Z: math.Min(lo.Z, c.Z)}
		hi = r3.Vec{X: math.Max(hi.X, c.X), Y: math.Max(hi.Y, c.Y), Z: math.Max(hi.Z, c.Z)}
	}
	keys := make([]uint64, n)
	for i, c := range pb.Mesh.Centroids {
		keys[i] = mortonKey(quantize(c.X, lo.X, hi.X), quantize(c.Y, lo.Y, hi.Y), quantize(c.Z, lo.Z, hi.Z))
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })
	order := make([]int, n)
	for i, j := range idx {
		order[i] = pb.Mesh.Elements[j]
	}
	return order
}

const mortonBits = 21

func quantize(x, lo, hi float64) uint64 {
	if hi <= lo {
		return 0
	}
	q := (x - lo) / (hi - lo) * float64(uint64(1)<<mortonBits-1)
	return uint64(math.Round(q))
}

// mortonKey interleaves the low 21 bits of x, y and z.
func mortonKey(x, y, z uint64) uint64 {
	return spread(x) | spread(y)<<1 | spread(z)<<2
}

func spread(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)

	// Initialize partitions
	for i := range partitions {
		partitions[i] = Partition{
			ID:       i,
			Elements: make([]int, 0),
		}
	}

	// Assign elements to partitions
	for elem, part := range eToP {
		if part < 0 {
			continue
		}
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}

	return partitions
}
