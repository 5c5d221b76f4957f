// Package partitions splits the cells of a mesh into groups that can be
// smoothed concurrently, and schedules the nodes of each group so that no
// two goroutines ever touch the same cell, face or edge.
package partitions

import (
	"fmt"
	"math"
	"strings"
)

// Partition represents a collection of cells whose interior nodes are
// smoothed together by one goroutine
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Element membership
	Elements    []int // Cell ids in this partition
	NumElements int   // Actual number of cells
}

// PartitionLayout manages the complete mesh decomposition
type PartitionLayout struct {
	// All partitions in the mesh
	Partitions []Partition

	// Global sizing information
	TotalElements int // Sum of all cells across partitions
	NumPartitions int // Total number of partitions

	// Element to partition mapping, indexed by cell id. Removed cells map
	// to -1.
	EToP []int
}

// GetPartition returns the partition containing cell k, or -1
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("%d partitions stored, NumPartitions %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	total := 0
	for i, p := range pl.Partitions {
		if p.ID != i {
			return fmt.Errorf("partition at %d has ID %d", i, p.ID)
		}
		if p.NumElements != len(p.Elements) {
			return fmt.Errorf("partition %d: NumElements %d != %d elements",
				p.ID, p.NumElements, len(p.Elements))
		}
		for _, e := range p.Elements {
			if pl.GetPartition(e) != p.ID {
				return fmt.Errorf("element %d listed in partition %d but mapped to %d",
					e, p.ID, pl.GetPartition(e))
			}
		}
		total += p.NumElements
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, TotalElements %d",
			total, pl.TotalElements)
	}
	return nil
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
		MaxElements:   0,
	}
	if pl.NumPartitions == 0 {
		stats.MinElements = 0
		return stats
	}
	stats.AvgElements = float64(pl.TotalElements) / float64(pl.NumPartitions)

	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}

	if stats.AvgElements > 0 {
		stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	}

	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

func (s PartitionStats) String() string {
	var sb strings.Builder
	sb.WriteString("=== Partition Summary ===\n")
	sb.WriteString(fmt.Sprintf("Partitions: %d\n", s.NumPartitions))
	sb.WriteString(fmt.Sprintf("Elements per partition: min %d, max %d, avg %.1f\n",
		s.MinElements, s.MaxElements, s.AvgElements))
	sb.WriteString(fmt.Sprintf("Imbalance: %.3f\n", s.Imbalance))
	return sb.String()
}
