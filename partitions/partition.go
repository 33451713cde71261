package partitions

import (
	"errors"
	"fmt"
)

// ErrInvalidLayout is returned when a layout's bookkeeping is inconsistent
var ErrInvalidLayout = errors.New("partitions: invalid layout")

// Partition represents a collection of parameter points evaluated together
// by one worker
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Point membership
	Points    []int // Global point indices in this partition
	NumPoints int   // Actual number of points
	MaxPoints int   // Padded size, equal across partitions
}

// PartitionLayout manages the complete decomposition of a parameter sample
type PartitionLayout struct {
	// All partitions
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumPoints) across all partitions
	TotalPoints   int // Sum of all points across partitions
	NumPartitions int // Total number of partitions

	// Point to partition mapping
	PToP []int // Length TotalPoints: point k belongs to partition PToP[k]
}

// PartitionedArray stores per-point results contiguously, one block per
// partition
type PartitionedArray struct {
	// Layout: [Partition 0 Data][Partition 1 Data]...[Partition N-1 Data]
	GlobalData []float64

	// Partition p's data starts at GlobalData[Offsets[p]]
	Offsets []int

	// Number of values per point
	Stride int

	layout *PartitionLayout
	slot   []int // position of every global point inside its partition
}

// PartitionStats summarises load balance
type PartitionStats struct {
	NumPartitions int
	MinPoints     int
	MaxPoints     int
	AvgPoints     float64
	Imbalance     float64 // MaxPoints / AvgPoints
}

// GetPartition returns the partition containing point k
func (pl *PartitionLayout) GetPartition(pointID int) int {
	if pointID < 0 || pointID >= len(pl.PToP) {
		return -1
	}
	return pl.PToP[pointID]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if pl.NumPartitions != len(pl.Partitions) {
		return fmt.Errorf("%w: NumPartitions %d != %d partitions", ErrInvalidLayout, pl.NumPartitions, len(pl.Partitions))
	}
	if len(pl.PToP) != pl.TotalPoints {
		return fmt.Errorf("%w: PToP has %d entries for %d points", ErrInvalidLayout, len(pl.PToP), pl.TotalPoints)
	}

	actualMax, total := 0, 0
	for id, p := range pl.Partitions {
		if p.ID != id {
			return fmt.Errorf("%w: partition at %d has ID %d", ErrInvalidLayout, id, p.ID)
		}
		if p.NumPoints != len(p.Points) {
			return fmt.Errorf("%w: partition %d: NumPoints %d != %d points", ErrInvalidLayout, p.ID, p.NumPoints, len(p.Points))
		}
		if p.MaxPoints != pl.KpartMax {
			return fmt.Errorf("%w: partition %d: MaxPoints %d != KpartMax %d",
				ErrInvalidLayout, p.ID, p.MaxPoints, pl.KpartMax)
		}
		for _, k := range p.Points {
			if pl.GetPartition(k) != p.ID {
				return fmt.Errorf("%w: point %d listed in partition %d, mapped to %d",
					ErrInvalidLayout, k, p.ID, pl.GetPartition(k))
			}
		}
		actualMax = max(actualMax, p.NumPoints)
		total += p.NumPoints
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("%w: computed KpartMax %d != stored KpartMax %d",
			ErrInvalidLayout, actualMax, pl.KpartMax)
	}
	if total != pl.TotalPoints {
		return fmt.Errorf("%w: partitions hold %d points, layout has %d", ErrInvalidLayout, total, pl.TotalPoints)
	}
	return nil
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		AvgPoints:     float64(pl.TotalPoints) / float64(pl.NumPartitions),
	}
	for n, p := range pl.Partitions {
		if n == 0 || p.NumPoints < stats.MinPoints {
			stats.MinPoints = p.NumPoints
		}
		stats.MaxPoints = max(stats.MaxPoints, p.NumPoints)
	}
	if stats.AvgPoints > 0 {
		stats.Imbalance = float64(stats.MaxPoints) / stats.AvgPoints
	}
	return stats
}

// AllocatePartitionedArray creates result storage for stride values per point.
// Every partition block is padded to KpartMax points.
func AllocatePartitionedArray(layout *PartitionLayout, stride int) *PartitionedArray {
	offsets := make([]int, layout.NumPartitions+1)
	for i := range layout.Partitions {
		offsets[i+1] = offsets[i] + layout.KpartMax*stride
	}
	slot := make([]int, layout.TotalPoints)
	for _, p := range layout.Partitions {
		for local, k := range p.Points {
			slot[k] = local
		}
	}
	return &PartitionedArray{
		GlobalData: make([]float64, offsets[layout.NumPartitions]),
		Offsets:    offsets,
		Stride:     stride,
		layout:     layout,
		slot:       slot,
	}
}

// GetPartitionData returns a slice for partition p's data
func (pa *PartitionedArray) GetPartitionData(partitionID int) []float64 {
	if partitionID < 0 || partitionID >= len(pa.Offsets)-1 {
		return nil
	}
	return pa.GlobalData[pa.Offsets[partitionID]:pa.Offsets[partitionID+1]]
}

// Point returns the Stride values owned by a global point. Distinct points
// never share storage, so workers may fill their own points concurrently.
func (pa *PartitionedArray) Point(pointID int) []float64 {
	part := pa.layout.GetPartition(pointID)
	if part < 0 {
		return nil
	}
	start := pa.Offsets[part] + pa.slot[pointID]*pa.Stride
	return pa.GlobalData[start : start+pa.Stride]
}

// Gather copies the results back into global point order
func (pa *PartitionedArray) Gather() []float64 {
	out := make([]float64, pa.layout.TotalPoints*pa.Stride)
	for k := 0; k < pa.layout.TotalPoints; k++ {
		copy(out[k*pa.Stride:], pa.Point(k))
	}
	return out
}
