package partitions

import (
	"fmt"
	"math"
)

// PartitionStrategy defines how points are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive points
	RoundRobin                              // Distribute cyclically
)

// ParseStrategy maps a configuration name to a strategy
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch name {
	case "block", "":
		return BlockPartition, nil
	case "round_robin":
		return RoundRobin, nil
	default:
		return 0, fmt.Errorf("partitions: unknown strategy %q", name)
	}
}

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round_robin"
	default:
		return fmt.Sprintf("PartitionStrategy(%d)", int(s))
	}
}

// PartitionBuilder constructs partitions over a parameter sample
type PartitionBuilder struct {
	NumPoints int // Size of the parameter sample

	// Partitioning parameters
	TargetPartitionSize int // Desired points per partition
	Strategy            PartitionStrategy
}

// BuildPartitions creates a partition layout
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.NumPoints < 1 {
		return nil, fmt.Errorf("%w: %d points", ErrInvalidLayout, pb.NumPoints)
	}
	if pb.TargetPartitionSize < 1 {
		return nil, fmt.Errorf("%w: target partition size %d", ErrInvalidLayout, pb.TargetPartitionSize)
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the points
	pToP, err := pb.partitionPoints(numPartitions)
	if err != nil {
		return nil, err
	}

	// Create partition structures
	partitions := pb.createPartitions(pToP, numPartitions)

	kpartMax := calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxPoints = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalPoints:   pb.NumPoints,
		NumPartitions: numPartitions,
		PToP:          pToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// calculateNumPartitions determines the partition count from the target size
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := int(math.Ceil(float64(pb.NumPoints) / float64(pb.TargetPartitionSize)))
	return max(numPartitions, 1)
}

// partitionPoints assigns points to partitions
func (pb *PartitionBuilder) partitionPoints(numPartitions int) ([]int, error) {
	pToP := make([]int, pb.NumPoints)

	switch pb.Strategy {
	case BlockPartition:
		pointsPerPartition := int(math.Ceil(float64(pb.NumPoints) / float64(numPartitions)))
		for i := range pToP {
			pToP[i] = min(i/pointsPerPartition, numPartitions-1)
		}
	case RoundRobin:
		for i := range pToP {
			pToP[i] = i % numPartitions
		}
	default:
		return nil, fmt.Errorf("%w: unknown strategy %v", ErrInvalidLayout, pb.Strategy)
	}
	return pToP, nil
}

// createPartitions builds partition structures from point assignments
func (pb *PartitionBuilder) createPartitions(pToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Points: make([]int, 0)}
	}
	for point, part := range pToP {
		partitions[part].Points = append(partitions[part].Points, point)
		partitions[part].NumPoints++
	}
	return partitions
}

// calculateKpartMax finds the maximum point count across all partitions
func calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		kpartMax = max(kpartMax, p.NumPoints)
	}
	return kpartMax
}
