// Package assembler turns unordered, possibly duplicated coordinate lists that
// share a fixed sparsity pattern into assembled sparse matrices and vectors.
//
// The coordinate analysis (stable sort + deduplication) is done once at
// construction. Every later Assemble call with a new value vector over the
// same pattern costs O(nnz): permute, sum each duplicate run, scatter.
package assembler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/notargets/ROMKernel/store"
)

var (
	// ErrOutOfBounds is returned when a coordinate exceeds the target shape
	ErrOutOfBounds = errors.New("assembler: coordinate out of bounds")

	// ErrLengthMismatch is returned when coordinate arrays differ in length
	ErrLengthMismatch = errors.New("assembler: length mismatch")

	// ErrUnknownType is returned when a persisted group names no assembler type
	ErrUnknownType = errors.New("assembler: unknown type")
)

// Persisted type names
const (
	CSRType    = "CSRAssembler"
	VectorType = "VectorAssembler"
)

// Assembler is the capability shared by the CSR and Vector assemblers
type Assembler interface {
	// Type is the persisted type name
	Type() string
	// Shape of the assembled result
	Shape() []int
	// NNZ is the number of raw entries a value vector must have
	NNZ() int
	// Canonical is the number of distinct coordinates
	Canonical() int
	Write(g store.Group) error
	EnsureShareable()
}

// Read reconstructs whichever assembler the group's type attribute names
func Read(g store.Group) (Assembler, error) {
	typ, err := store.StringAttr(g, "type")
	if err != nil {
		return nil, err
	}
	switch typ {
	case CSRType:
		return ReadCSR(g)
	case VectorType:
		return ReadVector(g)
	default:
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownType, typ, g.Path())
	}
}

// segments computes, for keys already permuted into sorted order, the start
// offset of every run of equal keys
func segments(n int, same func(a, b int) bool) []int {
	if n == 0 {
		return []int{}
	}
	inds := []int{0}
	for p := 1; p < n; p++ {
		if !same(p-1, p) {
			inds = append(inds, p)
		}
	}
	return inds
}

// reduceAt permutes data by order and sums each run starting at inds
func reduceAt(data []float64, order, inds []int) []float64 {
	out := make([]float64, len(inds))
	for s, start := range inds {
		end := len(order)
		if s+1 < len(inds) {
			end = inds[s+1]
		}
		var sum float64
		for p := start; p < end; p++ {
			sum += data[order[p]]
		}
		out[s] = sum
	}
	return out
}

func checkBounds(name string, idx []int, limit int) error {
	for p, v := range idx {
		if v < 0 || v >= limit {
			return fmt.Errorf("%w: %s[%d]=%d, limit %d", ErrOutOfBounds, name, p, v, limit)
		}
	}
	return nil
}

func checkData(data []float64, nnz int) {
	if len(data) != nnz {
		panic(fmt.Sprintf("assembler: data length %d does not match pattern length %d", len(data), nnz))
	}
}

// readInts reads an integer dataset of a persisted assembler
func readInts(g store.Group, name string) ([]int, error) {
	ds, err := g.ReadDataset(name)
	if err != nil {
		return nil, err
	}
	if !ds.DType.IsInt() {
		return nil, fmt.Errorf("dataset %s%s is %s: %w", g.Path(), name, ds.DType, store.ErrCorrupt)
	}
	return ds.Ints, nil
}

func validateRuns(order, inds []int) error {
	if len(inds) > len(order) {
		return fmt.Errorf("%w: %d segments for %d entries", ErrLengthMismatch, len(inds), len(order))
	}
	for s := range inds {
		if (s == 0 && inds[s] != 0) || (s > 0 && inds[s] <= inds[s-1]) || inds[s] >= len(order) {
			return fmt.Errorf("%w: segment starts are not increasing", store.ErrCorrupt)
		}
	}
	if err := checkBounds("order", order, len(order)); err != nil {
		return err
	}
	return nil
}

func clip(s []int) []int { return slices.Clip(s) }
