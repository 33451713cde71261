package assembler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/notargets/ROMKernel/store"
)

// Vector is the rank-1 analogue of CSR: it scatters summed duplicate entries
// into a dense vector
type Vector struct {
	n     int
	row   []int
	order []int
	inds  []int
}

// NewVector analyses the index pattern of a rank-1 coordinate list
func NewVector(n int, idx []int) (*Vector, error) {
	if err := checkBounds("index", idx, n); err != nil {
		return nil, err
	}
	order := make([]int, len(idx))
	for p := range order {
		order[p] = p
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(idx[a], idx[b]) })
	inds := segments(len(order), func(a, b int) bool { return idx[order[a]] == idx[order[b]] })

	v := &Vector{n: n, row: make([]int, len(inds)), order: order, inds: inds}
	for s, start := range inds {
		v.row[s] = idx[order[start]]
	}
	return v, nil
}

func (v *Vector) Type() string { return VectorType }

func (v *Vector) Shape() []int { return []int{v.n} }

func (v *Vector) NNZ() int { return len(v.order) }

func (v *Vector) Canonical() int { return len(v.row) }

// Assemble returns a dense vector of length n holding data summed over
// duplicate indices
func (v *Vector) Assemble(data []float64) []float64 {
	checkData(data, len(v.order))
	summed := reduceAt(data, v.order, v.inds)
	out := make([]float64, v.n)
	for s, r := range v.row {
		out[r] = summed[s]
	}
	return out
}

func (v *Vector) Write(g store.Group) error {
	for _, ds := range []struct {
		name string
		data []int
	}{
		{"row", v.row},
		{"order", v.order},
		{"inds", v.inds},
	} {
		if err := g.WriteDataset(ds.name, store.NewCompactInts(ds.data)); err != nil {
			return fmt.Errorf("write vector assembler %s: %w", ds.name, err)
		}
	}
	if err := store.SetIntsAttr(g, "shape", v.Shape()); err != nil {
		return err
	}
	return store.SetStringAttr(g, "type", VectorType)
}

// ReadVector restores a Vector assembler written by Write
func ReadVector(g store.Group) (*Vector, error) {
	shape, err := store.IntsAttr(g, "shape")
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("%w: vector assembler shape %v", store.ErrCorrupt, shape)
	}
	v := &Vector{n: shape[0]}
	if v.row, err = readInts(g, "row"); err != nil {
		return nil, err
	}
	if v.order, err = readInts(g, "order"); err != nil {
		return nil, err
	}
	if v.inds, err = readInts(g, "inds"); err != nil {
		return nil, err
	}
	if len(v.row) != len(v.inds) {
		return nil, fmt.Errorf("%w: %d rows for %d segments", ErrLengthMismatch, len(v.row), len(v.inds))
	}
	if err = validateRuns(v.order, v.inds); err != nil {
		return nil, err
	}
	if err = checkBounds("row", v.row, v.n); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vector) EnsureShareable() {
	v.row, v.order, v.inds = clip(v.row), clip(v.order), clip(v.inds)
}
