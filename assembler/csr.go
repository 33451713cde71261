package assembler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/james-bowman/sparse"
	"github.com/notargets/ROMKernel/store"
)

// CSR assembles rank-2 values into compressed sparse row matrices
type CSR struct {
	shape    [2]int
	row, col []int // canonical, deduplicated coordinates sorted by (col, row)
	order    []int // permutation of the raw entries into sorted order
	inds     []int // start of every duplicate run in the permuted entries
}

// NewCSR analyses the (row, col) pattern of a rank-2 coordinate list
func NewCSR(shape [2]int, row, col []int) (*CSR, error) {
	if len(row) != len(col) {
		return nil, fmt.Errorf("%w: %d rows, %d cols", ErrLengthMismatch, len(row), len(col))
	}
	if err := checkBounds("row", row, shape[0]); err != nil {
		return nil, err
	}
	if err := checkBounds("col", col, shape[1]); err != nil {
		return nil, err
	}

	// Column is the primary key, row the secondary; ties keep input order
	order := make([]int, len(row))
	for p := range order {
		order[p] = p
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(col[a], col[b]); c != 0 {
			return c
		}
		return cmp.Compare(row[a], row[b])
	})

	inds := segments(len(order), func(a, b int) bool {
		pa, pb := order[a], order[b]
		return row[pa] == row[pb] && col[pa] == col[pb]
	})

	a := &CSR{
		shape: shape,
		row:   make([]int, len(inds)),
		col:   make([]int, len(inds)),
		order: order,
		inds:  inds,
	}
	for s, start := range inds {
		a.row[s] = row[order[start]]
		a.col[s] = col[order[start]]
	}
	return a, nil
}

func (a *CSR) Type() string { return CSRType }

func (a *CSR) Shape() []int { return []int{a.shape[0], a.shape[1]} }

func (a *CSR) NNZ() int { return len(a.order) }

func (a *CSR) Canonical() int { return len(a.row) }

// Coordinates returns the canonical (row, col) list; callers must not modify it
func (a *CSR) Coordinates() (row, col []int) { return a.row, a.col }

// AssembleRaw sums duplicates in data and returns the CSR arrays. Columns are
// ascending within every row.
func (a *CSR) AssembleRaw(data []float64) (indptr, ind []int, values []float64) {
	checkData(data, len(a.order))
	summed := reduceAt(data, a.order, a.inds)

	M := a.shape[0]
	indptr = make([]int, M+1)
	for _, r := range a.row {
		indptr[r+1]++
	}
	for r := 0; r < M; r++ {
		indptr[r+1] += indptr[r]
	}

	// Canonical entries are column-major, so filling rows in that order keeps
	// each row's columns sorted
	next := make([]int, M)
	copy(next, indptr[:M])
	ind = make([]int, len(a.row))
	values = make([]float64, len(a.row))
	for s, r := range a.row {
		p := next[r]
		ind[p] = a.col[s]
		values[p] = summed[s]
		next[r]++
	}
	return indptr, ind, values
}

// Assemble returns the matrix holding data summed over duplicate coordinates
func (a *CSR) Assemble(data []float64) *sparse.CSR {
	indptr, ind, values := a.AssembleRaw(data)
	return sparse.NewCSR(a.shape[0], a.shape[1], indptr, ind, values)
}

func (a *CSR) Write(g store.Group) error {
	for _, ds := range []struct {
		name string
		data []int
	}{
		{"row", a.row},
		{"col", a.col},
		{"order", a.order},
		{"inds", a.inds},
	} {
		if err := g.WriteDataset(ds.name, store.NewCompactInts(ds.data)); err != nil {
			return fmt.Errorf("write csr assembler %s: %w", ds.name, err)
		}
	}
	if err := store.SetIntsAttr(g, "shape", a.Shape()); err != nil {
		return err
	}
	return store.SetStringAttr(g, "type", CSRType)
}

// ReadCSR restores a CSR assembler written by Write
func ReadCSR(g store.Group) (*CSR, error) {
	shape, err := store.IntsAttr(g, "shape")
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: csr assembler shape %v", store.ErrCorrupt, shape)
	}
	a := &CSR{shape: [2]int{shape[0], shape[1]}}
	for _, f := range []struct {
		name string
		dst  *[]int
	}{
		{"row", &a.row},
		{"col", &a.col},
		{"order", &a.order},
		{"inds", &a.inds},
	} {
		if *f.dst, err = readInts(g, f.name); err != nil {
			return nil, err
		}
	}
	if len(a.row) != len(a.col) || len(a.row) != len(a.inds) {
		return nil, fmt.Errorf("%w: row/col/inds lengths %d/%d/%d", ErrLengthMismatch, len(a.row), len(a.col), len(a.inds))
	}
	if err = validateRuns(a.order, a.inds); err != nil {
		return nil, err
	}
	if err = checkBounds("row", a.row, a.shape[0]); err != nil {
		return nil, err
	}
	if err = checkBounds("col", a.col, a.shape[1]); err != nil {
		return nil, err
	}
	return a, nil
}

// EnsureShareable clips the backing slices so no later append can alias them;
// the assembler is read-only from here on
func (a *CSR) EnsureShareable() {
	a.row, a.col, a.order, a.inds = clip(a.row), clip(a.col), clip(a.order), clip(a.inds)
}
