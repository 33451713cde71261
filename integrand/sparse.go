package integrand

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/notargets/ROMKernel/assembler"
	"github.com/notargets/ROMKernel/store"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sparse wraps an assembled rank-2 matrix in compressed sparse row form
type Sparse struct {
	base
	m *sparse.CSR
}

// NewSparse copies the nonzeros of m, summing any repeated coordinates
func NewSparse(m *sparse.CSR) *Sparse {
	r, c := m.Dims()
	raw := m.RawMatrix()
	nnz := raw.Indptr[r]
	row := make([]int, nnz)
	for i := 0; i < r; i++ {
		for p := raw.Indptr[i]; p < raw.Indptr[i+1]; p++ {
			row[p] = i
		}
	}
	a, err := assembler.NewCSR([2]int{r, c}, row, raw.Ind[:nnz])
	if err != nil {
		// a valid CSR holds in-range coordinates
		panic(err)
	}
	return &Sparse{base: newBase(), m: a.Assemble(raw.Data[:nnz])}
}

// NewSparseFromTriplets assembles a (row, col, value) list, summing duplicates
func NewSparseFromTriplets(shape [2]int, row, col []int, data []float64) (*Sparse, error) {
	a, err := assembler.NewCSR(shape, row, col)
	if err != nil {
		return nil, err
	}
	if len(data) != a.NNZ() {
		return nil, fmt.Errorf("%w: %d values for %d coordinates", assembler.ErrLengthMismatch, len(data), a.NNZ())
	}
	return &Sparse{base: newBase(), m: a.Assemble(data)}, nil
}

func (s *Sparse) Kind() Kind { return SparseKind }

func (s *Sparse) Shape() []int {
	r, c := s.m.Dims()
	return []int{r, c}
}

func (s *Sparse) Rank() int { return 2 }

// NNZ is the number of stored entries
func (s *Sparse) NNZ() int { return len(s.m.RawMatrix().Data) }

// CSR returns a newly allocated matrix holding the same entries
func (s *Sparse) CSR() *sparse.CSR {
	r, c := s.m.Dims()
	raw := s.m.RawMatrix()
	return sparse.NewCSR(r, c,
		append([]int(nil), raw.Indptr...),
		append([]int(nil), raw.Ind...),
		append([]float64(nil), raw.Data...))
}

// ToArray densifies the matrix
func (s *Sparse) ToArray() *Array { return FromMatrix(s.m.ToDense()) }

// mulVec returns A x, or Aᵀ x when trans is set
func (s *Sparse) mulVec(x []float64, trans bool) []float64 {
	r, c := s.m.Dims()
	if trans {
		r = c
	}
	dst := make([]float64, r)
	s.m.MulVecTo(dst, trans, x)
	return dst
}

// Get supports every contraction, including the full bilinear form a·A·b
func (s *Sparse) Get(c Contraction) (any, error) {
	axes, err := checkContraction(s.Shape(), c)
	if err != nil {
		return nil, err
	}
	switch len(axes) {
	case 0:
		return s.CSR(), nil
	case 2:
		return floats.Dot(c[0], s.mulVec(c[1], false)), nil
	}
	return Vector(s.mulVec(c[axes[0]], axes[0] == 0)), nil
}

// Contract eliminates at most one axis; the row axis gives Aᵀc, the column
// axis A c
func (s *Sparse) Contract(c Contraction) (Integrand, error) {
	axes, err := checkContraction(s.Shape(), c)
	if err != nil {
		return nil, err
	}
	switch len(axes) {
	case 0:
		return s, nil
	case 2:
		return nil, fmt.Errorf("%w: sparse matrices contract one axis at a time", ErrInvalidContraction)
	}
	return NewDense(Vector(s.mulVec(c[axes[0]], axes[0] == 0))), nil
}

// Project sandwiches the matrix as Pa A Pbᵀ, skipping no-op sides. With both
// sides no-op the receiver is returned.
func (s *Sparse) Project(p Projection) (Integrand, error) {
	axes, err := checkProjection(s.Shape(), p)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return s, nil
	}

	var right mat.Matrix = s.m
	if pb := p[1]; pb != nil {
		var apb mat.Dense
		apb.Mul(s.m, pb.T())
		right = &apb
	}
	var out mat.Dense
	if pa := p[0]; pa != nil {
		out.Mul(pa, right)
	} else {
		out.CloneFrom(right)
	}
	return NewDense(FromMatrix(&out)), nil
}

func (s *Sparse) Cache() Integrand { return s }

func (s *Sparse) EnsureShareable() {
	r, c := s.m.Dims()
	raw := s.m.RawMatrix()
	s.m = sparse.NewCSR(r, c, clipInts(raw.Indptr), clipInts(raw.Ind), clipFloats(raw.Data))
	s.props.freeze()
}

func (s *Sparse) Write(g store.Group, name string) (store.Group, error) {
	sub, err := writeHeader(g, name, SparseKind, s.props)
	if err != nil {
		return nil, err
	}
	dg, err := sub.RequireGroup("data")
	if err != nil {
		return nil, err
	}
	raw := s.m.RawMatrix()
	if err = dg.WriteDataset("data", store.NewFloats([]int{len(raw.Data)}, raw.Data)); err != nil {
		return nil, err
	}
	if err = dg.WriteDataset("indices", store.NewCompactInts(raw.Ind)); err != nil {
		return nil, err
	}
	if err = dg.WriteDataset("indptr", store.NewCompactInts(raw.Indptr)); err != nil {
		return nil, err
	}
	if err = store.SetIntsAttr(dg, "shape", s.Shape()); err != nil {
		return nil, err
	}
	return sub, nil
}

func readSparse(g store.Group) (Integrand, error) {
	dg, err := requireGroup(g, "data")
	if err != nil {
		return nil, err
	}
	shape, err := requireShape(dg, 2)
	if err != nil {
		return nil, err
	}
	rows, cols := shape[0], shape[1]
	data, err := requireFloats(dg, "data")
	if err != nil {
		return nil, err
	}
	ind, err := requireInts(dg, "indices")
	if err != nil {
		return nil, err
	}
	indptr, err := requireInts(dg, "indptr")
	if err != nil {
		return nil, err
	}
	if err = validateCSR(rows, cols, indptr, ind, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPersistedState, g.Path(), err)
	}
	s := &Sparse{m: sparse.NewCSR(rows, cols, indptr, ind, data)}
	if s.props, err = readProperties(g); err != nil {
		return nil, err
	}
	return s, nil
}

func validateCSR(rows, cols int, indptr, ind []int, data []float64) error {
	if len(indptr) != rows+1 || indptr[0] != 0 || indptr[rows] != len(data) {
		return fmt.Errorf("indptr inconsistent with %d rows and %d values", rows, len(data))
	}
	if len(ind) != len(data) {
		return fmt.Errorf("%d indices for %d values", len(ind), len(data))
	}
	for i := 0; i < rows; i++ {
		if indptr[i+1] < indptr[i] {
			return fmt.Errorf("indptr decreases at row %d", i)
		}
	}
	for _, j := range ind {
		if j < 0 || j >= cols {
			return fmt.Errorf("column %d out of range", j)
		}
	}
	return nil
}
