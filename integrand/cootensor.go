package integrand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notargets/ROMKernel/assembler"
	"github.com/notargets/ROMKernel/store"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Axis sets with a prebuilt assembler. Axis 0 indexes the result row and is
// never eliminated on its own.
var assemblerKeys = []string{"1", "2", "1,2"}

// COOTensor is an unassembled rank-3 tensor: one (i, j, k, value) entry per
// structural nonzero, duplicates allowed. Contractions of axis 1, axis 2 or
// both are assembled through assemblers built once at construction.
type COOTensor struct {
	base
	shape [3]int
	idx   [3][]int
	data  []float64
	dtype store.DType

	assemblers map[string]assembler.Assembler
	logger     *zap.Logger
}

// NewCOOTensor drops exact zeros from data and prebuilds the assemblers
func NewCOOTensor(shape [3]int, i, j, k []int, data []float64, opts ...Option) (*COOTensor, error) {
	o := buildOptions(opts)
	if len(i) != len(data) || len(j) != len(data) || len(k) != len(data) {
		return nil, fmt.Errorf("%w: indices %d/%d/%d for %d values", assembler.ErrLengthMismatch, len(i), len(j), len(k), len(data))
	}
	for ax, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("integrand: invalid tensor shape %v", shape)
		}
		if err := checkAxis(ax, [3][]int{i, j, k}[ax], dim); err != nil {
			return nil, err
		}
	}

	t := &COOTensor{base: newBase(), shape: shape, logger: o.logger}
	for p, v := range data {
		if v == 0 {
			continue
		}
		t.idx[0] = append(t.idx[0], i[p])
		t.idx[1] = append(t.idx[1], j[p])
		t.idx[2] = append(t.idx[2], k[p])
		t.data = append(t.data, v)
	}
	t.dtype = indexDType(t.idx)
	if err := t.buildAssemblers(); err != nil {
		return nil, err
	}
	t.logger.Debug("coo tensor built",
		zap.Ints("shape", shape[:]),
		zap.Int("nnz", len(t.data)),
		zap.Int("dropped", len(data)-len(t.data)),
		zap.Stringer("index_dtype", t.dtype))
	return t, nil
}

func checkAxis(ax int, idx []int, dim int) error {
	for p, v := range idx {
		if v < 0 || v >= dim {
			return fmt.Errorf("%w: axis %d entry %d is %d, limit %d", assembler.ErrOutOfBounds, ax, p, v, dim)
		}
	}
	return nil
}

func indexDType(idx [3][]int) store.DType {
	maxVal := 0
	for _, axis := range idx {
		for _, v := range axis {
			maxVal = max(maxVal, v)
		}
	}
	return store.FitIndexDType(maxVal)
}

func (t *COOTensor) buildAssemblers() error {
	n0, n1, n2 := t.shape[0], t.shape[1], t.shape[2]
	i, j, k := t.idx[0], t.idx[1], t.idx[2]
	drop1, err := assembler.NewCSR([2]int{n0, n2}, i, k)
	if err != nil {
		return err
	}
	drop2, err := assembler.NewCSR([2]int{n0, n1}, i, j)
	if err != nil {
		return err
	}
	drop12, err := assembler.NewVector(n0, i)
	if err != nil {
		return err
	}
	t.assemblers = map[string]assembler.Assembler{"1": drop1, "2": drop2, "1,2": drop12}
	return nil
}

// assemblerShape is the result shape of eliminating the axes named by key
func (t *COOTensor) assemblerShape(key string) []int {
	switch key {
	case "1":
		return []int{t.shape[0], t.shape[2]}
	case "2":
		return []int{t.shape[0], t.shape[1]}
	default:
		return []int{t.shape[0]}
	}
}

func axisKey(axes []int) string {
	parts := make([]string, len(axes))
	for n, ax := range axes {
		parts[n] = strconv.Itoa(ax)
	}
	return strings.Join(parts, ",")
}

func (t *COOTensor) Kind() Kind { return COOTensorKind }

func (t *COOTensor) Shape() []int { return []int{t.shape[0], t.shape[1], t.shape[2]} }

func (t *COOTensor) Rank() int { return 3 }

// NNZ counts stored entries, duplicates included
func (t *COOTensor) NNZ() int { return len(t.data) }

// IndexDType is the narrowest integer type used to persist the indices
func (t *COOTensor) IndexDType() store.DType { return t.dtype }

// Entries exposes the stored coordinates and values; callers must not modify
// them
func (t *COOTensor) Entries() (i, j, k []int, data []float64) {
	return t.idx[0], t.idx[1], t.idx[2], t.data
}

// Assembler returns the prebuilt assembler for a comma-joined axis set
func (t *COOTensor) Assembler(key string) (assembler.Assembler, bool) {
	a, ok := t.assemblers[key]
	return a, ok
}

// ToArray densifies the tensor by flattening (j, k) into one column index
// and assembling the resulting matrix
func (t *COOTensor) ToArray() *Array {
	n0, n1, n2 := t.shape[0], t.shape[1], t.shape[2]
	cols := make([]int, len(t.data))
	for p := range cols {
		cols[p] = t.idx[1][p]*n2 + t.idx[2][p]
	}
	flat, err := assembler.NewCSR([2]int{n0, n1 * n2}, t.idx[0], cols)
	if err != nil {
		// coordinates were bounds checked at construction
		panic(err)
	}
	return mustArray([]int{n0, n1, n2}, flat.Assemble(t.data).ToDense().RawMatrix().Data)
}

// weighted multiplies every entry by the contraction value at its
// coordinate on each eliminated axis
func (t *COOTensor) weighted(c Contraction, axes []int) []float64 {
	w := append([]float64(nil), t.data...)
	for _, ax := range axes {
		vec, idx := c[ax], t.idx[ax]
		for p := range w {
			w[p] *= vec[idx[p]]
		}
	}
	return w
}

// eval returns float64, *Array or *Sparse
func (t *COOTensor) eval(c Contraction) (any, error) {
	axes, err := checkContraction(t.shape[:], c)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return t.ToArray(), nil
	}
	w := t.weighted(c, axes)
	if len(axes) == 3 {
		return floats.Sum(w), nil
	}
	key := axisKey(axes)
	asm, ok := t.assemblers[key]
	if !ok {
		return nil, fmt.Errorf("%w: no assembler for eliminating axes {%s}", ErrInvalidContraction, key)
	}
	switch a := asm.(type) {
	case *assembler.Vector:
		return Vector(a.Assemble(w)), nil
	case *assembler.CSR:
		return &Sparse{base: newBase(), m: a.Assemble(w)}, nil
	}
	return nil, fmt.Errorf("%w: assembler %s for axes {%s}", ErrInvalidContraction, asm.Type(), key)
}

func (t *COOTensor) Get(c Contraction) (any, error) {
	v, err := t.eval(c)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(*Sparse); ok {
		return s.CSR(), nil
	}
	return v, nil
}

// Contract returns the receiver for an all no-op contraction, a Dense for
// vector and scalar results and a Sparse for matrix results
func (t *COOTensor) Contract(c Contraction) (Integrand, error) {
	axes, err := checkContraction(t.shape[:], c)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return t, nil
	}
	v, err := t.eval(c)
	if err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case float64:
		return NewDense(Scalar(r)), nil
	case *Array:
		return NewDense(r), nil
	default:
		return r.(*Sparse), nil
	}
}

// Project reduces all three axes at once:
//
//	out[a,b,c] = Σ pa[a,i] pb[b,j] pc[c,k] T[i,j,k]
//
// One (j, k) slice per reduced test function is assembled and sandwiched
// between pb and pcᵀ.
func (t *COOTensor) Project(p Projection) (Integrand, error) {
	axes, err := checkProjection(t.shape[:], p)
	if err != nil {
		return nil, err
	}
	if len(axes) != 3 {
		return nil, fmt.Errorf("%w: 3-tensors project all axes together, got %d", ErrInvalidContraction, len(axes))
	}
	pa, pb, pc := p[0], p[1], p[2]
	r0, _ := pa.Dims()
	r1, _ := pb.Dims()
	r2, _ := pc.Dims()
	slice, err := assembler.NewCSR([2]int{t.shape[1], t.shape[2]}, t.idx[1], t.idx[2])
	if err != nil {
		return nil, err
	}
	t.logger.Debug("projecting coo tensor",
		zap.Ints("reduced", []int{r0, r1, r2}),
		zap.Int("nnz", len(t.data)))

	out := mustArray([]int{r0, r1, r2}, nil)
	w := make([]float64, len(t.data))
	var right, red mat.Dense
	for a := 0; a < r0; a++ {
		for q, i := range t.idx[0] {
			w[q] = t.data[q] * pa.At(a, i)
		}
		right.Mul(slice.Assemble(w), pc.T())
		red.Mul(pb, &right)
		copy(out.data[a*r1*r2:(a+1)*r1*r2], red.RawMatrix().Data)
	}
	t.logger.Debug("coo tensor projected", zap.Int("rows", r0))
	return NewDense(out), nil
}

func (t *COOTensor) Cache() Integrand { return t }

func (t *COOTensor) EnsureShareable() {
	for ax := range t.idx {
		t.idx[ax] = clipInts(t.idx[ax])
	}
	t.data = clipFloats(t.data)
	for _, a := range t.assemblers {
		a.EnsureShareable()
	}
	t.props.freeze()
}

func (t *COOTensor) Write(g store.Group, name string) (store.Group, error) {
	sub, err := writeHeader(g, name, COOTensorKind, t.props)
	if err != nil {
		return nil, err
	}
	dg, err := sub.RequireGroup("data")
	if err != nil {
		return nil, err
	}
	for ax, label := range []string{"indices-i", "indices-j", "indices-k"} {
		if err = dg.WriteDataset(label, store.NewInts(t.dtype, t.idx[ax])); err != nil {
			return nil, fmt.Errorf("write %s %s: %w", COOTensorKind, label, err)
		}
	}
	if err = dg.WriteDataset("data", store.NewFloats([]int{len(t.data)}, t.data)); err != nil {
		return nil, err
	}
	if err = store.SetIntsAttr(dg, "shape", t.shape[:]); err != nil {
		return nil, err
	}
	ag, err := dg.RequireGroup("assemblers")
	if err != nil {
		return nil, err
	}
	for _, key := range assemblerKeys {
		kg, err := ag.RequireGroup(key)
		if err != nil {
			return nil, err
		}
		if err = t.assemblers[key].Write(kg); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func readCOOTensor(g store.Group, o options) (Integrand, error) {
	dg, err := requireGroup(g, "data")
	if err != nil {
		return nil, err
	}
	shape, err := requireShape(dg, 3)
	if err != nil {
		return nil, err
	}
	t := &COOTensor{shape: [3]int{shape[0], shape[1], shape[2]}, logger: o.logger}
	for ax, label := range []string{"indices-i", "indices-j", "indices-k"} {
		ds, err := requireDataset(dg, label)
		if err != nil {
			return nil, err
		}
		if !ds.DType.IsInt() {
			return nil, fmt.Errorf("%w: %s%s is %s", ErrMalformedPersistedState, dg.Path(), label, ds.DType)
		}
		t.idx[ax], t.dtype = ds.Ints, ds.DType
	}
	if t.data, err = requireFloats(dg, "data"); err != nil {
		return nil, err
	}
	for ax := range t.idx {
		if len(t.idx[ax]) != len(t.data) {
			return nil, fmt.Errorf("%w: %s axis %d has %d indices for %d values", ErrMalformedPersistedState, dg.Path(), ax, len(t.idx[ax]), len(t.data))
		}
		if err = checkAxis(ax, t.idx[ax], t.shape[ax]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPersistedState, err)
		}
	}

	ag, err := requireGroup(dg, "assemblers")
	if err != nil {
		return nil, err
	}
	t.assemblers = make(map[string]assembler.Assembler, len(assemblerKeys))
	for _, key := range assemblerKeys {
		kg, err := requireGroup(ag, key)
		if err != nil {
			return nil, err
		}
		a, err := assembler.Read(kg)
		if err != nil {
			return nil, fmt.Errorf("%w: assembler {%s}: %w", ErrMalformedPersistedState, key, err)
		}
		if want := t.assemblerShape(key); !sameShape(a.Shape(), want) {
			return nil, fmt.Errorf("%w: assembler {%s} has shape %v, want %v", ErrMalformedPersistedState, key, a.Shape(), want)
		}
		if a.NNZ() != len(t.data) {
			return nil, fmt.Errorf("%w: assembler {%s} expects %d values, tensor has %d", ErrMalformedPersistedState, key, a.NNZ(), len(t.data))
		}
		t.assemblers[key] = a
	}
	if t.props, err = readProperties(g); err != nil {
		return nil, err
	}
	return t, nil
}
