package integrand

import (
	"errors"
	"testing"

	"github.com/notargets/ROMKernel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMakeDispatch(t *testing.T) {
	tests := []struct {
		name  string
		value any
		kind  Kind
		shape []int
	}{
		{"float", 2.5, DenseKind, []int{}},
		{"int", 3, DenseKind, []int{}},
		{"slice", []float64{1, 2, 3}, DenseKind, []int{3}},
		{"matrix", mat.NewDense(2, 3, nil), DenseKind, []int{2, 3}},
		{"vector", mat.NewVecDense(4, nil), DenseKind, []int{4}},
		{"csr", mustSparse(t).CSR(), SparseKind, []int{2, 2}},
		{"rank 2 triplets", NewTriplets(3, 4), SparseKind, []int{3, 4}},
		{"rank 3 triplets", NewTriplets(2, 3, 4), COOTensorKind, []int{2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, Acceptable(tt.value))
			in, err := Make(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, in.Kind())
			assert.Equal(t, tt.shape, in.Shape())
			assert.False(t, in.Lazy())

			again, err := Make(in)
			require.NoError(t, err)
			assert.Same(t, in, again)
		})
	}
}

func mustSparse(t *testing.T) *Sparse {
	t.Helper()
	s, err := NewSparseFromTriplets([2]int{2, 2}, []int{0, 1, 1}, []int{1, 0, 0}, []float64{1, 2, 3})
	require.NoError(t, err)
	return s
}

func TestMakeUnsupported(t *testing.T) {
	for _, v := range []any{"text", []float64{}, NewTriplets(2), map[string]int{}} {
		assert.False(t, Acceptable(v))
		_, err := Make(v)
		assert.True(t, errors.Is(err, ErrUnsupportedRepresentation), "%T", v)
	}
}

func TestMakeInconsistentTriplets(t *testing.T) {
	tests := []struct {
		name string
		tr   *Triplets
	}{
		{"rank 3 without indices", &Triplets{Shape: []int{2, 2, 2}, Data: []float64{1}}},
		{"rank 2 without indices", &Triplets{Shape: []int{2, 2}, Data: []float64{1}}},
		{"short axis", &Triplets{Shape: []int{2, 2, 2}, Indices: [][]int{{0}, {0}, {}}, Data: []float64{1}}},
		{"extra values", &Triplets{Shape: []int{2, 2}, Indices: [][]int{{0}, {1}}, Data: []float64{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = Make(tt.tr) })
			assert.True(t, errors.Is(err, ErrUnsupportedRepresentation), "%v", err)
		})
	}
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []Kind{DenseKind, SparseKind, COOTensorKind}, r.Names())

	lengthOf := func(value any) (Integrand, error) {
		return NewDense(Scalar(float64(len(value.(string))))), nil
	}
	shadow := Variant{
		Name:    "Shadow",
		Accepts: func(value any) bool { _, ok := value.(float64); return ok },
		Wrap:    func(any) (Integrand, error) { return nil, errors.New("never reached") },
		Read:    readDense,
	}
	text := Variant{
		Name:    "Text",
		Accepts: func(value any) bool { _, ok := value.(string); return ok },
		Wrap:    lengthOf,
		Read:    readDense,
	}
	require.NoError(t, r.Register(shadow))
	require.NoError(t, r.Register(text))
	assert.Error(t, r.Register(text))
	assert.Error(t, r.Register(Variant{Name: "Incomplete"}))

	// Dense was registered first and keeps float64
	in, err := r.Make(1.5)
	require.NoError(t, err)
	assert.Equal(t, DenseKind, in.Kind())

	in, err = r.Make("abcd")
	require.NoError(t, err)
	v, err := in.Get(Contraction{})
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	// The package registry is unaffected
	assert.False(t, Acceptable("abcd"))
}

func TestRegistryReadErrors(t *testing.T) {
	root := store.NewMemory().Root()

	g, err := root.RequireGroup("untyped")
	require.NoError(t, err)
	_, err = Read(g)
	assert.True(t, errors.Is(err, ErrMalformedPersistedState))

	g, err = root.RequireGroup("unknown")
	require.NoError(t, err)
	require.NoError(t, store.SetStringAttr(g, "type", "SparseArray"))
	_, err = Read(g)
	assert.True(t, errors.Is(err, ErrMalformedPersistedState))

	g, err = root.RequireGroup("empty")
	require.NoError(t, err)
	require.NoError(t, store.SetStringAttr(g, "type", string(COOTensorKind)))
	_, err = Read(g)
	assert.True(t, errors.Is(err, ErrMalformedPersistedState))
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestProperties(t *testing.T) {
	p := NewProperties()
	require.NoError(t, p.SetDefault("mu", 1.0))
	require.NoError(t, p.SetDefault("mu", 2.0))
	assert.Equal(t, 1.0, p.Get("mu", 0.0))
	assert.Equal(t, "fallback", p.Get("missing", "fallback"))

	require.NoError(t, p.SetDefaults(map[string]any{"mu": 5.0, "dofs": []int{1, 2}}))
	assert.Equal(t, 1.0, p.Get("mu", 0.0))
	assert.Equal(t, []string{"dofs", "mu"}, p.Keys())

	vals, err := p.Values(map[string]any{"scale": 0.5}, "mu", "scale")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 0.5}, vals)
	_, err = p.Values(nil, "mu", "nope")
	assert.Error(t, err)

	assert.Error(t, p.SetDefault("bad", struct{}{}))

	p.freeze()
	assert.True(t, errors.Is(p.SetDefault("late", 1), ErrFrozen))
	_, ok := p.Lookup("late")
	assert.False(t, ok)
}
