package integrand

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notargets/ROMKernel/assembler"
	"github.com/notargets/ROMKernel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	bs, err := store.OpenBadger(store.Config{Backend: store.BackendBadger, InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return map[string]store.Store{
		"memory": store.NewMemory(),
		"badger": bs,
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	dense, err := Make(mustArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, err)
	scalar, err := Make(4.5)
	require.NoError(t, err)
	sp, err := Make(randomTriplets(rng, 12, 4, 5))
	require.NoError(t, err)
	ct, err := Make(randomTriplets(rng, 30, 3, 4, 5))
	require.NoError(t, err)

	require.NoError(t, dense.Properties().SetDefaults(map[string]any{
		"mu":      0.25,
		"label":   "mass",
		"dofs":    []int{0, 3},
		"weights": []float64{0.5, 0.5},
		"table":   mustArray([]int{2, 2}, []float64{1, 2, 3, 4}),
		"scale":   Scalar(2),
		"axis":    Vector([]float64{1}),
	}))
	require.NoError(t, ct.Properties().SetDefault("label", "convection"))

	items := map[string]Integrand{"dense": dense, "scalar": scalar, "sparse": sp, "coo": ct}
	for bname, st := range backends(t) {
		for name, in := range items {
			t.Run(bname+"/"+name, func(t *testing.T) {
				g, err := in.Write(st.Root(), name)
				require.NoError(t, err)
				typ, err := store.StringAttr(g, "type")
				require.NoError(t, err)
				assert.Equal(t, string(in.Kind()), typ)

				back, err := Read(g)
				require.NoError(t, err)
				assert.IsType(t, in, back)
				assert.Equal(t, in.Shape(), back.Shape())
				assert.Equal(t, in.Properties().Keys(), back.Properties().Keys())
				for _, key := range in.Properties().Keys() {
					want, _ := in.Properties().Lookup(key)
					got, _ := back.Properties().Lookup(key)
					assert.Equal(t, want, got, key)
					assert.IsType(t, want, got, key)
				}
				want := mustGetArray(t, in, Trivial(in.Rank()))
				assert.True(t, mustGetArray(t, back, Trivial(back.Rank())).EqualApprox(want, 0))
			})
		}
	}
}

func TestCOOTensorStructuralRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	tr := randomTriplets(rng, 25, 130, 4, 6)
	tr.Append(1, 129, 0, 0)
	in, err := Make(tr)
	require.NoError(t, err)
	ct := in.(*COOTensor)
	assert.Equal(t, store.Int16, ct.IndexDType())

	root := store.NewMemory().Root()
	g, err := ct.Write(root, "convection")
	require.NoError(t, err)

	dg, err := g.Group("data")
	require.NoError(t, err)
	ds, err := dg.ReadDataset("indices-j")
	require.NoError(t, err)
	assert.Equal(t, store.Int16, ds.DType)
	ag, err := dg.Group("assemblers")
	require.NoError(t, err)
	keys, err := ag.Groups()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "1,2"}, keys)

	back, err := Read(g)
	require.NoError(t, err)
	bt := back.(*COOTensor)
	assert.Equal(t, ct.IndexDType(), bt.IndexDType())
	i0, j0, k0, d0 := ct.Entries()
	i1, j1, k1, d1 := bt.Entries()
	assert.Equal(t, i0, i1)
	assert.Equal(t, j0, j1)
	assert.Equal(t, k0, k1)
	assert.Equal(t, d0, d1)
	for _, key := range []string{"1", "2", "1,2"} {
		want, ok := ct.Assembler(key)
		require.True(t, ok)
		got, ok := bt.Assembler(key)
		require.True(t, ok)
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(assembler.CSR{}, assembler.Vector{})); diff != "" {
			t.Errorf("assembler {%s} (-want +got):\n%s", key, diff)
		}
	}

	u := randomVec(rng, 6)
	assert.True(t, mustGetArray(t, bt, Contraction{nil, nil, u}).EqualApprox(mustGetArray(t, ct, Contraction{nil, nil, u}), 0))
}

// baseGroup lets unreachableProperties embed store.Group without its field
// name clashing with the Group method
type baseGroup = store.Group

// unreachableProperties fails every lookup of the properties group with err
type unreachableProperties struct {
	baseGroup
	err error
}

func (g unreachableProperties) Group(name string) (store.Group, error) {
	if name == "properties" {
		return nil, g.err
	}
	return g.baseGroup.Group(name)
}

func TestReadPropagatesStoreErrors(t *testing.T) {
	in, err := Make([]float64{1, 2})
	require.NoError(t, err)
	g, err := in.Write(store.NewMemory().Root(), "v")
	require.NoError(t, err)

	ioErr := errors.New("disk unreadable")
	_, err = Read(unreachableProperties{baseGroup: g, err: ioErr})
	assert.ErrorIs(t, err, ioErr)

	// A group written without properties still reads
	back, err := Read(unreachableProperties{baseGroup: g, err: store.ErrNotFound})
	require.NoError(t, err)
	assert.Equal(t, 0, back.Properties().Len())
}
