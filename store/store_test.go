package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	bs, err := OpenBadger(Config{Backend: BackendBadger, InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"badger": bs,
	}
}

func TestGroupHierarchy(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			root := st.Root()
			assert.Equal(t, "/", root.Path())

			a, err := root.RequireGroup("a")
			require.NoError(t, err)
			b, err := a.RequireGroup("b")
			require.NoError(t, err)
			_, err = a.RequireGroup("c")
			require.NoError(t, err)
			assert.Equal(t, "/a/b/", b.Path())

			// RequireGroup on an existing group is idempotent
			_, err = root.RequireGroup("a")
			require.NoError(t, err)

			names, err := root.Groups()
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, names)

			names, err = a.Groups()
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c"}, names)

			_, err = root.Group("missing")
			assert.True(t, errors.Is(err, ErrNotFound))

			again, err := root.Group("a")
			require.NoError(t, err)
			assert.Equal(t, a.Path(), again.Path())

			_, err = root.RequireGroup("x/y")
			assert.True(t, errors.Is(err, ErrInvalidName))
		})
	}
}

func TestDatasetsAndAttrs(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g, err := st.Root().RequireGroup("itg")
			require.NoError(t, err)
			sub, err := g.RequireGroup("nested")
			require.NoError(t, err)

			require.NoError(t, g.WriteDataset("data", NewFloats([]int{2, 2}, []float64{1, 2, 3, 4})))
			require.NoError(t, g.WriteDataset("idx", NewCompactInts([]int{0, 300, 7})))
			require.NoError(t, sub.WriteDataset("deep", NewFloatScalar(1)))
			require.NoError(t, SetStringAttr(g, "type", "Dense"))
			require.NoError(t, SetIntsAttr(g, "shape", []int{2, 2}))

			ds, err := g.ReadDataset("data")
			require.NoError(t, err)
			assert.Equal(t, Float64, ds.DType)
			assert.Equal(t, []int{2, 2}, ds.Shape)
			assert.Equal(t, []float64{1, 2, 3, 4}, ds.Floats)

			ds, err = g.ReadDataset("idx")
			require.NoError(t, err)
			assert.Equal(t, Int16, ds.DType)
			assert.Equal(t, []int{0, 300, 7}, ds.Ints)

			names, err := g.Datasets()
			require.NoError(t, err)
			assert.Equal(t, []string{"data", "idx"}, names)

			typ, err := StringAttr(g, "type")
			require.NoError(t, err)
			assert.Equal(t, "Dense", typ)

			shape, err := IntsAttr(g, "shape")
			require.NoError(t, err)
			assert.Equal(t, []int{2, 2}, shape)

			keys, err := g.Attrs()
			require.NoError(t, err)
			assert.Equal(t, []string{"shape", "type"}, keys)

			_, err = StringAttr(g, "shape")
			assert.True(t, errors.Is(err, ErrCorrupt))
			_, err = g.ReadDataset("nope")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestCodec(t *testing.T) {
	testCases := []struct {
		name string
		ds   *Dataset
	}{
		{"scalar", NewFloatScalar(-2.5)},
		{"empty", NewFloats([]int{0}, nil)},
		{"int8", NewInts(Int8, []int{-128, 0, 127})},
		{"int32", NewInts(Int32, []int{-1 << 31, 1<<31 - 1})},
		{"int64", NewInts(Int64, []int{-1 << 40, 1 << 40})},
		{"string", NewString("COOTensor")},
		{"rank3", NewFloats([]int{1, 2, 2}, []float64{1, 0, -1, 2})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := encode(tc.ds)
			require.NoError(t, err)
			got, err := decode(buf)
			require.NoError(t, err)
			assert.Equal(t, tc.ds.DType, got.DType)
			assert.Equal(t, tc.ds.Len(), got.Len())
			assert.Equal(t, tc.ds.Text, got.Text)
			if tc.ds.Len() > 0 {
				assert.Equal(t, tc.ds.Floats, got.Floats)
				assert.Equal(t, tc.ds.Ints, got.Ints)
			}
		})
	}

	_, err := encode(NewInts(Int8, []int{200}))
	assert.Error(t, err)

	_, err = decode([]byte{byte(Float64), 1, 2, 0})
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestFitIndexDType(t *testing.T) {
	assert.Equal(t, Int8, FitIndexDType(0))
	assert.Equal(t, Int8, FitIndexDType(127))
	assert.Equal(t, Int16, FitIndexDType(128))
	assert.Equal(t, Int32, FitIndexDType(70000))
	assert.Equal(t, Int64, FitIndexDType(1<<33))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Backend: BackendMemory}.Validate())
	assert.NoError(t, Config{Backend: BackendBadger, InMemory: true}.Validate())
	assert.Error(t, Config{Backend: BackendBadger}.Validate())
	assert.Error(t, Config{Backend: "hdf5"}.Validate())

	st, err := Open(Config{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.NoError(t, st.Close())
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Backend: BackendBadger, Path: dir, SyncWrites: true}

	st, err := OpenBadger(cfg, nil)
	require.NoError(t, err)
	g, err := st.Root().RequireGroup("laplacian")
	require.NoError(t, err)
	require.NoError(t, g.WriteDataset("data", NewFloats([]int{3}, []float64{1, 2, 3})))
	require.NoError(t, st.Close())

	st, err = OpenBadger(cfg, nil)
	require.NoError(t, err)
	defer st.Close()
	g, err = st.Root().Group("laplacian")
	require.NoError(t, err)
	ds, err := g.ReadDataset("data")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, ds.Floats)
}
