package integrand

import (
	"errors"
	"fmt"
	"slices"

	"github.com/notargets/ROMKernel/store"
)

// writeHeader creates the named child group of an integrand and stores its
// type tag and properties
func writeHeader(g store.Group, name string, kind Kind, props *Properties) (store.Group, error) {
	sub, err := g.RequireGroup(name)
	if err != nil {
		return nil, fmt.Errorf("write %s %q: %w", kind, name, err)
	}
	if err = store.SetStringAttr(sub, "type", string(kind)); err != nil {
		return nil, err
	}
	if err = props.write(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// requireDataset reads a mandatory entry, reporting absence as malformed
// state
func requireDataset(g store.Group, name string) (*store.Dataset, error) {
	ds, err := g.ReadDataset(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPersistedState, err)
	}
	return ds, err
}

func requireGroup(g store.Group, name string) (store.Group, error) {
	sub, err := g.Group(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPersistedState, err)
	}
	return sub, err
}

func requireInts(g store.Group, name string) ([]int, error) {
	ds, err := requireDataset(g, name)
	if err != nil {
		return nil, err
	}
	if !ds.DType.IsInt() {
		return nil, fmt.Errorf("%w: %s%s is %s", ErrMalformedPersistedState, g.Path(), name, ds.DType)
	}
	return ds.Ints, nil
}

func requireFloats(g store.Group, name string) ([]float64, error) {
	ds, err := requireDataset(g, name)
	if err != nil {
		return nil, err
	}
	if ds.DType != store.Float64 {
		return nil, fmt.Errorf("%w: %s%s is %s", ErrMalformedPersistedState, g.Path(), name, ds.DType)
	}
	return ds.Floats, nil
}

func requireShape(g store.Group, rank int) ([]int, error) {
	shape, err := store.IntsAttr(g, "shape")
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPersistedState, err)
	}
	if err != nil {
		return nil, err
	}
	if len(shape) != rank {
		return nil, fmt.Errorf("%w: %s shape %v is not rank %d", ErrMalformedPersistedState, g.Path(), shape, rank)
	}
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: %s shape %v", ErrMalformedPersistedState, g.Path(), shape)
		}
	}
	return shape, nil
}

func clipFloats(s []float64) []float64 { return slices.Clip(s) }

func clipInts(s []int) []int { return slices.Clip(s) }
