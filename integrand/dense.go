package integrand

import (
	"fmt"

	"github.com/notargets/ROMKernel/store"
)

// Dense wraps an in-memory dense array. Its results are the reference every
// other representation must reproduce.
type Dense struct {
	base
	arr *Array
}

// NewDense wraps a; the array is not copied
func NewDense(a *Array) *Dense {
	return &Dense{base: newBase(), arr: a}
}

func (d *Dense) Kind() Kind { return DenseKind }

func (d *Dense) Shape() []int { return d.arr.Shape() }

func (d *Dense) Rank() int { return d.arr.Rank() }

// Array exposes the wrapped array; callers must not modify it after
// EnsureShareable
func (d *Dense) Array() *Array { return d.arr }

func (d *Dense) eval(c Contraction) (*Array, error) {
	axes, err := checkContraction(d.arr.shape, c)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return d.arr.Clone(), nil
	}
	return d.arr.contract(c), nil
}

func (d *Dense) Get(c Contraction) (any, error) {
	out, err := d.eval(c)
	if err != nil {
		return nil, err
	}
	if out.Rank() == 0 {
		return out.Value(), nil
	}
	return out, nil
}

func (d *Dense) Contract(c Contraction) (Integrand, error) {
	axes, err := checkContraction(d.arr.shape, c)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return d, nil
	}
	return NewDense(d.arr.contract(c)), nil
}

func (d *Dense) Project(p Projection) (Integrand, error) {
	axes, err := checkProjection(d.arr.shape, p)
	if err != nil {
		return nil, err
	}
	out := d.arr
	for _, ax := range axes {
		out = out.projectAxis(ax, p[ax])
	}
	if len(axes) == 0 {
		out = out.Clone()
	}
	return NewDense(out), nil
}

func (d *Dense) Cache() Integrand { return d }

func (d *Dense) EnsureShareable() {
	d.arr.data = clipFloats(d.arr.data)
	d.props.freeze()
}

func (d *Dense) Write(g store.Group, name string) (store.Group, error) {
	sub, err := writeHeader(g, name, DenseKind, d.props)
	if err != nil {
		return nil, err
	}
	if err = sub.WriteDataset("data", store.NewFloats(d.arr.shape, d.arr.data)); err != nil {
		return nil, fmt.Errorf("write %s: %w", DenseKind, err)
	}
	return sub, nil
}

func readDense(g store.Group) (Integrand, error) {
	ds, err := requireDataset(g, "data")
	if err != nil {
		return nil, err
	}
	if ds.DType != store.Float64 {
		return nil, fmt.Errorf("%w: %sdata is %s", ErrMalformedPersistedState, g.Path(), ds.DType)
	}
	a, err := NewArray(ds.Shape, ds.Floats)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPersistedState, err)
	}
	d := NewDense(a)
	if d.props, err = readProperties(g); err != nil {
		return nil, err
	}
	return d, nil
}
