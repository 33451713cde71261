package integrand

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// Add returns a + b for integrands of equal shape. Two Sparse operands are
// summed as CSR matrices and two COOTensors stay unassembled by concatenating
// their entries; any other pairing is summed densely.
func Add(a, b Integrand) (Integrand, error) {
	if !sameShape(a.Shape(), b.Shape()) {
		return nil, fmt.Errorf("%w: cannot add shapes %v and %v", ErrInvalidContraction, a.Shape(), b.Shape())
	}
	switch x := a.(type) {
	case *Sparse:
		if y, ok := b.(*Sparse); ok {
			var sum sparse.CSR
			sum.Add(x.m, y.m)
			return &Sparse{base: newBase(), m: &sum}, nil
		}
	case *COOTensor:
		if y, ok := b.(*COOTensor); ok {
			var idx [3][]int
			for ax := range idx {
				idx[ax] = append(append([]int(nil), x.idx[ax]...), y.idx[ax]...)
			}
			data := append(append([]float64(nil), x.data...), y.data...)
			return NewCOOTensor(x.shape, idx[0], idx[1], idx[2], data, WithLogger(x.logger))
		}
	}
	da, err := denseOf(a)
	if err != nil {
		return nil, err
	}
	db, err := denseOf(b)
	if err != nil {
		return nil, err
	}
	return NewDense(da.add(db)), nil
}

func denseOf(in Integrand) (*Array, error) {
	if d, ok := in.(*Dense); ok {
		return d.arr, nil
	}
	v, err := in.Get(Trivial(in.Rank()))
	if err != nil {
		return nil, err
	}
	return ToArray(v)
}

// ToArray converts a value returned by Get to a dense array
func ToArray(v any) (*Array, error) {
	switch x := v.(type) {
	case float64:
		return Scalar(x), nil
	case *Array:
		return x, nil
	case *sparse.CSR:
		return NewSparse(x).ToArray(), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedRepresentation, v)
}
