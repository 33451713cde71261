package integrand

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Array is a dense row-major tensor of rank 0 to 3
type Array struct {
	shape []int
	data  []float64
}

// NewArray wraps data with the given shape; nil data allocates zeros
func NewArray(shape []int, data []float64) (*Array, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("integrand: invalid array shape %v", shape)
		}
		n *= d
	}
	if len(shape) > 3 {
		return nil, fmt.Errorf("integrand: rank %d exceeds 3", len(shape))
	}
	if data == nil {
		data = make([]float64, n)
	}
	if len(data) != n {
		return nil, fmt.Errorf("integrand: %d values for shape %v", len(data), shape)
	}
	return &Array{shape: append([]int{}, shape...), data: data}, nil
}

func mustArray(shape []int, data []float64) *Array {
	a, err := NewArray(shape, data)
	if err != nil {
		panic(err)
	}
	return a
}

// Scalar returns a rank-0 array
func Scalar(v float64) *Array {
	return &Array{shape: []int{}, data: []float64{v}}
}

// Vector returns a rank-1 array over a copy of v
func Vector(v []float64) *Array {
	return mustArray([]int{len(v)}, append([]float64(nil), v...))
}

// FromMatrix copies a gonum matrix into a rank-2 array
func FromMatrix(m mat.Matrix) *Array {
	r, c := m.Dims()
	a := mustArray([]int{r, c}, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.data[i*c+j] = m.At(i, j)
		}
	}
	return a
}

func (a *Array) Shape() []int { return append([]int{}, a.shape...) }

func (a *Array) Rank() int { return len(a.shape) }

func (a *Array) Len() int { return len(a.data) }

// Data exposes the row-major backing slice
func (a *Array) Data() []float64 { return a.data }

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("integrand: %d indices for rank %d", len(idx), len(a.shape)))
	}
	off := 0
	for ax, i := range idx {
		if i < 0 || i >= a.shape[ax] {
			panic(fmt.Sprintf("integrand: index %d out of range on axis %d", i, ax))
		}
		off = off*a.shape[ax] + i
	}
	return off
}

func (a *Array) At(idx ...int) float64 { return a.data[a.offset(idx)] }

func (a *Array) Set(v float64, idx ...int) { a.data[a.offset(idx)] = v }

// Value returns the single element of a rank-0 array
func (a *Array) Value() float64 {
	if len(a.shape) != 0 {
		panic(fmt.Sprintf("integrand: Value on rank %d array", len(a.shape)))
	}
	return a.data[0]
}

// Matrix copies a rank-2 array into a gonum matrix
func (a *Array) Matrix() *mat.Dense {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("integrand: Matrix on rank %d array", len(a.shape)))
	}
	return mat.NewDense(a.shape[0], a.shape[1], append([]float64(nil), a.data...))
}

func (a *Array) Clone() *Array {
	return &Array{shape: append([]int{}, a.shape...), data: append([]float64(nil), a.data...)}
}

// EqualApprox reports whether both arrays have the same shape and all
// elements agree within tol
func (a *Array) EqualApprox(b *Array, tol float64) bool {
	if !sameShape(a.shape, b.shape) {
		return false
	}
	return floats.EqualApprox(a.data, b.data, tol)
}

// strides returns the row-major strides of shape
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for ax := len(shape) - 1; ax >= 0; ax-- {
		s[ax] = acc
		acc *= shape[ax]
	}
	return s
}

// each calls fn with the multi-index and value of every element
func (a *Array) each(fn func(idx []int, v float64)) {
	idx := make([]int, len(a.shape))
	for _, v := range a.data {
		fn(idx, v)
		for ax := len(idx) - 1; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < a.shape[ax] {
				break
			}
			idx[ax] = 0
		}
	}
}

// contract multiplies every element by c[ax][idx[ax]] for each non-nil
// entry of c and sums the contracted axes away
func (a *Array) contract(c Contraction) *Array {
	var keep []int
	for ax := range a.shape {
		if c[ax] == nil {
			keep = append(keep, ax)
		}
	}
	outShape := make([]int, len(keep))
	for n, ax := range keep {
		outShape[n] = a.shape[ax]
	}
	out := &Array{shape: outShape, data: make([]float64, product(outShape))}
	st := strides(outShape)
	a.each(func(idx []int, v float64) {
		off := 0
		for n, ax := range keep {
			off += idx[ax] * st[n]
		}
		for ax, vec := range c {
			if vec != nil {
				v *= vec[idx[ax]]
			}
		}
		out.data[off] += v
	})
	return out
}

// projectAxis replaces axis ax by its image under P (reduced x shape[ax])
func (a *Array) projectAxis(ax int, P mat.Matrix) *Array {
	R, _ := P.Dims()
	outShape := append([]int{}, a.shape...)
	outShape[ax] = R
	out := &Array{shape: outShape, data: make([]float64, product(outShape))}
	st := strides(outShape)
	a.each(func(idx []int, v float64) {
		if v == 0 {
			return
		}
		base := 0
		for n, i := range idx {
			if n != ax {
				base += i * st[n]
			}
		}
		for r := 0; r < R; r++ {
			out.data[base+r*st[ax]] += P.At(r, idx[ax]) * v
		}
	})
	return out
}

func (a *Array) add(b *Array) *Array {
	out := a.Clone()
	floats.Add(out.data, b.data)
	return out
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
