package integrand

import "fmt"

// Triplets is a raw coordinate list of a rank 2 or 3 tensor, duplicates
// allowed. Make assembles rank-2 lists into Sparse and wraps rank-3 lists as
// COOTensor.
type Triplets struct {
	Shape   []int
	Indices [][]int // one coordinate slice per axis
	Data    []float64
}

// NewTriplets returns an empty list for the given shape
func NewTriplets(shape ...int) *Triplets {
	return &Triplets{
		Shape:   append([]int(nil), shape...),
		Indices: make([][]int, len(shape)),
	}
}

// Append adds one contribution at idx
func (t *Triplets) Append(v float64, idx ...int) {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("integrand: %d indices for rank %d triplets", len(idx), len(t.Shape)))
	}
	for ax, i := range idx {
		t.Indices[ax] = append(t.Indices[ax], i)
	}
	t.Data = append(t.Data, v)
}

func (t *Triplets) Rank() int { return len(t.Shape) }

func (t *Triplets) Len() int { return len(t.Data) }

// Concat returns a new list holding the entries of t followed by those of o
func (t *Triplets) Concat(o *Triplets) (*Triplets, error) {
	if !sameShape(t.Shape, o.Shape) {
		return nil, fmt.Errorf("%w: shapes %v and %v", ErrInvalidContraction, t.Shape, o.Shape)
	}
	out := NewTriplets(t.Shape...)
	for ax := range t.Indices {
		out.Indices[ax] = append(append(out.Indices[ax], t.Indices[ax]...), o.Indices[ax]...)
	}
	out.Data = append(append(out.Data, t.Data...), o.Data...)
	return out, nil
}

// check reports lists whose exported fields disagree with each other
func (t *Triplets) check() error {
	if len(t.Indices) != len(t.Shape) {
		return fmt.Errorf("%w: %d index slices for rank %d triplets", ErrUnsupportedRepresentation, len(t.Indices), len(t.Shape))
	}
	for ax, idx := range t.Indices {
		if len(idx) != len(t.Data) {
			return fmt.Errorf("%w: axis %d has %d indices for %d values", ErrUnsupportedRepresentation, ax, len(idx), len(t.Data))
		}
	}
	return nil
}

func (t *Triplets) sparse() (*Sparse, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return NewSparseFromTriplets([2]int{t.Shape[0], t.Shape[1]}, t.Indices[0], t.Indices[1], t.Data)
}

func (t *Triplets) cooTensor(opts ...Option) (*COOTensor, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return NewCOOTensor([3]int{t.Shape[0], t.Shape[1], t.Shape[2]},
		t.Indices[0], t.Indices[1], t.Indices[2], t.Data, opts...)
}
