// Package integrand stores parameter independent pieces of affine PDE
// operators and re-assembles them algebraically.
//
// An Integrand is a rank 1..3 tensor over degree-of-freedom axes held in one
// of three interchangeable representations: Dense (row-major array), Sparse
// (assembled CSR matrix) and COOTensor (unassembled 3-tensor). All of them
// support the same contraction and projection algebra and produce the same
// numbers; they differ only in cost.
package integrand

import (
	"fmt"

	"github.com/notargets/ROMKernel/store"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Kind is the registered name of a concrete representation. It is also the
// value of the persisted "type" attribute.
type Kind string

const (
	DenseKind     Kind = "NumpyArrayIntegrand"
	SparseKind    Kind = "ScipyArrayIntegrand"
	COOTensorKind Kind = "COOTensorIntegrand"
)

// Contraction holds one entry per axis: nil leaves the axis alone, a vector
// (of the axis length) eliminates it by a weighted sum
type Contraction [][]float64

// Trivial returns the all no-op contraction for a rank
func Trivial(rank int) Contraction { return make(Contraction, rank) }

// Projection holds one entry per axis: nil leaves the axis alone, a
// (reduced x axis length) matrix changes its basis
type Projection []*mat.Dense

// Integrand is the capability set shared by every representation.
//
// Get, Contract and Project never modify the receiver and always return
// newly allocated results, so after EnsureShareable an Integrand may be read
// from any number of goroutines.
type Integrand interface {
	Kind() Kind
	Shape() []int
	Rank() int
	Properties() *Properties

	// Get evaluates a contraction to a raw value: float64 for a full
	// contraction, *Array for dense results, *sparse.CSR for sparse ones
	Get(c Contraction) (any, error)
	// Contract evaluates a contraction and wraps the result again
	Contract(c Contraction) (Integrand, error)
	// Project changes the basis of the non-nil axes
	Project(p Projection) (Integrand, error)
	// Cache prepares the integrand for repeated evaluation
	Cache() Integrand
	// EnsureShareable freezes the integrand for concurrent reads
	EnsureShareable()
	// Write stores the integrand as a named child group of g
	Write(g store.Group, name string) (store.Group, error)

	Integral
}

// Option configures constructors and registries
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes debug output (projection progress, registry dispatch)
// to logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// base carries what every representation shares
type base struct {
	props *Properties
}

func newBase() base { return base{props: NewProperties()} }

func (b *base) Properties() *Properties { return b.props }

func (b *base) Lazy() bool { return false }

// checkContraction validates c against shape and reports which axes it
// eliminates
func checkContraction(shape []int, c Contraction) (axes []int, err error) {
	if len(c) != len(shape) {
		return nil, fmt.Errorf("%w: %d entries for rank %d", ErrInvalidContraction, len(c), len(shape))
	}
	for ax, vec := range c {
		if vec == nil {
			continue
		}
		if len(vec) != shape[ax] {
			return nil, fmt.Errorf("%w: axis %d has length %d, vector has %d", ErrInvalidContraction, ax, shape[ax], len(vec))
		}
		axes = append(axes, ax)
	}
	return axes, nil
}

// checkProjection validates p against shape and reports which axes it
// projects
func checkProjection(shape []int, p Projection) (axes []int, err error) {
	if len(p) != len(shape) {
		return nil, fmt.Errorf("%w: %d projection entries for rank %d", ErrInvalidContraction, len(p), len(shape))
	}
	for ax, P := range p {
		if P == nil {
			continue
		}
		if _, c := P.Dims(); c != shape[ax] {
			return nil, fmt.Errorf("%w: axis %d has length %d, projection has %d columns", ErrInvalidContraction, ax, shape[ax], c)
		}
		axes = append(axes, ax)
	}
	return axes, nil
}
