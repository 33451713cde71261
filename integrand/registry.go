package integrand

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/notargets/ROMKernel/store"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Variant describes one concrete representation to a Registry
type Variant struct {
	Name    Kind
	Accepts func(value any) bool
	Wrap    func(value any) (Integrand, error)
	Read    func(g store.Group) (Integrand, error)
}

// Registry maps raw values and persisted groups to representations. Variants
// are probed in registration order and the first that accepts a value wins.
type Registry struct {
	variants []Variant
	logger   *zap.Logger
}

// NewRegistry returns a registry holding Dense, Sparse and COOTensor, in that
// order
func NewRegistry(opts ...Option) *Registry {
	o := buildOptions(opts)
	r := &Registry{logger: o.logger}
	for _, v := range builtinVariants(o) {
		if err := r.Register(v); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends a variant; names must be unique
func (r *Registry) Register(v Variant) error {
	if v.Name == "" || v.Accepts == nil || v.Wrap == nil || v.Read == nil {
		return fmt.Errorf("integrand: incomplete variant %q", v.Name)
	}
	for _, have := range r.variants {
		if have.Name == v.Name {
			return fmt.Errorf("integrand: variant %q already registered", v.Name)
		}
	}
	r.variants = append(r.variants, v)
	return nil
}

// Names lists the registered variants in probe order
func (r *Registry) Names() []Kind {
	names := make([]Kind, len(r.variants))
	for n, v := range r.variants {
		names[n] = v.Name
	}
	return names
}

// Make returns value unchanged when it already is an Integrand, otherwise
// wraps it with the first accepting variant
func (r *Registry) Make(value any) (Integrand, error) {
	if in, ok := value.(Integrand); ok {
		return in, nil
	}
	for _, v := range r.variants {
		if v.Accepts(value) {
			r.logger.Debug("wrapping value", zap.String("variant", string(v.Name)), zap.String("type", fmt.Sprintf("%T", value)))
			return v.Wrap(value)
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedRepresentation, value)
}

// Acceptable reports whether Make would find a variant for value
func (r *Registry) Acceptable(value any) bool {
	if _, ok := value.(Integrand); ok {
		return true
	}
	for _, v := range r.variants {
		if v.Accepts(value) {
			return true
		}
	}
	return false
}

// Read restores the integrand stored in g, dispatching on its type attribute
func (r *Registry) Read(g store.Group) (Integrand, error) {
	typ, err := store.StringAttr(g, "type")
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s has no type: %w", ErrMalformedPersistedState, g.Path(), err)
	}
	if err != nil {
		return nil, err
	}
	for _, v := range r.variants {
		if string(v.Name) == typ {
			return v.Read(g)
		}
	}
	return nil, fmt.Errorf("%w: %s names unregistered variant %q", ErrMalformedPersistedState, g.Path(), typ)
}

func builtinVariants(o options) []Variant {
	return []Variant{
		{
			Name: DenseKind,
			Accepts: func(value any) bool {
				switch v := value.(type) {
				case float64, int, *Array, *mat.Dense, *mat.VecDense:
					return true
				case []float64:
					return len(v) > 0
				}
				return false
			},
			Wrap: func(value any) (Integrand, error) {
				switch v := value.(type) {
				case float64:
					return NewDense(Scalar(v)), nil
				case int:
					return NewDense(Scalar(float64(v))), nil
				case []float64:
					return NewDense(Vector(v)), nil
				case *Array:
					return NewDense(v), nil
				case *mat.Dense:
					return NewDense(FromMatrix(v)), nil
				case *mat.VecDense:
					return NewDense(Vector(mat.Col(nil, 0, v))), nil
				}
				return nil, fmt.Errorf("%w: %T", ErrUnsupportedRepresentation, value)
			},
			Read: readDense,
		},
		{
			Name: SparseKind,
			Accepts: func(value any) bool {
				switch v := value.(type) {
				case *sparse.CSR:
					return true
				case *Triplets:
					return v.Rank() == 2
				}
				return false
			},
			Wrap: func(value any) (Integrand, error) {
				switch v := value.(type) {
				case *sparse.CSR:
					return NewSparse(v), nil
				case *Triplets:
					return v.sparse()
				}
				return nil, fmt.Errorf("%w: %T", ErrUnsupportedRepresentation, value)
			},
			Read: readSparse,
		},
		{
			Name: COOTensorKind,
			Accepts: func(value any) bool {
				t, ok := value.(*Triplets)
				return ok && t.Rank() == 3
			},
			Wrap: func(value any) (Integrand, error) {
				return value.(*Triplets).cooTensor(WithLogger(o.logger))
			},
			Read: func(g store.Group) (Integrand, error) { return readCOOTensor(g, o) },
		},
	}
}

var defaultRegistry = NewRegistry()

// Make wraps value using the default registry
func Make(value any) (Integrand, error) { return defaultRegistry.Make(value) }

// Acceptable probes the default registry
func Acceptable(value any) bool { return defaultRegistry.Acceptable(value) }

// Read restores an integrand using the default registry
func Read(g store.Group) (Integrand, error) { return defaultRegistry.Read(g) }
