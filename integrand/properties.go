package integrand

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/notargets/ROMKernel/store"
)

// Properties is the named metadata attached to an Integrand for bookkeeping.
// Keys are set once; later defaults for the same key are ignored.
//
// Supported values: float64, int, string, []float64, []int, *Array.
type Properties struct {
	values map[string]any
	frozen atomic.Bool
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Lookup returns a property and whether it is set
func (p *Properties) Lookup(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Get returns a property, or def when it is unset
func (p *Properties) Get(name string, def any) any {
	if v, ok := p.values[name]; ok {
		return v
	}
	return def
}

// Values returns several properties at once, falling back to defaults; a
// name that is neither set nor defaulted is an error
func (p *Properties) Values(defaults map[string]any, names ...string) ([]any, error) {
	out := make([]any, len(names))
	for i, name := range names {
		if v, ok := p.values[name]; ok {
			out[i] = v
			continue
		}
		if v, ok := defaults[name]; ok {
			out[i] = v
			continue
		}
		return nil, fmt.Errorf("integrand: property %q not set", name)
	}
	return out, nil
}

// SetDefault sets key unless it already has a value
func (p *Properties) SetDefault(key string, value any) error {
	if p.frozen.Load() {
		return fmt.Errorf("set property %q: %w", key, ErrFrozen)
	}
	if err := checkPropValue(value); err != nil {
		return fmt.Errorf("set property %q: %w", key, err)
	}
	if _, ok := p.values[key]; !ok {
		p.values[key] = value
	}
	return nil
}

// SetDefaults applies SetDefault for every entry, in key order
func (p *Properties) SetDefaults(values map[string]any) error {
	for _, key := range sortedKeys(values) {
		if err := p.SetDefault(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists the set property names in sorted order
func (p *Properties) Keys() []string { return sortedKeys(p.values) }

func (p *Properties) Len() int { return len(p.values) }

func (p *Properties) freeze() { p.frozen.Store(true) }

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkPropValue(v any) error {
	switch v.(type) {
	case float64, int, string, []float64, []int, *Array:
		return nil
	default:
		return fmt.Errorf("integrand: unsupported property type %T", v)
	}
}

// write stores every property as one dataset of a "properties" child group
func (p *Properties) write(g store.Group) error {
	pg, err := g.RequireGroup("properties")
	if err != nil {
		return err
	}
	for _, key := range p.Keys() {
		var ds *store.Dataset
		switch v := p.values[key].(type) {
		case float64:
			ds = store.NewFloatScalar(v)
		case int:
			ds = store.NewIntScalar(v)
		case string:
			ds = store.NewString(v)
		case []float64:
			ds = store.NewFloats([]int{len(v)}, v)
		case []int:
			ds = store.NewInts(store.Int64, v)
		case *Array:
			ds = store.NewFloats(v.shape, v.data)
			// rank 0 and 1 arrays would otherwise read back as float64 and []float64
			if err = store.SetStringAttr(pg, key, arrayMarker); err != nil {
				return fmt.Errorf("mark property %q: %w", key, err)
			}
		}
		if err = pg.WriteDataset(key, ds); err != nil {
			return fmt.Errorf("write property %q: %w", key, err)
		}
	}
	return nil
}

const arrayMarker = "array"

// readProperties restores what write stored; a missing group means no
// properties
func readProperties(g store.Group) (*Properties, error) {
	p := NewProperties()
	pg, err := g.Group("properties")
	if errors.Is(err, store.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read properties of %s: %w", g.Path(), err)
	}
	names, err := pg.Datasets()
	if err != nil {
		return nil, err
	}
	marked, err := pg.Attrs()
	if err != nil {
		return nil, err
	}
	arrays := make(map[string]bool, len(marked))
	for _, key := range marked {
		v, err := store.StringAttr(pg, key)
		if err != nil {
			return nil, err
		}
		arrays[key] = v == arrayMarker
	}
	for _, name := range names {
		ds, err := pg.ReadDataset(name)
		if err != nil {
			return nil, err
		}
		switch {
		case ds.DType == store.String:
			p.values[name] = ds.Text
		case ds.DType == store.Float64 && len(ds.Shape) == 0 && !arrays[name]:
			p.values[name] = ds.Floats[0]
		case ds.DType == store.Float64 && len(ds.Shape) == 1 && !arrays[name]:
			p.values[name] = ds.Floats
		case ds.DType == store.Float64:
			a, err := NewArray(ds.Shape, ds.Floats)
			if err != nil {
				return nil, fmt.Errorf("%w: property %q: %w", ErrMalformedPersistedState, name, err)
			}
			p.values[name] = a
		case ds.DType.IsInt() && len(ds.Shape) == 0:
			p.values[name] = ds.Ints[0]
		case ds.DType.IsInt():
			p.values[name] = ds.Ints
		}
	}
	return p, nil
}
