package integrand

import (
	"fmt"
	"reflect"
)

// Integral is any value produced while assembling a residual. Concrete
// integrands report Lazy() == false.
type Integral interface {
	Lazy() bool
}

// LazyIntegral is an integral whose evaluation is deferred so a batch of
// them can be combined in one pass
type LazyIntegral interface {
	Integral
	// Combine evaluates every member of batch, which all share the
	// receiver's concrete type
	Combine(batch []LazyIntegral) ([]Integrand, error)
}

// Integrate returns args unchanged when none of them is lazy. Otherwise every
// argument must have the same concrete type and the batch is combined by the
// first one's rule.
func Integrate(args ...Integral) ([]Integral, error) {
	lazy := false
	for _, a := range args {
		lazy = lazy || a.Lazy()
	}
	if !lazy {
		return args, nil
	}

	want := reflect.TypeOf(args[0])
	batch := make([]LazyIntegral, len(args))
	for n, a := range args {
		if got := reflect.TypeOf(a); got != want {
			return nil, fmt.Errorf("%w: cannot combine %s with %s", ErrInvalidContraction, want, got)
		}
		l, ok := a.(LazyIntegral)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no combination rule", ErrInvalidContraction, want)
		}
		batch[n] = l
	}
	combined, err := batch[0].Combine(batch)
	if err != nil {
		return nil, err
	}
	out := make([]Integral, len(combined))
	for n, c := range combined {
		out[n] = c
	}
	return out, nil
}

type term struct {
	target Integrand
	c      Contraction
}

// Deferred is a pending sum of contractions. A Newton residual is
// Defer(T, {nil, u, u}); its Jacobian is
// Defer(T, {nil, u, nil}).Plus(Defer(T, {nil, nil, u})).
type Deferred struct {
	terms []term
}

// Defer records target.Contract(c) without evaluating it
func Defer(target Integrand, c Contraction) *Deferred {
	return &Deferred{terms: []term{{target: target, c: c}}}
}

// Plus returns the deferred sum of d and o
func (d *Deferred) Plus(o *Deferred) *Deferred {
	terms := make([]term, 0, len(d.terms)+len(o.terms))
	return &Deferred{terms: append(append(terms, d.terms...), o.terms...)}
}

func (d *Deferred) Lazy() bool { return true }

// Eval contracts and sums the terms
func (d *Deferred) Eval() (Integrand, error) {
	var sum Integrand
	for _, t := range d.terms {
		v, err := t.target.Contract(t.c)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = v
			continue
		}
		if sum, err = Add(sum, v); err != nil {
			return nil, err
		}
	}
	if sum == nil {
		return nil, fmt.Errorf("%w: empty deferred sum", ErrInvalidContraction)
	}
	return sum, nil
}

func (d *Deferred) Combine(batch []LazyIntegral) ([]Integrand, error) {
	out := make([]Integrand, len(batch))
	for n, l := range batch {
		dd, ok := l.(*Deferred)
		if !ok {
			return nil, fmt.Errorf("%w: cannot combine %T with %T", ErrInvalidContraction, d, l)
		}
		v, err := dd.Eval()
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}
