package integrand

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrateConcrete(t *testing.T) {
	a, err := Make(1.0)
	require.NoError(t, err)
	b, err := Make([]float64{1, 2})
	require.NoError(t, err)

	out, err := Integrate(a, b)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Same(t, a, out[0])
	assert.Same(t, b, out[1])
}

func TestIntegrateNewtonTerms(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	n := 5
	in, err := Make(randomTriplets(rng, 40, n, n, n))
	require.NoError(t, err)
	u := randomVec(rng, n)

	residual := Defer(in, Contraction{nil, u, u})
	jacobian := Defer(in, Contraction{nil, u, nil}).Plus(Defer(in, Contraction{nil, nil, u}))
	assert.True(t, residual.Lazy())

	out, err := Integrate(residual, jacobian)
	require.NoError(t, err)
	require.Len(t, out, 2)

	res := mustGetArray(t, out[0].(Integrand), Trivial(1))
	assert.True(t, res.EqualApprox(mustGetArray(t, in, Contraction{nil, u, u}), tol))

	jac := mustGetArray(t, out[1].(Integrand), Trivial(2))
	j1 := mustGetArray(t, in, Contraction{nil, u, nil})
	j2 := mustGetArray(t, in, Contraction{nil, nil, u})
	assert.True(t, jac.EqualApprox(j1.add(j2), tol))

	// J v matches a forward difference of the residual along v
	h := 1e-6
	v := randomVec(rng, n)
	up := make([]float64, n)
	for i := range up {
		up[i] = u[i] + h*v[i]
	}
	rp := mustGetArray(t, in, Contraction{nil, up, up})
	jv := mustGetArray(t, NewDense(jac), Contraction{nil, v})
	for i := 0; i < n; i++ {
		assert.InDelta(t, jv.At(i), (rp.At(i)-res.At(i))/h, 1e-4)
	}
}

func TestIntegrateMixed(t *testing.T) {
	in, err := Make(NewTriplets(2, 2, 2))
	require.NoError(t, err)
	_, err = Integrate(Defer(in, Contraction{nil, {1, 1}, {1, 1}}), in)
	assert.True(t, errors.Is(err, ErrInvalidContraction))

	_, err = Integrate(&Deferred{})
	assert.True(t, errors.Is(err, ErrInvalidContraction))
}
