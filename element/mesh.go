package element

import (
	"fmt"

	"github.com/notargets/ROMKernel/assembler"
	"github.com/notargets/ROMKernel/integrand"
)

// Mesh1D is a uniform continuous Galerkin mesh of an interval. Neighbouring
// elements share their vertex node, so there are K*N+1 degrees of freedom.
type Mesh1D struct {
	K      int          // Number of elements
	X0, X1 float64      // Domain
	Elem   *LineElement // Reference element shared by all cells

	VX   []float64 // Vertex coordinates, length K+1
	LToG [][]int   // [element][local node] -> global dof
}

// NewUniformMesh1D splits [x0, x1] into K equal elements of order N
func NewUniformMesh1D(K, N int, x0, x1 float64) (*Mesh1D, error) {
	if K < 1 {
		return nil, fmt.Errorf("element: %d elements", K)
	}
	if !(x1 > x0) {
		return nil, fmt.Errorf("element: empty domain [%g, %g]", x0, x1)
	}
	le, err := NewLineElement(N)
	if err != nil {
		return nil, err
	}
	m := &Mesh1D{K: K, X0: x0, X1: x1, Elem: le}
	m.VX = make([]float64, K+1)
	for k := range m.VX {
		m.VX[k] = x0 + (x1-x0)*float64(k)/float64(K)
	}
	m.LToG = make([][]int, K)
	for k := range m.LToG {
		m.LToG[k] = make([]int, N+1)
		for i := range m.LToG[k] {
			m.LToG[k][i] = k*N + i
		}
	}
	return m, nil
}

func (m *Mesh1D) NumDofs() int { return m.K*m.Elem.N + 1 }

// Coordinates returns the physical location of every global dof
func (m *Mesh1D) Coordinates() []float64 {
	x := make([]float64, m.NumDofs())
	for k, dofs := range m.LToG {
		a, b := m.VX[k], m.VX[k+1]
		for i, g := range dofs {
			x[g] = a + (b-a)*(m.Elem.r[i]+1)/2
		}
	}
	return x
}

// quadrature returns Gauss points and weights exact for polynomials of
// degree 4N+1, enough for the trilinear convection form
func (m *Mesh1D) quadrature() (r, w []float64) {
	return JacobiGQ(0, 0, 2*m.Elem.N)
}

// Mass returns the unassembled mass form ∫ φ_i φ_j dx
func (m *Mesh1D) Mass() *integrand.Triplets {
	n := m.NumDofs()
	out := integrand.NewTriplets(n, n)
	rq, wq := m.quadrature()
	I, _ := m.Elem.Interpolation(rq)
	for k, dofs := range m.LToG {
		J := (m.VX[k+1] - m.VX[k]) / 2
		for i, gi := range dofs {
			for j, gj := range dofs {
				var v float64
				for q, w := range wq {
					v += w * I.At(q, i) * I.At(q, j)
				}
				out.Append(v*J, gi, gj)
			}
		}
	}
	return out
}

// Laplacian returns the unassembled stiffness form ∫ φ_i' φ_j' dx
func (m *Mesh1D) Laplacian() *integrand.Triplets {
	n := m.NumDofs()
	out := integrand.NewTriplets(n, n)
	rq, wq := m.quadrature()
	_, D := m.Elem.Interpolation(rq)
	for k, dofs := range m.LToG {
		J := (m.VX[k+1] - m.VX[k]) / 2
		for i, gi := range dofs {
			for j, gj := range dofs {
				var v float64
				for q, w := range wq {
					v += w * D.At(q, i) * D.At(q, j)
				}
				out.Append(v/J, gi, gj)
			}
		}
	}
	return out
}

// Convection returns the unassembled trilinear form ∫ φ_i φ_j φ_k' dx, so
// that contracting axes 1 and 2 with u gives the weak form of u u_x
func (m *Mesh1D) Convection() *integrand.Triplets {
	n := m.NumDofs()
	out := integrand.NewTriplets(n, n, n)
	rq, wq := m.quadrature()
	I, D := m.Elem.Interpolation(rq)
	for _, dofs := range m.LToG {
		// The Jacobian of dx cancels the one of d/dx
		for i, gi := range dofs {
			for j, gj := range dofs {
				for l, gl := range dofs {
					var v float64
					for q, w := range wq {
						v += w * I.At(q, i) * I.At(q, j) * D.At(q, l)
					}
					out.Append(v, gi, gj, gl)
				}
			}
		}
	}
	return out
}

// Load returns the assembled vector ∫ f φ_i dx for f given at the dofs
func (m *Mesh1D) Load(f []float64) ([]float64, error) {
	if len(f) != m.NumDofs() {
		return nil, fmt.Errorf("element: %d values for %d dofs", len(f), m.NumDofs())
	}
	rq, wq := m.quadrature()
	I, _ := m.Elem.Interpolation(rq)
	var idx []int
	var data []float64
	for k, dofs := range m.LToG {
		J := (m.VX[k+1] - m.VX[k]) / 2
		for i, gi := range dofs {
			var v float64
			for q, w := range wq {
				var fq float64
				for j, gj := range dofs {
					fq += I.At(q, j) * f[gj]
				}
				v += w * fq * I.At(q, i)
			}
			idx = append(idx, gi)
			data = append(data, v*J)
		}
	}
	asm, err := assembler.NewVector(m.NumDofs(), idx)
	if err != nil {
		return nil, err
	}
	return asm.Assemble(data), nil
}
