package element

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Element is a reference element with nodal basis functions
type Element interface {
	Name() string
	ShortName() string
	Order() int
	Np() int // Number of nodes

	// Reference node coordinates in [-1,1]
	R() []float64

	// Nodal / Modal matrices
	V() mat.Matrix
	Vinv() mat.Matrix
	M() mat.Matrix

	// Derivative with respect to r
	Dr() mat.Matrix
}

// LineElement is the Lagrange line element of order N on Gauss-Lobatto
// nodes. Nodes 0 and N sit on the vertices.
type LineElement struct {
	N  int
	r  []float64
	v  *mat.Dense // Vandermonde matrix: modal to nodal [Np × Np]
	vi *mat.Dense // nodal to modal
	m  *mat.Dense // reference mass matrix (V Vᵀ)⁻¹
	dr *mat.Dense // Vr V⁻¹
}

// NewLineElement builds the order N element, N >= 1
func NewLineElement(N int) (*LineElement, error) {
	if N < 1 {
		return nil, fmt.Errorf("element: line order %d, need at least 1", N)
	}
	le := &LineElement{N: N, r: JacobiGL(0, 0, N)}
	le.v = Vandermonde1D(N, le.r)
	le.vi = mat.NewDense(N+1, N+1, nil)
	if err := le.vi.Inverse(le.v); err != nil {
		return nil, fmt.Errorf("element: invert vandermonde: %w", err)
	}

	var vvt mat.Dense
	vvt.Mul(le.v, le.v.T())
	le.m = mat.NewDense(N+1, N+1, nil)
	if err := le.m.Inverse(&vvt); err != nil {
		return nil, fmt.Errorf("element: invert V Vᵀ: %w", err)
	}

	le.dr = mat.NewDense(N+1, N+1, nil)
	le.dr.Mul(GradVandermonde1D(N, le.r), le.vi)
	return le, nil
}

func (le *LineElement) Name() string { return fmt.Sprintf("Lagrange Line Order %d", le.N) }

func (le *LineElement) ShortName() string { return fmt.Sprintf("Line%d", le.N) }

func (le *LineElement) Order() int { return le.N }

func (le *LineElement) Np() int { return le.N + 1 }

func (le *LineElement) R() []float64 { return le.r }

func (le *LineElement) V() mat.Matrix { return le.v }

func (le *LineElement) Vinv() mat.Matrix { return le.vi }

func (le *LineElement) M() mat.Matrix { return le.m }

func (le *LineElement) Dr() mat.Matrix { return le.dr }

// Interpolation returns the values (I) and r-derivatives (D) of every nodal
// basis function at points r: I[q][j] = φ_j(r_q)
func (le *LineElement) Interpolation(r []float64) (I, D *mat.Dense) {
	I, D = mat.NewDense(len(r), le.Np(), nil), mat.NewDense(len(r), le.Np(), nil)
	I.Mul(Vandermonde1D(le.N, r), le.vi)
	D.Mul(GradVandermonde1D(le.N, r), le.vi)
	return I, D
}

// Vandermonde1D initializes the Vandermonde matrix V_{ij} = P_j(r_i)
func Vandermonde1D(N int, r []float64) *mat.Dense {
	V := mat.NewDense(len(r), N+1, nil)
	for j := 0; j <= N; j++ {
		V.SetCol(j, JacobiP(r, 0, 0, j))
	}
	return V
}

// GradVandermonde1D builds (Vr)_{ij} = dP_j/dr at point i
func GradVandermonde1D(N int, r []float64) *mat.Dense {
	Vr := mat.NewDense(len(r), N+1, nil)
	for j := 0; j <= N; j++ {
		Vr.SetCol(j, GradJacobiP(r, 0, 0, j))
	}
	return Vr
}
