package sim

import (
	"fmt"

	"github.com/milosgajdos/go-mpc/sym"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Linear is a model of a linear time-invariant system
//
//	dx/dt = A*x + B*u
//
// or, once discretized, x[n+1] = A*x[n] + B*u[n].
type Linear struct {
	// A is system matrix
	A *mat.Dense
	// B is control matrix
	B *mat.Dense
}

// NewLinear creates new Linear model and returns it.
// It returns error if A is not square or B row count does not match A.
func NewLinear(A, B mat.Matrix) (*Linear, error) {
	if A == nil || B == nil {
		return nil, fmt.Errorf("system and control matrices must be defined")
	}

	r, c := A.Dims()
	if r != c {
		return nil, fmt.Errorf("invalid system matrix dimensions: [%d x %d]", r, c)
	}

	if rb, _ := B.Dims(); rb != r {
		return nil, fmt.Errorf("invalid control matrix rows: %d, expected: %d", rb, r)
	}

	return &Linear{A: mat.DenseCopyOf(A), B: mat.DenseCopyOf(B)}, nil
}

// Dims returns state and control dimensions
func (l *Linear) Dims() (nx, nu int) {
	nx, _ = l.A.Dims()
	_, nu = l.B.Dims()
	return nx, nu
}

// Dynamics returns A*x + B*u
func (l *Linear) Dynamics(x, u sym.Vec) sym.Vec {
	return sym.MulMat(l.A, x).Add(sym.MulMat(l.B, u))
}

// Discretize returns zero-order hold discretization of l with sampling time dt.
//
//	Ad = exp(A*dt)
//	Bd = (exp(A*dt) - I)*inv(A)*B
//
// If A is singular Bd is read off exp([A B; 0 0]*dt) = [Ad Bd; 0 I].
func (l *Linear) Discretize(dt float64) (*Linear, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %f", dt)
	}

	nx, nu := l.Dims()

	adt := &mat.Dense{}
	adt.Scale(dt, l.A)
	ad := &mat.Dense{}
	ad.Exp(adt)

	bd := mat.NewDense(nx, nu, nil)

	ainv := &mat.Dense{}
	if err := ainv.Inverse(l.A); err == nil {
		eye, err := matrix.NewDenseValIdentity(nx, 1.0)
		if err != nil {
			return nil, err
		}
		aux := &mat.Dense{}
		aux.Sub(ad, eye)
		tmp := &mat.Dense{}
		tmp.Mul(aux, ainv)
		bd.Mul(tmp, l.B)

		return &Linear{A: ad, B: bd}, nil
	}

	m := mat.NewDense(nx+nu, nx+nu, nil)
	m.Slice(0, nx, 0, nx).(*mat.Dense).Copy(l.A)
	m.Slice(0, nx, nx, nx+nu).(*mat.Dense).Copy(l.B)
	m.Scale(dt, m)

	e := &mat.Dense{}
	e.Exp(m)
	bd.Copy(e.Slice(0, nx, nx, nx+nu))

	return &Linear{A: ad, B: bd}, nil
}
