package problem

import (
	"fmt"

	mpc "github.com/milosgajdos/go-mpc"
	"github.com/milosgajdos/go-mpc/sym"
	"gonum.org/v1/gonum/mat"
)

// Quadratic is a model with quadratic costs
//
//	StageCost(x,u)  = x'*Q*x + u'*R*u
//	TerminalCost(x) = x'*P*x
type Quadratic struct {
	mpc.Model
	// Q is state weight
	Q mat.Matrix
	// R is control weight
	R mat.Matrix
	// P is terminal state weight; nil means no terminal cost
	P mat.Matrix
}

func square(name string, m mat.Matrix, n int) error {
	r, c := m.Dims()
	if r != n || c != n {
		return fmt.Errorf("invalid %s dimensions: [%d x %d], expected: [%d x %d]", name, r, c, n, n)
	}
	return nil
}

// NewQuadratic adds quadratic costs to model m and returns it.
// It returns error if m has no dynamics, the weights are not square or their sizes differ from
// [nx x nx] for Q and P where nx is given by Q.
func NewQuadratic(m mpc.Model, Q, R, P mat.Matrix) (*Quadratic, error) {
	if m == nil || Q == nil || R == nil {
		return nil, fmt.Errorf("invalid model or cost weights")
	}

	if !hasDynamics(m) {
		return nil, fmt.Errorf("invalid model: missing dynamics")
	}

	nx, _ := Q.Dims()
	if err := square("Q", Q, nx); err != nil {
		return nil, err
	}

	nu, _ := R.Dims()
	if err := square("R", R, nu); err != nil {
		return nil, err
	}

	if P != nil {
		if err := square("P", P, nx); err != nil {
			return nil, err
		}
	}

	return &Quadratic{Model: m, Q: Q, R: R, P: P}, nil
}

// StageCost returns x'*Q*x + u'*R*u
func (q *Quadratic) StageCost(x, u sym.Vec) sym.Scalar {
	return sym.QuadForm(x, q.Q).Add(sym.QuadForm(u, q.R))
}

// TerminalCost returns x'*P*x
func (q *Quadratic) TerminalCost(x sym.Vec) sym.Scalar {
	if q.P == nil {
		return sym.Const(0)
	}
	return sym.QuadForm(x, q.P)
}
