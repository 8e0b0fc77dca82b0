// Package sim simulates receding horizon control of dynamical systems.
package sim

import (
	"errors"
	"fmt"

	mpc "github.com/milosgajdos/go-mpc"
	"github.com/milosgajdos/go-mpc/solver"
	"gonum.org/v1/gonum/mat"
)

// System is a plant which can be simulated
type System interface {
	mpc.Propagator
	// Dims returns state and control dimensions
	Dims() (nx, nu int)
}

// Result is closed loop simulation result
type Result struct {
	// States is [steps+1 x nx] state history
	States *mat.Dense
	// Controls is [steps x nu] history of applied controls
	Controls *mat.Dense
	// Failures counts failed controller solves
	Failures int
}

// Run simulates steps of closed loop control of sys by ctrl starting from state x0.
// Process noise wd is added to every propagated state if it is not nil.
// If the controller fails to converge or finds the problem infeasible the
// previously applied control is reused; the first fallback control is zero.
// It returns error if the controller or the system fail otherwise.
func Run(ctrl mpc.Controller, sys System, x0 mat.Vector, steps int, wd mpc.Noise) (*Result, error) {
	if ctrl == nil || sys == nil {
		return nil, fmt.Errorf("invalid controller or system")
	}

	if steps <= 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	nx, nu := sys.Dims()
	if x0 == nil || x0.Len() != nx {
		return nil, fmt.Errorf("invalid initial state")
	}

	res := &Result{
		States:   mat.NewDense(steps+1, nx, nil),
		Controls: mat.NewDense(steps, nu, nil),
	}

	var x mat.Vector = mat.VecDenseCopyOf(x0)
	var u mat.Vector = mat.NewVecDense(nu, nil)
	res.States.SetRow(0, mat.Col(nil, 0, x))

	for i := 0; i < steps; i++ {
		next, err := ctrl.Solve(x)
		switch {
		case err == nil:
			u = next
		case errors.Is(err, solver.ErrConvergence), errors.Is(err, solver.ErrInfeasible):
			res.Failures++
		default:
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		var noise mat.Vector
		if wd != nil {
			noise = wd.Sample()
		}

		x, err = sys.Propagate(x, u, noise)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		res.Controls.SetRow(i, mat.Col(nil, 0, u))
		res.States.SetRow(i+1, mat.Col(nil, 0, x))
	}

	return res, nil
}
