package mpc

import (
	"github.com/milosgajdos/go-mpc/sym"
	"gonum.org/v1/gonum/mat"
)

// Model is a dynamical system model an MPC problem is built around.
// For continuous integration methods Dynamics returns the time derivative
// of x, for discretized models it returns the next state.
type Model interface {
	// Dynamics returns the dynamics of state x driven by control u
	Dynamics(x, u sym.Vec) sym.Vec
}

// StageCoster is implemented by models which penalize every stage transition
type StageCoster interface {
	// StageCost returns the cost of applying control u in state x
	StageCost(x, u sym.Vec) sym.Scalar
}

// TerminalCoster is implemented by models which penalize the final state
type TerminalCoster interface {
	// TerminalCost returns the cost of ending the horizon in state x
	TerminalCost(x sym.Vec) sym.Scalar
}

// Controller computes control actions from measured system state
type Controller interface {
	// Solve returns the control action to apply in state x
	Solve(x mat.Vector) (mat.Vector, error)
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates state x driven by control u and disturbance wd
	Propagate(x, u, wd mat.Vector) (mat.Vector, error)
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
