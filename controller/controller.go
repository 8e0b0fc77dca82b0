// Package controller implements warm-started receding horizon control.
package controller

import (
	"fmt"

	"github.com/milosgajdos/go-mpc/nlp"
	"github.com/milosgajdos/go-mpc/problem"
	"github.com/milosgajdos/go-mpc/solver"
	"github.com/milosgajdos/go-mpc/solver/auglag"
	"gonum.org/v1/gonum/mat"
)

// DefaultBackend is the solver backend used when none is given
const DefaultBackend = auglag.Name

// State is controller warm start state
type State int

const (
	// Uninitialized controllers have no solution to warm start from
	Uninitialized State = iota
	// Ready controllers warm start from the last successful solution
	Ready
)

// String implements the Stringer interface.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MPC is receding horizon controller.
// MPC is not safe for concurrent use.
type MPC struct {
	// p is control problem
	p *problem.Problem
	// n is transcribed program
	n *nlp.NLP
	// s solves n
	s solver.Solver
	// lbx and ubx are decision variable bounds; the first nx entries pin the measured state
	lbx, ubx []float64
	// w0, lamX0 and lamG0 are warm start primal and dual vectors
	w0, lamX0, lamG0 []float64
	// state is warm start state
	state State
	// iters is the iteration count of the last successful solve
	iters int
}

// New creates new MPC controller of problem p using the named solver backend.
// If backend is empty DefaultBackend is used. If opts is nil solver.DefaultOptions are used.
// The problem is transcribed once: bound changes made to p afterwards have no effect.
// It returns error if the backend is unknown or the problem can not be transcribed.
func New(p *problem.Problem, backend string, opts *solver.Options) (*MPC, error) {
	if backend == "" {
		backend = DefaultBackend
	}

	f, err := solver.Lookup(backend)
	if err != nil {
		return nil, err
	}

	return NewWithFactory(p, f, opts)
}

// NewWithFactory creates new MPC controller of problem p with solver created by f.
func NewWithFactory(p *problem.Problem, f solver.Factory, opts *solver.Options) (*MPC, error) {
	if f == nil {
		return nil, fmt.Errorf("invalid solver factory: %v", f)
	}

	if opts == nil {
		opts = solver.DefaultOptions()
	}

	n, err := nlp.Transcribe(p)
	if err != nil {
		return nil, err
	}

	s, err := f(n, opts)
	if err != nil {
		return nil, err
	}

	nw, ng := len(n.W), len(n.G)

	c := &MPC{
		p:     p,
		n:     n,
		s:     s,
		lbx:   make([]float64, nw),
		ubx:   make([]float64, nw),
		w0:    make([]float64, nw),
		lamX0: make([]float64, nw),
		lamG0: make([]float64, ng),
		state: Uninitialized,
	}

	copy(c.lbx, n.Lbw)
	copy(c.ubx, n.Ubw)

	return c, nil
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Solve pins state x as the initial condition, solves the program warm started
// from the last successful solution and returns the first control action.
// Solver failures are returned verbatim and leave the warm start cache untouched.
// It returns error if x has invalid dimension.
func (c *MPC) Solve(x mat.Vector) (mat.Vector, error) {
	l := c.n.Layout

	if x == nil {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}

	if x.Len() != l.Nx {
		return nil, fmt.Errorf("invalid state vector length: %d, expected: %d", x.Len(), l.Nx)
	}

	for i := 0; i < l.Nx; i++ {
		c.lbx[i] = x.AtVec(i)
		c.ubx[i] = x.AtVec(i)
	}

	args := &solver.Args{
		X0:    clone(c.w0),
		Lbx:   clone(c.lbx),
		Ubx:   clone(c.ubx),
		Lbg:   clone(c.n.Lbg),
		Ubg:   clone(c.n.Ubg),
		LamX0: clone(c.lamX0),
		LamG0: clone(c.lamG0),
	}

	res, err := c.s.Solve(args)
	if err != nil {
		return nil, err
	}

	if len(res.X) != len(c.w0) || len(res.LamX) != len(c.lamX0) || len(res.LamG) != len(c.lamG0) {
		return nil, fmt.Errorf("invalid solver result dimensions: [%d, %d, %d]",
			len(res.X), len(res.LamX), len(res.LamG))
	}

	copy(c.w0, res.X)
	copy(c.lamX0, res.LamX)
	copy(c.lamG0, res.LamG)
	c.state = Ready
	c.iters = res.Iterations

	off := l.ControlIndex(0)

	return mat.NewVecDense(l.Nu, clone(res.X[off:off+l.Nu])), nil
}

// State returns warm start state
func (c *MPC) State() State {
	return c.state
}

// Iterations returns solver iterations of the last successful solve
func (c *MPC) Iterations() int {
	return c.iters
}

// WarmStart returns copies of the cached primal and dual vectors
func (c *MPC) WarmStart() (w, lamX, lamG []float64) {
	return clone(c.w0), clone(c.lamX0), clone(c.lamG0)
}

// Trajectory returns predicted states [N+1 x nx] and controls [N x nu] of the
// last successful solve. Both are zero if the controller is Uninitialized.
func (c *MPC) Trajectory() (states, controls *mat.Dense) {
	return c.n.States(c.w0), c.n.Controls(c.w0)
}

// NLP returns transcribed program
func (c *MPC) NLP() *nlp.NLP {
	return c.n
}

// Problem returns control problem
func (c *MPC) Problem() *problem.Problem {
	return c.p
}

// Reset clears warm start cache
func (c *MPC) Reset() {
	for _, v := range [][]float64{c.w0, c.lamX0, c.lamG0} {
		for i := range v {
			v[i] = 0
		}
	}
	c.state = Uninitialized
	c.iters = 0
}
