package problem

import (
	"fmt"
	"math"

	mpc "github.com/milosgajdos/go-mpc"
	"github.com/milosgajdos/go-mpc/integrate"
	"github.com/milosgajdos/go-mpc/sym"
	"gonum.org/v1/gonum/mat"
)

// ConstraintKind is a kind of path constraint
type ConstraintKind int

const (
	// Equality constraints are bounded to [0, 0]
	Equality ConstraintKind = iota
	// Inequality constraints are bounded to (-inf, 0]
	Inequality
)

// String implements the Stringer interface.
func (k ConstraintKind) String() string {
	switch k {
	case Equality:
		return "equality"
	case Inequality:
		return "inequality"
	}
	return fmt.Sprintf("ConstraintKind(%d)", int(k))
}

// ConstraintFunc is a path constraint evaluated at every stage transition
type ConstraintFunc func(x, u sym.Vec) sym.Vec

// bound is a pair of lower and upper bound vectors
type bound struct {
	lower *mat.VecDense
	upper *mat.VecDense
}

// Problem is an optimal control problem over a fixed horizon
type Problem struct {
	// model is system model
	model mpc.Model
	// method advances model dynamics
	method integrate.Method
	// nx and nu are state and control dimensions
	nx, nu int
	// horizon is the number of control intervals
	horizon int
	// dt is sample period
	dt float64
	// xBounds are per-stage state bounds
	xBounds []bound
	// uBounds are per-stage control bounds
	uBounds []bound
	// eq are equality constraints in registration order
	eq []ConstraintFunc
	// ineq are inequality constraints in registration order
	ineq []ConstraintFunc
}

// New creates new Problem and returns it.
// It accepts the following parameters:
// - m:       system model; it may implement mpc.StageCoster and mpc.TerminalCoster
// - method:  integration method used to advance model dynamics
// - nx, nu:  state and control dimensions
// - horizon: number of control intervals
// - dt:      sample period; ignored by integrate.Discretized
// All state and control bounds default to (-inf, +inf).
// It returns error if either of the following conditions is met:
// - model is nil or has no dynamics
// - dimensions or horizon are not positive
// - dt is not positive for continuous integration methods
func New(m mpc.Model, method integrate.Method, nx, nu, horizon int, dt float64) (*Problem, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}

	if !hasDynamics(m) {
		return nil, fmt.Errorf("invalid model: missing dynamics")
	}

	if nx <= 0 || nu <= 0 {
		return nil, fmt.Errorf("invalid problem dimensions: [%d x %d]", nx, nu)
	}

	if horizon <= 0 {
		return nil, fmt.Errorf("invalid horizon: %d", horizon)
	}

	switch method {
	case integrate.ForwardEuler, integrate.ModifiedEuler, integrate.RK4:
		if dt <= 0 {
			return nil, fmt.Errorf("invalid sample period: %f", dt)
		}
	case integrate.Discretized:
	default:
		return nil, fmt.Errorf("invalid integration method: %s", method)
	}

	p := &Problem{
		model:   m,
		method:  method,
		nx:      nx,
		nu:      nu,
		horizon: horizon,
		dt:      dt,
		xBounds: make([]bound, horizon),
		uBounds: make([]bound, horizon),
	}

	for i := 0; i < horizon; i++ {
		p.xBounds[i] = bound{lower: infVec(nx, -1), upper: infVec(nx, 1)}
		p.uBounds[i] = bound{lower: infVec(nu, -1), upper: infVec(nu, 1)}
	}

	return p, nil
}

// hasDynamics returns false if m is a Funcs, or a Quadratic wrapping one, with no dynamics
func hasDynamics(m mpc.Model) bool {
	switch v := m.(type) {
	case *Funcs:
		return v != nil && v.DynamicsFn != nil
	case *Quadratic:
		return v != nil && v.Model != nil && hasDynamics(v.Model)
	}
	return true
}

func infVec(n, sign int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, math.Inf(sign))
	}
	return v
}

// Dims returns state and control dimensions
func (p *Problem) Dims() (nx, nu int) {
	return p.nx, p.nu
}

// Horizon returns the number of control intervals
func (p *Problem) Horizon() int {
	return p.horizon
}

// Dt returns sample period
func (p *Problem) Dt() float64 {
	return p.dt
}

// Method returns integration method
func (p *Problem) Method() integrate.Method {
	return p.method
}

// Model returns problem model
func (p *Problem) Model() mpc.Model {
	return p.model
}

// Dynamics returns model dynamics of state x driven by control u
func (p *Problem) Dynamics(x, u sym.Vec) sym.Vec {
	return p.model.Dynamics(x, u)
}

// StageCost returns model stage cost or zero if the model has none
func (p *Problem) StageCost(x, u sym.Vec) sym.Scalar {
	if c, ok := p.model.(mpc.StageCoster); ok {
		return c.StageCost(x, u)
	}
	return sym.Const(0)
}

// TerminalCost returns model terminal cost or zero if the model has none
func (p *Problem) TerminalCost(x sym.Vec) sym.Scalar {
	if c, ok := p.model.(mpc.TerminalCoster); ok {
		return c.TerminalCost(x)
	}
	return sym.Const(0)
}

// AddConstraint appends constraint fn of the given kind.
// Constraints are evaluated in registration order.
func (p *Problem) AddConstraint(kind ConstraintKind, fn ConstraintFunc) error {
	if fn == nil {
		return fmt.Errorf("invalid %s constraint: nil function", kind)
	}

	switch kind {
	case Equality:
		p.eq = append(p.eq, fn)
	case Inequality:
		p.ineq = append(p.ineq, fn)
	default:
		return fmt.Errorf("invalid constraint kind: %s", kind)
	}

	return nil
}

// Constraints returns constraints of the given kind in registration order
func (p *Problem) Constraints(kind ConstraintKind) []ConstraintFunc {
	var src []ConstraintFunc
	switch kind {
	case Equality:
		src = p.eq
	case Inequality:
		src = p.ineq
	}

	out := make([]ConstraintFunc, len(src))
	copy(out, src)

	return out
}

// StateBound returns lower and upper state bound of the given stage
func (p *Problem) StateBound(stage int) (lb, ub *mat.VecDense) {
	b := p.xBounds[stage]
	return mat.VecDenseCopyOf(b.lower), mat.VecDenseCopyOf(b.upper)
}

// ControlBound returns lower and upper control bound of the given stage
func (p *Problem) ControlBound(stage int) (lb, ub *mat.VecDense) {
	b := p.uBounds[stage]
	return mat.VecDenseCopyOf(b.lower), mat.VecDenseCopyOf(b.upper)
}
