// Package nlp transcribes optimal control problems into nonlinear programs
// using multiple shooting.
package nlp

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-mpc/integrate"
	"github.com/milosgajdos/go-mpc/problem"
	"github.com/milosgajdos/go-mpc/sym"
	"gonum.org/v1/gonum/mat"
)

// BlockKind is a kind of constraint block
type BlockKind int

const (
	// Defect is a dynamics continuity block
	Defect BlockKind = iota
	// Equality is a user equality constraint block
	Equality
	// Inequality is a user inequality constraint block
	Inequality
)

// String implements the Stringer interface.
func (k BlockKind) String() string {
	switch k {
	case Defect:
		return "defect"
	case Equality:
		return "equality"
	case Inequality:
		return "inequality"
	}
	return fmt.Sprintf("BlockKind(%d)", int(k))
}

// Block is a contiguous slice of the constraint vector
type Block struct {
	// Kind is block kind
	Kind BlockKind
	// Stage is the stage transition the block is evaluated at
	Stage int
	// Index is the registration index of the constraint within its kind.
	// It is zero for Defect blocks.
	Index int
	// Offset is the position of the first block element in G
	Offset int
	// Size is the number of block elements
	Size int
}

// Layout describes positions of stage variables in W and constraint blocks in G
type Layout struct {
	Nx      int
	Nu      int
	Horizon int
	Blocks  []Block
}

// StateIndex returns offset of state of node i in W
func (l Layout) StateIndex(i int) int {
	return i * (l.Nx + l.Nu)
}

// ControlIndex returns offset of control of stage i in W
func (l Layout) ControlIndex(i int) int {
	return i*(l.Nx+l.Nu) + l.Nx
}

// NumVars returns the length of W
func (l Layout) NumVars() int {
	return (l.Horizon+1)*l.Nx + l.Horizon*l.Nu
}

// NumConstraints returns the length of G
func (l Layout) NumConstraints() int {
	n := 0
	for _, b := range l.Blocks {
		n += b.Size
	}
	return n
}

// BlocksOf returns constraint blocks of the given kind
func (l Layout) BlocksOf(kind BlockKind) []Block {
	var out []Block
	for _, b := range l.Blocks {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

// NLP is a nonlinear program
//
//	minimize    F(W)
//	subject to  Lbw <= W <= Ubw
//	            Lbg <= G(W) <= Ubg
type NLP struct {
	// W is decision vector
	W sym.Vec
	// F is objective
	F sym.Scalar
	// G is constraint vector
	G sym.Vec
	// Lbw and Ubw are decision variable bounds
	Lbw, Ubw []float64
	// Lbg and Ubg are constraint bounds
	Lbg, Ubg []float64
	// Layout is NLP layout
	Layout Layout
}

type transcriber struct {
	nlp  *NLP
	eqs  []int
	ineq []int
}

func (t *transcriber) pushVar(v sym.Vec, lb, ub []float64) {
	t.nlp.W = append(t.nlp.W, v...)
	t.nlp.Lbw = append(t.nlp.Lbw, lb...)
	t.nlp.Ubw = append(t.nlp.Ubw, ub...)
}

func (t *transcriber) pushBlock(kind BlockKind, stage, index int, g sym.Vec, lb, ub float64) {
	t.nlp.Layout.Blocks = append(t.nlp.Layout.Blocks, Block{
		Kind:   kind,
		Stage:  stage,
		Index:  index,
		Offset: len(t.nlp.G),
		Size:   len(g),
	})
	t.nlp.G = append(t.nlp.G, g...)
	for range g {
		t.nlp.Lbg = append(t.nlp.Lbg, lb)
		t.nlp.Ubg = append(t.nlp.Ubg, ub)
	}
}

// constraints evaluates fns at (x,u) and checks the output sizes do not change
// between stages.
func (t *transcriber) constraints(kind BlockKind, sizes []int, fns []problem.ConstraintFunc,
	stage int, x, u sym.Vec, lb, ub float64) error {
	for j, fn := range fns {
		g := fn(x, u)
		if stage == 0 {
			sizes[j] = len(g)
		} else if len(g) != sizes[j] {
			return fmt.Errorf("invalid %s constraint %d size at stage %d: %d, expected: %d",
				kind, j, stage, len(g), sizes[j])
		}
		t.pushBlock(kind, stage, j, g, lb, ub)
	}
	return nil
}

// Transcribe transcribes p into NLP using multiple shooting.
// The decision vector is ordered as [x0, u0, x1, u1, ..., x(N-1), u(N-1), xN].
// State x0 is bounded to [0, 0]: it is a placeholder for the measured state.
// State of node i > 0 is bounded by the state bound of stage i-1.
// Constraints are stacked per stage: dynamics defects followed by equality and
// inequality constraints evaluated at the next state and the stage control.
// It returns error if the dynamics or constraint output sizes are inconsistent.
func Transcribe(p *problem.Problem) (*NLP, error) {
	if p == nil {
		return nil, fmt.Errorf("invalid problem: %v", p)
	}

	nx, nu := p.Dims()
	horizon := p.Horizon()

	var dynErr error
	dynamics := func(x, u sym.Vec) sym.Vec {
		dx := p.Dynamics(x, u)
		if len(dx) != nx {
			if dynErr == nil {
				dynErr = fmt.Errorf("invalid dynamics output size: %d, expected: %d", len(dx), nx)
			}
			return sym.Zeros(nx)
		}
		return dx
	}
	step, err := integrate.Stepper[sym.Vec](p.Method(), p.Dt(), dynamics)
	if err != nil {
		return nil, err
	}

	eqFns := p.Constraints(problem.Equality)
	ineqFns := p.Constraints(problem.Inequality)

	t := &transcriber{
		nlp: &NLP{
			Layout: Layout{Nx: nx, Nu: nu, Horizon: horizon},
		},
		eqs:  make([]int, len(eqFns)),
		ineq: make([]int, len(ineqFns)),
	}

	x := sym.Var("X_0", nx)
	f := sym.Const(0)

	for i := 0; i < horizon; i++ {
		if i == 0 {
			t.pushVar(x, make([]float64, nx), make([]float64, nx))
		} else {
			lb, ub := p.StateBound(i - 1)
			t.pushVar(x, lb.RawVector().Data, ub.RawVector().Data)
		}

		u := sym.Var(fmt.Sprintf("U_%d", i), nu)
		lb, ub := p.ControlBound(i)
		t.pushVar(u, lb.RawVector().Data, ub.RawVector().Data)

		xplus := step(x, u)
		if dynErr != nil {
			return nil, fmt.Errorf("stage %d: %w", i, dynErr)
		}

		next := sym.Var(fmt.Sprintf("X_%d", i+1), nx)
		t.pushBlock(Defect, i, 0, xplus.Sub(next), 0, 0)

		f = f.Add(p.StageCost(x, u))

		if err := t.constraints(Equality, t.eqs, eqFns, i, next, u, 0, 0); err != nil {
			return nil, err
		}
		if err := t.constraints(Inequality, t.ineq, ineqFns, i, next, u, math.Inf(-1), 0); err != nil {
			return nil, err
		}

		x = next
	}

	lb, ub := p.StateBound(horizon - 1)
	t.pushVar(x, lb.RawVector().Data, ub.RawVector().Data)
	t.nlp.F = f.Add(p.TerminalCost(x))

	return t.nlp, nil
}

// States returns state trajectory stored in primal vector w as [N+1 x nx] matrix
func (n *NLP) States(w []float64) *mat.Dense {
	l := n.Layout
	out := mat.NewDense(l.Horizon+1, l.Nx, nil)
	for i := 0; i <= l.Horizon; i++ {
		out.SetRow(i, w[l.StateIndex(i):l.StateIndex(i)+l.Nx])
	}
	return out
}

// Controls returns control trajectory stored in primal vector w as [N x nu] matrix
func (n *NLP) Controls(w []float64) *mat.Dense {
	l := n.Layout
	out := mat.NewDense(l.Horizon, l.Nu, nil)
	for i := 0; i < l.Horizon; i++ {
		out.SetRow(i, w[l.ControlIndex(i):l.ControlIndex(i)+l.Nu])
	}
	return out
}
