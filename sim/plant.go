package sim

import (
	"fmt"

	mpc "github.com/milosgajdos/go-mpc"
	"github.com/milosgajdos/go-mpc/integrate"
	"github.com/milosgajdos/go-mpc/sym"
	"gonum.org/v1/gonum/mat"
)

// Plant is a numeric one-step map of a model
type Plant struct {
	nx, nu int
	step   *sym.Function
}

// NewPlant compiles the one-step map of model m advanced with method and returns it.
// It returns error if the dimensions are invalid or the model can not be compiled.
func NewPlant(m mpc.Model, method integrate.Method, nx, nu int, dt float64) (*Plant, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}

	if nx <= 0 || nu <= 0 {
		return nil, fmt.Errorf("invalid plant dimensions: [%d x %d]", nx, nu)
	}

	var dynErr error
	dynamics := func(x, u sym.Vec) sym.Vec {
		dx := m.Dynamics(x, u)
		if dx.Len() != nx {
			dynErr = fmt.Errorf("invalid dynamics output size: %d, expected: %d", dx.Len(), nx)
			return sym.Zeros(nx)
		}
		return dx
	}

	step, err := integrate.Stepper[sym.Vec](method, dt, dynamics)
	if err != nil {
		return nil, err
	}

	x := sym.Var("x", nx)
	u := sym.Var("u", nu)

	next := step(x, u)
	if dynErr != nil {
		return nil, dynErr
	}

	f, err := sym.Compile("plant", sym.Concat(x, u), next)
	if err != nil {
		return nil, err
	}

	return &Plant{nx: nx, nu: nu, step: f}, nil
}

// Dims returns state and control dimensions
func (p *Plant) Dims() (nx, nu int) {
	return p.nx, p.nu
}

// Propagate propagates state x driven by control u to the next step.
// Disturbance wd is added to the propagated state if it is not nil.
func (p *Plant) Propagate(x, u, wd mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != p.nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	if u == nil || u.Len() != p.nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	if wd != nil && wd.Len() != p.nx {
		return nil, fmt.Errorf("invalid disturbance vector")
	}

	in := make([]float64, p.nx+p.nu)
	for i := 0; i < p.nx; i++ {
		in[i] = x.AtVec(i)
	}
	for i := 0; i < p.nu; i++ {
		in[p.nx+i] = u.AtVec(i)
	}

	out := mat.NewVecDense(p.nx, p.step.Eval(nil, in))
	if wd != nil {
		out.AddVec(out, wd)
	}

	return out, nil
}
