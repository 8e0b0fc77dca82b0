// Package solver defines the contract between receding horizon controllers
// and nonlinear program solvers.
package solver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/milosgajdos/go-mpc/nlp"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrConvergence is returned when the solver runs out of iterations
	// without satisfying its tolerances.
	ErrConvergence = errors.New("convergence failure")
	// ErrInfeasible is returned when the solver finds no feasible point.
	ErrInfeasible = errors.New("infeasible problem")
)

// Args are solver call arguments
type Args struct {
	// X0 is initial primal guess
	X0 []float64
	// Lbx and Ubx are decision variable bounds
	Lbx, Ubx []float64
	// Lbg and Ubg are constraint bounds
	Lbg, Ubg []float64
	// LamX0 is initial bound multiplier guess; nil means zero
	LamX0 []float64
	// LamG0 is initial constraint multiplier guess; nil means zero
	LamG0 []float64
}

// Validate checks Args dimensions against nw decision variables and ng constraints
func (a *Args) Validate(nw, ng int) error {
	for _, v := range []struct {
		name string
		val  []float64
		n    int
	}{
		{"x0", a.X0, nw},
		{"lbx", a.Lbx, nw},
		{"ubx", a.Ubx, nw},
		{"lbg", a.Lbg, ng},
		{"ubg", a.Ubg, ng},
	} {
		if len(v.val) != v.n {
			return fmt.Errorf("invalid %s dimension: %d, expected: %d", v.name, len(v.val), v.n)
		}
	}

	if a.LamX0 != nil && len(a.LamX0) != nw {
		return fmt.Errorf("invalid lam_x0 dimension: %d, expected: %d", len(a.LamX0), nw)
	}

	if a.LamG0 != nil && len(a.LamG0) != ng {
		return fmt.Errorf("invalid lam_g0 dimension: %d, expected: %d", len(a.LamG0), ng)
	}

	return nil
}

// Result is a solver solution
type Result struct {
	// X is primal solution
	X []float64
	// LamX are bound multipliers
	LamX []float64
	// LamG are constraint multipliers
	LamG []float64
	// F is objective value at X
	F float64
	// Iterations is the number of iterations the solver took
	Iterations int
}

// Solver solves a nonlinear program it was created for
type Solver interface {
	// Solve solves the program with the given arguments.
	// Failures wrap ErrConvergence or ErrInfeasible.
	Solve(*Args) (*Result, error)
}

// Factory creates a Solver of the given program
type Factory func(*nlp.NLP, *Options) (Solver, error)

var (
	mu       sync.RWMutex
	backends = make(map[string]Factory)
)

// Register makes solver backend available under the given name.
// It panics if f is nil or the name is already registered.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if f == nil {
		panic("solver: Register factory is nil")
	}

	if _, dup := backends[name]; dup {
		panic("solver: Register called twice for backend " + name)
	}

	backends[name] = f
}

// Lookup returns factory of the named backend
func Lookup(name string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver backend: %q", name)
	}

	return f, nil
}

// Backends returns sorted names of registered backends
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := maps.Keys(backends)
	slices.Sort(names)

	return names
}
