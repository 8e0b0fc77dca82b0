// Package auglag implements an augmented Lagrangian nonlinear program solver.
//
// Equality and inequality constraints, including finite variable bounds, are
// moved into a Powell-Hestenes-Rockafellar augmented Lagrangian which is
// minimized by one of the gonum optimize methods. Variables whose lower and
// upper bounds coincide are eliminated from the inner minimization.
package auglag

import (
	"fmt"
	"math"
	"time"

	"github.com/milosgajdos/go-mpc/nlp"
	"github.com/milosgajdos/go-mpc/solver"
	"github.com/milosgajdos/go-mpc/sym"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Name is the name the backend is registered with
const Name = "auglag"

const (
	// mu0 is initial penalty
	mu0 = 10.0
	// muMax caps penalty growth
	muMax = 1e10
	// muFactor scales penalty when constraint violation stalls
	muFactor = 10.0
	// progress is the violation decrease required to keep the penalty
	progress = 0.25
	// innerIter is the default inner iteration cap
	innerIter = 500
	// lbfgsStore is the default LBFGS memory
	lbfgsStore = 15
)

// qpsolKeys are recognized qpsol_options keys
var qpsolKeys = map[string]bool{
	"store":              true,
	"max_iter":           true,
	"gradient_threshold": true,
}

func init() {
	solver.Register(Name, func(n *nlp.NLP, opts *solver.Options) (solver.Solver, error) {
		return New(n, opts)
	})
}

// row is a single constraint c(w) of the augmented Lagrangian:
// c = sign*(v - bound) where v is either constraint or variable value.
type row struct {
	// eq marks c = 0 rows; other rows are c <= 0
	eq bool
	// con marks constraint rows; other rows bound variables
	con bool
	// index into G for constraint rows or W for variable rows
	index int
	// sign is +1 for equalities and upper bounds, -1 for lower bounds
	sign float64
	// bound is active bound value
	bound float64
}

// Solver is augmented Lagrangian solver
type Solver struct {
	nw, ng int
	f      *sym.Function
	g      *sym.Function
	opts   *solver.Options
	// inner names inner minimization method
	inner string
	// method creates inner minimization method
	method     func() optimize.Method
	innerIter  int
	gradThresh float64
}

// New creates new augmented Lagrangian Solver of program n and returns it.
// If opts is nil solver.DefaultOptions are used.
// It returns error if the program can not be compiled or options are invalid.
func New(n *nlp.NLP, opts *solver.Options) (*Solver, error) {
	if n == nil {
		return nil, fmt.Errorf("invalid program: %v", n)
	}

	if opts == nil {
		opts = solver.DefaultOptions()
	}
	opts = opts.Clone()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	f, err := sym.Compile("f", n.W, sym.Vec{n.F})
	if err != nil {
		return nil, err
	}

	g, err := sym.Compile("g", n.W, n.G)
	if err != nil {
		return nil, err
	}

	for key := range opts.QPSolOptions {
		if !qpsolKeys[key] {
			return nil, fmt.Errorf("unsupported qpsol option: %q", key)
		}
	}

	inner, err := opts.QPSolInt("max_iter", innerIter)
	if err != nil {
		return nil, err
	}

	gradThresh, err := opts.QPSolFloat("gradient_threshold", opts.Tol)
	if err != nil {
		return nil, err
	}

	name := opts.QPSol
	var method func() optimize.Method
	switch name {
	case "", "bfgs":
		name = "bfgs"
		method = func() optimize.Method { return &optimize.BFGS{} }
	case "lbfgs":
		store, err := opts.QPSolInt("store", lbfgsStore)
		if err != nil {
			return nil, err
		}
		method = func() optimize.Method { return &optimize.LBFGS{Store: store} }
	case "cg":
		method = func() optimize.Method { return &optimize.CG{} }
	default:
		return nil, fmt.Errorf("unsupported qpsol: %q", opts.QPSol)
	}

	return &Solver{
		nw:         len(n.W),
		ng:         len(n.G),
		f:          f,
		g:          g,
		opts:       opts,
		inner:      name,
		method:     method,
		innerIter:  inner,
		gradThresh: gradThresh,
	}, nil
}

// run is the state of a single Solve call
type run struct {
	s *Solver
	// w is full primal vector; free entries are overwritten by z
	w []float64
	// free are indices of free variables in w
	free []int
	// rows are augmented Lagrangian constraints
	rows []row
	// lam are row multipliers
	lam []float64
	mu  float64
}

// expand copies free variables z into w
func (r *run) expand(z []float64) []float64 {
	w := make([]float64, len(r.w))
	copy(w, r.w)
	for k, i := range r.free {
		w[i] = z[k]
	}
	return w
}

// eval returns objective and row values at w
func (r *run) eval(w []float64) (float64, []float64) {
	f := r.s.f.Eval(nil, w)[0]

	var g []float64
	if r.s.ng > 0 {
		g = r.s.g.Eval(nil, w)
	}

	c := make([]float64, len(r.rows))
	for k, rw := range r.rows {
		v := w[rw.index]
		if rw.con {
			v = g[rw.index]
		}
		c[k] = rw.sign * (v - rw.bound)
	}

	return f, c
}

// merit returns augmented Lagrangian value at free variables z
func (r *run) merit(z []float64) float64 {
	f, c := r.eval(r.expand(z))

	val := f
	for k, rw := range r.rows {
		if rw.eq {
			val += r.lam[k]*c[k] + r.mu/2*c[k]*c[k]
			continue
		}
		t := math.Max(0, r.lam[k]+r.mu*c[k])
		val += (t*t - r.lam[k]*r.lam[k]) / (2 * r.mu)
	}

	return val
}

// violation returns the largest constraint violation
func (r *run) violation(c []float64) float64 {
	viol := 0.0
	for k, rw := range r.rows {
		v := c[k]
		if rw.eq {
			v = math.Abs(v)
		}
		viol = math.Max(viol, v)
	}
	return viol
}

// update performs the first order multiplier update
func (r *run) update(c []float64) {
	for k, rw := range r.rows {
		if rw.eq {
			r.lam[k] += r.mu * c[k]
			continue
		}
		r.lam[k] = math.Max(0, r.lam[k]+r.mu*c[k])
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// setup validates bounds, eliminates fixed variables and builds constraint rows
func (s *Solver) setup(args *solver.Args) (*run, error) {
	r := &run{
		s:  s,
		w:  make([]float64, s.nw),
		mu: mu0,
	}
	copy(r.w, args.X0)

	warm := s.opts.WarmStart
	add := func(rw row, lam0 []float64) {
		l := 0.0
		if warm && lam0 != nil {
			l = rw.sign * lam0[rw.index]
			if !rw.eq {
				l = math.Max(0, l)
			}
		}
		r.rows = append(r.rows, rw)
		r.lam = append(r.lam, l)
	}

	for i := 0; i < s.nw; i++ {
		lb, ub := args.Lbx[i], args.Ubx[i]
		if lb > ub {
			return nil, fmt.Errorf("%w: variable %d lower bound %g exceeds upper bound %g",
				solver.ErrInfeasible, i, lb, ub)
		}
		if lb == ub {
			r.w[i] = lb
			continue
		}
		r.free = append(r.free, i)
		if !math.IsInf(lb, -1) {
			add(row{index: i, sign: -1, bound: lb}, args.LamX0)
		}
		if !math.IsInf(ub, 1) {
			add(row{index: i, sign: 1, bound: ub}, args.LamX0)
		}
	}

	for j := 0; j < s.ng; j++ {
		lb, ub := args.Lbg[j], args.Ubg[j]
		if lb > ub {
			return nil, fmt.Errorf("%w: constraint %d lower bound %g exceeds upper bound %g",
				solver.ErrInfeasible, j, lb, ub)
		}
		if lb == ub {
			add(row{eq: true, con: true, index: j, sign: 1, bound: lb}, args.LamG0)
			continue
		}
		if !math.IsInf(lb, -1) {
			add(row{con: true, index: j, sign: -1, bound: lb}, args.LamG0)
		}
		if !math.IsInf(ub, 1) {
			add(row{con: true, index: j, sign: 1, bound: ub}, args.LamG0)
		}
	}

	return r, nil
}

func (s *Solver) printf(format string, a ...any) {
	fmt.Fprintf(s.opts.Writer(), format, a...)
}

// minimize runs inner minimization of the augmented Lagrangian from z
func (s *Solver) minimize(r *run, z []float64) ([]float64, optimize.Status, int) {
	if len(z) == 0 {
		return z, optimize.Success, 0
	}

	p := optimize.Problem{
		Func: r.merit,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, r.merit, x, &fd.Settings{Formula: fd.Central})
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   s.innerIter,
		GradientThreshold: s.gradThresh,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 20,
		},
	}

	if s.opts.PrintIteration {
		printer := optimize.NewPrinter()
		printer.Writer = s.opts.Writer()
		settings.Recorder = printer
	}

	res, err := optimize.Minimize(p, z, settings, s.method())
	if res == nil {
		if s.opts.PrintStatus {
			s.printf("auglag: inner minimization failed: %v\n", err)
		}
		return z, optimize.Failure, 0
	}

	return res.X, res.Status, res.MajorIterations
}

// Solve solves the program with the given arguments.
// Failures wrap solver.ErrInfeasible if bounds are inconsistent or constraint
// violation persists at the maximum penalty and solver.ErrConvergence otherwise.
func (s *Solver) Solve(args *solver.Args) (*solver.Result, error) {
	if args == nil {
		return nil, fmt.Errorf("invalid solver arguments: %v", args)
	}

	if err := args.Validate(s.nw, s.ng); err != nil {
		return nil, err
	}

	start := time.Now()

	r, err := s.setup(args)
	if err != nil {
		return nil, err
	}

	if !s.opts.Sb && s.opts.PrintLevel > 0 {
		s.printf("auglag: augmented Lagrangian solver, inner method: %s\n", s.inner)
	}

	if s.opts.PrintHeader {
		s.printf("auglag: %d variables (%d fixed), %d constraints, %d rows\n",
			s.nw, s.nw-len(r.free), s.ng, len(r.rows))
	}

	z := make([]float64, len(r.free))
	for k, i := range r.free {
		z[k] = r.w[i]
	}

	var (
		iters     int
		f         float64
		c         []float64
		converged bool
		prevViol  = math.Inf(1)
	)

	for k := 0; k < s.opts.MaxIter; k++ {
		var (
			status optimize.Status
			n      int
		)
		z, status, n = s.minimize(r, z)
		iters += n

		f, c = r.eval(r.expand(z))
		if !finite(f) || !finite(c...) {
			return nil, fmt.Errorf("%w: non-finite values at iteration %d", solver.ErrConvergence, k)
		}

		viol := r.violation(c)
		if s.opts.PrintLevel > 0 {
			s.printf("auglag: iter %3d  f %13.6e  viol %10.3e  mu %8.1e  inner %4d  %s\n",
				k, f, viol, r.mu, n, status)
		}

		r.update(c)

		if viol <= s.opts.ConstrViolTol && status != optimize.IterationLimit {
			converged = true
			break
		}

		if viol > progress*prevViol {
			if r.mu >= muMax {
				return nil, s.fail(start, fmt.Errorf("%w: constraint violation %g at maximum penalty",
					solver.ErrInfeasible, viol))
			}
			r.mu = math.Min(r.mu*muFactor, muMax)
		}
		prevViol = viol
	}

	if !converged {
		return nil, s.fail(start, fmt.Errorf("%w: maximum number of iterations %d exceeded",
			solver.ErrConvergence, s.opts.MaxIter))
	}

	w := r.expand(z)
	res := &solver.Result{
		X:          w,
		F:          f,
		LamX:       make([]float64, s.nw),
		LamG:       make([]float64, s.ng),
		Iterations: iters,
	}

	for k, rw := range r.rows {
		if rw.con {
			res.LamG[rw.index] += rw.sign * r.lam[k]
		} else {
			res.LamX[rw.index] += rw.sign * r.lam[k]
		}
	}

	if s.opts.CalcLamX {
		s.fixedMultipliers(r, w, res)
	}

	if s.opts.PrintStatus {
		s.printf("auglag: converged in %d iterations, f = %.6e, |lam_g| = %.3e\n",
			iters, f, floats.Norm(res.LamG, math.Inf(1)))
	}

	if s.opts.PrintTime {
		s.printf("auglag: solve time %v\n", time.Since(start))
	}

	return res, nil
}

// fixedMultipliers recovers bound multipliers of fixed variables from the
// stationarity of the Lagrangian f + lam_g'g + lam_x'w.
func (s *Solver) fixedMultipliers(r *run, w []float64, res *solver.Result) {
	isFree := make([]bool, s.nw)
	for _, i := range r.free {
		isFree[i] = true
	}

	lagrangian := func(w []float64) float64 {
		l := s.f.Eval(nil, w)[0]
		if s.ng > 0 {
			l += floats.Dot(res.LamG, s.g.Eval(nil, w))
		}
		return l
	}

	x := make([]float64, s.nw)
	for i := 0; i < s.nw; i++ {
		if isFree[i] {
			continue
		}
		copy(x, w)
		d := fd.Derivative(func(v float64) float64 {
			x[i] = v
			return lagrangian(x)
		}, w[i], &fd.Settings{Formula: fd.Central})
		res.LamX[i] = -d
	}
}

func (s *Solver) fail(start time.Time, err error) error {
	if s.opts.PrintStatus {
		s.printf("auglag: %v\n", err)
	}
	if s.opts.PrintTime {
		s.printf("auglag: solve time %v\n", time.Since(start))
	}
	return err
}
