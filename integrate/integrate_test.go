package integrate

import (
	"math"
	"os"
	"testing"

	"github.com/milosgajdos/go-mpc/sym"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	A  *mat.Dense
	B  *mat.Dense
	x0 Dense
	u0 Dense
)

func setup() {
	A = mat.NewDense(2, 2, []float64{0.0, 1.0, -2.0, -0.5})
	B = mat.NewDense(2, 1, []float64{0.0, 1.0})
	x0 = Dense{1.0, -0.5}
	u0 = Dense{0.3}
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func linear(x, u Dense) Dense {
	dx := mat.NewVecDense(2, nil)
	dx.MulVec(A, mat.NewVecDense(2, x))
	bu := mat.NewVecDense(2, nil)
	bu.MulVec(B, mat.NewVecDense(1, u))
	dx.AddVec(dx, bu)

	return Dense(dx.RawVector().Data)
}

func pendulum(x, u Dense) Dense {
	return Dense{x[1], -9.81*math.Sin(x[0]) - 0.1*x[1] + u[0]}
}

// exactLinear returns exact zero-order-hold solution of dx/dt = A*x + B*u after dt
func exactLinear(dt float64, x, u Dense) Dense {
	// exp([A B; 0 0]*dt) = [Ad Bd; 0 I]
	m := mat.NewDense(3, 3, nil)
	m.Slice(0, 2, 0, 2).(*mat.Dense).Copy(A)
	m.Slice(0, 2, 2, 3).(*mat.Dense).Copy(B)
	m.Scale(dt, m)
	e := &mat.Dense{}
	e.Exp(m)

	out := mat.NewVecDense(2, nil)
	out.MulVec(e.Slice(0, 2, 0, 2), mat.NewVecDense(2, x))
	bu := mat.NewVecDense(2, nil)
	bu.MulVec(e.Slice(0, 2, 2, 3), mat.NewVecDense(1, u))
	out.AddVec(out, bu)

	return Dense(out.RawVector().Data)
}

func TestDense(t *testing.T) {
	assert := assert.New(t)

	a := Dense{1, 2}
	b := Dense{3, 4}

	assert.Equal(Dense{4, 6}, a.Add(b))
	assert.Equal(Dense{2, 4}, a.Scale(2))
	// operands are not modified
	assert.Equal(Dense{1, 2}, a)
}

func TestEulerStep(t *testing.T) {
	assert := assert.New(t)

	f := func(x, u Dense) Dense { return Dense{u[0]} }
	x := EulerStep(0.5, Dense{1}, Dense{2}, f)
	assert.InDelta(2.0, x[0], 1e-12)
}

func TestHeunStep(t *testing.T) {
	assert := assert.New(t)

	// dx/dt = x: Heun matches the second order Taylor expansion of exp
	f := func(x, u Dense) Dense { return x }
	dt := 0.1
	x := HeunStep(dt, Dense{1}, Dense{}, f)
	assert.InDelta(1+dt+dt*dt/2, x[0], 1e-12)
}

func TestRK4Step(t *testing.T) {
	assert := assert.New(t)

	// dx/dt = x: RK4 matches the fourth order Taylor expansion of exp
	f := func(x, u Dense) Dense { return x }
	dt := 0.1
	x := RK4Step(dt, Dense{1}, Dense{}, f)
	assert.InDelta(1+dt+dt*dt/2+dt*dt*dt/6+dt*dt*dt*dt/24, x[0], 1e-12)
}

func TestRK4MatchesMatrixExponential(t *testing.T) {
	assert := assert.New(t)

	for _, dt := range []float64{0.001, 0.005, 0.01} {
		exact := exactLinear(dt, x0, u0)
		rk4 := RK4Step(dt, x0, u0, linear)
		euler := EulerStep(dt, x0, u0, linear)

		rk4Err := floats.Distance(exact, rk4, 2)
		eulerErr := floats.Distance(exact, euler, 2)

		assert.Less(rk4Err, 1e-8, "dt=%f", dt)
		assert.Less(rk4Err, eulerErr, "dt=%f", dt)
	}
}

func TestRK4DominatesEuler(t *testing.T) {
	assert := assert.New(t)

	x := Dense{1.2, 0.0}
	u := Dense{0.5}

	for _, dt := range []float64{0.01, 0.05, 0.1} {
		// reference solution: RK4 with fine substeps
		ref := x
		n := 1000
		for i := 0; i < n; i++ {
			ref = RK4Step(dt/float64(n), ref, u, pendulum)
		}

		eulerErr := floats.Distance(ref, EulerStep(dt, x, u, pendulum), 2)
		heunErr := floats.Distance(ref, HeunStep(dt, x, u, pendulum), 2)
		rk4Err := floats.Distance(ref, RK4Step(dt, x, u, pendulum), 2)

		assert.Less(rk4Err, heunErr, "dt=%f", dt)
		assert.Less(heunErr, eulerErr, "dt=%f", dt)
	}
}

func TestSymbolicMatchesNumeric(t *testing.T) {
	assert := assert.New(t)

	symPendulum := func(x, u sym.Vec) sym.Vec {
		return sym.Vec{
			x[1],
			sym.Sin(x[0]).Scale(-9.81).Sub(x[1].Scale(0.1)).Add(u[0]),
		}
	}

	xs := sym.Var("x", 2)
	us := sym.Var("u", 1)
	in := sym.Concat(xs, us)

	x := Dense{0.4, -0.2}
	u := Dense{1.5}
	dt := 0.05

	for _, m := range []Method{ForwardEuler, ModifiedEuler, RK4, Discretized} {
		symStep, err := Stepper[sym.Vec](m, dt, symPendulum)
		assert.NoError(err)
		numStep, err := Stepper[Dense](m, dt, pendulum)
		assert.NoError(err)

		f, err := sym.Compile(m.String(), in, symStep(xs, us))
		assert.NoError(err)

		res := f.Eval(nil, []float64{x[0], x[1], u[0]})
		assert.InDeltaSlice([]float64(numStep(x, u)), res, 1e-12, m.String())
	}
}

func TestStepper(t *testing.T) {
	assert := assert.New(t)

	f := func(x, u Dense) Dense { return Dense{1} }

	// discretized dynamics are passed through and dt is ignored
	step, err := Stepper[Dense](Discretized, 0, f)
	assert.NoError(err)
	assert.Equal(Dense{1}, step(Dense{5}, Dense{}))

	for _, m := range []Method{ForwardEuler, ModifiedEuler, RK4} {
		step, err = Stepper[Dense](m, 0, f)
		assert.Nil(step)
		assert.Error(err)

		step, err = Stepper[Dense](m, -0.1, f)
		assert.Nil(step)
		assert.Error(err)
	}

	step, err = Stepper[Dense](Method(42), 0.1, f)
	assert.Nil(step)
	assert.Error(err)

	step, err = Stepper[Dense](RK4, 0.1, nil)
	assert.Nil(step)
	assert.Error(err)
}

func TestParseMethod(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		name string
		m    Method
	}{
		{"forward_euler", ForwardEuler},
		{"euler", ForwardEuler},
		{"Heun", ModifiedEuler},
		{"modified_euler", ModifiedEuler},
		{"rk2", ModifiedEuler},
		{"RK4", RK4},
		{"discretized", Discretized},
	} {
		m, err := ParseMethod(test.name)
		assert.NoError(err)
		assert.Equal(test.m, m)
	}

	_, err := ParseMethod("leapfrog")
	assert.Error(err)

	assert.Equal("rk4", RK4.String())
	assert.Equal("Method(9)", Method(9).String())
	assert.True(RK4.Continuous())
	assert.False(Discretized.Continuous())
}
