package integrate

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Operand is a vector type the integration steps can be computed over.
type Operand[T any] interface {
	// Add returns the sum of the receiver and the argument
	Add(T) T
	// Scale returns the receiver scaled by f
	Scale(f float64) T
}

// Func is a function of state x and control u
type Func[T any] func(x, u T) T

// Method selects how one-step dynamics are advanced
type Method int

const (
	// ForwardEuler is explicit first order Euler method
	ForwardEuler Method = iota
	// ModifiedEuler is second order Heun method
	ModifiedEuler
	// RK4 is classic fourth order Runge-Kutta method
	RK4
	// Discretized marks dynamics which already advance the state one step
	Discretized
)

var methodNames = map[Method]string{
	ForwardEuler:  "forward_euler",
	ModifiedEuler: "modified_euler",
	RK4:           "rk4",
	Discretized:   "discretized",
}

// String implements the Stringer interface.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Continuous returns true if m integrates continuous-time dynamics
func (m Method) Continuous() bool {
	return m == ForwardEuler || m == ModifiedEuler || m == RK4
}

// ParseMethod returns Method with the given name.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "forward_euler", "euler":
		return ForwardEuler, nil
	case "modified_euler", "heun", "rk2":
		return ModifiedEuler, nil
	case "rk4":
		return RK4, nil
	case "discretized", "discrete":
		return Discretized, nil
	}
	return 0, fmt.Errorf("unknown integration method: %q", name)
}

// EulerStep advances x by dt using forward Euler method:
//
//	x + dt*f(x,u)
func EulerStep[T Operand[T]](dt float64, x, u T, f Func[T]) T {
	return x.Add(f(x, u).Scale(dt))
}

// HeunStep advances x by dt using modified Euler method:
//
//	k1 = f(x,u)
//	k2 = f(x+dt*k1,u)
//	x + dt*(k1+k2)/2
func HeunStep[T Operand[T]](dt float64, x, u T, f Func[T]) T {
	k1 := f(x, u)
	k2 := f(x.Add(k1.Scale(dt)), u)

	return x.Add(k1.Add(k2).Scale(dt / 2))
}

// RK4Step advances x by dt using classic Runge-Kutta method
func RK4Step[T Operand[T]](dt float64, x, u T, f Func[T]) T {
	k1 := f(x, u)
	k2 := f(x.Add(k1.Scale(dt/2)), u)
	k3 := f(x.Add(k2.Scale(dt/2)), u)
	k4 := f(x.Add(k3.Scale(dt)), u)

	sum := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4)

	return x.Add(sum.Scale(dt / 6))
}

// Stepper returns the one-step map of dynamics f advanced with method m.
// Discretized method returns f itself and ignores dt.
// It returns error if m is unknown or dt is not positive for continuous methods.
func Stepper[T Operand[T]](m Method, dt float64, f Func[T]) (Func[T], error) {
	if f == nil {
		return nil, fmt.Errorf("nil dynamics function")
	}

	if m.Continuous() && dt <= 0 {
		return nil, fmt.Errorf("invalid sample period for %s: %f", m, dt)
	}

	switch m {
	case ForwardEuler:
		return func(x, u T) T { return EulerStep(dt, x, u, f) }, nil
	case ModifiedEuler:
		return func(x, u T) T { return HeunStep(dt, x, u, f) }, nil
	case RK4:
		return func(x, u T) T { return RK4Step(dt, x, u, f) }, nil
	case Discretized:
		return f, nil
	}

	return nil, fmt.Errorf("unknown integration method: %s", m)
}

// Dense is a numeric Operand
type Dense []float64

// Add returns d + o
func (d Dense) Add(o Dense) Dense {
	out := make(Dense, len(d))
	floats.AddTo(out, d, o)
	return out
}

// Scale returns f * d
func (d Dense) Scale(f float64) Dense {
	out := make(Dense, len(d))
	floats.ScaleTo(out, f, d)
	return out
}
