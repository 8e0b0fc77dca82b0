// Package sym builds deferred-evaluation expression graphs.
//
// Expressions are assembled from variables and constants with ordinary
// arithmetic and elementary functions. Nothing is evaluated while a graph is
// built: Compile lowers the graph reachable from a set of outputs into a flat
// evaluation tape which can then be evaluated numerically any number of times.
package sym

import (
	"fmt"
	"math"
	"sync/atomic"
)

type op uint8

const (
	opConst op = iota
	opVar
	opNeg
	opAdd
	opSub
	opMul
	opDiv
	opPow
	opSin
	opCos
	opTan
	opExp
	opLog
	opSqrt
	opTanh
	opAbs
)

var opNames = [...]string{
	opNeg:  "-",
	opAdd:  "+",
	opSub:  "-",
	opMul:  "*",
	opDiv:  "/",
	opPow:  "pow",
	opSin:  "sin",
	opCos:  "cos",
	opTan:  "tan",
	opExp:  "exp",
	opLog:  "log",
	opSqrt: "sqrt",
	opTanh: "tanh",
	opAbs:  "abs",
}

// varID hands out unique variable identifiers
var varID atomic.Uint64

type node struct {
	op   op
	a, b *node
	// val is the value of a constant node
	val float64
	// id and name identify a variable node
	id   uint64
	name string
}

var zeroNode = &node{op: opConst}

// Scalar is a scalar expression.
// The zero value is the constant 0.
type Scalar struct {
	n *node
}

func (s Scalar) node() *node {
	if s.n == nil {
		return zeroNode
	}
	return s.n
}

// Const returns constant expression v
func Const(v float64) Scalar {
	return Scalar{n: &node{op: opConst, val: v}}
}

// NewVar returns a new scalar variable with the given name.
// Every call returns a distinct variable, even if names are reused.
func NewVar(name string) Scalar {
	return Scalar{n: &node{op: opVar, id: varID.Add(1), name: name}}
}

// Value returns the value of s and true if s is a constant expression.
func (s Scalar) Value() (float64, bool) {
	n := s.node()
	if n.op != opConst {
		return 0, false
	}
	return n.val, true
}

// IsVar returns true if s is a variable
func (s Scalar) IsVar() bool {
	return s.node().op == opVar
}

// Add returns s + o
func (s Scalar) Add(o Scalar) Scalar { return binary(opAdd, s, o) }

// Sub returns s - o
func (s Scalar) Sub(o Scalar) Scalar { return binary(opSub, s, o) }

// Mul returns s * o
func (s Scalar) Mul(o Scalar) Scalar { return binary(opMul, s, o) }

// Div returns s / o
func (s Scalar) Div(o Scalar) Scalar { return binary(opDiv, s, o) }

// Scale returns f * s
func (s Scalar) Scale(f float64) Scalar { return binary(opMul, Const(f), s) }

// Neg returns -s
func (s Scalar) Neg() Scalar { return unary(opNeg, s) }

// Pow returns s raised to the power of p
func Pow(s, p Scalar) Scalar { return binary(opPow, s, p) }

// Sin returns sin(s)
func Sin(s Scalar) Scalar { return unary(opSin, s) }

// Cos returns cos(s)
func Cos(s Scalar) Scalar { return unary(opCos, s) }

// Tan returns tan(s)
func Tan(s Scalar) Scalar { return unary(opTan, s) }

// Exp returns e**s
func Exp(s Scalar) Scalar { return unary(opExp, s) }

// Log returns the natural logarithm of s
func Log(s Scalar) Scalar { return unary(opLog, s) }

// Sqrt returns the square root of s
func Sqrt(s Scalar) Scalar { return unary(opSqrt, s) }

// Tanh returns tanh(s)
func Tanh(s Scalar) Scalar { return unary(opTanh, s) }

// Abs returns |s|
func Abs(s Scalar) Scalar { return unary(opAbs, s) }

// Square returns s * s
func Square(s Scalar) Scalar { return s.Mul(s) }

func isConst(n *node, v float64) bool {
	return n.op == opConst && n.val == v
}

func unary(o op, s Scalar) Scalar {
	a := s.node()
	if a.op == opConst {
		return Const(apply(o, a.val, 0))
	}
	if o == opNeg && a.op == opNeg {
		return Scalar{n: a.a}
	}
	return Scalar{n: &node{op: o, a: a}}
}

func binary(o op, x, y Scalar) Scalar {
	a, b := x.node(), y.node()
	if a.op == opConst && b.op == opConst {
		return Const(apply(o, a.val, b.val))
	}

	switch o {
	case opAdd:
		if isConst(a, 0) {
			return Scalar{n: b}
		}
		if isConst(b, 0) {
			return Scalar{n: a}
		}
	case opSub:
		if isConst(b, 0) {
			return Scalar{n: a}
		}
		if isConst(a, 0) {
			return unary(opNeg, Scalar{n: b})
		}
	case opMul:
		if isConst(a, 0) || isConst(b, 0) {
			return Const(0)
		}
		if isConst(a, 1) {
			return Scalar{n: b}
		}
		if isConst(b, 1) {
			return Scalar{n: a}
		}
	case opDiv:
		if isConst(b, 1) {
			return Scalar{n: a}
		}
	case opPow:
		if isConst(b, 1) {
			return Scalar{n: a}
		}
	}

	return Scalar{n: &node{op: o, a: a, b: b}}
}

func apply(o op, a, b float64) float64 {
	switch o {
	case opNeg:
		return -a
	case opAdd:
		return a + b
	case opSub:
		return a - b
	case opMul:
		return a * b
	case opDiv:
		return a / b
	case opPow:
		return math.Pow(a, b)
	case opSin:
		return math.Sin(a)
	case opCos:
		return math.Cos(a)
	case opTan:
		return math.Tan(a)
	case opExp:
		return math.Exp(a)
	case opLog:
		return math.Log(a)
	case opSqrt:
		return math.Sqrt(a)
	case opTanh:
		return math.Tanh(a)
	case opAbs:
		return math.Abs(a)
	}
	panic(fmt.Sprintf("sym: unknown operation %d", o))
}

// String implements the Stringer interface.
func (s Scalar) String() string {
	return s.node().String()
}

func (n *node) String() string {
	switch n.op {
	case opConst:
		return fmt.Sprintf("%g", n.val)
	case opVar:
		return n.name
	case opNeg:
		return "(-" + n.a.String() + ")"
	case opAdd, opSub, opMul, opDiv:
		return "(" + n.a.String() + opNames[n.op] + n.b.String() + ")"
	case opPow:
		return "pow(" + n.a.String() + "," + n.b.String() + ")"
	}
	return opNames[n.op] + "(" + n.a.String() + ")"
}
