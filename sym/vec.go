package sym

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Vec is a column vector of scalar expressions.
// Vec operations panic on dimension mismatch, like their gonum counterparts.
type Vec []Scalar

// Var returns a vector of n new variables named name[i]
func Var(name string, n int) Vec {
	v := make(Vec, n)
	for i := range v {
		v[i] = NewVar(fmt.Sprintf("%s[%d]", name, i))
	}
	return v
}

// Consts returns a constant vector holding vals
func Consts(vals ...float64) Vec {
	v := make(Vec, len(vals))
	for i, val := range vals {
		v[i] = Const(val)
	}
	return v
}

// Zeros returns a constant zero vector of length n
func Zeros(n int) Vec {
	return make(Vec, n)
}

// FromVector returns a constant vector holding the values of m
func FromVector(m mat.Vector) Vec {
	v := make(Vec, m.Len())
	for i := range v {
		v[i] = Const(m.AtVec(i))
	}
	return v
}

// Concat stacks vs into a single vector
func Concat(vs ...Vec) Vec {
	n := 0
	for _, v := range vs {
		n += len(v)
	}
	out := make(Vec, 0, n)
	for _, v := range vs {
		out = append(out, v...)
	}
	return out
}

// Len returns vector length
func (v Vec) Len() int {
	return len(v)
}

// At returns i-th vector element
func (v Vec) At(i int) Scalar {
	return v[i]
}

// Slice returns elements [i, j) of v
func (v Vec) Slice(i, j int) Vec {
	out := make(Vec, j-i)
	copy(out, v[i:j])
	return out
}

// Add returns v + o
func (v Vec) Add(o Vec) Vec {
	return v.zip(o, Scalar.Add)
}

// Sub returns v - o
func (v Vec) Sub(o Vec) Vec {
	return v.zip(o, Scalar.Sub)
}

// MulElem returns element-wise product of v and o
func (v Vec) MulElem(o Vec) Vec {
	return v.zip(o, Scalar.Mul)
}

// DivElem returns element-wise division of v by o
func (v Vec) DivElem(o Vec) Vec {
	return v.zip(o, Scalar.Div)
}

// Scale returns f * v
func (v Vec) Scale(f float64) Vec {
	return v.Map(func(s Scalar) Scalar { return s.Scale(f) })
}

// ScaleBy returns s * v
func (v Vec) ScaleBy(s Scalar) Vec {
	return v.Map(func(e Scalar) Scalar { return s.Mul(e) })
}

// Neg returns -v
func (v Vec) Neg() Vec {
	return v.Map(Scalar.Neg)
}

// Map applies fn to every element of v
func (v Vec) Map(fn func(Scalar) Scalar) Vec {
	out := make(Vec, len(v))
	for i := range v {
		out[i] = fn(v[i])
	}
	return out
}

// Dot returns dot product of v and o
func (v Vec) Dot(o Vec) Scalar {
	return v.MulElem(o).Sum()
}

// Sum returns sum of all elements of v
func (v Vec) Sum() Scalar {
	var sum Scalar
	for _, s := range v {
		sum = sum.Add(s)
	}
	return sum
}

// SumSq returns sum of squares of the elements of v
func (v Vec) SumSq() Scalar {
	return v.Dot(v)
}

func (v Vec) zip(o Vec, fn func(Scalar, Scalar) Scalar) Vec {
	if len(v) != len(o) {
		panic(fmt.Sprintf("sym: dimension mismatch: %d != %d", len(v), len(o)))
	}
	out := make(Vec, len(v))
	for i := range v {
		out[i] = fn(v[i], o[i])
	}
	return out
}

// MulMat returns the product of numeric matrix a and expression vector v
func MulMat(a mat.Matrix, v Vec) Vec {
	r, c := a.Dims()
	if c != len(v) {
		panic(fmt.Sprintf("sym: dimension mismatch: [%d x %d] * %d", r, c, len(v)))
	}
	out := make(Vec, r)
	for i := 0; i < r; i++ {
		var sum Scalar
		for j := 0; j < c; j++ {
			sum = sum.Add(v[j].Scale(a.At(i, j)))
		}
		out[i] = sum
	}
	return out
}

// QuadForm returns the quadratic form v' * q * v
func QuadForm(v Vec, q mat.Matrix) Scalar {
	return v.Dot(MulMat(q, v))
}
