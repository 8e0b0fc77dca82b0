package sym

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestConstFolding(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")

	v, ok := Const(2).Add(Const(3)).Value()
	assert.True(ok)
	assert.Equal(5.0, v)

	v, ok = Sin(Const(0)).Value()
	assert.True(ok)
	assert.Equal(0.0, v)

	// zero value is constant zero
	var z Scalar
	v, ok = z.Value()
	assert.True(ok)
	assert.Equal(0.0, v)

	assert.True(x.Add(Const(0)).IsVar())
	assert.True(Const(1).Mul(x).IsVar())
	assert.True(x.Neg().Neg().IsVar())

	v, ok = x.Mul(Const(0)).Value()
	assert.True(ok)
	assert.Equal(0.0, v)

	_, ok = x.Add(Const(1)).Value()
	assert.False(ok)
}

func TestCompileEval(t *testing.T) {
	assert := assert.New(t)

	x := Var("x", 2)
	out := Vec{
		x[0].Mul(x[1]),
		Sin(x[0]).Add(Cos(x[1])),
		Exp(x[0]).Div(Sqrt(x[1])),
		Pow(x[0], Const(3)).Sub(Log(x[1])),
		Tanh(x[0]).Neg(),
		Abs(x[1].Neg()),
		Tan(x[0]),
		Square(x[1]),
	}

	f, err := Compile("f", x, out)
	assert.NoError(err)
	assert.Equal("f", f.Name())
	assert.Equal(2, f.NumIn())
	assert.Equal(len(out), f.NumOut())

	a, b := 0.3, 2.5
	res := f.Eval(nil, []float64{a, b})
	exp := []float64{
		a * b,
		math.Sin(a) + math.Cos(b),
		math.Exp(a) / math.Sqrt(b),
		math.Pow(a, 3) - math.Log(b),
		-math.Tanh(a),
		b,
		math.Tan(a),
		b * b,
	}
	assert.InDeltaSlice(exp, res, 1e-12)

	// re-evaluation reuses the same tape
	dst := make([]float64, f.NumOut())
	res = f.Eval(dst, []float64{b, a})
	assert.InDelta(b*a, res[0], 1e-12)
	assert.InDelta(math.Sin(b)+math.Cos(a), dst[1], 1e-12)
}

func TestCompileSharedSubexpression(t *testing.T) {
	assert := assert.New(t)

	x := Var("x", 1)
	s := x[0].Add(Const(1))
	y := s.Mul(s).Mul(s)

	f, err := Compile("cube", x, Vec{y, s})
	assert.NoError(err)
	// x + 1 is emitted once
	assert.Len(f.tape, 4)

	res := f.Eval(nil, []float64{1})
	assert.Equal([]float64{8, 2}, res)
}

func TestCompileErrors(t *testing.T) {
	assert := assert.New(t)

	x := Var("x", 2)
	y := Var("y", 1)

	// free variable
	f, err := Compile("free", x, Vec{x[0].Add(y[0])})
	assert.Nil(f)
	assert.Error(err)

	// duplicate input
	f, err = Compile("dup", Vec{x[0], x[0]}, Vec{x[0]})
	assert.Nil(f)
	assert.Error(err)

	// non-variable input
	f, err = Compile("const", Vec{Const(1)}, Vec{x[0]})
	assert.Nil(f)
	assert.Error(err)
}

func TestEvalPanics(t *testing.T) {
	assert := assert.New(t)

	x := Var("x", 2)
	f, err := Compile("f", x, x)
	assert.NoError(err)

	assert.Panics(func() { f.Eval(nil, []float64{1}) })
	assert.Panics(func() { f.Eval(make([]float64, 3), []float64{1, 2}) })
}

func TestVecOps(t *testing.T) {
	assert := assert.New(t)

	x := Var("x", 3)
	v := []float64{1, 2, 3}

	for _, test := range []struct {
		name string
		out  Vec
		exp  []float64
	}{
		{"add", x.Add(Consts(1, 1, 1)), []float64{2, 3, 4}},
		{"sub", x.Sub(Consts(1, 1, 1)), []float64{0, 1, 2}},
		{"mulelem", x.MulElem(x), []float64{1, 4, 9}},
		{"divelem", x.DivElem(Consts(2, 2, 2)), []float64{0.5, 1, 1.5}},
		{"scale", x.Scale(2), []float64{2, 4, 6}},
		{"scaleby", x.ScaleBy(x[1]), []float64{2, 4, 6}},
		{"neg", x.Neg(), []float64{-1, -2, -3}},
		{"slice", x.Slice(1, 3), []float64{2, 3}},
		{"concat", Concat(x.Slice(0, 1), Zeros(1), x.Slice(2, 3)), []float64{1, 0, 3}},
		{"sum", Vec{x.Sum(), x.SumSq(), x.Dot(Consts(1, 0, 1))}, []float64{6, 14, 4}},
		{"fromvector", FromVector(mat.NewVecDense(2, []float64{7, 8})), []float64{7, 8}},
	} {
		f, err := Compile(test.name, x, test.out)
		assert.NoError(err, test.name)
		assert.InDeltaSlice(test.exp, f.Eval(nil, v), 1e-12, test.name)
	}

	assert.Panics(func() { x.Add(Zeros(2)) })
}

func TestMulMat(t *testing.T) {
	assert := assert.New(t)

	x := Var("x", 2)
	a := mat.NewDense(3, 2, []float64{1, 2, 0, 1, -1, 0})
	q := mat.NewDense(2, 2, []float64{2, 0, 0, 3})

	f, err := Compile("mulmat", x, Concat(MulMat(a, x), Vec{QuadForm(x, q)}))
	assert.NoError(err)

	res := f.Eval(nil, []float64{1, 2})
	assert.InDeltaSlice([]float64{5, 2, -1, 14}, res, 1e-12)

	assert.Panics(func() { MulMat(a, Zeros(3)) })
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	assert.Equal("(x+1)", x.Add(Const(1)).String())
	assert.Equal("sin(x)", Sin(x).String())

	v := Var("v", 2)
	assert.Equal("v[1]", v[1].String())
}
