package solver

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/milosgajdos/go-mpc/nlp"
	"github.com/stretchr/testify/assert"
)

type stub struct{}

func (stub) Solve(*Args) (*Result, error) { return nil, ErrInfeasible }

func newStub(*nlp.NLP, *Options) (Solver, error) { return stub{}, nil }

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	Register("test_b", newStub)
	Register("test_a", newStub)

	f, err := Lookup("test_a")
	assert.NotNil(f)
	assert.NoError(err)

	s, err := f(nil, DefaultOptions())
	assert.NoError(err)
	_, err = s.Solve(&Args{})
	assert.True(errors.Is(err, ErrInfeasible))

	f, err = Lookup("unknown")
	assert.Nil(f)
	assert.Error(err)

	names := Backends()
	assert.Subset(names, []string{"test_a", "test_b"})
	for i := 1; i < len(names); i++ {
		assert.Less(names[i-1], names[i])
	}

	assert.Panics(func() { Register("test_a", newStub) })
	assert.Panics(func() { Register("test_c", nil) })
}

func TestArgsValidate(t *testing.T) {
	assert := assert.New(t)

	nw, ng := 3, 2
	valid := func() *Args {
		return &Args{
			X0:  make([]float64, nw),
			Lbx: make([]float64, nw),
			Ubx: make([]float64, nw),
			Lbg: make([]float64, ng),
			Ubg: make([]float64, ng),
		}
	}

	a := valid()
	assert.NoError(a.Validate(nw, ng))

	a.LamX0 = make([]float64, nw)
	a.LamG0 = make([]float64, ng)
	assert.NoError(a.Validate(nw, ng))

	for _, mutate := range []func(*Args){
		func(a *Args) { a.X0 = a.X0[:1] },
		func(a *Args) { a.Lbx = nil },
		func(a *Args) { a.Ubx = append(a.Ubx, 0) },
		func(a *Args) { a.Lbg = nil },
		func(a *Args) { a.Ubg = a.Ubg[:1] },
		func(a *Args) { a.LamX0 = make([]float64, 1) },
		func(a *Args) { a.LamG0 = make([]float64, 5) },
	} {
		a := valid()
		mutate(a)
		assert.Error(a.Validate(nw, ng))
	}
}

func TestPresets(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"cg", "default", "lbfgs"}, PresetNames())

	for _, name := range PresetNames() {
		opts, err := Preset(name)
		assert.NoError(err)
		assert.NoError(opts.Validate(), name)
		assert.True(opts.WarmStart, name)
		assert.True(opts.CalcLamX, name)
	}

	opts, err := Preset("ipopt")
	assert.Nil(opts)
	assert.Error(err)

	// presets are fresh values
	a := LBFGSOptions()
	a.QPSolOptions["store"] = 1
	a.MaxIter = 1
	b := LBFGSOptions()
	assert.Equal(15, b.QPSolOptions["store"])
	assert.Equal(100, b.MaxIter)

	d := DefaultOptions()
	assert.Equal("bfgs", d.QPSol)
	assert.True(d.Sb)
	assert.Equal(0, d.PrintLevel)
	assert.Equal(DefaultMaxIter, d.MaxIter)
}

func TestClone(t *testing.T) {
	assert := assert.New(t)

	o := CGOptions()
	c := o.Clone()
	assert.Equal(o, c)

	c.QPSolOptions["max_iter"] = 5
	c.Tol = 1
	assert.Equal(1000, o.QPSolOptions["max_iter"])
	assert.Equal(DefaultTol, o.Tol)
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	for _, mutate := range []func(*Options){
		func(o *Options) { o.MaxIter = 0 },
		func(o *Options) { o.Tol = -1 },
		func(o *Options) { o.ConstrViolTol = 0 },
	} {
		o := DefaultOptions()
		mutate(o)
		assert.Error(o.Validate())
	}
}

func TestQPSolOptions(t *testing.T) {
	assert := assert.New(t)

	o := DefaultOptions()
	o.QPSolOptions = map[string]any{
		"int":    3,
		"int64":  int64(4),
		"float":  2.5,
		"string": "x",
	}

	for _, test := range []struct {
		key string
		i   int
		f   float64
		err bool
	}{
		{"int", 3, 3, false},
		{"int64", 4, 4, false},
		{"float", 2, 2.5, false},
		{"missing", 7, 7, false},
		{"string", 0, 0, true},
	} {
		i, err := o.QPSolInt(test.key, 7)
		assert.Equal(test.err, err != nil, test.key)
		assert.Equal(test.i, i, test.key)

		f, err := o.QPSolFloat(test.key, 7)
		assert.Equal(test.err, err != nil, test.key)
		assert.Equal(test.f, f, test.key)
	}
}

func TestParseOptions(t *testing.T) {
	assert := assert.New(t)

	data := []byte(`
max_iter: 20
print_level: 2
warm_start_init_point: false
qpsol: lbfgs
qpsol_options:
  store: 5
  gradient_threshold: 1e-9
`)

	opts, err := ParseOptions(data)
	assert.NoError(err)
	assert.Equal(20, opts.MaxIter)
	assert.Equal(2, opts.PrintLevel)
	assert.False(opts.WarmStart)
	assert.Equal("lbfgs", opts.QPSol)

	store, err := opts.QPSolInt("store", 0)
	assert.NoError(err)
	assert.Equal(5, store)
	gt, err := opts.QPSolFloat("gradient_threshold", 0)
	assert.NoError(err)
	assert.Equal(1e-9, gt)

	// unset values keep their defaults
	assert.True(opts.CalcLamX)
	assert.Equal(DefaultTol, opts.Tol)

	opts, err = ParseOptions([]byte("max_iter: -1"))
	assert.Nil(opts)
	assert.Error(err)

	opts, err = ParseOptions([]byte("max_iter: [1"))
	assert.Nil(opts)
	assert.Error(err)

	// misspelled option names are rejected
	opts, err = ParseOptions([]byte("max_itr: 5"))
	assert.Nil(opts)
	assert.Error(err)

	// empty input yields defaults
	opts, err = ParseOptions(nil)
	assert.NoError(err)
	assert.Equal(DefaultMaxIter, opts.MaxIter)
}

func TestLoadSaveOptions(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "solver.yaml")

	opts := LBFGSOptions()
	opts.PrintStatus = true
	opts.Output = &bytes.Buffer{}
	assert.NoError(SaveOptions(path, opts))

	loaded, err := LoadOptions(path)
	assert.NoError(err)
	assert.Equal(opts.MaxIter, loaded.MaxIter)
	assert.Equal(opts.QPSol, loaded.QPSol)
	assert.True(loaded.PrintStatus)
	assert.Equal(fmt.Sprint(opts.QPSolOptions["store"]), fmt.Sprint(loaded.QPSolOptions["store"]))
	assert.Nil(loaded.Output)

	loaded, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Nil(loaded)
	assert.Error(err)

	unknown := filepath.Join(t.TempDir(), "unknown.yaml")
	assert.NoError(os.WriteFile(unknown, []byte("tol: 1e-6\nmax_itr: 5\n"), 0644))
	loaded, err = LoadOptions(unknown)
	assert.Nil(loaded)
	assert.Error(err)
}

func TestWriter(t *testing.T) {
	assert := assert.New(t)

	o := DefaultOptions()
	assert.NotNil(o.Writer())

	buf := &bytes.Buffer{}
	o.Output = buf
	assert.Equal(buf, o.Writer())
}
