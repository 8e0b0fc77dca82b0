package solver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxIter is the default outer iteration cap
	DefaultMaxIter = 50
	// DefaultTol is the default optimality tolerance
	DefaultTol = 1e-7
	// DefaultConstrViolTol is the default constraint violation tolerance
	DefaultConstrViolTol = 1e-7
)

// Options configure solver backends
type Options struct {
	// CalcLamP requests parametric sensitivities. Programs have no parameters.
	CalcLamP bool `yaml:"calc_lam_p"`
	// CalcLamX requests bound multipliers of fixed variables
	CalcLamX bool `yaml:"calc_lam_x"`
	// MaxIter caps solver iterations
	MaxIter int `yaml:"max_iter"`
	// Tol is optimality tolerance
	Tol float64 `yaml:"tol"`
	// ConstrViolTol is constraint violation tolerance
	ConstrViolTol float64 `yaml:"constr_viol_tol"`
	// PrintLevel > 0 prints solver iterations
	PrintLevel int `yaml:"print_level"`
	// PrintTime prints solve time
	PrintTime bool `yaml:"print_time"`
	// PrintHeader prints problem header
	PrintHeader bool `yaml:"print_header"`
	// PrintIteration prints inner minimizer iterations
	PrintIteration bool `yaml:"print_iteration"`
	// PrintStatus prints solve status
	PrintStatus bool `yaml:"print_status"`
	// Sb suppresses the solver banner
	Sb bool `yaml:"sb"`
	// WarmStart makes solver use supplied multipliers
	WarmStart bool `yaml:"warm_start_init_point"`
	// QPSol selects backend subproblem solver
	QPSol string `yaml:"qpsol"`
	// QPSolOptions configure subproblem solver
	QPSolOptions map[string]any `yaml:"qpsol_options,omitempty"`
	// Expand requests expression simplification. Graphs are always compiled.
	Expand bool `yaml:"expand"`
	// Output receives solver printouts; nil means os.Stdout
	Output io.Writer `yaml:"-"`
}

// DefaultOptions returns default options: quiet solver with warm start and
// multiplier output enabled
func DefaultOptions() *Options {
	return &Options{
		CalcLamP:      true,
		CalcLamX:      true,
		MaxIter:       DefaultMaxIter,
		Tol:           DefaultTol,
		ConstrViolTol: DefaultConstrViolTol,
		PrintLevel:    0,
		PrintTime:     false,
		Sb:            true,
		WarmStart:     true,
		QPSol:         "bfgs",
	}
}

// LBFGSOptions returns options using limited memory BFGS subproblem solver
func LBFGSOptions() *Options {
	return &Options{
		CalcLamX:       true,
		MaxIter:        100,
		Tol:            DefaultTol,
		ConstrViolTol:  DefaultConstrViolTol,
		PrintHeader:    false,
		PrintIteration: false,
		PrintStatus:    false,
		PrintTime:      false,
		WarmStart:      true,
		QPSol:          "lbfgs",
		QPSolOptions:   map[string]any{"store": 15},
	}
}

// CGOptions returns options using nonlinear conjugate gradient subproblem solver
func CGOptions() *Options {
	return &Options{
		CalcLamX:       true,
		MaxIter:        100,
		Tol:            DefaultTol,
		ConstrViolTol:  DefaultConstrViolTol,
		PrintHeader:    false,
		PrintIteration: false,
		PrintStatus:    false,
		PrintTime:      false,
		WarmStart:      true,
		QPSol:          "cg",
		QPSolOptions:   map[string]any{"max_iter": 1000},
	}
}

var presets = map[string]func() *Options{
	"default": DefaultOptions,
	"lbfgs":   LBFGSOptions,
	"cg":      CGOptions,
}

// Preset returns fresh options of the named preset
func Preset(name string) (*Options, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown options preset: %q", name)
	}
	return p(), nil
}

// PresetNames returns sorted preset names
func PresetNames() []string {
	names := maps.Keys(presets)
	slices.Sort(names)
	return names
}

// Validate checks options values
func (o *Options) Validate() error {
	if o.MaxIter <= 0 {
		return fmt.Errorf("invalid max_iter: %d", o.MaxIter)
	}

	if o.Tol <= 0 {
		return fmt.Errorf("invalid tol: %g", o.Tol)
	}

	if o.ConstrViolTol <= 0 {
		return fmt.Errorf("invalid constr_viol_tol: %g", o.ConstrViolTol)
	}

	return nil
}

// Clone returns a copy of options
func (o *Options) Clone() *Options {
	c := *o
	if o.QPSolOptions != nil {
		c.QPSolOptions = maps.Clone(o.QPSolOptions)
	}
	return &c
}

// Writer returns solver output writer
func (o *Options) Writer() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

// QPSolInt returns integer subproblem option or def if it is not set.
// It returns error if the option is not a number.
func (o *Options) QPSolInt(key string, def int) (int, error) {
	v, ok := o.QPSolOptions[key]
	if !ok {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}

	return 0, fmt.Errorf("invalid qpsol option %s: %v", key, v)
}

// QPSolFloat returns float subproblem option or def if it is not set.
// It returns error if the option is not a number.
func (o *Options) QPSolFloat(key string, def float64) (float64, error) {
	v, ok := o.QPSolOptions[key]
	if !ok {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}

	return 0, fmt.Errorf("invalid qpsol option %s: %v", key, v)
}

// ParseOptions parses YAML encoded options over DefaultOptions.
// It returns error if data contains unknown option names.
func ParseOptions(data []byte) (*Options, error) {
	opts := DefaultOptions()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// LoadOptions reads YAML encoded options from file in path
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOptions(data)
}

// SaveOptions writes YAML encoded options to file in path
func SaveOptions(path string, opts *Options) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
