package problem

import "github.com/milosgajdos/go-mpc/sym"

// Funcs is a model assembled from plain functions.
// StageCostFn and TerminalCostFn are optional and default to zero cost.
type Funcs struct {
	DynamicsFn     func(x, u sym.Vec) sym.Vec
	StageCostFn    func(x, u sym.Vec) sym.Scalar
	TerminalCostFn func(x sym.Vec) sym.Scalar
}

// Dynamics returns model dynamics
func (f *Funcs) Dynamics(x, u sym.Vec) sym.Vec {
	return f.DynamicsFn(x, u)
}

// StageCost returns stage cost or zero if StageCostFn is nil
func (f *Funcs) StageCost(x, u sym.Vec) sym.Scalar {
	if f.StageCostFn == nil {
		return sym.Const(0)
	}
	return f.StageCostFn(x, u)
}

// TerminalCost returns terminal cost or zero if TerminalCostFn is nil
func (f *Funcs) TerminalCost(x sym.Vec) sym.Scalar {
	if f.TerminalCostFn == nil {
		return sym.Const(0)
	}
	return f.TerminalCostFn(x)
}
