package problem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// stages resolves optional stage indices into a half-open range:
// - no index: all stages
// - start: a single stage
// - start, end: stages in [start, end)
func (p *Problem) stages(idx ...int) (int, int, error) {
	switch len(idx) {
	case 0:
		return 0, p.horizon, nil
	case 1:
		if idx[0] < 0 || idx[0] >= p.horizon {
			return 0, 0, fmt.Errorf("invalid stage: %d, horizon: %d", idx[0], p.horizon)
		}
		return idx[0], idx[0] + 1, nil
	case 2:
		start, end := idx[0], idx[1]
		if start < 0 || end > p.horizon || start >= end {
			return 0, 0, fmt.Errorf("invalid stage range: [%d, %d), horizon: %d", start, end, p.horizon)
		}
		return start, end, nil
	}

	return 0, 0, fmt.Errorf("invalid stage indices: %v", idx)
}

func checkLen(name string, v mat.Vector, n int) error {
	if v == nil {
		return fmt.Errorf("invalid %s: %v", name, v)
	}
	if v.Len() != n {
		return fmt.Errorf("invalid %s dimension: %d, expected: %d", name, v.Len(), n)
	}
	return nil
}

// setBound replaces lower and/or upper bounds of the stages selected by idx.
// nil lb or ub leave the corresponding bound untouched.
func (p *Problem) setBound(bounds []bound, lb, ub mat.Vector, idx ...int) error {
	start, end, err := p.stages(idx...)
	if err != nil {
		return err
	}

	for i := start; i < end; i++ {
		if lb != nil {
			bounds[i].lower = mat.VecDenseCopyOf(lb)
		}
		if ub != nil {
			bounds[i].upper = mat.VecDenseCopyOf(ub)
		}
	}

	return nil
}

// SetStateBound sets lower and upper state bounds of the stages selected by idx.
// See SetStateLowerBound for idx semantics.
func (p *Problem) SetStateBound(lb, ub mat.Vector, idx ...int) error {
	if err := checkLen("state lower bound", lb, p.nx); err != nil {
		return err
	}
	if err := checkLen("state upper bound", ub, p.nx); err != nil {
		return err
	}
	return p.setBound(p.xBounds, lb, ub, idx...)
}

// SetStateLowerBound sets lower state bound.
// With no idx the bound applies to every stage, with a single idx to that
// stage only and with two indices to stages in [idx[0], idx[1]).
func (p *Problem) SetStateLowerBound(lb mat.Vector, idx ...int) error {
	if err := checkLen("state lower bound", lb, p.nx); err != nil {
		return err
	}
	return p.setBound(p.xBounds, lb, nil, idx...)
}

// SetStateUpperBound sets upper state bound.
func (p *Problem) SetStateUpperBound(ub mat.Vector, idx ...int) error {
	if err := checkLen("state upper bound", ub, p.nx); err != nil {
		return err
	}
	return p.setBound(p.xBounds, nil, ub, idx...)
}

// SetControlBound sets lower and upper control bounds of the stages selected by idx.
func (p *Problem) SetControlBound(lb, ub mat.Vector, idx ...int) error {
	if err := checkLen("control lower bound", lb, p.nu); err != nil {
		return err
	}
	if err := checkLen("control upper bound", ub, p.nu); err != nil {
		return err
	}
	return p.setBound(p.uBounds, lb, ub, idx...)
}

// SetControlLowerBound sets lower control bound.
func (p *Problem) SetControlLowerBound(lb mat.Vector, idx ...int) error {
	if err := checkLen("control lower bound", lb, p.nu); err != nil {
		return err
	}
	return p.setBound(p.uBounds, lb, nil, idx...)
}

// SetControlUpperBound sets upper control bound.
func (p *Problem) SetControlUpperBound(ub mat.Vector, idx ...int) error {
	if err := checkLen("control upper bound", ub, p.nu); err != nil {
		return err
	}
	return p.setBound(p.uBounds, nil, ub, idx...)
}
