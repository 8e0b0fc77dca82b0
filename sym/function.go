package sym

import (
	"fmt"
)

type instr struct {
	op   op
	dst  int
	a, b int
	val  float64
}

// Function is a compiled expression graph mapping an input vector to an output vector
type Function struct {
	name  string
	nin   int
	tape  []instr
	slots int
	outs  []int
}

// Compile lowers the graph of out into a Function of in.
// Every element of in must be a distinct variable and out must not depend on
// any variable which is not part of in.
func Compile(name string, in, out Vec) (*Function, error) {
	slots := make(map[*node]int, len(in))
	for i, s := range in {
		n := s.node()
		if n.op != opVar {
			return nil, fmt.Errorf("%s: input %d is not a variable: %v", name, i, n)
		}
		if _, ok := slots[n]; ok {
			return nil, fmt.Errorf("%s: duplicate input variable %s", name, n.name)
		}
		slots[n] = i
	}

	c := &compiler{name: name, slots: slots, next: len(in)}
	outs := make([]int, len(out))
	for i, s := range out {
		slot, err := c.visit(s.node())
		if err != nil {
			return nil, err
		}
		outs[i] = slot
	}

	return &Function{
		name:  name,
		nin:   len(in),
		tape:  c.tape,
		slots: c.next,
		outs:  outs,
	}, nil
}

type compiler struct {
	name  string
	slots map[*node]int
	tape  []instr
	next  int
}

func (c *compiler) visit(n *node) (int, error) {
	if slot, ok := c.slots[n]; ok {
		return slot, nil
	}

	in := instr{op: n.op}
	switch n.op {
	case opVar:
		return 0, fmt.Errorf("%s: free variable %s", c.name, n.name)
	case opConst:
		in.val = n.val
	default:
		a, err := c.visit(n.a)
		if err != nil {
			return 0, err
		}
		in.a = a
		if n.b != nil {
			b, err := c.visit(n.b)
			if err != nil {
				return 0, err
			}
			in.b = b
		}
	}

	in.dst = c.next
	c.next++
	c.tape = append(c.tape, in)
	c.slots[n] = in.dst

	return in.dst, nil
}

// Name returns function name
func (f *Function) Name() string {
	return f.name
}

// NumIn returns input vector length
func (f *Function) NumIn() int {
	return f.nin
}

// NumOut returns output vector length
func (f *Function) NumOut() int {
	return len(f.outs)
}

// Eval evaluates f at x and stores the result in dst.
// If dst is nil a new slice is allocated. Eval panics if x or dst
// have invalid length.
// Eval is safe for concurrent use.
func (f *Function) Eval(dst, x []float64) []float64 {
	if len(x) != f.nin {
		panic(fmt.Sprintf("%s: invalid input length %d, expected %d", f.name, len(x), f.nin))
	}
	if dst == nil {
		dst = make([]float64, len(f.outs))
	}
	if len(dst) != len(f.outs) {
		panic(fmt.Sprintf("%s: invalid output length %d, expected %d", f.name, len(dst), len(f.outs)))
	}

	work := make([]float64, f.slots)
	copy(work, x)
	for _, in := range f.tape {
		switch in.op {
		case opConst:
			work[in.dst] = in.val
		default:
			work[in.dst] = apply(in.op, work[in.a], work[in.b])
		}
	}

	for i, slot := range f.outs {
		dst[i] = work[slot]
	}

	return dst
}
