package program

import (
	"fmt"
	"sort"
)

// Program is the goto-program of one function. The first instruction is the
// entry; branch targets are indices into Instructions.
type Program struct {
	Instructions []Instruction `yaml:"instructions" json:"instructions"`
}

// New returns a program holding the given instructions.
func New(ins ...Instruction) *Program {
	return &Program{Instructions: ins}
}

func (p *Program) Len() int { return len(p.Instructions) }

func (p *Program) At(i int) *Instruction { return &p.Instructions[i] }

// Successors returns the indices control may reach from instruction i.
func (p *Program) Successors(i int) []int {
	ins := &p.Instructions[i]
	next := i + 1
	hasNext := next < len(p.Instructions)

	switch ins.Kind {
	case EndFunction, Throw:
		return nil
	case Goto:
		succ := append([]int(nil), ins.Targets...)
		if !ins.IsUnconditional() && hasNext {
			succ = append(succ, next)
		}
		return succ
	case Assume:
		if ins.Guard != nil && ins.Guard.IsFalse() {
			return nil
		}
	}

	if hasNext {
		return []int{next}
	}
	return nil
}

// IncomingEdges returns, for every instruction, the sorted set of
// instructions that have it as a successor, fall-through included.
func (p *Program) IncomingEdges() [][]int {
	in := make([][]int, len(p.Instructions))
	for i := range p.Instructions {
		for _, s := range p.Successors(i) {
			if s < 0 || s >= len(in) {
				continue
			}
			in[s] = appendUnique(in[s], i)
		}
	}
	for _, preds := range in {
		sort.Ints(preds)
	}
	return in
}

func appendUnique(l []int, v int) []int {
	for _, x := range l {
		if x == v {
			return l
		}
	}
	return append(l, v)
}

// BranchTargets reports for every instruction whether some goto jumps to it.
func (p *Program) BranchTargets() []bool {
	targeted := make([]bool, len(p.Instructions))
	for i := range p.Instructions {
		ins := &p.Instructions[i]
		if !ins.IsGoto() {
			continue
		}
		for _, t := range ins.Targets {
			if t >= 0 && t < len(targeted) {
				targeted[t] = true
			}
		}
	}
	return targeted
}

// IsBackwardGoto reports whether instruction i is a goto with a target at or
// before itself.
func (p *Program) IsBackwardGoto(i int) bool {
	ins := &p.Instructions[i]
	if !ins.IsGoto() {
		return false
	}
	for _, t := range ins.Targets {
		if t <= i {
			return true
		}
	}
	return false
}

// InsertBefore inserts ins in front of instruction i. Branches that jumped to
// i now reach the inserted instruction.
func (p *Program) InsertBefore(i int, ins Instruction) error {
	if i < 0 || i >= len(p.Instructions) {
		return fmt.Errorf("insert position %d out of range [0, %d)", i, len(p.Instructions))
	}
	p.relink(func(t int) int {
		if t > i {
			return t + 1
		}
		return t
	})

	p.Instructions = append(p.Instructions, Instruction{})
	copy(p.Instructions[i+1:], p.Instructions[i:])
	p.Instructions[i] = ins
	return nil
}

// Splice replaces instruction i with repl. Targets inside repl are local:
// k refers to repl[k] and len(repl) refers to the instruction that followed
// i. Branches that jumped to i now reach repl[0].
func (p *Program) Splice(i int, repl []Instruction) error {
	if i < 0 || i >= len(p.Instructions) {
		return fmt.Errorf("splice position %d out of range [0, %d)", i, len(p.Instructions))
	}
	if len(repl) == 0 {
		return fmt.Errorf("empty replacement for instruction %d", i)
	}
	n := len(repl)
	for k := range repl {
		for _, t := range repl[k].Targets {
			if t < 0 || t > n {
				return fmt.Errorf("replacement target %d out of range [0, %d]", t, n)
			}
			if t == n && i+1 >= len(p.Instructions) {
				return fmt.Errorf("replacement falls off the end of the program")
			}
		}
	}

	p.relink(func(t int) int {
		if t > i {
			return t + n - 1
		}
		return t
	})

	local := make([]Instruction, n)
	for k, ins := range repl {
		if len(ins.Targets) > 0 {
			targets := make([]int, len(ins.Targets))
			for j, t := range ins.Targets {
				targets[j] = i + t
			}
			ins.Targets = targets
		}
		local[k] = ins
	}

	tail := append([]Instruction(nil), p.Instructions[i+1:]...)
	p.Instructions = append(append(p.Instructions[:i], local...), tail...)
	return nil
}

func (p *Program) relink(f func(int) int) {
	for k := range p.Instructions {
		targets := p.Instructions[k].Targets
		for j := range targets {
			targets[j] = f(targets[j])
		}
	}
}

// Validate checks the structural invariants of the program.
func (p *Program) Validate() error {
	if len(p.Instructions) == 0 {
		return fmt.Errorf("program has no instructions")
	}
	for i := range p.Instructions {
		ins := &p.Instructions[i]
		if ins.IsGoto() && len(ins.Targets) == 0 {
			return fmt.Errorf("instruction %d: goto without target", i)
		}
		if !ins.IsGoto() && len(ins.Targets) > 0 {
			return fmt.Errorf("instruction %d: %s must not have targets", i, ins.Kind)
		}
		for _, t := range ins.Targets {
			if t < 0 || t >= len(p.Instructions) {
				return fmt.Errorf("instruction %d: target %d out of range", i, t)
			}
		}
		if ins.IsFunctionCall() && ins.Function == nil {
			return fmt.Errorf("instruction %d: call without function", i)
		}
		if err := ins.checkSpans(); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	last := &p.Instructions[len(p.Instructions)-1]
	switch {
	case last.Kind == EndFunction, last.Kind == Throw:
	case last.IsGoto() && last.IsUnconditional():
	default:
		return fmt.Errorf("last instruction %s falls off the end of the program", last.Kind)
	}
	return nil
}

func (ins *Instruction) checkSpans() error {
	if err := ins.Location.checkSpan(); err != nil {
		return err
	}
	var check func(e *Expr) error
	check = func(e *Expr) error {
		if e == nil {
			return nil
		}
		if err := e.Location.checkSpan(); err != nil {
			return err
		}
		for k := range e.Operands {
			if err := check(&e.Operands[k]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range []*Expr{ins.Guard, ins.LHS, ins.RHS, ins.Function} {
		if err := check(e); err != nil {
			return err
		}
	}
	for k := range ins.Args {
		if err := check(&ins.Args[k]); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep enough copy for rewriting: instruction slices and
// target lists are not shared with p.
func (p *Program) Clone() *Program {
	c := &Program{Instructions: make([]Instruction, len(p.Instructions))}
	for i, ins := range p.Instructions {
		ins.Targets = append([]int(nil), ins.Targets...)
		ins.Args = append([]Expr(nil), ins.Args...)
		c.Instructions[i] = ins
	}
	return c
}
