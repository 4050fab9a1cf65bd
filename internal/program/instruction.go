package program

import (
	"fmt"
	"strings"
)

// Kind discriminates goto-program instructions.
type Kind int

const (
	Other Kind = iota
	Skip
	LocationMarker
	Assign
	Assume
	Assert
	Goto
	FunctionCall
	Decl
	Dead
	Return
	Throw
	EndFunction
)

var kindNames = map[Kind]string{
	Other:          "OTHER",
	Skip:           "SKIP",
	LocationMarker: "LOCATION",
	Assign:         "ASSIGN",
	Assume:         "ASSUME",
	Assert:         "ASSERT",
	Goto:           "GOTO",
	FunctionCall:   "FUNCTION_CALL",
	Decl:           "DECL",
	Dead:           "DEAD",
	Return:         "SET_RETURN_VALUE",
	Throw:          "THROW",
	EndFunction:    "END_FUNCTION",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown instruction kind %q", string(b))
}

// IsMarker reports whether instructions of this kind carry no behaviour of
// their own and can never represent a block.
func (k Kind) IsMarker() bool {
	return k == LocationMarker || k == Skip || k == Dead
}

// EndsBlock reports whether the instruction following one of this kind
// always starts a new basic block.
func (k Kind) EndsBlock() bool {
	return k == Goto || k == FunctionCall || k == Throw
}

// Instruction is one node of a goto-program.
//
// Targets holds indices into the owning Program and is only used by gotos.
// A nil Guard means true.
type Instruction struct {
	Kind     Kind     `yaml:"kind" json:"kind"`
	Targets  []int    `yaml:"targets,omitempty" json:"targets,omitempty"`
	Guard    *Expr    `yaml:"guard,omitempty" json:"guard,omitempty"`
	LHS      *Expr    `yaml:"lhs,omitempty" json:"lhs,omitempty"`
	RHS      *Expr    `yaml:"rhs,omitempty" json:"rhs,omitempty"`
	Function *Expr    `yaml:"function,omitempty" json:"function,omitempty"`
	Args     []Expr   `yaml:"args,omitempty" json:"args,omitempty"`
	Location Location `yaml:"location,omitempty" json:"location,omitempty"`
}

func NewAssign(lhs, rhs Expr, loc Location) Instruction {
	return Instruction{Kind: Assign, LHS: &lhs, RHS: &rhs, Location: loc}
}

func NewGoto(target int, loc Location) Instruction {
	return Instruction{Kind: Goto, Targets: []int{target}, Location: loc}
}

func NewCondGoto(guard Expr, target int, loc Location) Instruction {
	return Instruction{Kind: Goto, Targets: []int{target}, Guard: &guard, Location: loc}
}

// NewCall builds a function call; lhs may be nil when the result is unused.
func NewCall(lhs *Expr, function Expr, args []Expr, loc Location) Instruction {
	return Instruction{Kind: FunctionCall, LHS: lhs, Function: &function, Args: args, Location: loc}
}

func NewAssert(guard Expr, loc Location) Instruction {
	return Instruction{Kind: Assert, Guard: &guard, Location: loc}
}

func NewAssume(guard Expr, loc Location) Instruction {
	return Instruction{Kind: Assume, Guard: &guard, Location: loc}
}

func NewSkip(loc Location) Instruction {
	return Instruction{Kind: Skip, Location: loc}
}

func NewEndFunction(loc Location) Instruction {
	return Instruction{Kind: EndFunction, Location: loc}
}

func (i *Instruction) IsGoto() bool         { return i.Kind == Goto }
func (i *Instruction) IsFunctionCall() bool { return i.Kind == FunctionCall }

// IsUnconditional reports whether the guard is trivially true.
func (i *Instruction) IsUnconditional() bool {
	return i.Guard == nil || i.Guard.IsTrue()
}

// CallsThroughPointer reports whether the instruction is a call whose
// callee is a dereferenced pointer.
func (i *Instruction) CallsThroughPointer() bool {
	return i.IsFunctionCall() && i.Function != nil && i.Function.IsDeref()
}

func (i *Instruction) String() string {
	switch i.Kind {
	case Goto:
		targets := make([]string, len(i.Targets))
		for k, t := range i.Targets {
			targets[k] = fmt.Sprint(t)
		}
		if i.IsUnconditional() {
			return "GOTO " + strings.Join(targets, ", ")
		}
		return fmt.Sprintf("IF %s THEN GOTO %s", i.Guard, strings.Join(targets, ", "))
	case Assign:
		return fmt.Sprintf("ASSIGN %s := %s", exprString(i.LHS), exprString(i.RHS))
	case Assert, Assume:
		s := fmt.Sprintf("%s %s", i.Kind, exprString(i.Guard))
		if i.Location.Comment != "" {
			s += " // " + i.Location.Comment
		}
		return s
	case FunctionCall:
		args := make([]string, len(i.Args))
		for k, a := range i.Args {
			args[k] = a.String()
		}
		call := fmt.Sprintf("%s(%s)", exprString(i.Function), strings.Join(args, ", "))
		if i.LHS != nil {
			return fmt.Sprintf("CALL %s := %s", i.LHS, call)
		}
		return "CALL " + call
	case Decl, Dead:
		return fmt.Sprintf("%s %s", i.Kind, exprString(i.LHS))
	case Return:
		return "SET RETURN VALUE " + exprString(i.RHS)
	}
	return i.Kind.String()
}

func exprString(e *Expr) string {
	if e == nil {
		return "true"
	}
	return e.String()
}
