package program

import "strings"

// Op is the operator of an expression node.
type Op string

const (
	OpSymbol    Op = "symbol"
	OpConstant  Op = "constant"
	OpAddressOf Op = "address_of"
	OpDeref     Op = "dereference"
	OpEqual     Op = "="
	OpOr        Op = "or"
	OpAnd       Op = "and"
	OpNot       Op = "not"
	OpMember    Op = "member"
	OpIndex     Op = "index"
)

// Expr is an expression tree as produced by the frontend.
type Expr struct {
	Op       Op       `yaml:"op" json:"op"`
	Name     string   `yaml:"name,omitempty" json:"name,omitempty"`
	Value    string   `yaml:"value,omitempty" json:"value,omitempty"`
	Type     *Type    `yaml:"type,omitempty" json:"type,omitempty"`
	Operands []Expr   `yaml:"operands,omitempty" json:"operands,omitempty"`
	Location Location `yaml:"location,omitempty" json:"location,omitempty"`
}

// Sym returns a symbol expression.
func Sym(name string, t Type) Expr {
	return Expr{Op: OpSymbol, Name: name, Type: &t}
}

// Const returns a constant of type t.
func Const(value string, t Type) Expr {
	return Expr{Op: OpConstant, Value: value, Type: &t}
}

func True() Expr  { return Const("true", Bool()) }
func False() Expr { return Const("false", Bool()) }

// AddressOf returns &e.
func AddressOf(e Expr) Expr {
	t := Void()
	if e.Type != nil {
		t = *e.Type
	}
	pt := PointerTo(t)
	return Expr{Op: OpAddressOf, Type: &pt, Operands: []Expr{e}, Location: e.Location}
}

// Deref returns *e.
func Deref(e Expr) Expr {
	x := Expr{Op: OpDeref, Operands: []Expr{e}, Location: e.Location}
	if e.Type != nil && e.Type.Base != nil {
		base := *e.Type.Base
		x.Type = &base
	}
	return x
}

// Eq returns l == r.
func Eq(l, r Expr) Expr {
	b := Bool()
	return Expr{Op: OpEqual, Type: &b, Operands: []Expr{l, r}}
}

// Or returns the disjunction of ops. An empty disjunction is false.
func Or(ops ...Expr) Expr {
	switch len(ops) {
	case 0:
		return False()
	case 1:
		return ops[0]
	}
	b := Bool()
	return Expr{Op: OpOr, Type: &b, Operands: ops}
}

// Not returns !e.
func Not(e Expr) Expr {
	b := Bool()
	return Expr{Op: OpNot, Type: &b, Operands: []Expr{e}}
}

func (e Expr) IsTrue() bool  { return e.Op == OpConstant && e.Value == "true" }
func (e Expr) IsFalse() bool { return e.Op == OpConstant && e.Value == "false" }

func (e Expr) IsSymbol() bool { return e.Op == OpSymbol }
func (e Expr) IsDeref() bool  { return e.Op == OpDeref && len(e.Operands) == 1 }

// Pointer returns the operand of a dereference.
func (e Expr) Pointer() Expr {
	if !e.IsDeref() {
		return Expr{}
	}
	return e.Operands[0]
}

func (e Expr) String() string {
	switch e.Op {
	case OpSymbol:
		return e.Name
	case OpConstant:
		return e.Value
	case OpAddressOf:
		return "&" + e.operand(0)
	case OpDeref:
		return "*" + e.operand(0)
	case OpEqual:
		return e.operand(0) + " == " + e.operand(1)
	case OpNot:
		return "!(" + e.operand(0) + ")"
	case OpOr, OpAnd:
		sep := " || "
		if e.Op == OpAnd {
			sep = " && "
		}
		parts := make([]string, len(e.Operands))
		for i, o := range e.Operands {
			parts[i] = o.String()
		}
		return "(" + strings.Join(parts, sep) + ")"
	case OpMember:
		return e.operand(0) + "." + e.Name
	case OpIndex:
		return e.operand(0) + "[" + e.operand(1) + "]"
	}
	return string(e.Op)
}

func (e Expr) operand(i int) string {
	if i >= len(e.Operands) {
		return "?"
	}
	return e.Operands[i].String()
}
