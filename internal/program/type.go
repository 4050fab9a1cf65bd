package program

import (
	"fmt"
	"strings"
)

// TypeID discriminates the shape of a Type.
type TypeID string

const (
	TypeEmpty    TypeID = "empty"
	TypeBool     TypeID = "bool"
	TypeSigned   TypeID = "signedbv"
	TypeUnsigned TypeID = "unsignedbv"
	TypePointer  TypeID = "pointer"
	TypeCode     TypeID = "code"
	TypeStruct   TypeID = "struct"
	// TypeNamed refers to another type by tag name.
	TypeNamed TypeID = "named"
)

// Type is the structural type of a symbol or expression.
type Type struct {
	ID       TypeID `yaml:"id" json:"id"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Width    int    `yaml:"width,omitempty" json:"width,omitempty"`
	Base     *Type  `yaml:"base,omitempty" json:"base,omitempty"`
	Return   *Type  `yaml:"return,omitempty" json:"return,omitempty"`
	Params   []Type `yaml:"params,omitempty" json:"params,omitempty"`
	Variadic bool   `yaml:"variadic,omitempty" json:"variadic,omitempty"`
	Const    bool   `yaml:"const,omitempty" json:"const,omitempty"`
	Volatile bool   `yaml:"volatile,omitempty" json:"volatile,omitempty"`
}

func Void() Type { return Type{ID: TypeEmpty} }
func Bool() Type { return Type{ID: TypeBool} }
func Int() Type { return Type{ID: TypeSigned, Width: 32} }
func Unsigned() Type { return Type{ID: TypeUnsigned, Width: 32} }
func Char() Type { return Type{ID: TypeSigned, Width: 8} }
func Struct(n string) Type { return Type{ID: TypeStruct, Name: n} }

// PointerTo returns the type of a pointer to t.
func PointerTo(t Type) Type {
	return Type{ID: TypePointer, Width: 64, Base: &t}
}

// Func returns a code type with the given return and parameter types.
func Func(ret Type, params ...Type) Type {
	return Type{ID: TypeCode, Return: &ret, Params: params}
}

func (t Type) IsCode() bool { return t.ID == TypeCode }

// IsFunctionPointer reports whether t is a pointer to a code type.
func (t Type) IsFunctionPointer() bool {
	return t.ID == TypePointer && t.Base != nil && t.Base.IsCode()
}

// Unqualified drops the top-level const and volatile qualifiers.
func (t Type) Unqualified() Type {
	t.Const = false
	t.Volatile = false
	return t
}

// Equal reports structural equality, qualifiers included.
func (t Type) Equal(o Type) bool {
	if t.ID != o.ID || t.Name != o.Name || t.Width != o.Width ||
		t.Variadic != o.Variadic || t.Const != o.Const || t.Volatile != o.Volatile {
		return false
	}
	if !equalPtr(t.Base, o.Base) || !equalPtr(t.Return, o.Return) {
		return false
	}
	if len(t.Params) != len(o.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func equalPtr(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Compatible reports whether a function of type o may be called through a
// pointer whose base type is t. Top-level qualifiers of the return type and
// of each parameter do not affect the call and are ignored.
func (t Type) Compatible(o Type) error {
	if !t.IsCode() || !o.IsCode() {
		return fmt.Errorf("%s and %s are not both function types", t, o)
	}
	if !equalPtr(unqualifiedPtr(t.Return), unqualifiedPtr(o.Return)) {
		return fmt.Errorf("return type %s differs from %s", o.returnType(), t.returnType())
	}
	if t.Variadic != o.Variadic {
		return fmt.Errorf("variadic mismatch")
	}
	if len(t.Params) != len(o.Params) {
		return fmt.Errorf("expected %d parameters, got %d", len(t.Params), len(o.Params))
	}
	for i := range t.Params {
		if !t.Params[i].Unqualified().Equal(o.Params[i].Unqualified()) {
			return fmt.Errorf("parameter %d has type %s, expected %s", i, o.Params[i], t.Params[i])
		}
	}
	return nil
}

func unqualifiedPtr(t *Type) *Type {
	if t == nil {
		return nil
	}
	u := t.Unqualified()
	return &u
}

func (t Type) returnType() Type {
	if t.Return == nil {
		return Void()
	}
	return *t.Return
}

// String renders the type in C-like notation.
func (t Type) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	if t.Volatile {
		b.WriteString("volatile ")
	}

	switch t.ID {
	case TypeEmpty:
		b.WriteString("void")
	case TypeBool:
		b.WriteString("_Bool")
	case TypeSigned, TypeUnsigned:
		if t.ID == TypeUnsigned {
			b.WriteString("unsigned ")
		} else {
			b.WriteString("signed ")
		}
		switch t.Width {
		case 8:
			b.WriteString("char")
		case 16:
			b.WriteString("short int")
		case 64:
			b.WriteString("long int")
		default:
			b.WriteString("int")
		}
	case TypePointer:
		if t.Base != nil && t.Base.IsCode() {
			fmt.Fprintf(&b, "%s (*)(%s)", t.Base.returnType(), t.Base.paramList())
		} else if t.Base != nil {
			b.WriteString(t.Base.String() + " *")
		} else {
			b.WriteString("void *")
		}
	case TypeCode:
		fmt.Fprintf(&b, "%s (%s)", t.returnType(), t.paramList())
	case TypeStruct:
		b.WriteString("struct " + t.Name)
	case TypeNamed:
		b.WriteString(t.Name)
	default:
		b.WriteString(string(t.ID))
	}
	return b.String()
}

func (t Type) paramList() string {
	params := make([]string, 0, len(t.Params)+1)
	for _, p := range t.Params {
		params = append(params, p.String())
	}
	if t.Variadic {
		params = append(params, "...")
	}
	if len(params) == 0 {
		return "void"
	}
	return strings.Join(params, ", ")
}
