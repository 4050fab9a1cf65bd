package program

import (
	"fmt"
	"sort"
)

// Symbol is an entry of the symbol table.
type Symbol struct {
	Name         string   `yaml:"-" json:"-"`
	BaseName     string   `yaml:"base_name,omitempty" json:"base_name,omitempty"`
	PrettyName   string   `yaml:"pretty_name,omitempty" json:"pretty_name,omitempty"`
	Type         Type     `yaml:"type" json:"type"`
	Value        *Expr    `yaml:"value,omitempty" json:"value,omitempty"`
	Mode         string   `yaml:"mode,omitempty" json:"mode,omitempty"`
	StorageClass string   `yaml:"storage_class,omitempty" json:"storage_class,omitempty"`
	IsType       bool     `yaml:"is_type,omitempty" json:"is_type,omitempty"`
	IsMacro      bool     `yaml:"is_macro,omitempty" json:"is_macro,omitempty"`
	IsLValue     bool     `yaml:"is_lvalue,omitempty" json:"is_lvalue,omitempty"`
	Location     Location `yaml:"location,omitempty" json:"location,omitempty"`
}

// Expr returns a symbol expression referring to s.
func (s *Symbol) Expr() Expr {
	e := Sym(s.Name, s.Type)
	e.Location = s.Location
	return e
}

// IsFunction reports whether s names a function, as opposed to a variable,
// a type or a macro.
func (s *Symbol) IsFunction() bool {
	return s.Type.IsCode() && !s.IsType && !s.IsMacro
}

// SymbolTable maps identifiers to symbols.
type SymbolTable map[string]*Symbol

func (st SymbolTable) Lookup(name string) (*Symbol, bool) {
	s, ok := st[name]
	return s, ok
}

// Insert adds sym, failing when the name is already taken.
func (st SymbolTable) Insert(sym *Symbol) error {
	if sym.Name == "" {
		return fmt.Errorf("symbol without name")
	}
	if _, exists := st[sym.Name]; exists {
		return fmt.Errorf("symbol %q already exists", sym.Name)
	}
	st[sym.Name] = sym
	return nil
}

// Names returns all identifiers in sorted order.
func (st SymbolTable) Names() []string {
	names := make([]string, 0, len(st))
	for name := range st {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
