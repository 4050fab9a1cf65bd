package program

import (
	"fmt"
	"sort"
)

// Model is a symbol table together with the goto-program of every function.
type Model struct {
	Symbols   SymbolTable         `yaml:"symbols" json:"symbols"`
	Functions map[string]*Program `yaml:"functions" json:"functions"`

	// CallSitesLabelled is set once every call through a function pointer
	// goes through its own call-site symbol.
	CallSitesLabelled bool `yaml:"call_sites_labelled,omitempty" json:"call_sites_labelled,omitempty"`
	// RestrictedSites records the call-site symbols whose calls have already
	// been replaced by restricted branches.
	RestrictedSites map[string]bool `yaml:"restricted_sites,omitempty" json:"restricted_sites,omitempty"`
}

func NewModel() *Model {
	return &Model{
		Symbols:   SymbolTable{},
		Functions: map[string]*Program{},
	}
}

// AddFunction registers a function symbol of type t together with its body.
func (m *Model) AddFunction(name string, t Type, body *Program) error {
	if err := m.Symbols.Insert(&Symbol{Name: name, BaseName: name, Type: t, Mode: "C"}); err != nil {
		return err
	}
	m.Functions[name] = body
	return nil
}

// FunctionNames returns the names of all functions with a body, sorted.
func (m *Model) FunctionNames() []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRestricted reports whether calls through site have been rewritten.
func (m *Model) IsRestricted(site string) bool {
	return m.RestrictedSites[site]
}

// MarkRestricted records that calls through site have been rewritten.
func (m *Model) MarkRestricted(site string) {
	if m.RestrictedSites == nil {
		m.RestrictedSites = map[string]bool{}
	}
	m.RestrictedSites[site] = true
}

// Validate checks every program of the model.
func (m *Model) Validate() error {
	for _, name := range m.FunctionNames() {
		body := m.Functions[name]
		if body == nil {
			continue
		}
		if err := body.Validate(); err != nil {
			return fmt.Errorf("function %s: %w", name, err)
		}
	}
	return nil
}
