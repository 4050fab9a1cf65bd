package restrict

import (
	"fmt"

	"github.com/gnolang/gotoinstr/internal/program"
)

// ByName resolves restrictions keyed by a pointer's source name into
// restrictions keyed by the labelled call sites that call through it.
//
// A labelled call through site s is always preceded by the assignment
// "s = <pointer>"; when <pointer> is a symbol whose identifier or base name
// matches a key of opts, the site inherits the key's targets. Every key must
// match at least one site.
func ByName(opts []string, model *program.Model) (Restrictions, error) {
	byName, err := ParseRestrictions(opts, OptionByName)
	if err != nil {
		return Restrictions{}, err
	}
	if byName.Len() == 0 {
		return byName, nil
	}
	if !model.CallSitesLabelled {
		return Restrictions{}, &PreconditionError{
			Reason: "by-name restrictions are resolved against labelled call sites",
			Err:    ErrNotLabelled,
		}
	}

	resolved := make(map[string][]string)
	matched := make(map[string]bool)
	for _, fn := range model.FunctionNames() {
		body := model.Functions[fn]
		if body == nil {
			continue
		}
		for i := range body.Instructions {
			ins := body.At(i)
			if !ins.CallsThroughPointer() {
				continue
			}
			site := ins.Function.Pointer()
			source, err := assignedPointer(body, i, site)
			if err != nil {
				return Restrictions{}, fmt.Errorf("function %s: %w", fn, err)
			}
			if !source.IsSymbol() {
				continue
			}
			for _, name := range candidateNames(model, source.Name) {
				targets, ok := byName.Get(name)
				if !ok {
					continue
				}
				resolved[site.Name] = append(resolved[site.Name], targets...)
				matched[name] = true
			}
		}
	}

	for _, name := range byName.Keys() {
		if !matched[name] {
			return Restrictions{}, &LookupError{Name: name, Reason: "is not called through at any labelled call site"}
		}
	}
	return New(resolved), nil
}

// assignedPointer returns the right-hand side of the assignment to site that
// immediately precedes the call at i.
func assignedPointer(body *program.Program, i int, site program.Expr) (program.Expr, error) {
	if !site.IsSymbol() {
		return program.Expr{}, &PreconditionError{
			Site:   fmt.Sprintf("instruction %d", i),
			Reason: "call through an unlabelled function pointer",
			Err:    ErrNotLabelled,
		}
	}
	if i == 0 {
		return program.Expr{}, &PreconditionError{Site: site.Name, Reason: "call site has no preceding assignment", Err: ErrNotLabelled}
	}
	prev := body.At(i - 1)
	if prev.Kind != program.Assign || prev.LHS == nil || !prev.LHS.IsSymbol() ||
		prev.LHS.Name != site.Name || prev.RHS == nil {
		return program.Expr{}, &PreconditionError{
			Site:   site.Name,
			Reason: "called function pointer must have been assigned at the previous location",
			Err:    ErrNotLabelled,
		}
	}
	return *prev.RHS, nil
}

// candidateNames lists the names a pointer symbol can be referred to by.
func candidateNames(model *program.Model, identifier string) []string {
	names := []string{identifier}
	if sym, ok := model.Symbols.Lookup(identifier); ok && sym.BaseName != "" && sym.BaseName != identifier {
		names = append(names, sym.BaseName)
	}
	return names
}
