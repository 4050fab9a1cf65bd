// Package label gives every call through a function pointer its own
// call-site symbol, so restrictions can name individual call sites.
package label

import (
	"errors"
	"fmt"

	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

var ErrAlreadyLabelled = errors.New("call sites are already labelled")

// SiteName returns the name of the n-th (1-based) labelled call site of fn.
func SiteName(fn string, n int) string {
	return fmt.Sprintf("%s.function_pointer_call.%d", fn, n)
}

// CallSites rewrites every call "*ptr(args)" into
//
//	site = ptr
//	*site(args)
//
// where site is a fresh symbol named after the enclosing function and the
// position of the call within it. Every site is resolved before anything is
// changed: on error the model is left as it was.
//
// Each labelled site is reported to sink, which may be nil.
func CallSites(model *program.Model, sink tt.Sink) error {
	if model.CallSitesLabelled {
		return ErrAlreadyLabelled
	}

	sites, err := planSites(model)
	if err != nil {
		return err
	}

	rewritten := make(map[string]*program.Program)
	// descending index order keeps the positions of earlier sites valid
	for k := len(sites) - 1; k >= 0; k-- {
		s := sites[k]
		body, ok := rewritten[s.function]
		if !ok {
			body = model.Functions[s.function].Clone()
			rewritten[s.function] = body
		}

		call := body.At(s.index)
		ref := s.symbol.Expr()
		assign := program.NewAssign(ref, s.pointer, call.Location)
		callee := program.Deref(ref)
		callee.Location = call.Function.Location
		call.Function = &callee

		if err := body.InsertBefore(s.index, assign); err != nil {
			return fmt.Errorf("function %s: %w", s.function, err)
		}
	}

	for k, s := range sites {
		if err := model.Symbols.Insert(s.symbol); err != nil {
			for _, inserted := range sites[:k] {
				delete(model.Symbols, inserted.symbol.Name)
			}
			return fmt.Errorf("function %s: %w", s.function, err)
		}
	}
	for fn, body := range rewritten {
		model.Functions[fn] = body
	}
	model.CallSitesLabelled = true

	if sink != nil {
		for _, s := range sites {
			sink.Report(tt.Issue{
				Rule:     tt.RuleLabelledCallSite,
				Category: tt.CategoryFunctionPointer,
				Severity: tt.SeverityInfo,
				Function: s.function,
				Block:    -1,
				Location: s.symbol.Location,
				Message:  fmt.Sprintf("labelled call through `%s' as %s", s.pointer, s.symbol.Name),
			})
		}
	}
	return nil
}

type site struct {
	function string
	index    int
	pointer  program.Expr
	symbol   *program.Symbol
}

// planSites resolves the pointer type and symbol of every call through a
// function pointer, in function name then instruction order.
func planSites(model *program.Model) ([]site, error) {
	var sites []site
	for _, fn := range model.FunctionNames() {
		body := model.Functions[fn]
		if body == nil {
			continue
		}
		mode := ""
		if sym, ok := model.Symbols.Lookup(fn); ok {
			mode = sym.Mode
		}

		n := 0
		for i := range body.Instructions {
			call := body.At(i)
			if !call.CallsThroughPointer() {
				continue
			}
			pointer := call.Function.Pointer()
			t, err := pointerType(model, pointer)
			if err != nil {
				return nil, fmt.Errorf("function %s instruction %d: %w", fn, i, err)
			}

			n++
			name := SiteName(fn, n)
			if _, ok := model.Symbols.Lookup(name); ok {
				return nil, fmt.Errorf("function %s: symbol %q already exists", fn, name)
			}
			sites = append(sites, site{
				function: fn,
				index:    i,
				pointer:  pointer,
				symbol: &program.Symbol{
					Name:       name,
					BaseName:   name,
					PrettyName: name,
					Type:       t,
					Mode:       mode,
					IsLValue:   true,
					Location:   call.Location,
				},
			})
		}
	}
	return sites, nil
}

func pointerType(model *program.Model, pointer program.Expr) (program.Type, error) {
	if pointer.Type != nil && pointer.Type.IsFunctionPointer() {
		return *pointer.Type, nil
	}
	if pointer.IsSymbol() {
		if sym, ok := model.Symbols.Lookup(pointer.Name); ok && sym.Type.IsFunctionPointer() {
			return sym.Type, nil
		}
	}
	return program.Type{}, fmt.Errorf("cannot determine function pointer type of `%s'", pointer)
}
