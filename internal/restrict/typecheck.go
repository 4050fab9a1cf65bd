package restrict

import (
	"fmt"

	"github.com/gnolang/gotoinstr/internal/program"
)

// Typecheck validates r against the model: every key must name a function
// pointer symbol and every target a function whose type matches the type
// the pointer points to.
func Typecheck(model *program.Model, r Restrictions) error {
	for _, pointer := range r.Keys() {
		sym, ok := model.Symbols.Lookup(pointer)
		if !ok {
			return &LookupError{Name: pointer, Pointer: pointer, Reason: "not found in the symbol table"}
		}
		if !sym.Type.IsFunctionPointer() {
			return &ValidationError{Pointer: pointer, Reason: fmt.Sprintf("not a function pointer: has type `%s'", sym.Type)}
		}
		pointee := *sym.Type.Base

		targets, _ := r.Get(pointer)
		if len(targets) == 0 {
			return &ValidationError{Pointer: pointer, Reason: "empty target list"}
		}
		for _, target := range targets {
			fn, ok := model.Symbols.Lookup(target)
			if !ok {
				return &LookupError{Name: target, Pointer: pointer, Reason: "symbol not found"}
			}
			if !fn.IsFunction() {
				return &ValidationError{Pointer: pointer, Target: target, Reason: "not a function"}
			}
			if err := pointee.Compatible(fn.Type); err != nil {
				return &ValidationError{
					Pointer: pointer,
					Target:  target,
					Reason: fmt.Sprintf("type mismatch: `%s' points to `%s', but restriction `%s' has type `%s': %v",
						pointer, pointee, target, fn.Type, err),
				}
			}
		}
	}
	return nil
}
