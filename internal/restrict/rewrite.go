package restrict

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

const (
	assertionComment       = "invalid function pointer"
	assertionPropertyClass = "pointer dereferenced"
)

// Site describes one indirect call replaced by the rewriter.
type Site struct {
	Function string   `json:"function" yaml:"function"`
	Index    int      `json:"index" yaml:"index"`
	Pointer  string   `json:"pointer" yaml:"pointer"`
	Targets  []string `json:"targets" yaml:"targets"`
	// Location is the source location of the rewritten call.
	Location program.Location `json:"location" yaml:"location"`
}

// Report lists the sites rewritten by Apply, in function then index order.
// Index is the position of the call before any rewriting took place.
type Report struct {
	Sites []Site `json:"sites" yaml:"sites"`
	// Unused holds restricted pointers that no call site goes through.
	Unused []string `json:"unused,omitempty" yaml:"unused,omitempty"`
}

// Output reports every rewritten site, then every unused restriction, to sink.
func (r *Report) Output(sink tt.Sink) {
	for _, site := range r.Sites {
		sink.Report(tt.Issue{
			Rule:     tt.RuleRestrictedCall,
			Category: tt.CategoryFunctionPointer,
			Severity: tt.SeverityInfo,
			Function: site.Function,
			Block:    -1,
			Location: site.Location,
			Message:  fmt.Sprintf("restricted %s in %s to %s", site.Pointer, site.Function, strings.Join(site.Targets, ", ")),
			Note:     fmt.Sprintf("any other target of %s fails the assertion %q", site.Pointer, assertionComment),
		})
	}
	for _, pointer := range r.Unused {
		sink.Report(tt.Issue{
			Rule:     tt.RuleRestrictedCall,
			Category: tt.CategoryFunctionPointer,
			Severity: tt.SeverityWarning,
			Block:    -1,
			Message:  fmt.Sprintf("restriction for %s matched no call site", pointer),
		})
	}
}

type plannedSite struct {
	Site
	candidates []*program.Symbol
}

// Apply replaces every labelled indirect call whose call-site symbol is
// restricted by r with direct calls to the candidate targets:
//
//	IF site == &f GOTO call_f
//	IF site == &g GOTO call_g
//	ASSERT site == &f || site == &g   // invalid function pointer
//	ASSUME false
//	call_f: lhs = f(args); GOTO next
//	call_g: lhs = g(args); GOTO next
//
// Candidates are ordered by name. Every site is planned before any program
// is modified; if planning fails the model is left untouched.
func Apply(model *program.Model, r Restrictions, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := &Report{}
	if r.Len() == 0 {
		return report, nil
	}
	if !model.CallSitesLabelled {
		return nil, &PreconditionError{Reason: "restrictions are applied to labelled call sites", Err: ErrNotLabelled}
	}
	for _, pointer := range r.Keys() {
		if model.IsRestricted(pointer) {
			return nil, &PreconditionError{Site: pointer, Err: ErrAlreadyRestricted}
		}
	}

	plan, err := planSites(model, r)
	if err != nil {
		return nil, err
	}

	rewritten := make(map[string]*program.Program)
	// descending index order keeps the positions of earlier sites valid
	for k := len(plan) - 1; k >= 0; k-- {
		site := plan[k]
		body, ok := rewritten[site.Function]
		if !ok {
			body = model.Functions[site.Function].Clone()
			rewritten[site.Function] = body
		}
		repl := replacement(body.At(site.Index), site.candidates)
		if err := body.Splice(site.Index, repl); err != nil {
			return nil, fmt.Errorf("function %s: failed to rewrite call at %d: %w", site.Function, site.Index, err)
		}
	}

	used := make(map[string]bool)
	for fn, body := range rewritten {
		model.Functions[fn] = body
	}
	for _, site := range plan {
		used[site.Pointer] = true
		model.MarkRestricted(site.Pointer)
		report.Sites = append(report.Sites, site.Site)
		logger.Info("restricted function pointer call",
			zap.String("function", site.Function),
			zap.Int("index", site.Index),
			zap.String("pointer", site.Pointer),
			zap.Strings("targets", site.Targets),
		)
	}
	for _, pointer := range r.Keys() {
		if !used[pointer] {
			report.Unused = append(report.Unused, pointer)
			logger.Warn("function pointer restriction matched no call site", zap.String("pointer", pointer))
		}
	}
	return report, nil
}

func planSites(model *program.Model, r Restrictions) ([]plannedSite, error) {
	var plan []plannedSite
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
			pointer := ins.Function.Pointer()
			if !pointer.IsSymbol() {
				return nil, &PreconditionError{
					Site:   fmt.Sprintf("%s instruction %d", fn, i),
					Reason: "call through an unlabelled function pointer",
					Err:    ErrNotLabelled,
				}
			}
			targets, ok := r.Get(pointer.Name)
			if !ok {
				continue
			}
			if i+1 >= body.Len() {
				return nil, fmt.Errorf("function %s: call through `%s' at %d is the last instruction", fn, pointer.Name, i)
			}

			candidates := make([]*program.Symbol, 0, len(targets))
			for _, target := range targets {
				sym, ok := model.Symbols.Lookup(target)
				if !ok {
					return nil, &LookupError{Name: target, Pointer: pointer.Name, Reason: "symbol not found"}
				}
				if !sym.IsFunction() {
					return nil, &ValidationError{Pointer: pointer.Name, Target: target, Reason: "not a function"}
				}
				candidates = append(candidates, sym)
			}
			sort.Slice(candidates, func(a, b int) bool { return candidates[a].Name < candidates[b].Name })

			plan = append(plan, plannedSite{
				Site:       Site{Function: fn, Index: i, Pointer: pointer.Name, Targets: targets, Location: ins.Location},
				candidates: candidates,
			})
		}
	}
	return plan, nil
}

// replacement builds the instructions standing in for call. Targets are local
// to the returned slice; len(slice) is the instruction after the call.
func replacement(call *program.Instruction, candidates []*program.Symbol) []program.Instruction {
	pointer := call.Function.Pointer()
	loc := call.Location
	n := len(candidates)
	end := 3*n + 2

	out := make([]program.Instruction, 0, end)
	checks := make([]program.Expr, n)
	for k, c := range candidates {
		checks[k] = program.Eq(pointer, program.AddressOf(c.Expr()))
		out = append(out, program.NewCondGoto(checks[k], n+2+2*k, loc))
	}

	assertLoc := loc
	assertLoc.Comment = assertionComment
	assertLoc.PropertyClass = assertionPropertyClass
	out = append(out,
		program.NewAssert(program.Or(checks...), assertLoc),
		program.NewAssume(program.False(), loc),
	)

	for _, c := range candidates {
		args := append([]program.Expr(nil), call.Args...)
		var lhs *program.Expr
		if call.LHS != nil {
			l := *call.LHS
			lhs = &l
		}
		out = append(out,
			program.NewCall(lhs, c.Expr(), args, loc),
			program.NewGoto(end, loc),
		)
	}
	return out
}
