package restrict

import (
	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/internal/label"
	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

// Options collects the raw restriction sources.
type Options struct {
	Inline []string `yaml:"restrictions" json:"restrictions"`
	ByName []string `yaml:"restrictions_by_name" json:"restrictions_by_name"`
	Files  []string `yaml:"restriction_files" json:"restriction_files"`
}

func (o Options) Empty() bool {
	return len(o.Inline) == 0 && len(o.ByName) == 0 && len(o.Files) == 0
}

// FromOptions parses, loads and resolves every source in o, merges the
// results and typechecks the merged set against model.
func FromOptions(o Options, model *program.Model) (Restrictions, error) {
	inline, err := ParseRestrictions(o.Inline, OptionInline)
	if err != nil {
		return Restrictions{}, err
	}
	files, err := ReadFiles(o.Files)
	if err != nil {
		return Restrictions{}, err
	}
	byName, err := ByName(o.ByName, model)
	if err != nil {
		return Restrictions{}, err
	}

	merged := inline.Merge(files).Merge(byName)
	if err := Typecheck(model, merged); err != nil {
		return Restrictions{}, err
	}
	return merged, nil
}

// Restrict labels the call sites of model if needed, then resolves and
// applies the restrictions described by o.
func Restrict(model *program.Model, o Options, logger *zap.Logger) (Restrictions, *Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !model.CallSitesLabelled {
		if err := label.CallSites(model, tt.LoggerSink{Logger: logger}); err != nil {
			return Restrictions{}, nil, err
		}
	}

	r, err := FromOptions(o, model)
	if err != nil {
		return Restrictions{}, nil, err
	}
	report, err := Apply(model, r, logger)
	if err != nil {
		return Restrictions{}, nil, err
	}
	return r, report, nil
}
