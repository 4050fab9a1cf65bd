package types

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/internal/program"
)

// Rule names attached to issues.
const (
	RuleBasicBlock       = "basic-block"
	RuleBlockAnomaly     = "block-anomaly"
	RuleRestrictedCall   = "restricted-call"
	RuleLabelledCallSite = "labelled-call-site"
)

// CategoryFunctionPointer groups the issues of call-site labelling and
// function pointer restriction.
const CategoryFunctionPointer = "function-pointer"

// Severity is the importance of an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityOff
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityOff:
		return "off"
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	case "off":
		*s = SeverityOff
	default:
		return fmt.Errorf("unknown severity %q", string(b))
	}
	return nil
}

// ConfigRule overrides the severity of a rule.
type ConfigRule struct {
	Severity Severity `yaml:"severity" json:"severity"`
}

// Issue is a diagnostic produced while partitioning or rewriting a model.
type Issue struct {
	// Model is the model file the issue was found in, empty for models
	// built in memory.
	Model    string
	Rule     string
	// Category groups related rules.
	Category string
	Severity Severity
	Function string
	Block    int
	Message  string
	Note     string
	Location program.Location
}

// Sink receives issues. Passes report through a Sink instead of writing to
// stdout so that callers decide how diagnostics are rendered.
type Sink interface {
	Report(issue Issue)
}

// Collector is a Sink that keeps every issue in memory.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

func (c *Collector) Report(issue Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue)
}

// Issues returns a copy of the collected issues in report order.
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Issue(nil), c.issues...)
}

// Filter returns the collected issues of the given rule.
func (c *Collector) Filter(rule string) []Issue {
	var out []Issue
	for _, issue := range c.Issues() {
		if issue.Rule == rule {
			out = append(out, issue)
		}
	}
	return out
}

// LoggerSink forwards issues to a zap logger.
type LoggerSink struct {
	Logger *zap.Logger
}

func (s LoggerSink) Report(issue Issue) {
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("rule", issue.Rule),
		zap.String("function", issue.Function),
		zap.Int("block", issue.Block),
		zap.Stringer("location", issue.Location),
	}
	switch issue.Severity {
	case SeverityError:
		s.Logger.Error(issue.Message, fields...)
	case SeverityWarning:
		s.Logger.Warn(issue.Message, fields...)
	case SeverityInfo:
		s.Logger.Info(issue.Message, fields...)
	}
}

// SeverityFilter drops issues whose rule is switched off and applies
// configured severities before forwarding to Next.
type SeverityFilter struct {
	Rules map[string]ConfigRule
	Next  Sink
}

func (f SeverityFilter) Report(issue Issue) {
	if rule, ok := f.Rules[issue.Rule]; ok {
		if rule.Severity == SeverityOff {
			return
		}
		issue.Severity = rule.Severity
	}
	f.Next.Report(issue)
}
