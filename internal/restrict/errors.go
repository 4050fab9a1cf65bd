package restrict

import (
	"errors"
	"fmt"
)

// RestrictionFormat describes the accepted syntax of a restriction option.
const RestrictionFormat = "<pointer_name>/<target>[,<target>]*"

var (
	// ErrNotLabelled is returned when restrictions are resolved or applied
	// before call sites have been labelled.
	ErrNotLabelled = errors.New("function pointer call sites are not labelled")
	// ErrAlreadyRestricted is returned when a call site would be restricted twice.
	ErrAlreadyRestricted = errors.New("site already restricted")
)

// FormatError reports a malformed restriction string or restrictions file.
type FormatError struct {
	Option string
	Input  string
	Reason string
	Format string
}

func (e *FormatError) Error() string {
	msg := "invalid restriction"
	if e.Option != "" {
		msg += " for --" + e.Option
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" `%s'", e.Input)
	}
	msg += ": " + e.Reason
	if e.Format != "" {
		msg += "; the format for restrictions is " + e.Format
	}
	return msg
}

// LookupError reports a name that could not be resolved.
type LookupError struct {
	Name    string
	Pointer string
	Reason  string
}

func (e *LookupError) Error() string {
	if e.Pointer != "" && e.Pointer != e.Name {
		return fmt.Sprintf("invalid restriction for `%s': `%s' %s", e.Pointer, e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid restriction: `%s' %s", e.Name, e.Reason)
}

// ValidationError reports a restriction that does not fit the model, such as
// a target that is not a function or whose type does not match the pointer.
type ValidationError struct {
	Pointer string
	Target  string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("invalid restriction for `%s': target `%s': %s", e.Pointer, e.Target, e.Reason)
	}
	return fmt.Sprintf("invalid restriction for `%s': %s", e.Pointer, e.Reason)
}

// PreconditionError reports a workflow error, such as rewriting before
// labelling or rewriting a site twice.
type PreconditionError struct {
	Site   string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	msg := "precondition violated"
	if e.Site != "" {
		msg += fmt.Sprintf(" at `%s'", e.Site)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PreconditionError) Unwrap() error { return e.Err }
