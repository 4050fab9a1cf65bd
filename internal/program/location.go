package program

import (
	"fmt"
	"strings"
)

// Location is the source location attached to instructions, expressions and symbols.
type Location struct {
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
	Function string `yaml:"function,omitempty" json:"function,omitempty"`
	Line     int    `yaml:"line,omitempty" json:"line,omitempty"`
	// EndLine is set when an instruction spans several lines, e.g. a call
	// whose argument list is split over multiple lines.
	EndLine       int    `yaml:"end_line,omitempty" json:"end_line,omitempty"`
	BytecodeIndex string `yaml:"bytecode_index,omitempty" json:"bytecode_index,omitempty"`
	Comment       string `yaml:"comment,omitempty" json:"comment,omitempty"`
	PropertyClass string `yaml:"property_class,omitempty" json:"property_class,omitempty"`
	BuiltIn       bool   `yaml:"built_in,omitempty" json:"built_in,omitempty"`
}

// MaxLineSpan bounds the number of lines a single location may cover.
const MaxLineSpan = 1 << 16

// IsNil reports whether no location information is present at all.
func (l Location) IsNil() bool {
	return l == Location{}
}

// Valid reports whether the location points into user source code.
func (l Location) Valid() bool {
	return l.File != "" && l.Line > 0 && !l.BuiltIn
}

// LastLine returns the last line covered by the location.
func (l Location) LastLine() int {
	if l.EndLine > l.Line {
		return l.EndLine
	}
	return l.Line
}

func (l Location) checkSpan() error {
	if l.LastLine()-l.Line >= MaxLineSpan {
		return fmt.Errorf("location %s spans more than %d lines", l, MaxLineSpan)
	}
	return nil
}

func (l Location) String() string {
	if l.IsNil() {
		return "<no location>"
	}

	var parts []string
	if l.File != "" {
		parts = append(parts, "file "+l.File)
	}
	if l.Line > 0 {
		if l.EndLine > l.Line {
			parts = append(parts, fmt.Sprintf("lines %d-%d", l.Line, l.EndLine))
		} else {
			parts = append(parts, fmt.Sprintf("line %d", l.Line))
		}
	}
	if l.Function != "" {
		parts = append(parts, "function "+l.Function)
	}
	if l.BytecodeIndex != "" {
		parts = append(parts, "bytecode-index "+l.BytecodeIndex)
	}
	if l.BuiltIn {
		parts = append(parts, "<built-in>")
	}
	return strings.Join(parts, " ")
}
