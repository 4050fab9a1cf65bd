// Package sourcelines tracks the source lines covered by a group of
// instructions, keyed by file and function.
package sourcelines

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/container/intsets"

	"github.com/gnolang/gotoinstr/internal/program"
)

type unit struct {
	file     string
	function string
}

// Lines is a set of source lines per (file, function) unit.
// The zero value is an empty set ready to use.
type Lines struct {
	units map[unit]*intsets.Sparse
}

// Insert adds the lines spanned by loc. Locations without a file or line, and
// built-in locations, are ignored. Spans are cut at program.MaxLineSpan lines.
func (l *Lines) Insert(loc program.Location) {
	if !loc.Valid() {
		return
	}
	set := l.set(unit{file: loc.File, function: loc.Function})
	last := loc.LastLine()
	if last-loc.Line >= program.MaxLineSpan {
		last = loc.Line + program.MaxLineSpan - 1
	}
	for line := loc.Line; line <= last; line++ {
		set.Insert(line)
	}
}

func (l *Lines) set(u unit) *intsets.Sparse {
	if l.units == nil {
		l.units = make(map[unit]*intsets.Sparse)
	}
	s, ok := l.units[u]
	if !ok {
		s = new(intsets.Sparse)
		l.units[u] = s
	}
	return s
}

// Merge adds all lines of other to l.
func (l *Lines) Merge(other *Lines) {
	if other == nil {
		return
	}
	for u, s := range other.units {
		l.set(u).UnionWith(s)
	}
}

func (l *Lines) Empty() bool {
	for _, s := range l.units {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// Len returns the number of distinct (unit, line) pairs.
func (l *Lines) Len() int {
	n := 0
	for _, s := range l.units {
		n += s.Len()
	}
	return n
}

// Contains reports whether line of file/function is in the set.
func (l *Lines) Contains(file, function string, line int) bool {
	s, ok := l.units[unit{file: file, function: function}]
	return ok && s.Has(line)
}

// String renders the set as "file:function:ranges" entries joined by ';',
// sorted by file then function. Consecutive lines are collapsed to "a-b".
func (l *Lines) String() string {
	keys := make([]unit, 0, len(l.units))
	for u, s := range l.units {
		if !s.IsEmpty() {
			keys = append(keys, u)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].file != keys[j].file {
			return keys[i].file < keys[j].file
		}
		return keys[i].function < keys[j].function
	})

	entries := make([]string, 0, len(keys))
	for _, u := range keys {
		lines := l.units[u].AppendTo(nil)
		entries = append(entries, fmt.Sprintf("%s:%s:%s", u.file, u.function, FormatRanges(lines)))
	}
	return strings.Join(entries, ";")
}

// FormatRanges renders sorted numbers as a comma separated list of values and
// ranges, e.g. 1-3,5,7-8.
func FormatRanges(numbers []int) string {
	var b strings.Builder
	for i := 0; i < len(numbers); {
		j := i
		for j+1 < len(numbers) && numbers[j+1] == numbers[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if j > i {
			fmt.Fprintf(&b, "%d-%d", numbers[i], numbers[j])
		} else {
			fmt.Fprintf(&b, "%d", numbers[i])
		}
		i = j + 1
	}
	return b.String()
}
