// Package restrict parses, validates and applies function pointer
// restrictions.
//
// A restriction bounds the functions a call through a given function pointer
// may reach. Restrictions come from three sources that are merged into one
// set: inline options naming labelled call sites, options naming pointers by
// their source name, and JSON files. Once typechecked against the model, the
// set drives the rewriter, which replaces each restricted indirect call by a
// branch over the candidates followed by an assertion that one of them was
// taken.
package restrict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Restrictions maps a pointer name to the set of functions it may point to.
// Values are immutable; Merge returns a new set.
type Restrictions struct {
	targets map[string][]string
}

// New builds restrictions from m. Target lists are deduplicated and sorted.
func New(m map[string][]string) Restrictions {
	r := Restrictions{targets: make(map[string][]string, len(m))}
	for k, v := range m {
		r.targets[k] = normalize(nil, v)
	}
	return r
}

func normalize(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (r Restrictions) Len() int { return len(r.targets) }

// Keys returns the restricted pointer names in sorted order.
func (r Restrictions) Keys() []string {
	keys := make([]string, 0, len(r.targets))
	for k := range r.targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the sorted targets of pointer.
func (r Restrictions) Get(pointer string) ([]string, bool) {
	t, ok := r.targets[pointer]
	if !ok {
		return nil, false
	}
	return append([]string(nil), t...), true
}

// Map returns a copy of the restrictions as a plain map.
func (r Restrictions) Map() map[string][]string {
	m := make(map[string][]string, len(r.targets))
	for k, v := range r.targets {
		m[k] = append([]string(nil), v...)
	}
	return m
}

// Merge returns the union of r and other. Targets of a pointer present in
// both are united, never overwritten.
func (r Restrictions) Merge(other Restrictions) Restrictions {
	merged := Restrictions{targets: make(map[string][]string, len(r.targets)+len(other.targets))}
	for k, v := range r.targets {
		merged.targets[k] = v
	}
	for k, v := range other.targets {
		merged.targets[k] = normalize(merged.targets[k], v)
	}
	return merged
}

// Equal reports set equality.
func (r Restrictions) Equal(other Restrictions) bool {
	if len(r.targets) != len(other.targets) {
		return false
	}
	for k, v := range r.targets {
		w, ok := other.targets[k]
		if !ok || len(v) != len(w) {
			return false
		}
		for i := range v {
			if v[i] != w[i] {
				return false
			}
		}
	}
	return true
}

func (r Restrictions) String() string {
	parts := make([]string, 0, len(r.targets))
	for _, k := range r.Keys() {
		parts = append(parts, k+"/"+strings.Join(r.targets[k], ","))
	}
	return strings.Join(parts, " ")
}

func (r Restrictions) MarshalJSON() ([]byte, error) {
	m := r.targets
	if m == nil {
		m = map[string][]string{}
	}
	return json.Marshal(m)
}

func (r *Restrictions) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// FromJSON parses the restrictions file format: an object mapping pointer
// names to arrays of target names.
func FromJSON(data []byte) (Restrictions, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return Restrictions{}, &FormatError{
			Reason: "top level item of function pointer restrictions file must be an object",
			Format: `{"<pointer_name>": ["<target>", ...]}`,
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Restrictions{}, &FormatError{Reason: err.Error()}
	}

	m := make(map[string][]string, len(raw))
	for key, value := range raw {
		if t := bytes.TrimSpace(value); len(t) == 0 || t[0] != '[' {
			return Restrictions{}, &FormatError{Input: key, Reason: fmt.Sprintf("value of %s is not an array", key)}
		}
		var targets []string
		if err := json.Unmarshal(value, &targets); err != nil {
			return Restrictions{}, &FormatError{Input: key, Reason: fmt.Sprintf("value of %s is not a list of strings", key)}
		}
		m[key] = targets
	}
	return New(m), nil
}
