package restrict

import (
	"fmt"
	"strings"
)

// Option names under which restrictions are accepted on the command line.
const (
	OptionInline = "restrict-function-pointer"
	OptionByName = "restrict-function-pointer-by-name"
	OptionFile   = "function-pointer-restrictions-file"
)

// ParseRestriction parses one "<pointer>/<target>[,<target>]*" string given
// through option.
func ParseRestriction(opt, option string) (string, []string, error) {
	formatErr := func(reason string) error {
		return &FormatError{Option: option, Input: opt, Reason: reason, Format: RestrictionFormat}
	}

	slash := strings.IndexByte(opt, '/')
	if slash < 0 {
		return "", nil, formatErr("couldn't find '/'")
	}

	pointer := strings.TrimSpace(opt[:slash])
	if pointer == "" {
		return "", nil, formatErr("couldn't find name of the function pointer before '/'")
	}

	list := opt[slash+1:]
	if list == "" {
		return "", nil, formatErr(fmt.Sprintf("missing target list for function pointer restriction %s", pointer))
	}

	targets := strings.Split(list, ",")
	for _, t := range targets {
		if strings.TrimSpace(t) == "" {
			return "", nil, formatErr(fmt.Sprintf("leading or trailing comma in restrictions for `%s'", pointer))
		}
	}
	for k := range targets {
		targets[k] = strings.TrimSpace(targets[k])
	}
	return pointer, targets, nil
}

// ParseRestrictions parses every string in opts and merges the results.
// Repeating a pointer unites its target sets.
func ParseRestrictions(opts []string, option string) (Restrictions, error) {
	m := make(map[string][]string, len(opts))
	for _, opt := range opts {
		pointer, targets, err := ParseRestriction(opt, option)
		if err != nil {
			return Restrictions{}, err
		}
		m[pointer] = append(m[pointer], targets...)
	}
	return New(m), nil
}
