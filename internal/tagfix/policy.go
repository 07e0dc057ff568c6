package tagfix

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Policy is the caller's set of optional tag names. Optional tags are the
// ones the fixer may turn into Markdown; matching is case-insensitive.
type Policy struct {
	optional map[string]struct{}
}

// NewPolicy builds a policy from tag names. Blank names are ignored.
func NewPolicy(names ...string) Policy {
	p := Policy{optional: make(map[string]struct{}, len(names))}
	for _, name := range names {
		key := normalizeName(name)
		if key == "" {
			continue
		}
		p.optional[key] = struct{}{}
	}
	return p
}

// ParsePolicy reads a comma or whitespace separated list such as
// "br, img em".
func ParsePolicy(list string) Policy {
	return NewPolicy(strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})...)
}

// IsOptional reports whether name was designated optional.
func (p Policy) IsOptional(name string) bool {
	_, ok := p.optional[normalizeName(name)]
	return ok
}

// Names returns the optional tag names in sorted order.
func (p Policy) Names() []string {
	names := make([]string, 0, len(p.optional))
	for name := range p.optional {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "<>/")
	// Casers keep state, so each call gets its own.
	return cases.Fold().String(name)
}
