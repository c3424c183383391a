// pkg/category/mapper.go
package category

import (
	"fmt"
	"regexp"
)

// Mapper classifies free-text labels against its compiled ruleset. It holds
// no mutable state after construction, so Map is safe for concurrent use.
type Mapper struct {
	rules    []compiledRule
	labels   []string
	fallback string
}

type compiledRule struct {
	label string
	re    *regexp.Regexp
}

// NewMapper compiles the ordered ruleset. Patterns match case-insensitively
// against any substring of the input.
func NewMapper(rules []Rule) (*Mapper, error) {
	m := &Mapper{
		rules:    make([]compiledRule, 0, len(rules)),
		labels:   make([]string, 0, len(rules)+1),
		fallback: Fallback,
	}

	for _, r := range rules {
		re, err := regexp.Compile(`(?i)` + r.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for label %q: %w", r.Label, err)
		}
		m.rules = append(m.rules, compiledRule{label: r.Label, re: re})
		m.labels = append(m.labels, r.Label)
	}
	m.labels = append(m.labels, m.fallback)

	return m, nil
}

// NewDefaultMapper compiles DefaultRules. The default patterns are static,
// so compilation cannot fail.
func NewDefaultMapper() *Mapper {
	m, err := NewMapper(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("category: default ruleset failed to compile: %v", err))
	}
	return m
}

// Map returns the canonical label for a free-text category value. It is a
// total function: every input, including the empty string, resolves to
// exactly one label from Labels().
func (m *Mapper) Map(label string) string {
	for _, rule := range m.rules {
		if rule.re.MatchString(label) {
			return rule.label
		}
	}
	return m.fallback
}

// Labels returns the closed canonical label set in rule order, fallback last.
func (m *Mapper) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}
