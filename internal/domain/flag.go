package domain

import (
	"fmt"
	"strings"
)

// Comparator is a segment rule operator.
type Comparator string

const (
	ComparatorEq         Comparator = "eq"
	ComparatorNe         Comparator = "ne"
	ComparatorGt         Comparator = "gt"
	ComparatorGe         Comparator = "ge"
	ComparatorLt         Comparator = "lt"
	ComparatorLe         Comparator = "le"
	ComparatorContains   Comparator = "contains"
	ComparatorStartsWith Comparator = "starts_with"
	ComparatorEndsWith   Comparator = "ends_with"
	ComparatorRegex      Comparator = "regex"
	ComparatorIn         Comparator = "in"
)

// ParseComparator accepts both the word spelling ("eq") and the symbolic
// spelling ("==") used by older API versions.
func ParseComparator(s string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq", "==", "equals":
		return ComparatorEq, nil
	case "ne", "!=", "not_equals":
		return ComparatorNe, nil
	case "gt", ">":
		return ComparatorGt, nil
	case "ge", "gte", ">=":
		return ComparatorGe, nil
	case "lt", "<":
		return ComparatorLt, nil
	case "le", "lte", "<=":
		return ComparatorLe, nil
	case "contains":
		return ComparatorContains, nil
	case "starts_with", "startswith":
		return ComparatorStartsWith, nil
	case "ends_with", "endswith":
		return ComparatorEndsWith, nil
	case "regex", "matches":
		return ComparatorRegex, nil
	case "in":
		return ComparatorIn, nil
	default:
		return "", fmt.Errorf("unknown comparator %q", s)
	}
}

// SegmentRule is a single attribute condition. Value holds the comparison
// operand exactly as served; it is interpreted at match time according to
// Type and Comparator.
type SegmentRule struct {
	Attribute  string
	Type       ValueKind
	Comparator Comparator
	Value      string
	Active     bool
}

// RuleGroup is a conjunction of rules. A flag targets a user when at least
// one of its groups has every rule satisfied.
type RuleGroup struct {
	Rules []SegmentRule
}

// Flag is a fully parsed flag definition as held in a snapshot. Instances
// are never mutated after parsing.
type Flag struct {
	Key               string
	Kind              ValueKind
	Value             FlagValue
	Active            bool
	RolloutPercentage int
	Sticky            bool
	Groups            []RuleGroup
	Version           int
	CreatedAt         string
	UpdatedAt         string
}

// HasRules reports whether any targeting rules are attached.
func (f *Flag) HasRules() bool {
	return len(f.Groups) > 0
}

// Default returns the zero value for the flag's declared type.
func (f *Flag) Default() FlagValue {
	return f.Kind.Zero()
}

// Validate checks structural invariants of a parsed flag.
func (f *Flag) Validate() error {
	if f.Key == "" {
		return NewValidationError("flag key cannot be empty")
	}
	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		return NewValidationError(
			fmt.Sprintf("flag %s: rollout percentage %d out of range", f.Key, f.RolloutPercentage),
		)
	}
	for gi, group := range f.Groups {
		for ri, rule := range group.Rules {
			if rule.Attribute == "" {
				return NewValidationError(
					fmt.Sprintf("flag %s: group %d rule %d has empty attribute", f.Key, gi, ri),
				)
			}
		}
	}
	return nil
}
