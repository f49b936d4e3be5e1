package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

// Matcher evaluates segment rules against user attributes.
type Matcher struct {
	programCache *ristretto.Cache
}

// NewMatcher creates a matcher with a bounded cache of compiled regex
// programs.
func NewMatcher() (*Matcher, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}
	return &Matcher{programCache: cache}, nil
}

// MatchGroups reports whether any rule group fully matches the attributes
// (OR across groups, AND within a group). Inactive rules are skipped; a
// group whose every rule is inactive does not match.
func (m *Matcher) MatchGroups(groups []domain.RuleGroup, attrs map[string]any) bool {
	for _, group := range groups {
		if m.matchGroup(group, attrs) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchGroup(group domain.RuleGroup, attrs map[string]any) bool {
	activeRules := 0
	for _, rule := range group.Rules {
		if !rule.Active {
			continue
		}
		activeRules++
		if !m.MatchRule(rule, attrs) {
			return false
		}
	}
	return activeRules > 0
}

// MatchRule evaluates a single rule. Missing attributes, type mismatches
// and unparseable operands all yield a non-match, never an error.
func (m *Matcher) MatchRule(rule domain.SegmentRule, attrs map[string]any) bool {
	attrValue, exists := attrs[rule.Attribute]
	if !exists {
		return false
	}

	switch rule.Comparator {
	case domain.ComparatorEq:
		return m.equals(rule, attrValue)

	case domain.ComparatorNe:
		return !m.equals(rule, attrValue)

	case domain.ComparatorGt, domain.ComparatorGe, domain.ComparatorLt, domain.ComparatorLe:
		return m.compare(rule, attrValue)

	case domain.ComparatorContains:
		s, ok := attrValue.(string)
		return ok && strings.Contains(s, rule.Value)

	case domain.ComparatorStartsWith:
		s, ok := attrValue.(string)
		return ok && strings.HasPrefix(s, rule.Value)

	case domain.ComparatorEndsWith:
		s, ok := attrValue.(string)
		return ok && strings.HasSuffix(s, rule.Value)

	case domain.ComparatorRegex:
		return m.matchRegex(rule.Value, stringify(attrValue))

	case domain.ComparatorIn:
		return m.matchIn(rule.Value, stringify(attrValue))

	default:
		return false
	}
}

// equals compares after coercing both sides to the rule's declared type.
func (m *Matcher) equals(rule domain.SegmentRule, attrValue any) bool {
	switch rule.Type {
	case domain.KindBool:
		want := strings.EqualFold(strings.TrimSpace(rule.Value), "true")
		got, ok := toBool(attrValue)
		return ok && got == want

	case domain.KindInt, domain.KindFloat:
		want, err := strconv.ParseFloat(strings.TrimSpace(rule.Value), 64)
		if err != nil {
			return false
		}
		got, ok := toFloat64(attrValue)
		return ok && got == want

	default:
		return stringify(attrValue) == rule.Value
	}
}

// compare handles the ordering comparators. Both operands must be numeric
// (numeric strings coerce); anything else is a non-match.
func (m *Matcher) compare(rule domain.SegmentRule, attrValue any) bool {
	want, err := strconv.ParseFloat(strings.TrimSpace(rule.Value), 64)
	if err != nil {
		return false
	}
	got, ok := toFloat64(attrValue)
	if !ok {
		return false
	}

	switch rule.Comparator {
	case domain.ComparatorGt:
		return got > want
	case domain.ComparatorGe:
		return got >= want
	case domain.ComparatorLt:
		return got < want
	case domain.ComparatorLe:
		return got <= want
	}
	return false
}

// matchRegex runs an unanchored pattern search through a compiled, cached
// expression program.
func (m *Matcher) matchRegex(pattern, value string) bool {
	program, err := m.compilePattern(pattern)
	if err != nil {
		return false
	}

	result, err := expr.Run(program, map[string]any{"value": value})
	if err != nil {
		return false
	}

	matched, ok := result.(bool)
	return ok && matched
}

func (m *Matcher) compilePattern(pattern string) (*vm.Program, error) {
	if cached, found := m.programCache.Get(pattern); found {
		if program, ok := cached.(*vm.Program); ok {
			return program, nil
		}
	}

	exprStr := fmt.Sprintf("value matches %s", strconv.Quote(pattern))
	program, err := expr.Compile(exprStr, expr.Env(map[string]any{"value": ""}))
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}

	m.programCache.Set(pattern, program, 1)
	return program, nil
}

// matchIn checks membership in a comma-separated list.
func (m *Matcher) matchIn(list, value string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}

// Close releases the program cache.
func (m *Matcher) Close() {
	m.programCache.Close()
}

// stringify renders an attribute value for string comparators.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toFloat64 converts numeric attribute values, including numeric strings.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toBool converts boolean attribute values, including "true"/"false" strings.
func toBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
