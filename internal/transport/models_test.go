package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

func intPtr(n int) *int { return &n }

func TestFlagRecordToDomain(t *testing.T) {
	rec := FlagRecord{
		Name:     "checkout",
		Type:     "bool",
		Value:    "true",
		IsActive: true,
		Version:  7,
		Rollout:  &RolloutRecord{Percentage: 30, Sticky: true},
		Segments: []RuleRecord{
			{Name: "country", Type: "string", Comparator: "==", Value: "US", IsActive: true},
		},
	}

	flag, err := rec.ToDomain()
	require.NoError(t, err)

	assert.Equal(t, "checkout", flag.Key)
	assert.Equal(t, domain.KindBool, flag.Kind)
	assert.Equal(t, true, flag.Value.Any())
	assert.True(t, flag.Active)
	assert.Equal(t, 30, flag.RolloutPercentage)
	assert.True(t, flag.Sticky)
	assert.Equal(t, 7, flag.Version)

	require.Len(t, flag.Groups, 1)
	rule := flag.Groups[0].Rules[0]
	assert.Equal(t, domain.ComparatorEq, rule.Comparator, "symbolic spelling accepted")
	assert.Equal(t, "US", rule.Value)
}

func TestFlagRecordToDomain_RolloutDefaults(t *testing.T) {
	rec := FlagRecord{Name: "plain", Type: "string", Value: "v", IsActive: true}

	flag, err := rec.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, 100, flag.RolloutPercentage, "missing rollout block means full rollout")
	assert.True(t, flag.Sticky)
	assert.Nil(t, flag.Groups)
}

func TestGroupRules_ORofANDs(t *testing.T) {
	rec := FlagRecord{
		Name:     "grouped",
		Type:     "bool",
		Value:    "true",
		IsActive: true,
		Segments: []RuleRecord{
			{Name: "country", Type: "string", Comparator: "eq", Value: "US", IsActive: true, Group: intPtr(1)},
			{Name: "plan", Type: "string", Comparator: "eq", Value: "pro", IsActive: true, Group: intPtr(1)},
			{Name: "beta", Type: "bool", Comparator: "eq", Value: "true", IsActive: true, Group: intPtr(2)},
			{Name: "staff", Type: "bool", Comparator: "eq", Value: "true", IsActive: true},
		},
	}

	flag, err := rec.ToDomain()
	require.NoError(t, err)

	require.Len(t, flag.Groups, 3)
	assert.Len(t, flag.Groups[0].Rules, 2, "group 1 rules AND together")
	assert.Len(t, flag.Groups[1].Rules, 1)
	assert.Len(t, flag.Groups[2].Rules, 1, "ungrouped rule stands alone")
	assert.Equal(t, "staff", flag.Groups[2].Rules[0].Attribute)
}

func TestFlagRecordToDomain_Malformed(t *testing.T) {
	tests := []struct {
		name string
		rec  FlagRecord
	}{
		{"bad key", FlagRecord{Name: "has space", Type: "bool", Value: "true"}},
		{"bad type", FlagRecord{Name: "f", Type: "blob", Value: "x"}},
		{"bad int payload", FlagRecord{Name: "f", Type: "int", Value: "NaNaNaN"}},
		{"bad json payload", FlagRecord{Name: "f", Type: "json", Value: "{oops"}},
		{"bad rollout pct", FlagRecord{Name: "f", Type: "bool", Value: "true", Rollout: &RolloutRecord{Percentage: 250}}},
		{"bad comparator", FlagRecord{Name: "f", Type: "bool", Value: "true", Segments: []RuleRecord{
			{Name: "a", Type: "string", Comparator: "between", Value: "x", IsActive: true},
		}}},
		{"rule without attribute", FlagRecord{Name: "f", Type: "bool", Value: "true", Segments: []RuleRecord{
			{Name: "", Type: "string", Comparator: "eq", Value: "x", IsActive: true},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rec.ToDomain()
			require.Error(t, err)
			assert.True(t, domain.IsDataError(err) || domain.IsValidationError(err))
		})
	}
}
