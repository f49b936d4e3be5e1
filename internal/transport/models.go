package transport

import (
	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

// FlagRecord is the wire shape of one flag definition. Value always arrives
// as a string; Type selects how it is decoded.
type FlagRecord struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Value     string         `json:"value"`
	IsActive  bool           `json:"is_active"`
	Version   int            `json:"version"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	Segments  []RuleRecord   `json:"segments,omitempty"`
	Rollout   *RolloutRecord `json:"rollout,omitempty"`
}

// RuleRecord is the wire shape of one targeting rule. Group is optional;
// rules sharing a group index are AND-ed, groups are OR-ed, and ungrouped
// rules each stand alone.
type RuleRecord struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Comparator string `json:"comparator"`
	Value      string `json:"value"`
	IsActive   bool   `json:"is_active"`
	Group      *int   `json:"group,omitempty"`
}

// RolloutRecord is the wire shape of the rollout block.
type RolloutRecord struct {
	Percentage int  `json:"percentage"`
	Sticky     bool `json:"sticky"`
}

// ToDomain converts a wire record into a parsed flag. Any defect makes the
// whole record invalid; callers skip it and keep the rest of the payload.
func (r FlagRecord) ToDomain() (*domain.Flag, error) {
	key, err := domain.ValidateFlagKey(r.Name)
	if err != nil {
		return nil, domain.NewDataError(r.Name, "invalid flag key", err)
	}

	kind, err := domain.ParseValueKind(r.Type)
	if err != nil {
		return nil, domain.NewDataError(key, "invalid value type", err)
	}

	value, err := domain.ParseFlagValue(kind, r.Value)
	if err != nil {
		return nil, domain.NewDataError(key, "invalid value payload", err)
	}

	flag := &domain.Flag{
		Key:               key,
		Kind:              kind,
		Value:             value,
		Active:            r.IsActive,
		RolloutPercentage: 100,
		Sticky:            true,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}

	if r.Rollout != nil {
		flag.RolloutPercentage = r.Rollout.Percentage
		flag.Sticky = r.Rollout.Sticky
	}

	flag.Groups, err = groupRules(key, r.Segments)
	if err != nil {
		return nil, err
	}

	if err := flag.Validate(); err != nil {
		return nil, domain.NewDataError(key, "invalid flag definition", err)
	}

	return flag, nil
}

// groupRules converts the flat wire rule list into OR-of-ANDs groups while
// preserving wire order.
func groupRules(flagKey string, records []RuleRecord) ([]domain.RuleGroup, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var groups []domain.RuleGroup
	grouped := map[int]int{}

	for _, rec := range records {
		rule, err := rec.toDomain(flagKey)
		if err != nil {
			return nil, err
		}

		if rec.Group == nil {
			groups = append(groups, domain.RuleGroup{Rules: []domain.SegmentRule{rule}})
			continue
		}

		idx, seen := grouped[*rec.Group]
		if !seen {
			groups = append(groups, domain.RuleGroup{})
			idx = len(groups) - 1
			grouped[*rec.Group] = idx
		}
		groups[idx].Rules = append(groups[idx].Rules, rule)
	}

	return groups, nil
}

func (r RuleRecord) toDomain(flagKey string) (domain.SegmentRule, error) {
	if r.Name == "" {
		return domain.SegmentRule{}, domain.NewDataError(flagKey, "rule has empty attribute", nil)
	}

	kind, err := domain.ParseValueKind(r.Type)
	if err != nil {
		return domain.SegmentRule{}, domain.NewDataError(flagKey, "rule has invalid type", err)
	}

	cmp, err := domain.ParseComparator(r.Comparator)
	if err != nil {
		return domain.SegmentRule{}, domain.NewDataError(flagKey, "rule has invalid comparator", err)
	}

	return domain.SegmentRule{
		Attribute:  r.Name,
		Type:       kind,
		Comparator: cmp,
		Value:      r.Value,
		Active:     r.IsActive,
	}, nil
}
