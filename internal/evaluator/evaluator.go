package evaluator

import (
	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

// Evaluation reasons reported in results and access logs.
const (
	ReasonFlagInactive       = "flag_inactive"
	ReasonSegmentsRequired   = "segments_required_but_not_provided"
	ReasonSegmentsNotMatched = "segments_not_matched"
	ReasonRolloutExcluded    = "rollout_excluded"
	ReasonRolloutIncluded    = "rollout_included"
	ReasonFullRollout        = "full_rollout"
)

// Result describes the outcome of evaluating one flag for one user.
type Result struct {
	Value            domain.FlagValue
	Matched          bool
	Reason           string
	SegmentMatched   bool
	RolloutEvaluated bool
}

// Evaluator resolves flag values deterministically from a parsed flag, a
// user ID and optional attributes. It holds no mutable per-flag state, so a
// single instance is shared across all evaluations.
type Evaluator struct {
	matcher *Matcher
}

// New creates an evaluator.
func New() (*Evaluator, error) {
	matcher, err := NewMatcher()
	if err != nil {
		return nil, err
	}
	return &Evaluator{matcher: matcher}, nil
}

// Evaluate runs the resolution pipeline: active check, segment targeting,
// rollout bucketing. It never fails; a flag that does not apply to the user
// yields Matched=false with the flag's typed default as Value.
func (e *Evaluator) Evaluate(flag *domain.Flag, userID string, segments map[string]any) Result {
	if !flag.Active {
		return Result{Value: flag.Default(), Reason: ReasonFlagInactive}
	}

	res := Result{}

	if flag.HasRules() {
		if len(segments) == 0 {
			res.Value = flag.Default()
			res.Reason = ReasonSegmentsRequired
			return res
		}
		if !e.matcher.MatchGroups(flag.Groups, segments) {
			res.Value = flag.Default()
			res.Reason = ReasonSegmentsNotMatched
			return res
		}
		res.SegmentMatched = true
	}

	if flag.RolloutPercentage >= 100 {
		res.Matched = true
		res.Value = flag.Value
		res.Reason = ReasonFullRollout
		return res
	}

	res.RolloutEvaluated = true
	if !InRollout(flag.Key, userID, flag.RolloutPercentage) {
		res.Value = flag.Default()
		res.Reason = ReasonRolloutExcluded
		return res
	}

	res.Matched = true
	res.Value = flag.Value
	res.Reason = ReasonRolloutIncluded
	return res
}

// Close releases matcher resources.
func (e *Evaluator) Close() {
	e.matcher.Close()
}
