package model

// FailurePattern is a static rule matching a PlanNode and, if possible,
// adapting it to a safer or feasible alternative. Match and Adapt are pure
// functions of their arguments: a pattern never reads or mutates external
// state, which is what makes the catalogue unit-testable and composable.
//
// Adapt returns (adaptedPlan, true) when it can rewrite the plan in place,
// or (zero value, false) when it cannot; a matched plan whose Adapt returns
// false is dropped. A nil Adapt marks a pattern that only demerits the plan
// via ScoreFactor.
type FailurePattern struct {
	ID      string
	Reason  string
	Match   func(plan PlanNode, task string) bool
	Adapt   func(plan PlanNode) (PlanNode, bool)

	// ScoreFactor multiplies a plan's score when Match is true and the
	// pattern has no Adapt. A plan whose resulting score is at or below
	// HardBlockThreshold is dropped rather than executed.
	ScoreFactor float64
}

// HardBlockThreshold is the score at or below which a plan demerited by a
// matched FailurePattern is removed from consideration entirely instead of
// merely demerited (§8.10).
const HardBlockThreshold = 0.2
