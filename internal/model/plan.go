package model

import "time"

// Scenario is a predicted outcome class for executing a PlanNode.
type Scenario string

const (
	ScenarioSuccess        Scenario = "success"
	ScenarioPartialSuccess Scenario = "partial_success"
	ScenarioError          Scenario = "error"
)

// PlanMetadata carries bookkeeping the Orchestrator updates as a PlanNode
// moves through the frontier.
type PlanMetadata struct {
	Priority           int
	CreatedAt          time.Time
	ConsiderationCount int
	Executed           bool
}

// PlanNode is a candidate next step proposed by Planner, scored and
// re-scored by BFSOrchestrator until picked or dropped. Score at pick time
// must reflect the latest failure-adaptation and validator-hint
// adjustments — PlanNode never caches a stale score across a rescoring
// pass.
type PlanNode struct {
	ID       string
	Action   ActionType
	Tool     string // empty for reserved actions with no backing tool
	Inputs   map[string]any
	Reasoning string
	Score    float64 // ∈[0,1]
	Depth    int
	ParentID string // empty at the root

	Scenarios            []Scenario
	ValidatorIntegration bool // true if this plan originated from a validator hint

	Metadata PlanMetadata

	// ExpectedEvidence lists evidence types the Planner predicted this plan
	// would satisfy, used only for diagnostics and hint-matching.
	ExpectedEvidence []EvidenceType
}

// Clone returns a value copy safe to mutate independently (e.g. when
// FailureCatalogue.Apply rewrites Inputs/Score without touching the
// original candidate list).
func (p PlanNode) Clone() PlanNode {
	clone := p
	if p.Inputs != nil {
		clone.Inputs = make(map[string]any, len(p.Inputs))
		for k, v := range p.Inputs {
			clone.Inputs[k] = v
		}
	}
	clone.Scenarios = append([]Scenario(nil), p.Scenarios...)
	clone.ExpectedEvidence = append([]EvidenceType(nil), p.ExpectedEvidence...)
	return clone
}
