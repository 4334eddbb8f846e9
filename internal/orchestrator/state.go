package orchestrator

import (
	"agentcore.dev/core/internal/model"
)

// ExecutionEntry is one line of the orchestrator's scratchpad: a compact
// record of what was tried each iteration, rendered into the Planner's
// context prompt so it never has to replay the raw action log itself.
type ExecutionEntry struct {
	Iteration int
	PlanID    string
	Action    model.ActionType
	Success   bool
	Summary   string
}

// ValidatorState tracks the Validator's running engagement with a task:
// when it last ran, what it suggested, and the evidence-growth trend the
// orchestrator uses to decide when to trigger it again.
type ValidatorState struct {
	LastValidateIteration int // -1 before the first validation
	ValidationCount       int
	ConfidenceTrend        float64
	Hints                  []model.ActionType // suggested_next_actions from the last run
}

// Metrics accumulates run-level counters on the SearchState; they are not
// copied into the Result that Run returns.
type Metrics struct {
	IterationsRun    int
	ActionsExecuted  int
	ValidationsRun   int
	PlansDropped     int // removed by FailureCatalogue hard-block
}

// SearchState is the BFSOrchestrator's per-run working state: the task
// under search, its frontier of candidate plans, and the bookkeeping
// needed to schedule validation and detect loops.
type SearchState struct {
	Iteration int
	Task      string
	TaskID    string

	Frontier   []model.PlanNode
	Scratchpad []ExecutionEntry

	ValidatorState ValidatorState
	Metrics        Metrics
}

func newSearchState(taskID, task string) *SearchState {
	return &SearchState{
		Task:   task,
		TaskID: taskID,
		ValidatorState: ValidatorState{
			LastValidateIteration: -1,
		},
	}
}

// recentlyExecuted reports whether an action with the same type as
// candidate was executed within the last lookback entries of the
// scratchpad — used for the duplicate-action scoring penalty. Inputs are
// not compared: a plan of an already-executed type counts as a repeat
// whatever its inputs.
func (s *SearchState) recentlyExecuted(candidate model.PlanNode, lookback int) bool {
	start := 0
	if len(s.Scratchpad) > lookback {
		start = len(s.Scratchpad) - lookback
	}
	for _, entry := range s.Scratchpad[start:] {
		if entry.Action == candidate.Action {
			return true
		}
	}
	return false
}

func (s *SearchState) recordExecution(iteration int, plan model.PlanNode, success bool, summary string) {
	s.Scratchpad = append(s.Scratchpad, ExecutionEntry{
		Iteration: iteration,
		PlanID:    plan.ID,
		Action:    plan.Action,
		Success:   success,
		Summary:   summary,
	})
}

func (s *SearchState) renderContext() string {
	var out string
	start := 0
	const maxEntries = 10
	if len(s.Scratchpad) > maxEntries {
		start = len(s.Scratchpad) - maxEntries
	}
	for _, entry := range s.Scratchpad[start:] {
		status := "ok"
		if !entry.Success {
			status = "failed"
		}
		out += entryLine(entry, status)
	}
	return out
}

func entryLine(entry ExecutionEntry, status string) string {
	return "[" + status + "] " + string(entry.Action) + ": " + entry.Summary + "\n"
}
