// Package orchestrator drives the main BFS loop: propose candidate plans,
// run them through the failure catalogue, score and pick the best one,
// execute it, update memory, and decide when to invoke the validator and
// when to stop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"agentcore.dev/core/common/logger"
	"agentcore.dev/core/core/config"
	"agentcore.dev/core/internal/completionrules"
	"agentcore.dev/core/internal/failurecatalogue"
	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/loopprevention"
	"agentcore.dev/core/internal/memory"
	"agentcore.dev/core/internal/model"
	"agentcore.dev/core/internal/planner"
	"agentcore.dev/core/internal/tool"
	"agentcore.dev/core/internal/validator"
)

// Termination codes surfaced to callers.
const (
	StatusSuccess             = "success"
	StatusMaxIterations       = "max_iterations"
	StatusLoopDetected        = "loop_detected"
	StatusCancelled           = "cancelled"
	StatusUnrecoverableError  = "unrecoverable_error"
)

// duplicatePenalty is subtracted from a candidate's score when it repeats
// an action type executed within the recent scratchpad window. Its
// magnitude is not named by the governing design, so it is picked to sit
// safely below BFS_HINT_BOOST: a duplicate rarely outscores a fresh hint.
const duplicatePenalty = 0.4

// duplicateLookback bounds how far back recentlyExecuted scans the
// scratchpad for a repeat of the same action type.
const duplicateLookback = 5

// periodicValidationInterval is the iteration spacing used by
// ValidatorModePeriodic. Not separately named as an env var, so it is
// derived from the configured cooldown plus a fixed margin.
func periodicValidationInterval(cfg config.SearchConfig) int {
	return cfg.ValidationCooldown + 3
}

// Result is what Run returns to a host CLI/UI: enough to explain why the
// task ended the way it did without leaking internals or stack traces.
type Result struct {
	Status                string
	TaskID                string
	Iterations            int
	LastEvidenceSummary    string
	SuggestedNextActions  []model.ActionType
}

// Orchestrator wires the Planner, Validator, FailureCatalogue,
// CompletionRules, LoopPrevention and MemoryManager into the single-
// threaded cooperative main loop described by the search configuration.
type Orchestrator struct {
	tools     tool.Client
	llm       llmclient.LLM
	planner   *planner.Planner
	validator *validator.Validator
	mem       *memory.Manager

	cfg     config.SearchConfig
	loopCfg loopprevention.Config

	clock func() time.Time
}

// New builds an Orchestrator. clock defaults to time.Now; tests inject a
// fixed or stepping clock so stagnation/cooldown checks stay deterministic.
func New(tools tool.Client, llm llmclient.LLM, p *planner.Planner, v *validator.Validator, mem *memory.Manager, cfg config.SearchConfig, clock func() time.Time) *Orchestrator {
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		tools:     tools,
		llm:       llm,
		planner:   p,
		validator: v,
		mem:       mem,
		cfg:       cfg,
		loopCfg: loopprevention.Config{
			MaxTotalActions:       cfg.MaxIterations,
			MaxDuplicateActions:   cfg.LoopMaxDuplicates,
			MaxValidationActions: cfg.LoopMaxValidations,
			StagnationWindow:      2 * time.Minute,
			StagnationOccurrences: 2,
			MaxActionGap:          5 * time.Minute,
			RepeatedPatternLen:    3,
			RepeatedPatternCount:  3,
		},
		clock: clock,
	}
}

// Run creates a task and drives the main loop to completion, cancellation,
// or a terminal error. The returned error is non-nil only for catastrophic
// adapter failures (StatusUnrecoverableError with the underlying cause
// wrapped so errors.Is/errors.As still work); every other termination is
// reported via Result.Status.
func (o *Orchestrator) Run(ctx context.Context, task string, taskType model.TaskType) (Result, error) {
	taskID := o.mem.CreateTask(task, taskType)
	ctx = logger.WithFields(ctx, logger.Fields{Component: "orchestrator", TaskID: logger.Ptr(taskID)})
	slog.InfoContext(ctx, "task started", "task", logger.Truncate(task, 200))

	tools, err := o.tools.ListTools(ctx)
	if err != nil {
		return o.result(StatusUnrecoverableError, taskID, nil), fmt.Errorf("list tools: %w", err)
	}

	state := newSearchState(taskID, task)

	for {
		state.Iteration++
		ctx := logger.WithFields(ctx, logger.Fields{Iteration: logger.Ptr(state.Iteration)})

		if ctx.Err() != nil {
			return o.result(StatusCancelled, taskID, state), nil
		}
		if state.Iteration > o.cfg.MaxIterations {
			return o.result(StatusMaxIterations, taskID, state), nil
		}

		taskCtx, err := o.mem.GetTaskContext(taskID)
		if err != nil {
			return o.result(StatusUnrecoverableError, taskID, state), fmt.Errorf("get task context: %w", err)
		}

		if res := loopprevention.Detect(taskCtx, o.clock(), o.loopCfg); res.Looped {
			slog.WarnContext(ctx, "loop prevention triggered", "reason", res.Reason)
			return o.result(StatusLoopDetected, taskID, state), nil
		}

		terminal, status, runErr := o.runIteration(ctx, state, taskCtx, tools)
		if runErr != nil {
			return o.result(StatusUnrecoverableError, taskID, state), runErr
		}
		if terminal {
			return o.result(status, taskID, state), nil
		}
	}
}

// runIteration executes one step of the main loop. A panic inside it is
// recovered and converted into a failed scratchpad entry plus a logged
// stack trace, rather than crashing the host process; no Action is added
// to memory for it.
func (o *Orchestrator) runIteration(ctx context.Context, state *SearchState, taskCtx model.TaskContext, tools []tool.Spec) (terminal bool, status string, err error) {
	span := logger.StartSpan(ctx, "orchestrator.iteration")
	ctx = span.Context()
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("panic: %v", r))
			slog.ErrorContext(ctx, "plan handler panicked",
				"recovered", r,
				"stack", string(debug.Stack()))
			state.recordExecution(state.Iteration, model.PlanNode{Action: "panic"}, false, fmt.Sprintf("panic: %v", r))
		}
	}()

	if len(state.Frontier) == 0 {
		req := planner.Request{
			Task:     state.Task,
			TaskType: taskCtx.TaskType,
			Tools:    tools,
			Context:  state.renderContext(),
			Hints:    hintStrings(state.ValidatorState.Hints),
			K:        o.cfg.BeamWidth,
			Depth:    state.Iteration,
		}
		plans, proposeErr := o.planner.ProposePlans(ctx, req)
		var schemaErr *model.SchemaViolationError
		if errors.As(proposeErr, &schemaErr) {
			// A schema violation is retried once before the round is skipped.
			plans, proposeErr = o.planner.ProposePlans(ctx, req)
		}
		if proposeErr != nil {
			if errors.As(proposeErr, &schemaErr) {
				// Treated like a transient LLM failure: after the retry also
				// fails, skip planning this round rather than aborting the task.
				slog.WarnContext(ctx, "planner schema violation, skipping round", "error", proposeErr)
				return false, "", nil
			}
			return false, "", fmt.Errorf("propose plans: %w", proposeErr)
		}
		state.Frontier = plans
	}

	state.Frontier = failurecatalogue.Apply(state.Frontier, state.Task)
	if len(state.Frontier) == 0 {
		// Every candidate was hard-blocked; let the next iteration re-plan.
		return false, "", nil
	}

	o.scoreFrontier(state)
	sortByScoreThenDepthThenAge(state.Frontier)
	if len(state.Frontier) > o.cfg.BeamWidth {
		state.Frontier = state.Frontier[:o.cfg.BeamWidth]
	}

	plan := state.Frontier[0]
	state.Frontier = state.Frontier[1:]
	plan.Metadata.Executed = true

	if plan.Action == model.ActionValidate {
		return o.runValidation(ctx, state, taskCtx.TaskType)
	}

	if plan.Action == model.ActionSynthesizeAnswer {
		return o.runSynthesis(ctx, state, plan, taskCtx)
	}

	return o.executePlan(ctx, state, plan)
}

func hintStrings(hints []model.ActionType) []string {
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = string(h)
	}
	return out
}

// scoreFrontier applies hint boosts, special-action boosts, and the
// duplicate penalty to every candidate, clamped to [0,1].
func (o *Orchestrator) scoreFrontier(state *SearchState) {
	hintSet := make(map[model.ActionType]bool, len(state.ValidatorState.Hints))
	for _, h := range state.ValidatorState.Hints {
		hintSet[h] = true
	}

	for i := range state.Frontier {
		plan := &state.Frontier[i]
		score := plan.Score

		if hintSet[plan.Action] {
			plan.ValidatorIntegration = true
			score += o.cfg.HintBoost
		}
		if plan.Action == model.ActionImplementCode || plan.Action == model.ActionTestExample {
			score += o.cfg.SpecialHintBoost
		}
		if state.recentlyExecuted(*plan, duplicateLookback) {
			score -= duplicatePenalty
		}

		plan.Score = clamp01(score)
	}
}

// sortByScoreThenDepthThenAge implements the tie-break rules: strictly
// greater score wins; on a tie, smaller depth, then earlier createdAt.
func sortByScoreThenDepthThenAge(plans []model.PlanNode) {
	sort.SliceStable(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Metadata.CreatedAt.Before(b.Metadata.CreatedAt)
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (o *Orchestrator) result(status, taskID string, state *SearchState) Result {
	iterations := 0
	var hints []model.ActionType
	if state != nil {
		iterations = state.Iteration
		hints = state.ValidatorState.Hints
	}
	return Result{
		Status:               status,
		TaskID:               taskID,
		Iterations:           iterations,
		LastEvidenceSummary:  o.lastEvidenceSummary(taskID),
		SuggestedNextActions: hints,
	}
}

func (o *Orchestrator) lastEvidenceSummary(taskID string) string {
	evidence, err := o.mem.QueryMemories(taskID, nil, 1)
	if err != nil || len(evidence) == 0 {
		return ""
	}
	return evidence[len(evidence)-1].Content
}
