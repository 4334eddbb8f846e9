package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agentcore.dev/core/core/config"
	"agentcore.dev/core/internal/completionrules"
	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/memory"
	"agentcore.dev/core/internal/model"
	"agentcore.dev/core/internal/tool"
)

// executePlan runs a tool-backed plan, materializes its outcome as an
// Action, and feeds the result back into validator-state bookkeeping and
// the validation-scheduling decision.
func (o *Orchestrator) executePlan(ctx context.Context, state *SearchState, plan model.PlanNode) (terminal bool, status string, err error) {
	toolName := plan.Tool
	if toolName == "" {
		toolName = string(plan.Action)
	}

	result, execErr := o.tools.Execute(ctx, toolName, plan.Inputs)
	if execErr != nil {
		// A transport-level failure that still reached us as a Go error
		// (rather than a Result with Err set) is treated as a failed
		// execution, not a task-ending error — retries are the next
		// iteration's concern via re-planning.
		result = tool.Err("execution_error", execErr.Error())
	}

	action := model.Action{
		Type:      plan.Action,
		Inputs:    plan.Inputs,
		Success:   result.IsOk(),
		Timestamp: o.clock(),
		Context:   model.ActionContext{TaskID: state.TaskID, PlanID: plan.ID},
	}
	if result.IsOk() {
		action.Outputs = toolResultToOutput(plan.Action, result)
	} else {
		action.Outputs = model.ActionOutput{
			Kind:      model.OutputToolError,
			ToolError: &model.ToolErrorOutput{Kind: result.Err.Kind, Message: result.Err.Message},
		}
	}

	if addErr := o.mem.AddAction(state.TaskID, action); addErr != nil {
		return false, "", fmt.Errorf("record action: %w", addErr)
	}

	summary := "executed"
	if !result.IsOk() {
		summary = "failed: " + result.Err.Message
	}
	state.recordExecution(state.Iteration, plan, result.IsOk(), summary)
	state.Metrics.ActionsExecuted++

	taskCtx, getErr := o.mem.GetTaskContext(state.TaskID)
	if getErr != nil {
		return false, "", fmt.Errorf("get task context: %w", getErr)
	}
	o.updateConfidenceTrend(state, taskCtx)
	o.scheduleValidation(state, taskCtx)

	return false, "", nil
}

// toolResultToOutput shapes a successful tool Result into the ActionOutput
// sum type. A write_file action is expected to return a map carrying
// path/content/file_type, so MemoryManager can derive file_creation
// evidence and materialize the FileRef; anything else is treated as plain
// text output.
func toolResultToOutput(action model.ActionType, result tool.Result) model.ActionOutput {
	if action == model.ActionWriteFile {
		if fields, ok := result.Value.(map[string]any); ok {
			return model.ActionOutput{
				Kind: model.OutputFile,
				File: &model.FileOutput{
					Path:     stringField(fields, "path"),
					Content:  stringField(fields, "content"),
					FileType: model.FileType(stringField(fields, "file_type")),
				},
			}
		}
	}

	switch v := result.Value.(type) {
	case string:
		return model.ActionOutput{Kind: model.OutputText, Text: v}
	default:
		return model.ActionOutput{Kind: model.OutputText, Text: fmt.Sprintf("%v", v)}
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// runSynthesis drafts a textual answer from the scratchpad and writes it as
// a FileOutput, the way a `write_file` tool call would, but driven directly
// by the LLM rather than routed through ToolClient (synthesize_answer has
// no backing tool).
func (o *Orchestrator) runSynthesis(ctx context.Context, state *SearchState, plan model.PlanNode, taskCtx model.TaskContext) (bool, string, error) {
	answer, err := o.llm.Invoke(ctx, []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: "Draft the final answer for this task from the work recorded so far. Be concrete and complete."},
		{Role: llmclient.RoleUser, Content: fmt.Sprintf("Task: %s\n\nWork so far:\n%s", state.Task, state.renderContext())},
	})

	action := model.Action{
		Type:      model.ActionSynthesizeAnswer,
		Inputs:    plan.Inputs,
		Timestamp: o.clock(),
		Context:   model.ActionContext{TaskID: state.TaskID, PlanID: plan.ID},
	}
	if err != nil {
		action.Success = false
		action.Outputs = model.ActionOutput{Kind: model.OutputToolError, ToolError: &model.ToolErrorOutput{Kind: "llm_error", Message: err.Error()}}
	} else {
		action.Success = true
		action.Outputs = model.ActionOutput{
			Kind: model.OutputFile,
			File: &model.FileOutput{Path: "answer.md", Content: answer, FileType: model.FileDocumentation},
		}
	}

	if addErr := o.mem.AddAction(state.TaskID, action); addErr != nil {
		return false, "", fmt.Errorf("record synthesis action: %w", addErr)
	}
	state.recordExecution(state.Iteration, plan, action.Success, "drafted answer")
	return false, "", nil
}

// runValidation invokes the Validator and applies its confirmation-gated
// acceptance policy: success only on completed=true with sufficient
// confidence, otherwise the suggested next actions become hints for the
// next planning round.
func (o *Orchestrator) runValidation(ctx context.Context, state *SearchState, taskType model.TaskType) (bool, string, error) {
	result, err := o.validator.Validate(ctx, state.TaskID, state.Iteration)
	if err != nil {
		return false, "", fmt.Errorf("validate: %w", err)
	}

	state.ValidatorState.LastValidateIteration = state.Iteration
	state.ValidatorState.ValidationCount++
	state.Metrics.ValidationsRun++

	if result.Completed {
		if !completionrules.Check(taskType, o.proofOrEmpty(state.TaskID)) {
			slog.WarnContext(ctx, "validator confirmed completion without satisfying completion rules",
				"task_type", taskType)
		}
		if markErr := o.mem.MarkComplete(state.TaskID, nil); markErr != nil {
			return false, "", fmt.Errorf("mark complete: %w", markErr)
		}
		return true, StatusSuccess, nil
	}

	state.ValidatorState.Hints = result.SuggestedNextActions
	return false, "", nil
}

func (o *Orchestrator) proofOrEmpty(taskID string) memory.CompletionProof {
	proof, err := o.mem.GetTaskCompletionProof(taskID)
	if err != nil {
		return memory.CompletionProof{}
	}
	return proof
}

// updateConfidenceTrend recomputes the fraction of a task type's required
// evidence that has been satisfied so far, the heuristic driving the
// action-mode validation trigger.
func (o *Orchestrator) updateConfidenceTrend(state *SearchState, taskCtx model.TaskContext) {
	required := completionrules.RequiredEvidence(taskCtx.TaskType)
	if len(required) == 0 {
		state.ValidatorState.ConfidenceTrend = 0
		return
	}

	seen := make(map[model.EvidenceType]bool, len(taskCtx.Evidence))
	for _, e := range taskCtx.Evidence {
		seen[e.Type] = true
	}

	satisfied := 0
	for _, r := range required {
		if seen[r] {
			satisfied++
		}
	}
	state.ValidatorState.ConfidenceTrend = float64(satisfied) / float64(len(required))
}

// scheduleValidation injects a synthesize_answer/validate pair onto the
// frontier according to the configured mode, when the estimated value is
// high enough and we are outside the post-validation cooldown.
func (o *Orchestrator) scheduleValidation(state *SearchState, taskCtx model.TaskContext) {
	withinCooldown := state.ValidatorState.LastValidateIteration >= 0 &&
		state.Iteration-state.ValidatorState.LastValidateIteration <= o.cfg.ValidationCooldown

	triggerAction := o.cfg.ValidatorMode != config.ValidatorModePeriodic &&
		state.ValidatorState.ConfidenceTrend >= o.cfg.ValueTrigger &&
		!withinCooldown

	triggerPeriodic := (o.cfg.ValidatorMode == config.ValidatorModePeriodic || o.cfg.ValidatorMode == config.ValidatorModeBoth) &&
		state.Iteration > 0 &&
		state.Iteration%periodicValidationInterval(o.cfg) == 0 &&
		!withinCooldown

	if !triggerAction && !triggerPeriodic {
		return
	}

	now := o.clock()
	synth := model.PlanNode{
		Action:               model.ActionSynthesizeAnswer,
		Score:                0.95,
		Depth:                state.Iteration,
		ValidatorIntegration: true,
		Metadata:             model.PlanMetadata{CreatedAt: now},
	}
	validate := model.PlanNode{
		Action:               model.ActionValidate,
		Score:                0.9,
		Depth:                state.Iteration,
		ValidatorIntegration: true,
		Metadata:             model.PlanMetadata{CreatedAt: now.Add(time.Nanosecond)},
	}
	state.Frontier = append([]model.PlanNode{synth, validate}, state.Frontier...)
}
