// Package validator judges whether a task is complete by asking an LLM to
// weigh the task's recorded evidence against an authoritative completion
// proof, then gating its verdict behind a confidence threshold and a few
// task-type-specific acceptance rules the LLM is not trusted to enforce on
// its own.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agentcore.dev/core/common/logger"
	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/memory"
	"agentcore.dev/core/internal/model"
)

// devOpsSections are the operational checks a dev/ops answer must name
// before the Validator may accept it, regardless of confidence (§4.9).
var devOpsSections = []string{"install", "configure", "verify", "rollback"}

// Validator produces ValidationResult by prompting an LLM, then applying
// the acceptance policy the orchestrator is not allowed to bypass.
type Validator struct {
	llm             llmclient.LLM
	mem             *memory.Manager
	confidenceFloor float64
}

// Option configures a Validator beyond its required dependencies.
type Option func(*Validator)

// WithConfidenceFloor overrides BFS_VALIDATOR_CONF (default 0.7).
func WithConfidenceFloor(f float64) Option {
	return func(v *Validator) { v.confidenceFloor = f }
}

// New builds a Validator. confidenceFloor defaults to 0.7 if unset via
// WithConfidenceFloor.
func New(llm llmclient.LLM, mem *memory.Manager, opts ...Option) *Validator {
	v := &Validator{llm: llm, mem: mem, confidenceFloor: 0.7}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type verdictWire struct {
	Completed            bool     `json:"completed"`
	Confidence            float64  `json:"confidence"`
	Issues                []string `json:"issues"`
	SuggestedNextActions  []string `json:"suggested_next_actions"`
	EvidenceNeeded        []string `json:"evidence_needed"`
	Rationale             string   `json:"rationale"`
	DraftedAnswer         string   `json:"drafted_answer"`
}

// Validate consults the task's completion proof and recent evidence, asks
// the LLM to judge completion, and applies the acceptance policy. The
// returned ValidationResult's Completed field is the policy-gated verdict,
// not the LLM's raw claim.
func (v *Validator) Validate(ctx context.Context, taskID string, iteration int) (model.ValidationResult, error) {
	ctx = logger.WithFields(ctx, logger.Fields{Component: "validator", TaskID: &taskID, Iteration: &iteration})

	taskCtx, err := v.mem.GetTaskContext(taskID)
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("validate: %w", err)
	}

	proof, err := v.mem.GetTaskCompletionProof(taskID)
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("validate: %w", err)
	}

	raw, err := v.llm.Structured(ctx, llmclient.StructuredRequest{
		Messages:    buildMessages(taskCtx, proof),
		SchemaName:  "validation_result",
		Schema:      llmclient.GenerateSchema[verdictWire](),
		Temperature: llmclient.Temp(0.0),
	})
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("validate: %w", err)
	}

	var wire verdictWire
	if jsonErr := json.Unmarshal(raw, &wire); jsonErr != nil {
		// Parse failures downgrade rather than propagate, per §4.9.
		return model.ValidationResult{
			Completed:  false,
			Confidence: 0,
			Issues:     []string{"validator_parse_failed"},
			Iteration:  iteration,
			Timestamp:  time.Now(),
		}, nil
	}

	result := model.ValidationResult{
		Completed:            wire.Completed,
		Confidence:            clamp01(wire.Confidence),
		Issues:                wire.Issues,
		SuggestedNextActions:  toActionTypes(wire.SuggestedNextActions),
		EvidenceNeeded:        toEvidenceTypes(wire.EvidenceNeeded),
		Rationale:             wire.Rationale,
		Iteration:             iteration,
		Timestamp:             time.Now(),
	}

	v.applyAcceptancePolicy(&result, taskCtx, wire)
	return result, nil
}

// applyAcceptancePolicy enforces the confidence floor and the task-type
// special cases the LLM's raw "completed" claim is never trusted alone for.
func (v *Validator) applyAcceptancePolicy(result *model.ValidationResult, taskCtx model.TaskContext, wire verdictWire) {
	if !result.Completed {
		return
	}

	if result.Confidence < v.confidenceFloor {
		result.Completed = false
		result.Issues = appendUnique(result.Issues, "confidence_below_threshold")
		return
	}

	if isDevOpsTask(taskCtx) && !hasAllSections(wire.DraftedAnswer, devOpsSections) {
		result.Completed = false
		result.Issues = appendUnique(result.Issues, "missing_operational_sections")
		return
	}

	// Coding tasks may be accepted on solution + self-tests without live
	// execution evidence; nothing further to enforce here beyond the
	// confidence floor already checked above.
}

func isDevOpsTask(taskCtx model.TaskContext) bool {
	if taskCtx.TaskType != model.TaskGeneral {
		return false
	}
	lower := strings.ToLower(taskCtx.Task)
	for _, kw := range []string{"deploy", "provision", "infrastructure", "rollback", "ops"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasAllSections(answer string, sections []string) bool {
	lower := strings.ToLower(answer)
	for _, s := range sections {
		if !strings.Contains(lower, s) {
			return false
		}
	}
	return true
}

func appendUnique(issues []string, issue string) []string {
	for _, i := range issues {
		if i == issue {
			return issues
		}
	}
	return append(issues, issue)
}

func buildMessages(taskCtx model.TaskContext, proof memory.CompletionProof) []llmclient.Message {
	system := "You are the validator module of a tool-using agent. Treat the supplied " +
		"completion proof as authoritative evidence of what has actually been produced " +
		"so far — do not infer completion from the task description alone. Judge whether " +
		"the task is genuinely complete, citing concrete gaps if not. If you believe the " +
		"task is done, include a drafted_answer; for operational tasks it must name " +
		"install, configure, verify, and rollback steps."

	user := fmt.Sprintf(
		"Task: %s\nTask type: %s\nIteration: recorded actions=%d, evidence=%d\n\n"+
			"Completion proof: file_creation=%t synthesis=%t implementation=%t total_files=%d\n",
		taskCtx.Task, taskCtx.TaskType, len(taskCtx.Actions), len(taskCtx.Evidence),
		proof.HasFileCreation, proof.HasSynthesis, proof.HasImplementation, proof.TotalFiles,
	)

	return []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: system},
		{Role: llmclient.RoleUser, Content: user},
	}
}

func toActionTypes(raw []string) []model.ActionType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.ActionType, len(raw))
	for i, r := range raw {
		out[i] = model.ActionType(r)
	}
	return out
}

func toEvidenceTypes(raw []string) []model.EvidenceType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.EvidenceType, len(raw))
	for i, r := range raw {
		out[i] = model.EvidenceType(r)
	}
	return out
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
