package model

import "time"

// ActionType is a verb drawn from the tool catalogue plus a small set of
// reserved orchestrator-internal labels.
type ActionType string

const (
	ActionSynthesizeAnswer ActionType = "synthesize_answer"
	ActionValidate         ActionType = "validate"
	ActionTestExample      ActionType = "test_example"
	ActionImplementCode    ActionType = "implement_code"
	ActionExtractData      ActionType = "extract_data"
	ActionWriteFile        ActionType = "write_file"
)

// IsReserved reports whether t is one of the orchestrator's built-in labels
// rather than a tool name drawn from ToolClient.ListTools.
func (t ActionType) IsReserved() bool {
	switch t {
	case ActionSynthesizeAnswer, ActionValidate, ActionTestExample, ActionImplementCode, ActionExtractData:
		return true
	default:
		return false
	}
}

// ActionContext scopes an Action to the task and, loosely, the plan that
// produced it.
type ActionContext struct {
	TaskID string `json:"task_id"`
	PlanID string `json:"plan_id"`
}

// Action is a single recorded step: either a tool invocation or a reserved
// verb. Append-only once added to a TaskContext via MemoryManager.AddAction.
type Action struct {
	ActionID  string         `json:"action_id"`
	Type      ActionType     `json:"action_type"`
	Inputs    map[string]any `json:"inputs"`
	Outputs   ActionOutput   `json:"outputs"`
	Success   bool           `json:"success"`
	Timestamp time.Time      `json:"timestamp"`
	Context   ActionContext  `json:"context"`

	// EvidenceIDs references Evidence derived from this Action, in
	// derivation order. Populated by MemoryManager, never by the caller.
	EvidenceIDs []string `json:"evidence"`
}

func (a Action) clone() Action {
	clone := a
	if a.Inputs != nil {
		clone.Inputs = make(map[string]any, len(a.Inputs))
		for k, v := range a.Inputs {
			clone.Inputs[k] = v
		}
	}
	clone.EvidenceIDs = append([]string(nil), a.EvidenceIDs...)
	return clone
}

// ActionOutput is the normalized result of executing an Action. It replaces
// an ad-hoc `any` payload with an explicit sum type: exactly one of File,
// Code, Documentation or Text is meaningful, discriminated by Kind. Evidence
// derivation switches on Kind, never on duck-typing the other fields.
type ActionOutput struct {
	Kind          OutputKind           `json:"kind"`
	File          *FileOutput          `json:"file,omitempty"`
	Code          *CodeOutput          `json:"code,omitempty"`
	Documentation *DocumentationOutput `json:"documentation,omitempty"`
	Text          string               `json:"text,omitempty"`
	ToolError     *ToolErrorOutput     `json:"tool_error,omitempty"`
}

// OutputKind discriminates ActionOutput.
type OutputKind string

const (
	OutputNone          OutputKind = ""
	OutputFile          OutputKind = "file"
	OutputCode          OutputKind = "code"
	OutputDocumentation OutputKind = "documentation"
	OutputText          OutputKind = "text"
	OutputToolError     OutputKind = "tool_error"
)

// FileOutput describes a file an Action wrote.
type FileOutput struct {
	Path     string   `json:"path"`
	Content  string   `json:"content"`
	FileType FileType `json:"file_type"`
}

// CodeOutput describes code-analysis results an Action produced (typically
// via CodeDocumentation.Analyze after a code file write).
type CodeOutput struct {
	Language      string `json:"language"`
	FunctionCount int    `json:"function_count"`
	Complexity    int    `json:"complexity"`
}

// DocumentationOutput marks that an Action produced documentation content.
type DocumentationOutput struct {
	Length int `json:"length"`
}

// ToolErrorOutput carries a structured tool failure (never a panic).
type ToolErrorOutput struct {
	Kind    string `json:"kind"` // e.g. "tool_not_found", "timeout", "invalid_params"
	Message string `json:"message"`
}
