package model

import "fmt"

// ToolError is an expected, non-fatal tool failure. ToolClient.Execute must
// never panic for these — they come back as a normal ToolResult with a
// structured Err, and the orchestrator converts them into a failed Action.
type ToolError struct {
	Kind    string // "tool_not_found", "timeout", "invalid_params", ...
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s]: %s", e.Kind, e.Message)
}

// LLMError is returned by internal/llmclient when retries are exhausted.
// Transient errors are ones the orchestrator may retry (rate limits,
// timeouts, 5xx); Permanent errors terminate the task.
type LLMError struct {
	Transient bool
	Message   string
	Cause     error
}

func (e *LLMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm error (transient=%t): %s: %v", e.Transient, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm error (transient=%t): %s", e.Transient, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Cause
}

// SchemaViolationError marks a Planner response that failed to parse
// against the expected structured-output schema. Treated like an
// LLMTransient failure by the orchestrator: retried once, then the
// planning round is skipped rather than aborting the task. The Validator
// does not return it: its parse failures downgrade to a rejection.
type SchemaViolationError struct {
	SchemaName string
	Cause      error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation for %q: %v", e.SchemaName, e.Cause)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Cause
}
