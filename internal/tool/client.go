// Package tool provides the ToolClient interface the orchestrator uses to
// discover and invoke tools, plus two concrete adapters: an HTTP bridge
// client and an in-process static client for tests and the demo runner.
package tool

import "context"

// Spec describes one tool the bridge advertises.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
	Category    string
}

// Result is the outcome of executing a tool. Exactly one of Value or Err is
// meaningful; IsOk reports which. ToolClient.Execute never returns a Go
// error for an expected tool failure — that comes back as Result.Err.
type Result struct {
	ok    bool
	Value any
	Err   *ResultError
	Meta  map[string]any
}

// ResultError is the structured failure a tool execution reports.
type ResultError struct {
	Kind    string // "tool_not_found", "timeout", "invalid_params", ...
	Message string
}

// Ok builds a successful Result.
func Ok(value any, meta map[string]any) Result {
	return Result{ok: true, Value: value, Meta: meta}
}

// Err builds a failed Result.
func Err(kind, message string) Result {
	return Result{ok: false, Err: &ResultError{Kind: kind, Message: message}}
}

// IsOk reports whether the execution succeeded.
func (r Result) IsOk() bool {
	return r.ok
}

// Client lists available tools and executes them by name. Execute must
// never panic for an expected tool failure — it reports ok=false with a
// structured Err. Unknown tool names are reported the same way, not as a
// Go error, so the orchestrator can always materialize an Action.
type Client interface {
	ListTools(ctx context.Context) ([]Spec, error)
	Execute(ctx context.Context, name string, params map[string]any) (Result, error)
	Health(ctx context.Context) error
}
