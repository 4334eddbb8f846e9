package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// Fields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where run context
// (task_id, iteration, etc.) is automatically included in all log statements.
type Fields struct {
	TaskID    *string // opaque TaskContext id
	ActionID  *string // action currently being processed, if any
	PlanID    *string // plan node currently being considered, if any
	Iteration *int    // orchestrator iteration number
	Component string  // component name, dotted style, e.g. "orchestrator.loop"
}

// WithFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithFields(ctx context.Context, fields Fields) context.Context {
	existing := GetFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetFields retrieves log fields from context.
// Returns a zero Fields if none are set.
func GetFields(ctx context.Context) Fields {
	if fields, ok := ctx.Value(logFieldsKey).(Fields); ok {
		return fields
	}
	return Fields{}
}

// mergeFields merges two Fields, preferring non-nil/non-empty values from 'next'.
func mergeFields(existing, next Fields) Fields {
	result := existing

	if next.TaskID != nil {
		result.TaskID = next.TaskID
	}
	if next.ActionID != nil {
		result.ActionID = next.ActionID
	}
	if next.PlanID != nil {
		result.PlanID = next.PlanID
	}
	if next.Iteration != nil {
		result.Iteration = next.Iteration
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting Fields inline: logger.WithFields(ctx, logger.Fields{TaskID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like plan reasoning or tool output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
