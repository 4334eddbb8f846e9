// Package llmclient adapts OpenAI and Anthropic chat completion APIs
// behind one LLM interface, wrapped in a resilience layer (rate limiting,
// backoff, circuit breaking) so Planner and Validator never deal with
// provider-specific retry logic.
package llmclient

import (
	"context"
	"encoding/json"

	"agentcore.dev/core/internal/model"
)

// Role is the speaker of a Message in a chat-style prompt.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the prompt sent to Invoke/Structured.
type Message struct {
	Role    Role
	Content string
}

// StructuredRequest parameterizes a schema-constrained call. SchemaName
// and Schema are passed straight through to the backend's native
// structured-output mechanism (OpenAI json_schema response format,
// Anthropic tool-forced JSON).
type StructuredRequest struct {
	Messages    []Message
	SchemaName  string
	Schema      any
	MaxTokens   int
	Temperature *float64
}

// LLM is the operation surface Planner and Validator depend on. Both
// concrete backends and the resilience wrapper implement it, so a caller
// never distinguishes a raw backend from a resilience-wrapped one.
type LLM interface {
	// Invoke sends messages and returns the assistant's free-text reply.
	Invoke(ctx context.Context, messages []Message) (string, error)

	// Structured asks for a schema-constrained JSON reply. Implementations
	// fall back to extracting the first balanced JSON value from free text
	// when the backend does not honor the schema request.
	Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}

// Temp is a convenience constructor for StructuredRequest.Temperature,
// matching the ambient stack's habit of never taking the address of a
// literal inline.
func Temp(t float64) *float64 {
	return &t
}

// GenerateSchema reflects T into a JSON Schema document via
// github.com/invopop/jsonschema, suitable for StructuredRequest.Schema.
func GenerateSchema[T any]() any {
	return generateSchema[T]()
}

func defaultMaxTokens(maxTokens int) int {
	if maxTokens == 0 {
		return 4096
	}
	return maxTokens
}

func asTransientError(message string, cause error) error {
	return &model.LLMError{Transient: true, Message: message, Cause: cause}
}

func asPermanentError(message string, cause error) error {
	return &model.LLMError{Transient: false, Message: message, Cause: cause}
}
