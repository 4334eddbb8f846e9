package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicBackend struct {
	client anthropic.Client
	model  string
}

// NewAnthropic builds an LLM backed by the Anthropic Messages API.
func NewAnthropic(apiKey, model, baseURL string) (LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}

	return &anthropicBackend{client: anthropic.NewClient(opts...), model: model}, nil
}

func (b *anthropicBackend) Invoke(ctx context.Context, messages []Message) (string, error) {
	system, converted := convertAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(defaultMaxTokens(0)),
		Messages:  converted,
	}
	if len(system) > 0 {
		params.System = system
	}

	start := time.Now()
	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropicError(ctx, err)
	}

	slog.DebugContext(ctx, "llm invoke completed",
		"model", b.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// structuredToolName is the synthetic tool Anthropic is forced to call so
// its reply lands in tool_use.input rather than narrated free text.
const structuredToolName = "emit_structured_response"

func (b *anthropicBackend) Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	system, converted := convertAnthropicMessages(req.Messages)

	inputSchema := anthropic.ToolInputSchemaParam{Type: "object"}
	if props, ok := req.Schema.(map[string]any); ok {
		inputSchema.Properties = props
	} else {
		// Round-trip through JSON so a jsonschema.Schema (or any struct) is
		// coerced into the map[string]any the SDK param expects.
		data, _ := json.Marshal(req.Schema)
		var props map[string]any
		if err := json.Unmarshal(data, &props); err == nil {
			inputSchema.Properties = props
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(defaultMaxTokens(req.MaxTokens)),
		Messages:  converted,
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &anthropic.ToolParam{
				Name:        structuredToolName,
				Description: anthropic.String("emit the structured response requested by " + req.SchemaName),
				InputSchema: inputSchema,
			}},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredToolName},
		},
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	start := time.Now()
	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(ctx, err)
	}

	slog.DebugContext(ctx, "llm structured call completed",
		"model", b.model,
		"schema", req.SchemaName,
		"duration_ms", time.Since(start).Milliseconds())

	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == structuredToolName {
			return json.RawMessage(block.Input), nil
		}
	}

	// Backend ignored the forced tool call; fall back to free-text
	// extraction like the OpenAI path does.
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return ExtractJSONValue(text)
}

func convertAnthropicMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Type: "text", Text: m.Content})
		case RoleAssistant:
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
			})
		default:
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
			})
		}
	}
	return system, out
}

func classifyAnthropicError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return asPermanentError("context cancelled", err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			slog.WarnContext(ctx, "llm rate limited", "status_code", apiErr.StatusCode)
			return asTransientError("rate limited", err)
		case apiErr.StatusCode >= 500:
			slog.WarnContext(ctx, "llm server error", "status_code", apiErr.StatusCode)
			return asTransientError("server error", err)
		default:
			return asPermanentError(fmt.Sprintf("client error (status %d)", apiErr.StatusCode), err)
		}
	}
	return asTransientError("network error", err)
}
