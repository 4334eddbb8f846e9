package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openaiBackend struct {
	client openai.Client
	model  string
}

// NewOpenAI builds an LLM backed by the OpenAI chat completions API.
func NewOpenAI(apiKey, model, baseURL string) (LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openaiBackend{client: openai.NewClient(opts...), model: model}, nil
}

func (b *openaiBackend) Invoke(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               b.model,
		Messages:            convertOpenAIMessages(messages),
		MaxCompletionTokens: openai.Int(int64(defaultMaxTokens(0))),
	}

	start := time.Now()
	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}

	slog.DebugContext(ctx, "llm invoke completed",
		"model", b.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", asTransientError("no choices in response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *openaiBackend) Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	params := openai.ChatCompletionNewParams{
		Model:     b.model,
		Messages:  convertOpenAIMessages(req.Messages),
		MaxTokens: openai.Int(int64(defaultMaxTokens(req.MaxTokens))),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String("structured response schema"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	start := time.Now()
	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}

	slog.DebugContext(ctx, "llm structured call completed",
		"model", b.model,
		"schema", req.SchemaName,
		"duration_ms", time.Since(start).Milliseconds())

	if len(resp.Choices) == 0 {
		return nil, asTransientError("no choices in response", nil)
	}
	content := resp.Choices[0].Message.Content

	if json.Valid([]byte(content)) {
		return json.RawMessage(content), nil
	}
	return ExtractJSONValue(content)
}

func convertOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classifyOpenAIError maps the SDK's error shape onto our LLMError
// taxonomy: rate limits, 5xx and network errors are transient; other API
// errors (auth, bad request) and context cancellation are permanent for
// this call.
func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return asPermanentError("context cancelled", err)
	}

	var apiErr *openai.Error
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
