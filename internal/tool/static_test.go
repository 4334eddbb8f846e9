package tool_test

import (
	"context"
	"testing"

	"agentcore.dev/core/internal/tool"
)

func TestStaticClient_ExecuteKnownTool(t *testing.T) {
	client := tool.NewStaticClient(tool.StaticEntry{
		Spec: tool.Spec{Name: "echo", Description: "echoes input", Category: "test"},
		Handler: func(ctx context.Context, params map[string]any) (tool.Result, error) {
			return tool.Ok(params["text"], nil), nil
		},
	})

	result, err := client.Execute(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsOk() {
		t.Fatalf("expected ok result, got err: %+v", result.Err)
	}
	if result.Value != "hi" {
		t.Fatalf("expected echoed value %q, got %q", "hi", result.Value)
	}
}

func TestStaticClient_ExecuteUnknownTool(t *testing.T) {
	client := tool.NewStaticClient()

	result, err := client.Execute(context.Background(), "does_not_exist", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsOk() {
		t.Fatalf("expected failure result for unknown tool")
	}
	if result.Err.Kind != "tool_not_found" {
		t.Fatalf("expected tool_not_found, got %q", result.Err.Kind)
	}
}

func TestStaticClient_ListTools(t *testing.T) {
	client := tool.NewStaticClient(
		tool.StaticEntry{Spec: tool.Spec{Name: "a"}, Handler: func(context.Context, map[string]any) (tool.Result, error) { return tool.Ok(nil, nil), nil }},
		tool.StaticEntry{Spec: tool.Spec{Name: "b"}, Handler: func(context.Context, map[string]any) (tool.Result, error) { return tool.Ok(nil, nil), nil }},
	)

	specs, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(specs))
	}
}

func TestStaticClient_HandlerCanReturnToolError(t *testing.T) {
	client := tool.NewStaticClient(tool.StaticEntry{
		Spec: tool.Spec{Name: "flaky"},
		Handler: func(ctx context.Context, params map[string]any) (tool.Result, error) {
			return tool.Err("timeout", "downstream call timed out"), nil
		},
	})

	result, err := client.Execute(context.Background(), "flaky", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsOk() {
		t.Fatalf("expected failure result")
	}
	if result.Err.Kind != "timeout" {
		t.Fatalf("expected timeout kind, got %q", result.Err.Kind)
	}
}

func TestStaticClient_Health(t *testing.T) {
	client := tool.NewStaticClient()
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("expected healthy static client, got %v", err)
	}
}
