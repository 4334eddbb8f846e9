package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"agentcore.dev/core/common/id"
	"agentcore.dev/core/common/logger"
	"agentcore.dev/core/common/otel"
	"agentcore.dev/core/core/config"
	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/memory"
	"agentcore.dev/core/internal/model"
	"agentcore.dev/core/internal/orchestrator"
	"agentcore.dev/core/internal/planner"
	"agentcore.dev/core/internal/tool"
	"agentcore.dev/core/internal/validator"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg)
	slog.Info("agentcore starting", "config", cfg.String())

	telemetry, err := otel.Setup("agentcore")
	if err != nil {
		slog.Error("failed to initialize otel", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownErr := telemetry.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("otel shutdown error", "error", shutdownErr)
		}
	}()

	if err := id.Init(1); err != nil {
		slog.Error("failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		slog.Error("failed to initialize llm client", "error", err)
		os.Exit(1)
	}

	tools, err := buildToolClient(cfg.ToolBridgeURL)
	if err != nil {
		slog.Error("failed to initialize tool client", "error", err)
		os.Exit(1)
	}

	mgr := memory.New(nil, nil)
	p := planner.New(llm)
	v := validator.New(llm, mgr, validator.WithConfidenceFloor(cfg.Search.ValidatorConf))
	orch := orchestrator.New(tools, llm, p, v, mgr, cfg.Search, nil)

	task := os.Getenv("AGENTCORE_TASK")
	if task == "" {
		task = "Summarize what this repository does in a short paragraph."
	}

	result, err := orch.Run(context.Background(), task, model.TaskSimpleQuestion)
	if err != nil {
		slog.Error("orchestrator run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("orchestrator run finished",
		"status", result.Status,
		"task_id", result.TaskID,
		"iterations", result.Iterations)
	fmt.Println(result.LastEvidenceSummary)
}

func buildLLM(cfg config.LLMConfig) (llmclient.LLM, error) {
	return llmclient.New(llmclient.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
	})
}

// buildToolClient wires the HTTP bridge when a bridge URL is configured,
// and otherwise falls back to a small built-in set of tools so the demo
// runs end to end with no external process required.
func buildToolClient(bridgeURL string) (tool.Client, error) {
	if bridgeURL != "" {
		return tool.NewBridge(tool.BridgeConfig{BaseURL: bridgeURL})
	}

	return tool.NewStaticClient(
		tool.StaticEntry{
			Spec: tool.Spec{
				Name:        "write_file",
				Description: "Write a file to the task workspace",
				Category:    "fs",
			},
			Handler: func(ctx context.Context, params map[string]any) (tool.Result, error) {
				path, _ := params["path"].(string)
				content, _ := params["content"].(string)
				if path == "" {
					return tool.Err("invalid_params", "path is required"), nil
				}
				return tool.Ok(map[string]any{
					"path":      path,
					"content":   content,
					"file_type": "documentation",
				}, nil), nil
			},
		},
	), nil
}
