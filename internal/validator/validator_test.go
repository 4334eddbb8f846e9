package validator_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agentcore.dev/core/common/id"
	"agentcore.dev/core/internal/llmclient"
	"agentcore.dev/core/internal/memory"
	"agentcore.dev/core/internal/model"
	"agentcore.dev/core/internal/validator"
)

func init() {
	_ = id.Init(3)
}

type fakeLLM struct {
	reply json.RawMessage
}

func (f *fakeLLM) Invoke(ctx context.Context, messages []llmclient.Message) (string, error) {
	return "", nil
}

func (f *fakeLLM) Structured(ctx context.Context, req llmclient.StructuredRequest) (json.RawMessage, error) {
	return f.reply, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestValidate_AcceptsConfidentCompletion(t *testing.T) {
	mgr := memory.New(nil, fixedClock(time.Now()))
	taskID := mgr.CreateTask("summarize the quarterly report", model.TaskGeneral)

	llm := &fakeLLM{reply: json.RawMessage(`{"completed":true,"confidence":0.95,"rationale":"summary produced"}`)}
	v := validator.New(llm, mgr)

	result, err := v.Validate(context.Background(), taskID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Completed {
		t.Fatalf("expected acceptance, got issues=%v", result.Issues)
	}
}

func TestValidate_RejectsBelowConfidenceFloor(t *testing.T) {
	mgr := memory.New(nil, fixedClock(time.Now()))
	taskID := mgr.CreateTask("summarize the quarterly report", model.TaskGeneral)

	llm := &fakeLLM{reply: json.RawMessage(`{"completed":true,"confidence":0.4,"rationale":"maybe done"}`)}
	v := validator.New(llm, mgr)

	result, err := v.Validate(context.Background(), taskID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Completed {
		t.Fatalf("expected rejection below confidence floor")
	}
	if !containsIssue(result.Issues, "confidence_below_threshold") {
		t.Errorf("expected confidence_below_threshold issue, got %v", result.Issues)
	}
}

func TestValidate_RejectsDevOpsAnswerMissingSections(t *testing.T) {
	mgr := memory.New(nil, fixedClock(time.Now()))
	taskID := mgr.CreateTask("deploy the new service to production", model.TaskGeneral)

	llm := &fakeLLM{reply: json.RawMessage(
		`{"completed":true,"confidence":0.9,"rationale":"done","drafted_answer":"just run the deploy script"}`,
	)}
	v := validator.New(llm, mgr)

	result, err := v.Validate(context.Background(), taskID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Completed {
		t.Fatalf("expected rejection for missing operational sections")
	}
	if !containsIssue(result.Issues, "missing_operational_sections") {
		t.Errorf("expected missing_operational_sections issue, got %v", result.Issues)
	}
}

func TestValidate_AcceptsDevOpsAnswerWithAllSections(t *testing.T) {
	mgr := memory.New(nil, fixedClock(time.Now()))
	taskID := mgr.CreateTask("deploy the new service to production", model.TaskGeneral)

	answer := "Install the package, configure the env vars, verify health checks pass, and document rollback steps."
	llm := &fakeLLM{reply: json.RawMessage(
		`{"completed":true,"confidence":0.9,"rationale":"done","drafted_answer":"` + answer + `"}`,
	)}
	v := validator.New(llm, mgr)

	result, err := v.Validate(context.Background(), taskID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Completed {
		t.Fatalf("expected acceptance, got issues=%v", result.Issues)
	}
}

func TestValidate_ParseFailureDowngradesGracefully(t *testing.T) {
	mgr := memory.New(nil, fixedClock(time.Now()))
	taskID := mgr.CreateTask("anything", model.TaskGeneral)

	llm := &fakeLLM{reply: json.RawMessage(`not json at all`)}
	v := validator.New(llm, mgr)

	result, err := v.Validate(context.Background(), taskID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Completed || result.Confidence != 0 {
		t.Fatalf("expected downgraded result, got %+v", result)
	}
	if !containsIssue(result.Issues, "validator_parse_failed") {
		t.Errorf("expected validator_parse_failed issue, got %v", result.Issues)
	}
}

func containsIssue(issues []string, want string) bool {
	for _, i := range issues {
		if i == want {
			return true
		}
	}
	return false
}
