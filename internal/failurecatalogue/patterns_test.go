package failurecatalogue

import (
	"strings"
	"testing"

	"agentcore.dev/core/internal/model"
)

func plan(inputs map[string]any, tool string, score float64) model.PlanNode {
	return model.PlanNode{
		ID:     "plan_1",
		Tool:   tool,
		Inputs: inputs,
		Score:  score,
	}
}

func TestApply_PathTraversalRewritesToWorkspace(t *testing.T) {
	plans := []model.PlanNode{
		plan(map[string]any{"path": "/etc/passwd"}, "write_file", 0.9),
	}

	out := Apply(plans, "write a config file")

	if len(out) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(out))
	}
	got, _ := out[0].Inputs["path"].(string)
	if strings.HasPrefix(got, "/etc/") {
		t.Errorf("expected path rewritten out of /etc/, got %q", got)
	}
	if !strings.Contains(out[0].Reasoning, "Adapted") {
		t.Errorf("expected reasoning to note the adaptation, got %q", out[0].Reasoning)
	}
}

func TestApply_PrivilegedServiceControlSubstituted(t *testing.T) {
	plans := []model.PlanNode{
		plan(map[string]any{"command": "sudo systemctl start httpd"}, "remote_exec", 0.9),
	}

	out := Apply(plans, "deploy a static page")

	if len(out) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(out))
	}
	got, _ := out[0].Inputs["command"].(string)
	if strings.Contains(got, "systemctl") || strings.Contains(got, "sudo") {
		t.Errorf("expected privileged command substituted, got %q", got)
	}
}

func TestApply_DestructiveFSOperationIsHardBlocked(t *testing.T) {
	plans := []model.PlanNode{
		plan(map[string]any{"command": "rm -rf /tmp/workdir"}, "shell_exec", 0.95),
		plan(map[string]any{"path": "./answer.md"}, "write_file", 0.6),
	}

	out := Apply(plans, "clean up temp files")

	if len(out) != 1 {
		t.Fatalf("expected the destructive plan to be dropped, got %d plans", len(out))
	}
	if out[0].ID != "plan_1" {
		t.Fatalf("unexpected surviving plan: %+v", out[0])
	}
	got, _ := out[0].Inputs["path"].(string)
	if got != "./answer.md" {
		t.Errorf("expected the benign plan untouched, got %q", got)
	}
}

func TestApply_NetworkEgressForbiddenAdaptsToLocal(t *testing.T) {
	plans := []model.PlanNode{
		plan(map[string]any{"host": "example.com"}, "remote_exec", 0.8),
	}

	out := Apply(plans, "run this task offline, no network access")

	if len(out) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(out))
	}
	if out[0].Tool != "local_exec" {
		t.Errorf("expected tool adapted to local_exec, got %q", out[0].Tool)
	}
}

func TestApply_NoMatchLeavesPlanUnchanged(t *testing.T) {
	original := plan(map[string]any{"path": "./notes.md"}, "write_file", 0.5)
	plans := []model.PlanNode{original}

	out := Apply(plans, "write some notes")

	if len(out) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(out))
	}
	if out[0].Reasoning != original.Reasoning {
		t.Errorf("expected reasoning untouched, got %q", out[0].Reasoning)
	}
	if out[0].Score != original.Score {
		t.Errorf("expected score untouched, got %v", out[0].Score)
	}
}

func TestApply_MultiplePatternsCompoundDemerit(t *testing.T) {
	// A plan that both writes into /etc (adaptable) and is flagged destructive
	// (hard-blocked) should end up dropped: the adaptation for the first
	// pattern does not save it from the second.
	plans := []model.PlanNode{
		plan(map[string]any{
			"path":    "/etc/app.conf",
			"command": "rm -rf /etc/app.conf",
		}, "shell_exec", 0.9),
	}

	out := Apply(plans, "reset configuration")

	if len(out) != 0 {
		t.Fatalf("expected plan to be hard-blocked, got %+v", out)
	}
}
