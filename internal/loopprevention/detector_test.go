package loopprevention

import (
	"testing"
	"time"

	"agentcore.dev/core/internal/model"
)

func actionAt(t time.Time, actionType model.ActionType, inputs map[string]any) model.Action {
	return model.Action{Type: actionType, Inputs: inputs, Timestamp: t, Success: false}
}

func TestDetect_MaxTotalActions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTotalActions = 3

	ctx := model.TaskContext{}
	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		ctx.Actions = append(ctx.Actions, actionAt(now, model.ActionType("tool"), nil))
	}

	got := Detect(ctx, now, cfg)
	if !got.Looped || got.Reason != "max_total_actions" {
		t.Errorf("Detect() = %+v, want looped max_total_actions", got)
	}
}

func TestDetect_DuplicateActions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDuplicateActions = 3

	now := time.Unix(0, 0)
	ctx := model.TaskContext{}
	for i := 0; i < 3; i++ {
		ctx.Actions = append(ctx.Actions, actionAt(now, model.ActionType("run_tests"), map[string]any{"path": "a.py"}))
	}

	got := Detect(ctx, now, cfg)
	if !got.Looped {
		t.Fatalf("expected loop detected for duplicate actions")
	}
}

func TestDetect_ValidationActions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxValidationActions = 2

	now := time.Unix(0, 0)
	ctx := model.TaskContext{}
	ctx.Actions = append(ctx.Actions,
		actionAt(now, model.ActionValidate, nil),
		actionAt(now, model.ActionValidate, nil),
	)

	got := Detect(ctx, now, cfg)
	if !got.Looped || got.Reason != "validation_actions" {
		t.Errorf("Detect() = %+v, want validation_actions", got)
	}
}

func TestDetect_NoNewActionsForLong(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxActionGap = 5 * time.Minute

	last := time.Unix(0, 0)
	ctx := model.TaskContext{Actions: []model.Action{actionAt(last, model.ActionType("t"), nil)}}

	now := last.Add(10 * time.Minute)
	got := Detect(ctx, now, cfg)
	if !got.Looped || got.Reason != "no_new_actions" {
		t.Errorf("Detect() = %+v, want no_new_actions", got)
	}
}

func TestDetect_RepeatedPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepeatedPatternLen = 3
	cfg.RepeatedPatternCount = 3
	cfg.MaxDuplicateActions = 100 // isolate the pattern check

	now := time.Unix(0, 0)
	ctx := model.TaskContext{}
	pattern := []model.ActionType{"a", "b", "c"}
	for i := 0; i < 3; i++ {
		for _, p := range pattern {
			ctx.Actions = append(ctx.Actions, actionAt(now, p, map[string]any{"i": i}))
		}
	}

	got := Detect(ctx, now, cfg)
	if !got.Looped || got.Reason != "repeated_action_pattern" {
		t.Errorf("Detect() = %+v, want repeated_action_pattern", got)
	}
}

func TestDetect_CircularFSDependency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDuplicateActions = 100
	now := time.Unix(0, 0)

	write := func() model.Action {
		return model.Action{
			Type:      model.ActionWriteFile,
			Timestamp: now,
			Outputs:   model.ActionOutput{Kind: model.OutputFile, File: &model.FileOutput{Path: "out.txt"}},
		}
	}
	read := func() model.Action {
		return model.Action{Type: model.ActionExtractData, Timestamp: now, Inputs: map[string]any{"path": "out.txt"}}
	}

	ctx := model.TaskContext{Actions: []model.Action{write(), read(), write()}}

	got := Detect(ctx, now, cfg)
	if !got.Looped || got.Reason != "circular_fs_dependency" {
		t.Errorf("Detect() = %+v, want circular_fs_dependency", got)
	}
}

func TestDetect_NoLoopForHealthyProgress(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1000, 0)

	ctx := model.TaskContext{
		Actions: []model.Action{
			actionAt(now.Add(-30*time.Second), model.ActionType("search"), map[string]any{"q": "1"}),
			actionAt(now.Add(-10*time.Second), model.ActionWriteFile, map[string]any{"path": "answer.md"}),
		},
		Evidence: []model.Evidence{
			{Type: model.EvidenceFileCreation, Timestamp: now.Add(-10 * time.Second)},
		},
	}

	got := Detect(ctx, now, cfg)
	if got.Looped {
		t.Errorf("expected no loop detected, got reason %q", got.Reason)
	}
}
