package memory

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"agentcore.dev/core/common/id"
	"agentcore.dev/core/internal/model"
)

func init() {
	if err := id.Init(1); err != nil {
		panic(err)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestManager_AddActionDerivesFileCreationAndExecution(t *testing.T) {
	m := New(nil, fixedClock(time.Unix(0, 0)))
	taskID := m.CreateTask("write a file", model.TaskGeneral)

	err := m.AddAction(taskID, model.Action{
		Type:    model.ActionWriteFile,
		Success: true,
		Outputs: model.ActionOutput{
			Kind: model.OutputFile,
			File: &model.FileOutput{Path: "answer.md", Content: "the answer is 4", FileType: model.FileOutput},
		},
	})
	if err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	ctx, err := m.GetTaskContext(taskID)
	if err != nil {
		t.Fatalf("GetTaskContext: %v", err)
	}
	if len(ctx.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(ctx.Actions))
	}

	proof, err := m.GetTaskCompletionProof(taskID)
	if err != nil {
		t.Fatalf("GetTaskCompletionProof: %v", err)
	}
	if !proof.HasFileCreation {
		t.Error("expected HasFileCreation true")
	}
	if !proof.HasSynthesis {
		t.Error("expected HasSynthesis true for a .md file")
	}
	if proof.TotalFiles != 1 {
		t.Errorf("expected 1 file, got %d", proof.TotalFiles)
	}

	execEvidence, err := m.QueryMemories(taskID, []model.EvidenceType{model.EvidenceExecution}, 0)
	if err != nil {
		t.Fatalf("QueryMemories: %v", err)
	}
	if len(execEvidence) != 1 {
		t.Errorf("expected 1 execution evidence, got %d", len(execEvidence))
	}
}

func TestManager_EvidenceImmediatelyFollowsItsAction(t *testing.T) {
	m := New(nil, fixedClock(time.Unix(0, 0)))
	taskID := m.CreateTask("task", model.TaskGeneral)

	m.AddAction(taskID, model.Action{Type: model.ActionWriteFile, Success: true, Outputs: model.ActionOutput{
		Kind: model.OutputFile, File: &model.FileOutput{Path: "a.txt", Content: "x"},
	}})
	m.AddAction(taskID, model.Action{Type: model.ActionSynthesizeAnswer, Success: true, Outputs: model.ActionOutput{
		Kind: model.OutputText, Text: "done",
	}})

	ctx, _ := m.GetTaskContext(taskID)
	pos := 0
	for _, action := range ctx.Actions {
		for _, evID := range action.EvidenceIDs {
			if pos >= len(ctx.Evidence) || ctx.Evidence[pos].EvidenceID != evID {
				t.Errorf("evidence %s of action %s is not at position %d of the evidence log", evID, action.ActionID, pos)
			}
			pos++
			found := false
			for _, ev := range ctx.Evidence {
				if ev.EvidenceID == evID {
					found = true
					if ev.Source != action.ActionID {
						t.Errorf("evidence %s source = %s, want %s", evID, ev.Source, action.ActionID)
					}
				}
			}
			if !found {
				t.Errorf("evidence id %s referenced by action but missing from context", evID)
			}
		}
	}
}

func TestManager_CompleteNeverReverts(t *testing.T) {
	m := New(nil, fixedClock(time.Unix(0, 0)))
	taskID := m.CreateTask("task", model.TaskGeneral)

	if err := m.MarkComplete(taskID, []string{"ev_1"}); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if err := m.MarkComplete(taskID, nil); err != nil {
		t.Fatalf("MarkComplete (second call): %v", err)
	}

	ctx, _ := m.GetTaskContext(taskID)
	if !ctx.Complete {
		t.Fatal("expected Complete true")
	}
	if len(ctx.CompletionEvidence) != 1 || ctx.CompletionEvidence[0] != "ev_1" {
		t.Errorf("expected original completion evidence preserved, got %v", ctx.CompletionEvidence)
	}
}

func TestManager_DeriveEvidenceIsDeterministic(t *testing.T) {
	action := model.Action{
		ActionID: "act_1",
		Type:     model.ActionWriteFile,
		Success:  true,
		Outputs: model.ActionOutput{
			Kind: model.OutputFile,
			File: &model.FileOutput{Path: "summary.md", Content: "x"},
		},
	}
	now := time.Unix(100, 0)

	first := deriveEvidence(action, now)
	second := deriveEvidence(action, now)

	if len(first) != len(second) {
		t.Fatalf("expected equal evidence counts, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i], second[i]) {
			t.Errorf("evidence[%d] differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if first[0].EvidenceID == "" {
		t.Fatal("expected a non-empty EvidenceID")
	}
}

func TestManager_ExportImportRoundTrip(t *testing.T) {
	m := New(nil, fixedClock(time.Unix(0, 0)))
	taskID := m.CreateTask("task", model.TaskGeneral)
	m.AddAction(taskID, model.Action{Type: model.ActionWriteFile, Success: true, Outputs: model.ActionOutput{
		Kind: model.OutputFile, File: &model.FileOutput{Path: "a.txt", Content: "x"},
	}})

	data, err := m.ExportTask(taskID)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}

	other := New(nil, fixedClock(time.Unix(0, 0)))
	importedID, err := other.ImportTask(data)
	if err != nil {
		t.Fatalf("ImportTask: %v", err)
	}
	if importedID != taskID {
		t.Fatalf("imported task id = %s, want %s", importedID, taskID)
	}

	want, _ := m.GetTaskContext(taskID)
	got, err := other.GetTaskContext(importedID)
	if err != nil {
		t.Fatalf("GetTaskContext after import: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("imported context differs:\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestManager_EvictOlderThan(t *testing.T) {
	old := time.Unix(0, 0)
	m := New(nil, fixedClock(old))
	staleID := m.CreateTask("stale", model.TaskGeneral)

	m.clock = fixedClock(old.Add(2 * time.Hour))
	freshID := m.CreateTask("fresh", model.TaskGeneral)

	evicted := m.EvictOlderThan(old.Add(time.Hour))
	if evicted != 1 {
		t.Fatalf("expected 1 evicted, got %d", evicted)
	}
	if _, err := m.GetTaskContext(staleID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected stale task evicted, got err=%v", err)
	}
	if _, err := m.GetTaskContext(freshID); err != nil {
		t.Errorf("expected fresh task to survive, got err=%v", err)
	}
}
