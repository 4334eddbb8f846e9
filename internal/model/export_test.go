package model

import (
	"reflect"
	"testing"
	"time"
)

func TestTaskContext_ExportImportRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	original := TaskContext{
		TaskID:   "task_1",
		Task:     "solve two sum",
		TaskType: TaskCoding,
		Actions: []Action{
			{
				ActionID: "act_1",
				Type:     ActionWriteFile,
				Inputs:   map[string]any{"path": "solution.go"},
				Outputs: ActionOutput{
					Kind: OutputFile,
					File: &FileOutput{Path: "solution.go", Content: "package main", FileType: FileCode},
				},
				Success:     true,
				Timestamp:   now,
				Context:     ActionContext{TaskID: "task_1"},
				EvidenceIDs: []string{"ev_1"},
			},
		},
		Evidence: []Evidence{
			{
				EvidenceID: "ev_1",
				Type:       EvidenceFileCreation,
				Content:    "solution.go",
				Confidence: 1.0,
				Source:     "act_1",
				Timestamp:  now,
				Metadata:   map[string]any{"fileType": "code"},
			},
		},
		Files: []FileRef{
			{
				FileID:     "file_1",
				FilePath:   "solution.go",
				FileType:   FileCode,
				Content:    "package main",
				Size:       12,
				CreatedBy:  "act_1",
				CreatedAt:  now,
				ModifiedAt: now,
				Checksum:   "abc123",
				Language:   "go",
				Code: &CodeMetadata{
					Language:   "go",
					Functions:  []string{"main"},
					Complexity: 1,
				},
			},
		},
		Complete:           true,
		CompletionEvidence: []string{"ev_1"},
		Metadata: TaskMetadata{
			Priority:            1,
			EstimatedComplexity: 2,
			Tags:                []string{"coding"},
			Slug:                "solve-two-sum-task-1",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := original.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var restored TaskContext
	if err := restored.Import(data); err != nil {
		t.Fatalf("Import: %v", err)
	}

	if !reflect.DeepEqual(original, restored) {
		t.Fatalf("round trip mismatch:\noriginal: %+v\nrestored: %+v", original, restored)
	}
}

func TestTaskContext_ImportRejectsUnknownFormatVersion(t *testing.T) {
	var ctx TaskContext
	err := ctx.Import([]byte(`{"format_version": 999, "task_id": "task_1"}`))
	if err == nil {
		t.Fatal("expected an error for an unsupported format version")
	}
}

func TestTaskContext_ImportRejectsMalformedJSON(t *testing.T) {
	var ctx TaskContext
	if err := ctx.Import([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
