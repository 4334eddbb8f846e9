// Package memory owns TaskContext lifecycle: creating tasks, appending
// Actions, deriving Evidence deterministically, and answering the
// completion-proof queries Validator and CompletionRules rely on.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentcore.dev/core/common"
	"agentcore.dev/core/common/id"
	"agentcore.dev/core/internal/codedoc"
	"agentcore.dev/core/internal/fileregistry"
	"agentcore.dev/core/internal/model"
)

// synthesisMarkers are filename/content signals that a file is a
// synthesized answer rather than incidental output (§4.6).
var synthesisMarkers = []string{"answer", "summary", "solution", "recommendations"}

// CompletionProof is the derived aggregate Validator and CompletionRules
// consult instead of re-scanning the raw action/evidence log.
type CompletionProof struct {
	HasFileCreation    bool
	HasSynthesis       bool
	HasImplementation  bool
	FileCreationEntries  []model.Evidence
	SynthesisEntries     []model.Evidence
	ImplementationEntries []model.Evidence
	CompletionEntries    []model.Evidence
	CreatedFiles         []model.FileRef
	TotalFiles           int
}

// Manager holds every in-flight TaskContext. One Manager instance is shared
// by a single orchestrator run; it is never shared across processes.
type Manager struct {
	mu    sync.Mutex
	tasks map[string]*model.TaskContext

	files *fileregistry.Registry
	clock func() time.Time
}

// New constructs a Manager. files may be nil (files then live only inside
// each TaskContext). clock defaults to time.Now; tests inject a fixed or
// stepping clock to keep TTL/ordering checks deterministic.
func New(files *fileregistry.Registry, clock func() time.Time) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		tasks: make(map[string]*model.TaskContext),
		files: files,
		clock: clock,
	}
}

// CreateTask starts a new TaskContext and returns its id.
func (m *Manager) CreateTask(task string, taskType model.TaskType) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	taskID := id.NewString("task_")
	now := m.clock()
	slug, err := common.Slugify(task, taskID)
	if err != nil {
		slug = taskID
	}
	m.tasks[taskID] = &model.TaskContext{
		TaskID:    taskID,
		Task:      task,
		TaskType:  taskType,
		Metadata:  model.TaskMetadata{Slug: slug},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return taskID
}

// GetTaskContext returns a deep-enough copy of the task, safe for the
// caller to read without holding the Manager's lock.
func (m *Manager) GetTaskContext(taskID string) (model.TaskContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.tasks[taskID]
	if !ok {
		return model.TaskContext{}, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	return ctx.Clone(), nil
}

// AddAction appends action to taskID's log and derives Evidence from it
// before returning, so a reader observing the task afterward never sees an
// Action without its Evidence (§5 ordering guarantee). The whole append is
// one critical section under the Manager's mutex.
func (m *Manager) AddAction(taskID string, action model.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}

	if action.ActionID == "" {
		action.ActionID = id.NewString("act_")
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = m.clock()
	}

	derived := deriveEvidence(action, m.clock())
	action.EvidenceIDs = make([]string, 0, len(derived))
	for _, ev := range derived {
		action.EvidenceIDs = append(action.EvidenceIDs, ev.EvidenceID)
	}

	ctx.Actions = append(ctx.Actions, action)
	ctx.Evidence = append(ctx.Evidence, derived...)
	ctx.UpdatedAt = m.clock()

	if action.Success && action.Outputs.Kind == model.OutputFile {
		file := m.materializeFile(ctx, action)
		ctx.Files = append(ctx.Files, file)
		if m.files != nil {
			_ = m.files.Add(file, taskID)
		}
	}

	return nil
}

// materializeFile builds a FileRef from a write_file Action's output,
// running CodeDocumentation.Analyze when the file looks like code.
func (m *Manager) materializeFile(ctx *model.TaskContext, action model.Action) model.FileRef {
	out := action.Outputs.File
	now := m.clock()

	file := model.FileRef{
		FileID:     id.NewString("file_"),
		FilePath:   out.Path,
		FileType:   out.FileType,
		Content:    out.Content,
		Size:       len(out.Content),
		CreatedBy:  action.ActionID,
		CreatedAt:  now,
		ModifiedAt: now,
		Checksum:   fileregistry.Checksum(out.Content),
	}

	lang := codedoc.InferLanguage(out.Path, out.Content)
	if lang != "" && (out.FileType == model.FileCode || codedoc.HasCodeConstruct(out.Content, lang)) {
		meta := codedoc.Analyze(file.FileID, out.Content, lang)
		file.Language = lang
		file.Code = &meta
	}

	return file
}

// SetResult records a synthesize_answer Action for taskID, which yields a
// synthesis Evidence; when filePath is non-empty the Action's output is an
// output-typed file at that path instead of plain text.
func (m *Manager) SetResult(taskID, result, resultType, filePath string) error {
	action := model.Action{
		Type:    model.ActionSynthesizeAnswer,
		Success: true,
		Context: model.ActionContext{TaskID: taskID},
	}
	if filePath != "" {
		action.Outputs = model.ActionOutput{
			Kind: model.OutputFile,
			File: &model.FileOutput{Path: filePath, Content: result, FileType: model.FileOutput},
		}
	} else {
		action.Outputs = model.ActionOutput{Kind: model.OutputText, Text: result}
	}
	_ = resultType
	return m.AddAction(taskID, action)
}

// QueryMemories filters taskID's evidence by types, most recent first,
// capped at maxResults (0 means unlimited).
func (m *Manager) QueryMemories(taskID string, types []model.EvidenceType, maxResults int) ([]model.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}

	wanted := make(map[model.EvidenceType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}

	var out []model.Evidence
	for i := len(ctx.Evidence) - 1; i >= 0; i-- {
		ev := ctx.Evidence[i]
		if len(wanted) > 0 {
			if _, ok := wanted[ev.Type]; !ok {
				continue
			}
		}
		out = append(out, ev)
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
	}
	return out, nil
}

// GetTaskCompletionProof returns the derived aggregate used by Validator
// and CompletionRules (§4.6).
func (m *Manager) GetTaskCompletionProof(taskID string) (CompletionProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.tasks[taskID]
	if !ok {
		return CompletionProof{}, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	return buildCompletionProof(ctx), nil
}

// MarkComplete sets Complete true and records the evidence ids that
// justified it. A no-op once Complete is already true — §8.3 forbids
// reverting, and re-deriving the same reason should not duplicate it.
func (m *Manager) MarkComplete(taskID string, evidenceIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	if ctx.Complete {
		return nil
	}
	ctx.Complete = true
	ctx.CompletionEvidence = append([]string(nil), evidenceIDs...)
	ctx.UpdatedAt = m.clock()
	return nil
}

// ExportTask serializes taskID's TaskContext for persistence or transfer
// (§6). The caller gets back exactly what TaskContext.Export produces; the
// Manager keeps no record of having exported it.
func (m *Manager) ExportTask(taskID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	return ctx.Export()
}

// ImportTask loads a TaskContext previously produced by ExportTask (or
// TaskContext.Export) back into the Manager, keyed by its own TaskID, and
// returns that id. An existing task with the same id is overwritten.
func (m *Manager) ImportTask(data []byte) (string, error) {
	var ctx model.TaskContext
	if err := ctx.Import(data); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[ctx.TaskID] = &ctx
	return ctx.TaskID, nil
}

// EvictOlderThan drops every TaskContext whose CreatedAt is before cutoff.
// Called explicitly by the orchestrator's caller between runs — §5
// forbids a hidden background janitor goroutine.
func (m *Manager) EvictOlderThan(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for taskID, ctx := range m.tasks {
		if ctx.CreatedAt.Before(cutoff) {
			delete(m.tasks, taskID)
			evicted++
		}
	}
	return evicted
}

func buildCompletionProof(ctx *model.TaskContext) CompletionProof {
	proof := CompletionProof{CreatedFiles: ctx.Files, TotalFiles: len(ctx.Files)}

	for _, ev := range ctx.Evidence {
		switch ev.Type {
		case model.EvidenceFileCreation:
			proof.HasFileCreation = true
			proof.FileCreationEntries = append(proof.FileCreationEntries, ev)
		case model.EvidenceSynthesis:
			proof.HasSynthesis = true
			proof.SynthesisEntries = append(proof.SynthesisEntries, ev)
		case model.EvidenceCodeImplementation:
			proof.HasImplementation = true
			proof.ImplementationEntries = append(proof.ImplementationEntries, ev)
		}
	}

	for _, file := range ctx.Files {
		if looksLikeSynthesis(file) {
			proof.CompletionEntries = append(proof.CompletionEntries, model.Evidence{
				Type:    model.EvidenceSynthesis,
				Content: file.FilePath,
				Source:  file.CreatedBy,
			})
		}
	}

	return proof
}

// looksLikeSynthesis applies the filename/extension heuristic from §4.6 to
// catch synthesis files whose producing Action wasn't itself
// synthesize_answer (e.g. a write_file that happens to write the answer).
func looksLikeSynthesis(file model.FileRef) bool {
	lower := strings.ToLower(file.FilePath)
	if strings.HasSuffix(lower, ".md") {
		return true
	}
	for _, marker := range synthesisMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// evidenceID derives a stable id from the producing action, the evidence
// type, and a per-branch sequence number, so re-deriving evidence for the
// same Action yields byte-identical EvidenceIDs (§8.7) rather than a fresh
// Snowflake value every call.
func evidenceID(actionID string, evType model.EvidenceType, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", actionID, evType, seq)))
	return "ev_" + hex.EncodeToString(sum[:16])
}

// deriveEvidence implements the deterministic rules of §4.6. Re-running it
// on the same Action always yields an equal Evidence slice (§8.7) — it
// reads only the Action's own fields, never the containing TaskContext, and
// every EvidenceID is a pure function of (ActionID, Type, branch sequence).
func deriveEvidence(action model.Action, now time.Time) []model.Evidence {
	var out []model.Evidence

	if action.Type == model.ActionWriteFile && action.Success && action.Outputs.Kind == model.OutputFile {
		out = append(out, model.Evidence{
			EvidenceID: evidenceID(action.ActionID, model.EvidenceFileCreation, 0),
			Type:       model.EvidenceFileCreation,
			Content:    action.Outputs.File.Path,
			Confidence: 1.0,
			Source:     action.ActionID,
			Timestamp:  now,
			Metadata: map[string]any{
				"fileType": string(action.Outputs.File.FileType),
				"fileSize": len(action.Outputs.File.Content),
			},
		})
		if isSynthesisFile(action.Outputs.File.Path, action.Outputs.File.Content) {
			out = append(out, model.Evidence{
				EvidenceID: evidenceID(action.ActionID, model.EvidenceSynthesis, 0),
				Type:       model.EvidenceSynthesis,
				Content:    action.Outputs.File.Path,
				Confidence: 0.9,
				Source:     action.ActionID,
				Timestamp:  now,
			})
		}
	}

	if action.Outputs.Kind == model.OutputCode {
		out = append(out, model.Evidence{
			EvidenceID: evidenceID(action.ActionID, model.EvidenceCodeImplementation, 0),
			Type:       model.EvidenceCodeImplementation,
			Content:    fmt.Sprintf("%s (%d funcs, complexity %d)", action.Outputs.Code.Language, action.Outputs.Code.FunctionCount, action.Outputs.Code.Complexity),
			Confidence: 1.0,
			Source:     action.ActionID,
			Timestamp:  now,
			Metadata: map[string]any{
				"language":      action.Outputs.Code.Language,
				"functionCount": action.Outputs.Code.FunctionCount,
				"complexity":    action.Outputs.Code.Complexity,
			},
		})
	}

	if action.Outputs.Kind == model.OutputDocumentation {
		out = append(out, model.Evidence{
			EvidenceID: evidenceID(action.ActionID, model.EvidenceDocumentation, 0),
			Type:       model.EvidenceDocumentation,
			Confidence: 1.0,
			Source:     action.ActionID,
			Timestamp:  now,
		})
	}

	if action.Type == model.ActionSynthesizeAnswer {
		out = append(out, model.Evidence{
			EvidenceID: evidenceID(action.ActionID, model.EvidenceSynthesis, 1),
			Type:       model.EvidenceSynthesis,
			Content:    action.Outputs.Text,
			Confidence: 1.0,
			Source:     action.ActionID,
			Timestamp:  now,
		})
	}

	if action.Success {
		out = append(out, model.Evidence{
			EvidenceID: evidenceID(action.ActionID, model.EvidenceExecution, 0),
			Type:       model.EvidenceExecution,
			Confidence: 1.0,
			Source:     action.ActionID,
			Timestamp:  now,
		})
	}

	return out
}

func isSynthesisFile(path, content string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".md") {
		return true
	}
	for _, marker := range synthesisMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return len(content) > 0 && strings.Contains(strings.ToLower(content[:min(len(content), 200)]), "summary")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
