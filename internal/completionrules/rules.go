// Package completionrules holds the pure, per-task-type predicates that
// decide whether a TaskContext has produced enough evidence to count as
// done. They never touch memory.Manager directly — they take the
// CompletionProof memory.Manager already computed, so the same check can
// run from the orchestrator's own loop and from a Validator prompt without
// re-deriving anything.
package completionrules

import (
	"strings"

	"agentcore.dev/core/internal/codedoc"
	"agentcore.dev/core/internal/memory"
	"agentcore.dev/core/internal/model"
)

const (
	minAnswerLength  = 20
	minResearchLength = 100
)

var placeholderMarkers = []string{"placeholder", "todo"}

var researchSectionMarkers = []string{"summary", "findings", "conclusion"}

// Check runs the completion predicate for taskType against proof.
func Check(taskType model.TaskType, proof memory.CompletionProof) bool {
	switch taskType {
	case model.TaskSimpleQuestion:
		return checkSimpleQuestion(proof)
	case model.TaskCoding:
		return checkCodingTask(proof)
	case model.TaskResearch:
		return checkResearchTask(proof)
	case model.TaskGeneral:
		return checkGeneralTask(proof)
	default:
		return false
	}
}

func checkSimpleQuestion(proof memory.CompletionProof) bool {
	if !proof.HasFileCreation {
		return false
	}
	if proof.HasSynthesis {
		return true
	}
	for _, f := range proof.CreatedFiles {
		if isDirectAnswer(f) {
			return true
		}
	}
	return false
}

func isDirectAnswer(f model.FileRef) bool {
	if len(f.Content) <= minAnswerLength {
		return false
	}
	lower := strings.ToLower(f.Content)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

func checkCodingTask(proof memory.CompletionProof) bool {
	if !proof.HasImplementation {
		return false
	}
	for _, f := range proof.CreatedFiles {
		if f.FileType != model.FileCode {
			continue
		}
		if !codedoc.HasCodeConstruct(f.Content, f.Language) {
			continue
		}
		if !hasSufficientComplexity(f) {
			continue
		}
		if hasDocumentation(f, proof) {
			return true
		}
	}
	return false
}

func hasSufficientComplexity(f model.FileRef) bool {
	if f.Code == nil {
		return false
	}
	return f.Code.Complexity > 1 || len(f.Code.Functions) >= 1 || len(f.Code.Classes) >= 1
}

func hasDocumentation(f model.FileRef, proof memory.CompletionProof) bool {
	if strings.Contains(f.Content, "\"\"\"") || strings.Contains(f.Content, "/**") || strings.Contains(f.Content, "//") || strings.Contains(f.Content, "#") {
		return true
	}
	for _, other := range proof.CreatedFiles {
		if other.FileType == model.FileDocumentation {
			return true
		}
	}
	return false
}

func checkResearchTask(proof memory.CompletionProof) bool {
	hasStructuredDoc := false
	hasGathering := proof.HasSynthesis
	for _, f := range proof.CreatedFiles {
		if f.FileType != model.FileDocumentation {
			continue
		}
		if len(f.Content) < minResearchLength {
			continue
		}
		if hasResearchStructure(f.Content) {
			hasStructuredDoc = true
		}
	}
	return hasStructuredDoc && hasGathering
}

func hasResearchStructure(content string) bool {
	lower := strings.ToLower(content)
	if !strings.Contains(content, "#") {
		return false
	}
	for _, marker := range researchSectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func checkGeneralTask(proof memory.CompletionProof) bool {
	if !proof.HasFileCreation {
		return false
	}
	for _, f := range proof.CreatedFiles {
		if f.FileType == model.FileOutput && f.Content != "" {
			return true
		}
	}
	return false
}

// RequiredEvidence lists the evidence types a task of taskType must
// eventually satisfy, for diagnostics and validator-prompt construction.
func RequiredEvidence(taskType model.TaskType) []model.EvidenceType {
	switch taskType {
	case model.TaskSimpleQuestion:
		return []model.EvidenceType{model.EvidenceFileCreation, model.EvidenceSynthesis}
	case model.TaskCoding:
		return []model.EvidenceType{model.EvidenceCodeImplementation, model.EvidenceDocumentation}
	case model.TaskResearch:
		return []model.EvidenceType{model.EvidenceDocumentation, model.EvidenceSynthesis}
	case model.TaskGeneral:
		return []model.EvidenceType{model.EvidenceFileCreation, model.EvidenceExecution}
	default:
		return nil
	}
}

// Criteria returns a human-readable checklist for taskType, used in
// diagnostics shown to a host CLI/UI on termination.
func Criteria(taskType model.TaskType) []string {
	switch taskType {
	case model.TaskSimpleQuestion:
		return []string{
			"a file was created",
			"a synthesis evidence exists, or the file is a direct non-placeholder answer longer than 20 characters",
		}
	case model.TaskCoding:
		return []string{
			"code_implementation evidence exists",
			"at least one code file contains a function or class declaration",
			"complexity > 1 or at least one function/class",
			"documentation exists (inline or separate)",
		}
	case model.TaskResearch:
		return []string{
			"a documentation file of at least 100 characters with section headers exists",
			"a synthesis evidence exists (search and file-read actions are not counted as information gathering)",
		}
	case model.TaskGeneral:
		return []string{
			"a file was created",
			"an execution evidence exists",
			"a valid non-empty output file exists",
		}
	default:
		return nil
	}
}
