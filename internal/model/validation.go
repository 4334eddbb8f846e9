package model

import "time"

// ValidationResult is the Validator's verdict on whether a task is
// complete. Confidence gates acceptance; see CompletionRules/Validator
// acceptance policy in internal/validator.
type ValidationResult struct {
	Completed            bool
	Confidence            float64 // ∈[0,1]
	Issues                []string
	SuggestedNextActions  []ActionType
	EvidenceNeeded        []EvidenceType
	Rationale             string
	Iteration             int
	Timestamp             time.Time
}
