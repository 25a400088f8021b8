package models

// ValidationReason explains why a stage transition was refused.
type ValidationReason string

const (
	ReasonUnknownStage      ValidationReason = "unknown_stage"
	ReasonIllegalTransition ValidationReason = "illegal_transition"
	ReasonMissingFields     ValidationReason = "missing_fields"
)

// ValidationResult is returned by the transition check instead of an error so
// that a caller can present a remediation dialog.
type ValidationResult struct {
	IsValid       bool             `json:"isValid"`
	Reason        ValidationReason `json:"reason,omitempty"`
	MissingFields []string         `json:"missingFields"`
	Checklist     []string         `json:"checklist,omitempty"`
}

// StageChangeEvent is published after a stage move has been committed.
type StageChangeEvent struct {
	OpportunityID string  `json:"opportunityId"`
	FromStage     StageID `json:"fromStage"`
	ToStage       StageID `json:"toStage"`
	Actor         string  `json:"actor"`
	AssignedTo    string  `json:"assignedTo"`
	Probability   float64 `json:"probability"`
	WeightedValue float64 `json:"weightedValue"`
	Status        Status  `json:"status"`
}
