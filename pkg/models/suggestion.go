package models

import "time"

// MergeSuggestionStatus is the lifecycle state of a merge suggestion.
type MergeSuggestionStatus string

const (
	// MergeSuggestionStatusPending awaits human review.
	MergeSuggestionStatusPending MergeSuggestionStatus = "pending"
	// MergeSuggestionStatusAutoApplied was executed without review.
	MergeSuggestionStatusAutoApplied MergeSuggestionStatus = "auto_applied"
	// MergeSuggestionStatusAccepted was approved by a reviewer.
	MergeSuggestionStatusAccepted MergeSuggestionStatus = "accepted"
	// MergeSuggestionStatusRejected was declined by a reviewer.
	MergeSuggestionStatusRejected MergeSuggestionStatus = "rejected"
)

// AppliedBySystem marks suggestions applied by the auto-merge path.
const AppliedBySystem = "system_auto"

// MergeSuggestion records a proposed (or executed) merge of two entities.
//
// Invariant: status auto_applied implies applied_at and applied_by are set
// and confidence is at or above the auto-apply threshold. auto_applied may
// transition back to pending only as rollback for a failed merge execution.
type MergeSuggestion struct {
	ID           string                `json:"id" db:"id"`
	UserID       string                `json:"user_id" db:"user_id"`
	Entity1Type  string                `json:"entity1_type" db:"entity1_type"`
	Entity1Value string                `json:"entity1_value" db:"entity1_value"`
	Entity2Type  string                `json:"entity2_type" db:"entity2_type"`
	Entity2Value string                `json:"entity2_value" db:"entity2_value"`
	Confidence   float64               `json:"confidence" db:"confidence"`
	MatchReason  string                `json:"match_reason" db:"match_reason"`
	MatchFactors string                `json:"match_factors,omitempty" db:"match_factors"`
	Status       MergeSuggestionStatus `json:"status" db:"status"`
	AppliedAt    *time.Time            `json:"applied_at,omitempty" db:"applied_at"`
	AppliedBy    *string               `json:"applied_by,omitempty" db:"applied_by"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at" db:"updated_at"`
}

// CreateMergeSuggestionRequest is the input to the merge decision service.
type CreateMergeSuggestionRequest struct {
	UserID       string        `json:"user_id" validate:"required"`
	Entity1Type  string        `json:"entity1_type" validate:"required"`
	Entity1Value string        `json:"entity1_value" validate:"required"`
	Entity2Type  string        `json:"entity2_type" validate:"required"`
	Entity2Value string        `json:"entity2_value" validate:"required"`
	Confidence   float64       `json:"confidence" validate:"gte=0,lte=1"`
	MatchReason  string        `json:"match_reason" validate:"required"`
	MatchFactors []MatchFactor `json:"match_factors,omitempty"`
}

// MergeStats aggregates a user's suggestions by status.
type MergeStats struct {
	Total         int     `json:"total"`
	Pending       int     `json:"pending"`
	AutoApplied   int     `json:"auto_applied"`
	Accepted      int     `json:"accepted"`
	Rejected      int     `json:"rejected"`
	AutoApplyRate float64 `json:"auto_apply_rate"`
}

// MergeResult is the structured outcome of a merge execution. Expected
// failures (bad ref, type mismatch, nothing to merge) set Success=false
// with a message; store errors are returned as errors instead.
type MergeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}
