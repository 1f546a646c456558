package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatus represents the review lifecycle of an uploaded contract
type ContractStatus string

const (
	ContractPending        ContractStatus = "pending"
	ContractAnalyzing      ContractStatus = "analyzing"
	ContractReviewed       ContractStatus = "reviewed"
	ContractApproved       ContractStatus = "approved"
	ContractNeedsAttention ContractStatus = "needs_attention"
)

// stage orders statuses along the lifecycle. Review outcomes share a stage.
func (s ContractStatus) stage() int {
	switch s {
	case ContractPending:
		return 0
	case ContractAnalyzing:
		return 1
	case ContractReviewed, ContractApproved, ContractNeedsAttention:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status
func (s ContractStatus) Valid() bool {
	return s.stage() >= 0
}

// IsReviewOutcome reports whether s is one of the terminal review statuses
func (s ContractStatus) IsReviewOutcome() bool {
	return s.stage() == 2
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle moving forward.
// pending -> analyzing -> review outcome; review outcomes may be swapped by a reviewer.
func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	switch s {
	case ContractPending:
		return next == ContractAnalyzing
	case ContractAnalyzing:
		return next.IsReviewOutcome()
	default:
		return next.IsReviewOutcome()
	}
}

// Contract represents an uploaded compliance document
type Contract struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	Name            string         `json:"name"`
	StoragePath     string         `json:"storage_path"`
	MimeType        string         `json:"mime_type"`
	Size            int64          `json:"size"`
	Status          ContractStatus `json:"status"`
	RiskScore       *int           `json:"risk_score,omitempty"`
	ComplianceScore *int           `json:"compliance_score,omitempty"`
	Category        *string        `json:"category,omitempty"`
	ContentHash     *string        `json:"content_hash,omitempty"`
	ExtractedText   *string        `json:"extracted_text,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	AnalyzedAt      *time.Time     `json:"analyzed_at,omitempty"`
}
