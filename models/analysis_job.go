package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisJobStatus represents the status of an analysis job
type AnalysisJobStatus string

const (
	JobStatusPending   AnalysisJobStatus = "pending"
	JobStatusRunning   AnalysisJobStatus = "running"
	JobStatusSucceeded AnalysisJobStatus = "succeeded"
	JobStatusFailed    AnalysisJobStatus = "failed"
)

// Terminal reports whether the job has finished, successfully or not
func (s AnalysisJobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// AnalysisJob tracks one analysis run for a contract
type AnalysisJob struct {
	ID           uuid.UUID         `json:"id"`
	ContractID   uuid.UUID         `json:"contract_id"`
	UserID       uuid.UUID         `json:"user_id"`
	Status       AnalysisJobStatus `json:"status"`
	Source       *string           `json:"source,omitempty"` // structured, heuristic, offline
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}
