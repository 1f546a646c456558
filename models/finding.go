package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity of a compliance finding
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Finding is one structured compliance issue produced by an analysis run
type Finding struct {
	ID                 uuid.UUID `json:"id"`
	ContractID         uuid.UUID `json:"contract_id"`
	JobID              uuid.UUID `json:"job_id"`
	AnalysisType       string    `json:"analysis_type"`
	IssueDescription   string    `json:"issue_description"`
	SectionReference   *string   `json:"section_reference,omitempty"`
	Severity           Severity  `json:"severity"`
	RegulationCitation *string   `json:"regulation_citation,omitempty"`
	Recommendation     *string   `json:"recommendation,omitempty"`
	SuggestedText      *string   `json:"suggested_text,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
