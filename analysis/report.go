// Package analysis turns an LLM compliance report into findings and summary scores.
package analysis

import (
	"compliancedesk-backend/models"
)

// Report sources
const (
	SourceStructured = "structured"
	SourceHeuristic  = "heuristic"
)

const (
	baseRiskScore       = 75
	baseComplianceScore = 70
)

// Item is one parsed finding before it is attached to a contract
type Item struct {
	AnalysisType     string
	Description      string
	SectionReference string
	Severity         models.Severity
	Citation         string
	Recommendation   string
	SuggestedText    string
}

// Report is the parsed outcome of one analysis run
type Report struct {
	Items           []Item
	RiskScore       int
	ComplianceScore int
	Source          string
}

// ParseReport prefers a structured JSON payload and falls back to the line heuristic
// when the payload is missing or does not match the findings schema.
func ParseReport(raw string) Report {
	if report, err := ParseStructured(raw); err == nil {
		return report
	}
	return ParseHeuristic(raw)
}

// placeholderItem is emitted when a report yields no findings so callers always
// have something to show.
func placeholderItem() Item {
	return Item{
		AnalysisType:   "general",
		Description:    "General review: no specific compliance issues were identified in the automated analysis.",
		Severity:       models.SeverityLow,
		Recommendation: "Have a compliance specialist review the document before signing.",
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
