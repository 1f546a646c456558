package analysis

import (
	"strings"

	"compliancedesk-backend/models"
)

// severityCritical is only used while parsing; it is stored as high.
const severityCritical models.Severity = "critical"

type domainRule struct {
	keywords     []string
	analysisType string
	citation     string
}

var domainRules = []domainRule{
	{
		keywords:     []string{"gst", "tax"},
		analysisType: "gst_compliance",
		citation:     "Central Goods and Services Tax Act, 2017",
	},
	{
		keywords:     []string{"tds", "withholding"},
		analysisType: "tds_compliance",
		citation:     "Income Tax Act, 1961 - Chapter XVII-B (TDS)",
	},
	{
		keywords:     []string{"data", "privacy"},
		analysisType: "data_protection",
		citation:     "Digital Personal Data Protection Act, 2023; Information Technology Act, 2000 - Section 43A",
	},
}

type pendingFinding struct {
	severity       models.Severity
	analysisType   string
	citation       string
	recommendation string
	description    string
}

func (p pendingFinding) hasFieldsBesidesDescription() bool {
	return p.severity != "" || p.analysisType != "" || p.citation != "" || p.recommendation != ""
}

func (p pendingFinding) item() Item {
	severity := p.severity
	switch severity {
	case severityCritical:
		severity = models.SeverityHigh
	case "":
		severity = models.SeverityMedium
	}
	analysisType := p.analysisType
	if analysisType == "" {
		analysisType = "general"
	}
	return Item{
		AnalysisType:   analysisType,
		Description:    p.description,
		Severity:       severity,
		Citation:       p.citation,
		Recommendation: p.recommendation,
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ParseHeuristic scans a free-text report line by line. A finding is emitted when a line
// mentions an issue, problem or violation and the finding in progress already carries
// another field. Output depends on line order; oddly phrased reports may yield nothing,
// in which case a single low-severity placeholder is returned.
func ParseHeuristic(raw string) Report {
	risk := baseRiskScore
	compliance := baseComplianceScore

	var items []Item
	var current pendingFinding

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)

		switch {
		case containsAny(lower, "critical", "high risk"):
			current.severity = severityCritical
			if risk < 85 {
				risk = 85
			}
			if compliance > 60 {
				compliance = 60
			}
		case containsAny(lower, "medium", "moderate"):
			current.severity = models.SeverityMedium
		case containsAny(lower, "low", "minor"):
			current.severity = models.SeverityLow
		}

		for _, rule := range domainRules {
			if containsAny(lower, rule.keywords...) {
				current.analysisType = rule.analysisType
				current.citation = rule.citation
				break
			}
		}

		if containsAny(lower, "recommend", "suggest") {
			current.recommendation = trimmed
		}

		if containsAny(lower, "issue", "problem", "violation") {
			ready := current.hasFieldsBesidesDescription()
			current.description = trimmed
			if ready {
				items = append(items, current.item())
				current = pendingFinding{}
			}
		}
	}

	switch n := len(items); {
	case n > 10:
		risk += 15
		compliance -= 20
	case n >= 6:
		risk += 10
		compliance -= 10
	}

	if len(items) == 0 {
		items = []Item{placeholderItem()}
	}

	return Report{
		Items:           items,
		RiskScore:       clamp(risk),
		ComplianceScore: clamp(compliance),
		Source:          SourceHeuristic,
	}
}
