package analysis

import (
	"strings"
	"testing"

	"compliancedesk-backend/models"
)

const validReport = "```json\n" + `{
  "risk_score": 72.6,
  "compliance_score": 64.2,
  "findings": [
    {
      "analysis_type": "gst_compliance",
      "issue_description": "Invoice clause omits the supplier GSTIN.",
      "section_reference": "Clause 7.2",
      "severity": "critical",
      "regulation_citation": "CGST Act, 2017 - Section 31",
      "recommendation": "Add GSTIN of both parties."
    },
    {
      "analysis_type": "contract_terms",
      "issue_description": "Notice period is ambiguous.",
      "severity": "low"
    }
  ]
}` + "\n```"

func TestParseStructured(t *testing.T) {
	report, err := ParseStructured(validReport)
	if err != nil {
		t.Fatalf("ParseStructured: %v", err)
	}
	if report.Source != SourceStructured {
		t.Fatalf("source: want=%q got=%q", SourceStructured, report.Source)
	}
	if report.RiskScore != 73 || report.ComplianceScore != 64 {
		t.Fatalf("scores: want=73/64 got=%d/%d", report.RiskScore, report.ComplianceScore)
	}
	if len(report.Items) != 2 {
		t.Fatalf("items: want=2 got=%d", len(report.Items))
	}
	if report.Items[0].Severity != models.SeverityHigh {
		t.Fatalf("critical maps to high: got=%q", report.Items[0].Severity)
	}
	if report.Items[0].SectionReference != "Clause 7.2" {
		t.Fatalf("section: got=%q", report.Items[0].SectionReference)
	}
}

func TestParseStructuredRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":        "Critical issue: GST missing",
		"missing scores":  `{"findings": []}`,
		"score too large": `{"findings": [], "risk_score": 140, "compliance_score": 10}`,
		"bad severity":    `{"findings": [{"analysis_type": "x", "issue_description": "y", "severity": "severe"}], "risk_score": 1, "compliance_score": 1}`,
		"empty":           "   ",
	}
	for name, raw := range cases {
		if _, err := ParseStructured(raw); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseStructuredEmptyFindings(t *testing.T) {
	report, err := ParseStructured(`{"findings": [], "risk_score": 10, "compliance_score": 95}`)
	if err != nil {
		t.Fatalf("ParseStructured: %v", err)
	}
	if len(report.Items) != 1 || report.Items[0].AnalysisType != "general" {
		t.Fatalf("want placeholder finding, got %+v", report.Items)
	}
}

func TestParseReportPrefersStructured(t *testing.T) {
	if got := ParseReport(validReport).Source; got != SourceStructured {
		t.Fatalf("want structured got=%q", got)
	}

	fallback := ParseReport(`{"findings": "oops"}` + "\nCritical issue: GST invoice problem")
	if fallback.Source != SourceHeuristic {
		t.Fatalf("want heuristic fallback got=%q", fallback.Source)
	}
	if fallback.RiskScore != 85 {
		t.Fatalf("heuristic risk: want=85 got=%d", fallback.RiskScore)
	}
}

func TestBuildPromptTruncates(t *testing.T) {
	prompt := BuildPrompt("Vendor MSA", "", strings.Repeat("a", MaxPromptChars+500))
	if !strings.Contains(prompt, "Category: uncategorised") {
		t.Fatalf("missing default category: %q", prompt[:80])
	}
	if strings.Count(prompt, "a") > MaxPromptChars+20 {
		t.Fatalf("text not truncated")
	}
}
