package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"compliancedesk-backend/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ReportSchema is the JSON shape the analysis prompt asks the model to return.
const ReportSchema = `{
  "type": "object",
  "required": ["findings", "risk_score", "compliance_score"],
  "properties": {
    "risk_score": {"type": "number", "minimum": 0, "maximum": 100},
    "compliance_score": {"type": "number", "minimum": 0, "maximum": 100},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["analysis_type", "issue_description", "severity"],
        "properties": {
          "analysis_type": {"type": "string", "minLength": 1},
          "issue_description": {"type": "string", "minLength": 1},
          "section_reference": {"type": "string"},
          "severity": {"type": "string", "enum": ["critical", "high", "medium", "low"]},
          "regulation_citation": {"type": "string"},
          "recommendation": {"type": "string"},
          "suggested_text": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func reportSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("report.json", strings.NewReader(ReportSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("report.json")
	})
	return schema, schemaErr
}

type structuredFinding struct {
	AnalysisType       string `json:"analysis_type"`
	IssueDescription   string `json:"issue_description"`
	SectionReference   string `json:"section_reference"`
	Severity           string `json:"severity"`
	RegulationCitation string `json:"regulation_citation"`
	Recommendation     string `json:"recommendation"`
	SuggestedText      string `json:"suggested_text"`
}

type structuredReport struct {
	Findings        []structuredFinding `json:"findings"`
	RiskScore       float64             `json:"risk_score"`
	ComplianceScore float64             `json:"compliance_score"`
}

// ParseStructured validates raw against ReportSchema and converts it into a Report.
// Markdown code fences around the payload are tolerated.
func ParseStructured(raw string) (Report, error) {
	payload := stripFences(raw)
	if payload == "" {
		return Report{}, errors.New("empty report")
	}

	s, err := reportSchema()
	if err != nil {
		return Report{}, err
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return Report{}, fmt.Errorf("report does not match schema: %w", err)
	}

	var parsed structuredReport
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}

	items := make([]Item, 0, len(parsed.Findings))
	for _, f := range parsed.Findings {
		severity := models.Severity(strings.ToLower(f.Severity))
		if severity == severityCritical {
			severity = models.SeverityHigh
		}
		items = append(items, Item{
			AnalysisType:     strings.TrimSpace(f.AnalysisType),
			Description:      strings.TrimSpace(f.IssueDescription),
			SectionReference: strings.TrimSpace(f.SectionReference),
			Severity:         severity,
			Citation:         strings.TrimSpace(f.RegulationCitation),
			Recommendation:   strings.TrimSpace(f.Recommendation),
			SuggestedText:    strings.TrimSpace(f.SuggestedText),
		})
	}
	if len(items) == 0 {
		items = []Item{placeholderItem()}
	}

	return Report{
		Items:           items,
		RiskScore:       clamp(int(math.Round(parsed.RiskScore))),
		ComplianceScore: clamp(int(math.Round(parsed.ComplianceScore))),
		Source:          SourceStructured,
	}, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
