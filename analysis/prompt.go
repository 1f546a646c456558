package analysis

import (
	"fmt"
	"strings"
)

// MaxPromptChars bounds how much contract text is sent to the model.
const MaxPromptChars = 30000

// SystemPrompt primes the model as an Indian regulatory compliance reviewer.
const SystemPrompt = `You are a compliance analyst specialising in Indian business regulation: GST (CGST Act, 2017),
TDS (Income Tax Act, 1961 - Chapter XVII-B), data protection (Digital Personal Data Protection Act, 2023 and
Information Technology Act, 2000) and general contract law (Indian Contract Act, 1872).
Review the contract you are given and report every compliance issue you find.
Respond with JSON only, matching this schema:
` + ReportSchema + `
Use severity "critical" only for issues that expose the business to penalties or void the agreement.
Scores are 0-100: risk_score is higher when the contract is riskier, compliance_score is higher when it is more compliant.`

// BuildPrompt renders the user turn for one contract analysis.
func BuildPrompt(name, category, text string) string {
	text = strings.TrimSpace(text)
	if len(text) > MaxPromptChars {
		text = text[:MaxPromptChars]
	}
	if text == "" {
		text = "(no text could be extracted from this document)"
	}
	if category == "" {
		category = "uncategorised"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contract: %s\n", name)
	fmt.Fprintf(&b, "Category: %s\n\n", category)
	b.WriteString("Contract text:\n")
	b.WriteString(text)
	return b.String()
}
