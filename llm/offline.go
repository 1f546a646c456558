package llm

import (
	"context"
	"strings"
)

const offlineReport = `Compliance review summary

1. High risk issue: the payment clause does not state GST treatment or the supplier GSTIN.
Recommend stating whether fees are inclusive of GST and quoting the GSTIN of both parties.

2. Medium: TDS withholding obligations under section 194J are not addressed, which is a compliance problem.
Suggest adding a clause permitting deduction at source and the Form 16A certificate.

3. Minor: the confidentiality clause does not cover personal data privacy obligations; this is an issue under the DPDP Act.
Recommend adding data processing and breach notification terms.`

const offlineAnswer = "The compliance assistant is running in offline mode, so this answer is generic. " +
	"For GST, confirm registration, invoice format and return due dates. For TDS, check the applicable " +
	"section and rate before each payment. Consult a qualified professional before acting on this guidance."

// OfflineClient returns canned text so the service works without model credentials.
type OfflineClient struct{}

func NewOfflineClient() *OfflineClient {
	return &OfflineClient{}
}

func (OfflineClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyResponse
	}
	if req.JSON {
		return offlineReport, nil
	}
	return offlineAnswer, nil
}
