package service

import (
	"context"
	"fmt"
	"time"

	"compliancedesk-backend/logger"
	"compliancedesk-backend/models"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	findingsSheet = "Findings"
	summarySheet  = "Summary"
)

// ExportService renders contract findings as spreadsheets
type ExportService struct {
	contracts ContractStore
	findings  FindingStore
	log       *logger.Logger
}

// NewExportService creates a new export service
func NewExportService(contracts ContractStore, findings FindingStore, log *logger.Logger) *ExportService {
	if log == nil {
		log = logger.Nop()
	}
	return &ExportService{contracts: contracts, findings: findings, log: log}
}

// ExportFindings builds an XLSX workbook with a Findings sheet and a Summary sheet
func (s *ExportService) ExportFindings(ctx context.Context, contractID, userID uuid.UUID) ([]byte, error) {
	start := time.Now()

	contract, err := ownedContract(ctx, s.contracts, contractID, userID)
	if err != nil {
		return nil, err
	}
	findings, err := s.findings.ListByContractID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", findingsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Severity",
		"Type",
		"Issue",
		"Section",
		"Regulation",
		"Recommendation",
		"Suggested Text",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(findingsSheet, cell, h)
	}

	for i, finding := range findings {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(findingsSheet, cell, v)
		}
		write(1, string(finding.Severity))
		write(2, finding.AnalysisType)
		write(3, finding.IssueDescription)
		write(4, deref(finding.SectionReference))
		write(5, deref(finding.RegulationCitation))
		write(6, deref(finding.Recommendation))
		write(7, deref(finding.SuggestedText))
	}

	_ = f.SetColWidth(findingsSheet, "A", "B", 16)
	_ = f.SetColWidth(findingsSheet, "C", "C", 60)
	_ = f.SetColWidth(findingsSheet, "D", "D", 14)
	_ = f.SetColWidth(findingsSheet, "E", "G", 48)

	summary := [][]any{
		{"Contract", contract.Name},
		{"Category", deref(contract.Category)},
		{"Status", string(contract.Status)},
		{"Risk Score", scoreValue(contract.RiskScore)},
		{"Compliance Score", scoreValue(contract.ComplianceScore)},
		{"Findings", len(findings)},
		{"High Severity", countSeverity(findings, models.SeverityHigh)},
		{"Analyzed At", timeValue(contract.AnalyzedAt)},
	}
	for i, pair := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &pair); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.log.Info("export.findings.ok",
		"contract_id", contractID,
		"rows", len(findings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scoreValue(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func timeValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func countSeverity(findings []*models.Finding, severity models.Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}
