package repository

import (
	"context"

	"compliancedesk-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FindingRepository handles database operations for findings
type FindingRepository struct {
	db *pgxpool.Pool
}

// NewFindingRepository creates a new finding repository
func NewFindingRepository(db *pgxpool.Pool) *FindingRepository {
	return &FindingRepository{db: db}
}

// insertFindings queues one INSERT per finding on a batch inside tx
func insertFindings(ctx context.Context, tx pgx.Tx, findings []*models.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, f := range findings {
		batch.Queue(`
			INSERT INTO findings (
				contract_id, job_id, analysis_type, issue_description, section_reference,
				severity, regulation_citation, recommendation, suggested_text
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at`,
			f.ContractID,
			f.JobID,
			f.AnalysisType,
			f.IssueDescription,
			f.SectionReference,
			f.Severity,
			f.RegulationCitation,
			f.Recommendation,
			f.SuggestedText,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, f := range findings {
		if err := results.QueryRow().Scan(&f.ID, &f.CreatedAt); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}

// ListByContractID retrieves findings for a contract, most severe first
func (r *FindingRepository) ListByContractID(ctx context.Context, contractID uuid.UUID) ([]*models.Finding, error) {
	query := `
		SELECT id, contract_id, job_id, analysis_type, issue_description, section_reference,
			severity, regulation_citation, recommendation, suggested_text, created_at
		FROM findings
		WHERE contract_id = $1
		ORDER BY CASE severity WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at`

	rows, err := r.db.Query(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	findings := make([]*models.Finding, 0)
	for rows.Next() {
		f := &models.Finding{}
		err := rows.Scan(
			&f.ID,
			&f.ContractID,
			&f.JobID,
			&f.AnalysisType,
			&f.IssueDescription,
			&f.SectionReference,
			&f.Severity,
			&f.RegulationCitation,
			&f.Recommendation,
			&f.SuggestedText,
			&f.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}

	return findings, rows.Err()
}
