package repository

import (
	"context"
	"time"

	"compliancedesk-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractRepository handles database operations for contracts
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `id, user_id, name, storage_path, mime_type, size, status,
	risk_score, compliance_score, category, content_hash, extracted_text, created_at, analyzed_at`

func scanContract(row pgx.Row) (*models.Contract, error) {
	c := &models.Contract{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.StoragePath,
		&c.MimeType,
		&c.Size,
		&c.Status,
		&c.RiskScore,
		&c.ComplianceScore,
		&c.Category,
		&c.ContentHash,
		&c.ExtractedText,
		&c.CreatedAt,
		&c.AnalyzedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// Create creates a new contract record
func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (
			user_id, name, storage_path, mime_type, size, status,
			category, content_hash, extracted_text
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		c.UserID,
		c.Name,
		c.StoragePath,
		c.MimeType,
		c.Size,
		c.Status,
		c.Category,
		c.ContentHash,
		c.ExtractedText,
	).Scan(&c.ID, &c.CreatedAt)

	return translate(err)
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return scanContract(r.db.QueryRow(ctx, query, id))
}

// ListByUserID retrieves a user's contracts, newest first, optionally filtered by status
func (r *ContractRepository) ListByUserID(ctx context.Context, userID uuid.UUID, status *models.ContractStatus) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.db.Query(ctx, query, userID, statusArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := make([]*models.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}

	return contracts, rows.Err()
}

// FindByHash returns the oldest contract of the user with the given content hash
func (r *ContractRepository) FindByHash(ctx context.Context, userID uuid.UUID, hash string) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE user_id = $1 AND content_hash = $2
		ORDER BY created_at ASC
		LIMIT 1`
	return scanContract(r.db.QueryRow(ctx, query, userID, hash))
}

// UpdateStatus moves a contract from one status to another only if it is still in the expected status
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ContractStatus) error {
	query := `UPDATE contracts SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// CompleteAnalysis stores the findings of one run and moves the contract from analyzing to reviewed
// with its scores, all in one transaction.
func (r *ContractRepository) CompleteAnalysis(ctx context.Context, contractID uuid.UUID, findings []*models.Finding, riskScore, complianceScore int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertFindings(ctx, tx, findings); err != nil {
		return err
	}

	now := time.Now()
	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET
			status = $2,
			risk_score = $3,
			compliance_score = $4,
			analyzed_at = $5
		WHERE id = $1 AND status = $6`,
		contractID, models.ContractReviewed, riskScore, complianceScore, now, models.ContractAnalyzing,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return tx.Commit(ctx)
}

// UpdateExtraction stores extracted text and fingerprint for a contract
func (r *ContractRepository) UpdateExtraction(ctx context.Context, id uuid.UUID, text, hash string) error {
	query := `UPDATE contracts SET extracted_text = $2, content_hash = $3 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, text, hash)
	return err
}

// ListMissingFingerprint returns up to limit contracts that have no content hash yet
func (r *ContractRepository) ListMissingFingerprint(ctx context.Context, limit int) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE content_hash IS NULL
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}

	return contracts, rows.Err()
}

// Delete deletes a contract record. Findings and jobs go with it via ON DELETE CASCADE.
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
