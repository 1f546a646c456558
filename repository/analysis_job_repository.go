package repository

import (
	"context"
	"time"

	"compliancedesk-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisJobRepository handles database operations for analysis jobs
type AnalysisJobRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisJobRepository creates a new analysis job repository
func NewAnalysisJobRepository(db *pgxpool.Pool) *AnalysisJobRepository {
	return &AnalysisJobRepository{db: db}
}

// Create creates a new analysis job
func (r *AnalysisJobRepository) Create(ctx context.Context, job *models.AnalysisJob) error {
	query := `
		INSERT INTO analysis_jobs (contract_id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		job.ContractID,
		job.UserID,
		job.Status,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)

	return translate(err)
}

// GetByID retrieves an analysis job by ID
func (r *AnalysisJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{}
	query := `
		SELECT id, contract_id, user_id, status, source, error_message,
			created_at, updated_at, completed_at
		FROM analysis_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.ContractID,
		&job.UserID,
		&job.Status,
		&job.Source,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, translate(err)
	}

	return job, nil
}

// MarkRunning moves a pending job to running
func (r *AnalysisJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = $3`

	tag, err := r.db.Exec(ctx, query, id, models.JobStatusRunning, models.JobStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Complete marks an analysis job as succeeded and records which parser produced the findings
func (r *AnalysisJobRepository) Complete(ctx context.Context, id uuid.UUID, source string) error {
	now := time.Now()
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			source = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusSucceeded, source, now)
	return err
}

// Fail marks an analysis job as failed
func (r *AnalysisJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	now := time.Now()
	query := `
		UPDATE analysis_jobs SET
			status = $2,
			error_message = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusFailed, errorMessage, now)
	return err
}

// ListUnfinished returns pending or running jobs created before olderThan, oldest first
func (r *AnalysisJobRepository) ListUnfinished(ctx context.Context, olderThan time.Time) ([]*models.AnalysisJob, error) {
	query := `
		SELECT id, contract_id, user_id, status, source, error_message,
			created_at, updated_at, completed_at
		FROM analysis_jobs
		WHERE status IN ($1, $2) AND created_at < $3
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, models.JobStatusPending, models.JobStatusRunning, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.AnalysisJob
	for rows.Next() {
		job := &models.AnalysisJob{}
		if err := rows.Scan(
			&job.ID,
			&job.ContractID,
			&job.UserID,
			&job.Status,
			&job.Source,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.UpdatedAt,
			&job.CompletedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
