package service

import (
	"context"
	"time"

	"compliancedesk-backend/models"

	"github.com/google/uuid"
)

// ContractStore is the persistence the services need for contracts.
// repository.ContractRepository implements it.
type ContractStore interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, status *models.ContractStatus) ([]*models.Contract, error)
	FindByHash(ctx context.Context, userID uuid.UUID, hash string) (*models.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ContractStatus) error
	CompleteAnalysis(ctx context.Context, contractID uuid.UUID, findings []*models.Finding, riskScore, complianceScore int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FindingStore reads stored findings
type FindingStore interface {
	ListByContractID(ctx context.Context, contractID uuid.UUID) ([]*models.Finding, error)
}

// CategoryStore is the persistence for user categories
type CategoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AnalysisJobStore is the persistence for analysis jobs
type AnalysisJobStore interface {
	Create(ctx context.Context, job *models.AnalysisJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, source string) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
	// ListUnfinished returns pending or running jobs created before olderThan
	ListUnfinished(ctx context.Context, olderThan time.Time) ([]*models.AnalysisJob, error)
}

// UserStore looks up accounts for login
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
