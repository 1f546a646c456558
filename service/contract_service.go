package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"compliancedesk-backend/logger"
	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"
	"compliancedesk-backend/storage"

	"github.com/google/uuid"
)

// ContractService handles reads, reviewer decisions and deletion of contracts
type ContractService struct {
	contracts ContractStore
	blobs     storage.Storage
	log       *logger.Logger
}

// ContractServiceOption is a functional option for ContractService
type ContractServiceOption func(*ContractService)

// WithContractStore sets the contract store
func WithContractStore(store ContractStore) ContractServiceOption {
	return func(s *ContractService) {
		s.contracts = store
	}
}

// WithStorage sets the blob storage
func WithStorage(blobs storage.Storage) ContractServiceOption {
	return func(s *ContractService) {
		s.blobs = blobs
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ContractServiceOption {
	return func(s *ContractService) {
		s.log = log
	}
}

// NewContractService creates a new contract service
func NewContractService(opts ...ContractServiceOption) *ContractService {
	s := &ContractService{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ownedContract loads a contract and hides contracts of other users
func ownedContract(ctx context.Context, store ContractStore, id, userID uuid.UUID) (*models.Contract, error) {
	contract, err := store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	if contract.UserID != userID {
		return nil, ErrContractNotFound
	}
	return contract, nil
}

// Get returns one contract of the user
func (s *ContractService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Contract, error) {
	return ownedContract(ctx, s.contracts, id, userID)
}

// List returns the user's contracts, optionally filtered by status
func (s *ContractService) List(ctx context.Context, userID uuid.UUID, status *models.ContractStatus) ([]*models.Contract, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", *status)
	}
	return s.contracts.ListByUserID(ctx, userID, status)
}

// Open returns the stored PDF of a contract. The caller closes the reader.
func (s *ContractService) Open(ctx context.Context, id, userID uuid.UUID) (*models.Contract, io.ReadCloser, error) {
	contract, err := ownedContract(ctx, s.contracts, id, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Download(ctx, contract.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("download contract %s: %w", id, err)
	}
	return contract, rc, nil
}

// UpdateStatus records a reviewer decision. Only review outcomes can be set here.
func (s *ContractService) UpdateStatus(ctx context.Context, id, userID uuid.UUID, next models.ContractStatus) (*models.Contract, error) {
	contract, err := ownedContract(ctx, s.contracts, id, userID)
	if err != nil {
		return nil, err
	}
	if !next.IsReviewOutcome() || !contract.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	if err := s.contracts.UpdateStatus(ctx, id, contract.Status, next); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.log.Info("contract.status.updated", "contract_id", id, "from", contract.Status, "to", next)
	contract.Status = next
	return contract, nil
}

// Delete removes the blob and then the record. The record removal is attempted even when
// the blob removal fails; any failure is returned as one joined error.
func (s *ContractService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	contract, err := ownedContract(ctx, s.contracts, id, userID)
	if err != nil {
		return err
	}

	var blobErr, recordErr error
	if err := s.blobs.Delete(ctx, contract.StoragePath); err != nil {
		blobErr = fmt.Errorf("delete blob %s: %w", contract.StoragePath, err)
		s.log.Error("contract.blob.delete_failed", "contract_id", id, "error", err)
	}
	if err := s.contracts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrContractNotFound
		}
		recordErr = fmt.Errorf("delete record %s: %w", id, err)
		s.log.Error("contract.record.delete_failed", "contract_id", id, "error", err)
	}

	if err := errors.Join(blobErr, recordErr); err != nil {
		return err
	}
	s.log.Info("contract.deleted", "contract_id", id, "user_id", userID)
	return nil
}
