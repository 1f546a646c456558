package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"compliancedesk-backend/classify"
	"compliancedesk-backend/extract"
	"compliancedesk-backend/logger"
	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"
	"compliancedesk-backend/storage"

	"github.com/google/uuid"
)

const (
	// PDFMimeType is the only accepted upload type
	PDFMimeType = "application/pdf"
	// DefaultMaxUploadBytes is 10 MiB
	DefaultMaxUploadBytes int64 = 10 << 20
)

// IngestionService validates, fingerprints, classifies and stores uploaded contracts
type IngestionService struct {
	contracts  ContractStore
	categories CategoryStore
	blobs      storage.Storage
	log        *logger.Logger
	threshold  float64
	maxBytes   int64
	now        func() time.Time
	lastToken  atomic.Int64
}

// IngestionServiceOption is a functional option for IngestionService
type IngestionServiceOption func(*IngestionService)

// IngestWithContractStore sets the contract store
func IngestWithContractStore(store ContractStore) IngestionServiceOption {
	return func(s *IngestionService) {
		s.contracts = store
	}
}

// IngestWithCategoryStore sets the category store used when the caller supplies no categories
func IngestWithCategoryStore(store CategoryStore) IngestionServiceOption {
	return func(s *IngestionService) {
		s.categories = store
	}
}

// IngestWithStorage sets the blob storage
func IngestWithStorage(blobs storage.Storage) IngestionServiceOption {
	return func(s *IngestionService) {
		s.blobs = blobs
	}
}

// IngestWithLogger sets the logger
func IngestWithLogger(log *logger.Logger) IngestionServiceOption {
	return func(s *IngestionService) {
		s.log = log
	}
}

// IngestWithThreshold sets the classifier threshold
func IngestWithThreshold(threshold float64) IngestionServiceOption {
	return func(s *IngestionService) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// IngestWithMaxBytes sets the upload size limit
func IngestWithMaxBytes(maxBytes int64) IngestionServiceOption {
	return func(s *IngestionService) {
		if maxBytes > 0 {
			s.maxBytes = maxBytes
		}
	}
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(opts ...IngestionServiceOption) *IngestionService {
	s := &IngestionService{
		log:       logger.Nop(),
		threshold: classify.DefaultThreshold,
		maxBytes:  DefaultMaxUploadBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxBytes reports the configured upload size limit
func (s *IngestionService) MaxBytes() int64 {
	return s.maxBytes
}

// UploadRequest represents one uploaded document
type UploadRequest struct {
	UserID   uuid.UUID
	Filename string
	MimeType string // declared type, may be empty
	Size     int64  // declared size
	Data     []byte
	// Categories overrides the owner's stored categories when non-nil
	Categories []models.Category
}

// UploadResult represents the result of an upload
type UploadResult struct {
	Contract *models.Contract
	// DuplicateOf is set when the owner already has a contract with identical bytes
	DuplicateOf *uuid.UUID
}

// ResolveMimeType returns the declared type without parameters, or infers it
// from the filename extension when nothing was declared.
func ResolveMimeType(declared, filename string) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt != "" {
		return mt
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return PDFMimeType
	}
	return "application/octet-stream"
}

// Validate checks type and size. It performs no I/O.
func (s *IngestionService) Validate(mimeType, filename string, size int64) error {
	if ResolveMimeType(mimeType, filename) != PDFMimeType {
		return ErrInvalidFileType
	}
	if size > s.maxBytes {
		return ErrFileTooLarge
	}
	return nil
}

// keyTime returns a strictly increasing timestamp so concurrent uploads never share a key
func (s *IngestionService) keyTime() time.Time {
	for {
		last := s.lastToken.Load()
		next := s.now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if s.lastToken.CompareAndSwap(last, next) {
			return time.Unix(0, next)
		}
	}
}

// Upload validates the document, stores the blob and then inserts the contract record.
// If the insert fails the blob is removed again.
func (s *IngestionService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	size := req.Size
	if n := int64(len(req.Data)); n > size {
		size = n
	}
	if err := s.Validate(req.MimeType, req.Filename, size); err != nil {
		return nil, err
	}
	if s.contracts == nil {
		return nil, errors.New("contract store not set")
	}
	if s.blobs == nil {
		return nil, errors.New("storage not set")
	}

	doc := extract.Document(req.Data)
	if doc.Text == "" {
		s.log.Warn("contract.extract.empty", "user_id", req.UserID, "filename", req.Filename)
	}

	categories := req.Categories
	if categories == nil && s.categories != nil {
		var err error
		categories, err = s.categories.ListByUserID(ctx, req.UserID)
		if err != nil {
			s.log.Warn("contract.categories.unavailable", "user_id", req.UserID, "error", err)
			categories = nil
		}
	}

	result := &UploadResult{}
	if existing, err := s.contracts.FindByHash(ctx, req.UserID, doc.Fingerprint); err == nil && existing != nil {
		result.DuplicateOf = &existing.ID
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("contract.dedup.lookup_failed", "user_id", req.UserID, "error", err)
	}

	name := strings.TrimSpace(req.Filename)
	if name == "" {
		name = "contract.pdf"
	}
	contract := &models.Contract{
		UserID:      req.UserID,
		Name:        name,
		StoragePath: storage.ObjectKey(req.UserID, s.keyTime(), ".pdf"),
		MimeType:    PDFMimeType,
		Size:        size,
		Status:      models.ContractPending,
		ContentHash: &doc.Fingerprint,
	}
	if doc.Text != "" {
		contract.ExtractedText = &doc.Text
	}
	if category, ok := classify.Classify(doc.Text, categories, s.threshold); ok {
		contract.Category = &category
	}

	if err := s.blobs.Upload(ctx, contract.StoragePath, bytes.NewReader(req.Data), int64(len(req.Data)), PDFMimeType); err != nil {
		s.log.Error("contract.blob.upload_failed", "user_id", req.UserID, "key", contract.StoragePath, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if err := s.contracts.Create(ctx, contract); err != nil {
		s.log.Error("contract.record.insert_failed", "user_id", req.UserID, "key", contract.StoragePath, "error", err)
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), contract.StoragePath); delErr != nil {
			s.log.Error("contract.blob.compensate_failed", "key", contract.StoragePath, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	s.log.Info("contract.uploaded",
		"contract_id", contract.ID,
		"user_id", req.UserID,
		"size", size,
		"category", contract.Category,
	)
	result.Contract = contract
	return result, nil
}
