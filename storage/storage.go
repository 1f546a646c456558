package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Download when the object does not exist
var ErrNotFound = errors.New("object not found")

// Storage interface for contract blob operations
type Storage interface {
	// Upload stores data under key. size may be -1 when unknown.
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error

	// Download retrieves an object by key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type      StorageType
	LocalPath string // For local storage

	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string

	MinioEndpoint  string // For MinIO storage
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(ctx context.Context, cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	case StorageTypeMinio:
		return NewMinioStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ConfigFromEnv reads storage settings from environment variables
func ConfigFromEnv() (StorageConfig, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local" // Default to local for development
	}

	cfg := StorageConfig{
		Type: StorageType(storageType),
	}

	switch cfg.Type {
	case StorageTypeLocal:
		cfg.LocalPath = os.Getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/contracts"
		}

	case StorageTypeS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "ap-south-1"
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return cfg, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

	case StorageTypeMinio:
		cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
		cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
		cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
		cfg.MinioBucket = os.Getenv("MINIO_BUCKET")
		if cfg.MinioBucket == "" {
			cfg.MinioBucket = "contracts"
		}
		cfg.MinioUseSSL = strings.EqualFold(os.Getenv("MINIO_USE_SSL"), "true")

		if cfg.MinioEndpoint == "" {
			return cfg, errors.New("MINIO_ENDPOINT environment variable is required for MinIO storage")
		}

	default:
		return cfg, fmt.Errorf("unknown storage type: %s", storageType)
	}

	return cfg, nil
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv(ctx context.Context) (Storage, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewStorage(ctx, cfg)
}

// ObjectKey builds the owner-scoped key {ownerID}/{unixNano}{ext} for a new upload.
func ObjectKey(ownerID uuid.UUID, at time.Time, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%d%s", ownerID.String(), at.UnixNano(), strings.ToLower(ext))
}

// getContentType determines content type from the key's extension
func getContentType(key string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(key), ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(strings.ToLower(key), ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
