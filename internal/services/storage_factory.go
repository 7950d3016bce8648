package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"vr-theatre-marketplace/internal/config"
)

// StorageFactory creates the QR archive storage with proper fallback configuration
type StorageFactory struct {
	config      *config.Config
	logger      *slog.Logger
	fallbackDir string
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *slog.Logger) *StorageFactory {
	return &StorageFactory{
		config:      cfg,
		logger:      logger.With("component", "storage_factory"),
		fallbackDir: filepath.Join("var", "ticket-codes"),
	}
}

// FallbackPath is where QR images land when R2 is unavailable
func (f *StorageFactory) FallbackPath() string {
	return f.fallbackDir
}

// CreateStorageService returns R2 backed by local disk, or local disk alone
// when R2 is not configured or unreachable. The local copy is never served
// over HTTP since file names are redeemable ticket codes.
func (f *StorageFactory) CreateStorageService(ctx context.Context) (StorageServiceInterface, error) {
	dir, err := filepath.Abs(f.FallbackPath())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fallback storage path: %w", err)
	}
	fallback, err := NewFallbackStorageService(dir, "file://"+filepath.ToSlash(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback storage: %w", err)
	}

	r2Service, err := NewR2Service(ctx, f.config.R2)
	if err != nil {
		f.logger.Warn("R2 unavailable, archiving QR codes locally", "reason", err)
		return fallback, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r2Service.HealthCheck(checkCtx); err != nil {
		f.logger.Warn("R2 health check failed, archiving QR codes locally", "error", err)
		return fallback, nil
	}

	f.logger.Info("R2 storage service initialized", "bucket", f.config.R2.BucketName)
	return NewStorageServiceWithFallback(r2Service, fallback, f.logger), nil
}

// SetupR2Bucket creates the archive bucket
func (f *StorageFactory) SetupR2Bucket(ctx context.Context) error {
	r2Service, err := NewR2Service(ctx, f.config.R2)
	if err != nil {
		return fmt.Errorf("failed to create R2 service: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := r2Service.CreateBucket(ctx); err != nil {
		return fmt.Errorf("failed to create R2 bucket: %w", err)
	}
	return nil
}

// ValidateR2Configuration validates the R2 configuration
func (f *StorageFactory) ValidateR2Configuration() error {
	cfg := f.config.R2

	if cfg.AccountID == "" && cfg.Endpoint == "" {
		return fmt.Errorf("R2_ACCOUNT_ID or R2_ENDPOINT is required")
	}
	if cfg.AccessKeyID == "" {
		return fmt.Errorf("R2_ACCESS_KEY_ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return fmt.Errorf("R2_SECRET_ACCESS_KEY is required")
	}
	if cfg.BucketName == "" {
		return fmt.Errorf("R2_BUCKET_NAME is required")
	}
	return nil
}

// GetStorageInfo summarizes the archive storage configuration
func (f *StorageFactory) GetStorageInfo() map[string]interface{} {
	return map[string]interface{}{
		"r2_configured": f.ValidateR2Configuration() == nil,
		"bucket_name":   f.config.R2.BucketName,
		"public_url":    f.config.R2.PublicURL,
		"endpoint":      r2Endpoint(f.config.R2),
		"fallback_path": f.FallbackPath(),
	}
}
