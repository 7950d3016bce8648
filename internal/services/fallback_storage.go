package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FallbackStorageService stores files on local disk when R2 is not configured
type FallbackStorageService struct {
	basePath string
	baseURL  string
}

// NewFallbackStorageService creates a new fallback storage service
func NewFallbackStorageService(basePath, baseURL string) (*FallbackStorageService, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FallbackStorageService{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// path resolves key below basePath, refusing keys that escape it
func (f *FallbackStorageService) path(key string) (string, error) {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	fullPath := filepath.Join(f.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(f.basePath, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return fullPath, nil
}

// Upload saves a file to local storage
func (f *FallbackStorageService) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	fullPath, err := f.path(key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	if written != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", size, written)
	}

	return f.GetURL(key), nil
}

// GetURL returns the public URL for a file
func (f *FallbackStorageService) GetURL(key string) string {
	return fmt.Sprintf("%s/%s", f.baseURL, strings.TrimPrefix(key, "/"))
}

// Exists checks if a file exists in local storage
func (f *FallbackStorageService) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := f.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if file exists: %w", err)
	}
	return true, nil
}

// StorageServiceWithFallback wraps a primary storage service with a fallback
type StorageServiceWithFallback struct {
	primary  StorageServiceInterface
	fallback StorageServiceInterface
	logger   *slog.Logger
}

// NewStorageServiceWithFallback creates a storage service with fallback capability
func NewStorageServiceWithFallback(primary, fallback StorageServiceInterface, logger *slog.Logger) *StorageServiceWithFallback {
	return &StorageServiceWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "storage"),
	}
}

// Upload tries primary storage first, falls back to fallback storage on error
func (s *StorageServiceWithFallback) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	url, err := s.primary.Upload(ctx, key, reader, contentType, size)
	if err == nil {
		return url, nil
	}

	s.logger.WarnContext(ctx, "primary storage failed, using fallback", "key", key, "error", err)

	seeker, ok := reader.(io.Seeker)
	if !ok {
		return "", fmt.Errorf("primary storage failed and cannot reset reader for fallback: %w", err)
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset reader for fallback: %w", err)
	}

	return s.fallback.Upload(ctx, key, reader, contentType, size)
}

// GetURL returns URL from primary storage
func (s *StorageServiceWithFallback) GetURL(key string) string {
	return s.primary.GetURL(key)
}

// Exists checks both storages
func (s *StorageServiceWithFallback) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.primary.Exists(ctx, key)
	if err == nil && exists {
		return true, nil
	}
	return s.fallback.Exists(ctx, key)
}
