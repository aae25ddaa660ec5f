// Package storage owns the temporary and permanent on-disk homes of uploaded
// invoice files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileStore is the file persistence contract used by the upload pipeline.
// Files land in temporary storage first and are promoted to permanent
// storage only after their record is persisted.
type FileStore interface {
	SaveTemp(name string, content []byte) (string, error)
	Promote(tempPath, name string) (string, error)
	Delete(path string)
}

// LocalFileStore implements FileStore on the local filesystem. Stored names
// carry a random prefix so no two items ever contend for the same path.
type LocalFileStore struct {
	tempDir string
	permDir string
	logger  *zap.Logger
}

// NewLocalFileStore creates a new LocalFileStore and its directories
func NewLocalFileStore(tempDir, permDir string, logger *zap.Logger) (*LocalFileStore, error) {
	for _, dir := range []string{tempDir, permDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &LocalFileStore{
		tempDir: tempDir,
		permDir: permDir,
		logger:  logger,
	}, nil
}

// SaveTemp writes content to temporary storage under a uniquely prefixed name
func (s *LocalFileStore) SaveTemp(name string, content []byte) (string, error) {
	path := filepath.Join(s.tempDir, prefixedName(name))
	if err := s.validatePath(path, s.tempDir); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		s.logger.Error("Failed to write temp file",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	s.logger.Debug("Temp file saved",
		zap.String("path", path),
		zap.Int("size", len(content)))
	return path, nil
}

// Promote moves a temp file into permanent storage and returns its new path
func (s *LocalFileStore) Promote(tempPath, name string) (string, error) {
	dest := filepath.Join(s.permDir, prefixedName(name))
	if err := s.validatePath(dest, s.permDir); err != nil {
		return "", err
	}

	if err := os.Rename(tempPath, dest); err != nil {
		return "", fmt.Errorf("failed to promote file: %w", err)
	}

	s.logger.Debug("File promoted",
		zap.String("from", tempPath),
		zap.String("to", dest))
	return dest, nil
}

// Delete removes a stored file. Failures are logged, never escalated: a
// leftover temp file must not mask the error that led to the cleanup.
func (s *LocalFileStore) Delete(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to delete stored file",
			zap.String("path", path),
			zap.Error(err))
	}
}

// validatePath checks that the resolved path stays within the base directory
func (s *LocalFileStore) validatePath(fullPath, baseDir string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes storage directory: %s", fullPath)
	}
	return nil
}

// prefixedName returns a collision-free stored name for an original file name
func prefixedName(name string) string {
	return uuid.NewString()[:8] + "_" + sanitizeName(name)
}

// sanitizeName strips path separators and traversal sequences from a
// caller-supplied file name
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
