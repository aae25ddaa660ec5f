// Package archive expands uploaded ZIP archives into their PDF entries.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrCorruptArchive is returned when an archive cannot be opened or parsed
var ErrCorruptArchive = errors.New("archive is corrupt or unreadable")

// EntryFunc receives one extracted PDF entry. Returning an error stops the walk.
type EntryFunc func(name string, data []byte) error

// Expander walks ZIP archives and yields PDF entries
type Expander struct {
	logger *zap.Logger
}

// NewExpander creates a new archive expander
func NewExpander(logger *zap.Logger) *Expander {
	return &Expander{logger: logger}
}

// Expand enumerates the archive in a single pass and calls fn for every entry
// whose name has a .pdf extension (case-insensitive). Directory entries and
// non-PDF entries are skipped silently. Entry names are flattened to their
// base name so nested folder layouts inside the archive do not leak into
// stored file names.
func (e *Expander) Expand(data []byte, fn EntryFunc) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Warn("Failed to open archive", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		name := filepath.Base(entry.Name)
		if !IsPDF(name) {
			e.logger.Debug("Skipping non-PDF archive entry", zap.String("entry", entry.Name))
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			e.logger.Warn("Failed to open archive entry",
				zap.String("entry", entry.Name),
				zap.Error(err))
			return fmt.Errorf("%w: entry %s: %v", ErrCorruptArchive, entry.Name, err)
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%w: entry %s: %v", ErrCorruptArchive, entry.Name, err)
		}

		if err := fn(name, content); err != nil {
			return err
		}
	}

	return nil
}

// IsPDF reports whether a file name carries a .pdf extension
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// IsArchive reports whether a file name or declared content type looks like
// a ZIP archive
func IsArchive(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		return true
	}
	switch contentType {
	case "application/zip", "application/x-zip-compressed":
		return true
	}
	return false
}
