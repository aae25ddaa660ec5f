// Package pdftext converts PDF byte streams into plain text using mupdf.
package pdftext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ErrUnreadablePDF is returned when a document cannot be opened or yields no text
var ErrUnreadablePDF = errors.New("pdf is unreadable")

// Extractor is the text-extraction contract consumed by the upload pipeline
type Extractor interface {
	ExtractText(pdfBytes []byte) (string, error)
}

// FitzExtractor extracts text with the mupdf bindings
type FitzExtractor struct {
	logger *zap.Logger
}

// NewFitzExtractor creates a new mupdf-backed extractor
func NewFitzExtractor(logger *zap.Logger) *FitzExtractor {
	return &FitzExtractor{logger: logger}
}

// ExtractText returns the concatenated text of every page in the document
func (e *FitzExtractor) ExtractText(pdfBytes []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		e.logger.Warn("Failed to open PDF", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	defer doc.Close()

	var builder strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			e.logger.Warn("Failed to extract page text",
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", fmt.Errorf("%w: document contains no extractable text", ErrUnreadablePDF)
	}

	return result, nil
}
