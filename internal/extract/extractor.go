// Package extract turns raw invoice text into structured billing fields.
//
// Extraction is two-tiered: the primary tier asks a generative model for a
// strict JSON object and validates it against a schema; any service, parse,
// or validation failure falls through to deterministic per-platform regex
// extraction. The generative tier is best-effort and its failures are never
// surfaced to callers.
package extract

import (
	"context"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	"go.uber.org/zap"
)

// GenerativeClient is the contract for the model-driven extraction tier.
// Implementations return the raw response text; failures are absorbed by the
// Extractor and trigger the fallback tier.
type GenerativeClient interface {
	Extract(ctx context.Context, text string, platform models.Platform) (string, error)
}

// FieldExtractor is the contract consumed by the upload pipeline
type FieldExtractor interface {
	Extract(ctx context.Context, text string, platform models.Platform) models.ExtractedFields
}

// Extractor implements the two-tier extraction strategy
type Extractor struct {
	gen    GenerativeClient
	logger *zap.Logger
}

// NewExtractor creates a new field extractor. gen may be nil, in which case
// every invoice goes through the regex fallback.
func NewExtractor(gen GenerativeClient, logger *zap.Logger) *Extractor {
	return &Extractor{
		gen:    gen,
		logger: logger,
	}
}

// Extract produces structured invoice fields from extracted text.
// It never fails: the worst case is a sparsely populated field set from the
// fallback tier. Derived fields are reconciled regardless of which tier ran.
func (e *Extractor) Extract(ctx context.Context, text string, platform models.Platform) models.ExtractedFields {
	fields, ok := e.extractGenerative(ctx, text, platform)
	if !ok {
		fields = Fallback(text, platform)
	}

	Reconcile(&fields)
	return fields
}

func (e *Extractor) extractGenerative(ctx context.Context, text string, platform models.Platform) (models.ExtractedFields, bool) {
	if e.gen == nil {
		return models.ExtractedFields{}, false
	}

	raw, err := e.gen.Extract(ctx, text, platform)
	if err != nil {
		e.logger.Warn("Generative extraction failed, using fallback",
			zap.String("platform", string(platform)),
			zap.Error(err))
		return models.ExtractedFields{}, false
	}

	fields, err := parseResponse(raw)
	if err != nil {
		e.logger.Warn("Generative response rejected, using fallback",
			zap.String("platform", string(platform)),
			zap.Error(err))
		return models.ExtractedFields{}, false
	}

	return fields, true
}
