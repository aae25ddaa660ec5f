// Package dedup decides whether an uploaded file duplicates a stored invoice.
package dedup

import (
	"path/filepath"
	"strings"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	"go.uber.org/zap"
)

// Duplicate reason tags, most specific first
const (
	ReasonContent         = "content"
	ReasonFilename        = "filename"
	ReasonSimilarName     = "similar_name"
	ReasonCaseInsensitive = "case_insensitive"
)

// Lookup is the slice of storage the detector consults
type Lookup interface {
	FindByHash(hash string) (*models.InvoiceRecord, error)
	FindByNameExact(name string) (*models.InvoiceRecord, error)
	FindByNameStem(stem string) (*models.InvoiceRecord, error)
	FindByNameFold(name string) (*models.InvoiceRecord, error)
}

// Verdict is the outcome of a duplicate check
type Verdict struct {
	Duplicate bool
	Reason    string
	Existing  *models.InvoiceRecord
}

// Detector checks candidate files against stored records
type Detector struct {
	store  Lookup
	logger *zap.Logger
}

// NewDetector creates a new duplicate detector
func NewDetector(store Lookup, logger *zap.Logger) *Detector {
	return &Detector{
		store:  store,
		logger: logger,
	}
}

// Check runs the duplicate checks in order of decreasing specificity: content
// digest, exact name, name stem with any extension, case-insensitive name.
// The first hit wins. A storage error fails open — the item is treated as
// novel and the error is logged, so a transient lookup failure never blocks
// ingestion.
func (d *Detector) Check(hash, name string) Verdict {
	if rec, err := d.store.FindByHash(hash); err != nil {
		d.failOpen("hash", err)
	} else if rec != nil {
		return Verdict{Duplicate: true, Reason: ReasonContent, Existing: rec}
	}

	if rec, err := d.store.FindByNameExact(name); err != nil {
		d.failOpen("name", err)
	} else if rec != nil {
		return Verdict{Duplicate: true, Reason: ReasonFilename, Existing: rec}
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem != "" && stem != name {
		if rec, err := d.store.FindByNameStem(stem); err != nil {
			d.failOpen("stem", err)
		} else if rec != nil {
			return Verdict{Duplicate: true, Reason: ReasonSimilarName, Existing: rec}
		}
	}

	if rec, err := d.store.FindByNameFold(name); err != nil {
		d.failOpen("fold", err)
	} else if rec != nil {
		return Verdict{Duplicate: true, Reason: ReasonCaseInsensitive, Existing: rec}
	}

	return Verdict{}
}

func (d *Detector) failOpen(check string, err error) {
	d.logger.Warn("Duplicate check failed, treating item as novel",
		zap.String("check", check),
		zap.Error(err))
}
