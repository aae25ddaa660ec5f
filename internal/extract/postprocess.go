package extract

import (
	"math"

	"github.com/spendlyhq/invoice-ingest/internal/models"
)

// Reconcile fills derivable fields regardless of which extraction tier ran:
// subtotal/total from each other plus tax, subtotal from the campaign sum,
// and per-campaign cost-per-click.
func Reconcile(f *models.ExtractedFields) {
	if f.Subtotal == nil && f.TotalAmount != nil && f.TaxAmount != nil {
		v := round2(*f.TotalAmount - *f.TaxAmount)
		f.Subtotal = &v
	}
	if f.TotalAmount == nil && f.Subtotal != nil && f.TaxAmount != nil {
		v := round2(*f.Subtotal + *f.TaxAmount)
		f.TotalAmount = &v
	}

	if (f.Subtotal == nil || *f.Subtotal == 0) && len(f.Campaigns) > 0 {
		var sum float64
		for _, c := range f.Campaigns {
			sum += c.Amount
		}
		if sum > 0 {
			v := round2(sum)
			f.Subtotal = &v
		}
	}

	for i := range f.Campaigns {
		c := &f.Campaigns[i]
		if c.CostPerClick == nil && c.Clicks != nil && *c.Clicks > 0 && c.Amount > 0 {
			v := round2(c.Amount / float64(*c.Clicks))
			c.CostPerClick = &v
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
