package extract

import (
	"testing"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestReconcile_SubtotalFromTotalAndTax(t *testing.T) {
	fields := models.ExtractedFields{
		TotalAmount: f64(1000),
		TaxAmount:   f64(180),
	}

	Reconcile(&fields)

	require.NotNil(t, fields.Subtotal)
	assert.InDelta(t, 820.00, *fields.Subtotal, 0.001)
}

func TestReconcile_TotalFromSubtotalAndTax(t *testing.T) {
	fields := models.ExtractedFields{
		Subtotal:  f64(500.555),
		TaxAmount: f64(90.10),
	}

	Reconcile(&fields)

	require.NotNil(t, fields.TotalAmount)
	assert.InDelta(t, 590.66, *fields.TotalAmount, 0.001)
}

func TestReconcile_SubtotalFromCampaignSum(t *testing.T) {
	fields := models.ExtractedFields{
		Campaigns: []models.CampaignLineItem{
			{Name: "Brand", Amount: 100.10},
			{Name: "Generic", Amount: 200.25},
		},
	}

	Reconcile(&fields)

	require.NotNil(t, fields.Subtotal)
	assert.InDelta(t, 300.35, *fields.Subtotal, 0.001)
}

func TestReconcile_CostPerClick(t *testing.T) {
	fields := models.ExtractedFields{
		Campaigns: []models.CampaignLineItem{
			{Name: "Brand", Amount: 150, Clicks: i64(60)},
			{Name: "Zero clicks", Amount: 99, Clicks: i64(0)},
			{Name: "No clicks", Amount: 42},
		},
	}

	Reconcile(&fields)

	require.NotNil(t, fields.Campaigns[0].CostPerClick)
	assert.InDelta(t, 2.50, *fields.Campaigns[0].CostPerClick, 0.001)
	assert.Nil(t, fields.Campaigns[1].CostPerClick)
	assert.Nil(t, fields.Campaigns[2].CostPerClick)
}

func TestReconcile_ExistingSubtotalUntouched(t *testing.T) {
	fields := models.ExtractedFields{
		Subtotal:    f64(700),
		TotalAmount: f64(1000),
		TaxAmount:   f64(180),
	}

	Reconcile(&fields)

	assert.InDelta(t, 700, *fields.Subtotal, 0.001)
}
