package extract

import (
	"testing"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const googleInvoiceText = `Google Ads
Invoice number: 123456
Invoice date: Mar 3, 2024
Billing ID: 1234-5678-9012
Account: Acme Retail India

Billing period: Feb 1, 2024 - Feb 29, 2024

Campaign  Clicks  Amount
Search Brand Exact  1,480  12,340.00
Shopping Feed  920  5,130.50

Subtotal in INR  17,470.50
IGST @ 18%  3,144.69
Total in INR  ₹1,234.56
`

func TestFallback_GoogleInvoice(t *testing.T) {
	fields := Fallback(googleInvoiceText, models.PlatformGoogleAds)

	assert.Equal(t, "123456", fields.InvoiceNumber)
	require.NotNil(t, fields.TotalAmount)
	assert.InDelta(t, 1234.56, *fields.TotalAmount, 0.001)
	assert.Equal(t, "INR", fields.Currency)

	require.NotNil(t, fields.InvoiceDate)
	assert.Equal(t, "2024-03-03", fields.InvoiceDate.Format("2006-01-02"))

	assert.Equal(t, "1234-5678-9012", fields.AccountID)
	assert.Equal(t, "Acme Retail India", fields.AccountName)

	require.NotNil(t, fields.BillingPeriodStart)
	require.NotNil(t, fields.BillingPeriodEnd)
	assert.Equal(t, "2024-02-01", fields.BillingPeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", fields.BillingPeriodEnd.Format("2006-01-02"))
}

func TestFallback_GoogleCampaignTable(t *testing.T) {
	fields := Fallback(googleInvoiceText, models.PlatformGoogleAds)

	require.Len(t, fields.Campaigns, 2)

	first := fields.Campaigns[0]
	assert.Equal(t, "Search Brand Exact", first.Name)
	require.NotNil(t, first.Clicks)
	assert.EqualValues(t, 1480, *first.Clicks)
	assert.InDelta(t, 12340.00, first.Amount, 0.001)

	second := fields.Campaigns[1]
	assert.Equal(t, "Shopping Feed", second.Name)
	require.NotNil(t, second.Clicks)
	assert.EqualValues(t, 920, *second.Clicks)
}

func TestFallback_MetaInvoice(t *testing.T) {
	text := `Meta Platforms Ireland Limited
Ads billing receipt
Reference number: FBADS-2024-0042
Transaction ID: 9821734650
Amount billed  $250.00
`
	fields := Fallback(text, models.PlatformMetaAds)

	require.NotNil(t, fields.TotalAmount)
	assert.InDelta(t, 250.00, *fields.TotalAmount, 0.001)

	require.Len(t, fields.Payments, 1)
	assert.Equal(t, "9821734650", fields.Payments[0].TransactionID)
	assert.InDelta(t, 250.00, fields.Payments[0].Amount, 0.001)
}

func TestFallback_EmptyText(t *testing.T) {
	fields := Fallback("", models.PlatformOther)

	assert.Empty(t, fields.InvoiceNumber)
	assert.Nil(t, fields.TotalAmount)
	assert.Nil(t, fields.InvoiceDate)
	assert.Empty(t, fields.Campaigns)
}
