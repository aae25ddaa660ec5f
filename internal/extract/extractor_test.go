package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGenClient returns a canned response or error
type fakeGenClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenClient) Extract(_ context.Context, _ string, _ models.Platform) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestExtract_GenerativeSuccess(t *testing.T) {
	gen := &fakeGenClient{response: `{
		"invoice_number": "INV-9001",
		"invoice_date": "2024-03-03",
		"account_name": "Acme Retail",
		"subtotal": 820,
		"tax_amount": 180,
		"total_amount": 1000,
		"currency": "usd",
		"campaigns": [{"name": "Brand", "amount": 500, "clicks": 200}]
	}`}

	ex := NewExtractor(gen, zap.NewNop())
	fields := ex.Extract(context.Background(), "some invoice text", models.PlatformGoogleAds)

	assert.Equal(t, "INV-9001", fields.InvoiceNumber)
	assert.Equal(t, "USD", fields.Currency)
	require.NotNil(t, fields.InvoiceDate)
	assert.Equal(t, "2024-03-03", fields.InvoiceDate.Format("2006-01-02"))
	require.Len(t, fields.Campaigns, 1)
	require.NotNil(t, fields.Campaigns[0].CostPerClick)
	assert.InDelta(t, 2.50, *fields.Campaigns[0].CostPerClick, 0.001)
}

func TestExtract_ServiceErrorFallsBack(t *testing.T) {
	gen := &fakeGenClient{err: errors.New("quota exceeded")}

	ex := NewExtractor(gen, zap.NewNop())
	fields := ex.Extract(context.Background(),
		"Invoice number: 123456\nTotal in INR ₹1,234.56",
		models.PlatformGoogleAds)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "123456", fields.InvoiceNumber)
	require.NotNil(t, fields.TotalAmount)
	assert.InDelta(t, 1234.56, *fields.TotalAmount, 0.001)
}

func TestExtract_InvalidJSONFallsBack(t *testing.T) {
	gen := &fakeGenClient{response: "I could not find any billing data, sorry."}

	ex := NewExtractor(gen, zap.NewNop())
	fields := ex.Extract(context.Background(),
		"Invoice number: 777\nTotal amount 42.00",
		models.PlatformGoogleAds)

	assert.Equal(t, "777", fields.InvoiceNumber)
	require.NotNil(t, fields.TotalAmount)
	assert.InDelta(t, 42.00, *fields.TotalAmount, 0.001)
}

func TestExtract_SchemaViolationFallsBack(t *testing.T) {
	// campaigns must be objects, not strings
	gen := &fakeGenClient{response: `{"invoice_number": "X", "campaigns": ["not-an-object"]}`}

	ex := NewExtractor(gen, zap.NewNop())
	fields := ex.Extract(context.Background(), "Invoice number: 555", models.PlatformGoogleAds)

	assert.Equal(t, "555", fields.InvoiceNumber)
}

func TestExtract_NilClientUsesFallback(t *testing.T) {
	ex := NewExtractor(nil, zap.NewNop())
	fields := ex.Extract(context.Background(), "Invoice number: 321", models.PlatformOther)

	assert.Equal(t, "321", fields.InvoiceNumber)
}

func TestParseResponse_SanitizesQuotedAmounts(t *testing.T) {
	fields, err := parseResponse("```json\n" + `{
		"invoice_number": "INV-1",
		"total_amount": "₹1,234.56",
		"tax_amount": null,
		"campaigns": [{"name": "Brand", "amount": "99.50", "clicks": "1,000"}]
	}` + "\n```")
	require.NoError(t, err)

	require.NotNil(t, fields.TotalAmount)
	assert.InDelta(t, 1234.56, *fields.TotalAmount, 0.001)
	assert.Nil(t, fields.TaxAmount)
	require.Len(t, fields.Campaigns, 1)
	require.NotNil(t, fields.Campaigns[0].Clicks)
	assert.EqualValues(t, 1000, *fields.Campaigns[0].Clicks)
	assert.InDelta(t, 99.50, fields.Campaigns[0].Amount, 0.001)
}

func TestParseResponse_RejectsWrongTypes(t *testing.T) {
	_, err := parseResponse(`{"invoice_number": 12345}`)
	assert.Error(t, err)
}
