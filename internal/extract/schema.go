package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spendlyhq/invoice-ingest/internal/models"
)

// responseSchema validates the generative tier's output before it is trusted.
// Unknown keys are tolerated; known keys must carry the right type or the
// whole response is rejected and the fallback tier runs instead.
const responseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "invoice_number": {"type": ["string", "null"]},
    "invoice_date": {"type": ["string", "null"]},
    "account_id": {"type": ["string", "null"]},
    "account_name": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "subtotal": {"type": ["number", "null"]},
    "tax_amount": {"type": ["number", "null"]},
    "total_amount": {"type": ["number", "null"]},
    "currency": {"type": ["string", "null"], "maxLength": 8},
    "billing_period_start": {"type": ["string", "null"]},
    "billing_period_end": {"type": ["string", "null"]},
    "campaigns": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "amount": {"type": ["number", "null"]},
          "clicks": {"type": ["integer", "null"]},
          "impressions": {"type": ["integer", "null"]}
        },
        "required": ["name"]
      }
    },
    "payments": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "date": {"type": ["string", "null"]},
          "transaction_id": {"type": ["string", "null"]},
          "payment_mode": {"type": ["string", "null"]},
          "amount": {"type": ["number", "null"]}
        }
      }
    }
  }
}`

var responseSchema = jsonschema.MustCompileString("invoice_response.json", responseSchemaJSON)

// responsePayload mirrors the wire JSON produced by the generative tier
type responsePayload struct {
	InvoiceNumber      string            `json:"invoice_number"`
	InvoiceDate        string            `json:"invoice_date"`
	AccountID          string            `json:"account_id"`
	AccountName        string            `json:"account_name"`
	Location           string            `json:"location"`
	Subtotal           *float64          `json:"subtotal"`
	TaxAmount          *float64          `json:"tax_amount"`
	TotalAmount        *float64          `json:"total_amount"`
	Currency           string            `json:"currency"`
	BillingPeriodStart string            `json:"billing_period_start"`
	BillingPeriodEnd   string            `json:"billing_period_end"`
	Campaigns          []campaignPayload `json:"campaigns"`
	Payments           []paymentPayload  `json:"payments"`
}

type campaignPayload struct {
	Name        string   `json:"name"`
	Amount      *float64 `json:"amount"`
	Clicks      *int64   `json:"clicks"`
	Impressions *int64   `json:"impressions"`
}

type paymentPayload struct {
	Date          string   `json:"date"`
	TransactionID string   `json:"transaction_id"`
	PaymentMode   string   `json:"payment_mode"`
	Amount        *float64 `json:"amount"`
}

// parseResponse sanitizes, validates, and converts a raw generative response.
// Any failure rejects the whole response so the caller can fall back.
func parseResponse(raw string) (models.ExtractedFields, error) {
	cleaned := stripFences(raw)

	sanitized, err := sanitizeResponse([]byte(cleaned))
	if err != nil {
		return models.ExtractedFields{}, err
	}

	var doc any
	if err := json.Unmarshal(sanitized, &doc); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := responseSchema.Validate(doc); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("response failed schema validation: %w", err)
	}

	var p responsePayload
	if err := json.Unmarshal(sanitized, &p); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return p.toFields(), nil
}

func (p responsePayload) toFields() models.ExtractedFields {
	fields := models.ExtractedFields{
		InvoiceNumber:      strings.TrimSpace(p.InvoiceNumber),
		InvoiceDate:        parseDate(p.InvoiceDate),
		AccountID:          strings.TrimSpace(p.AccountID),
		AccountName:        strings.TrimSpace(p.AccountName),
		Location:           strings.TrimSpace(p.Location),
		Subtotal:           p.Subtotal,
		TaxAmount:          p.TaxAmount,
		TotalAmount:        p.TotalAmount,
		Currency:           strings.ToUpper(strings.TrimSpace(p.Currency)),
		BillingPeriodStart: parseDate(p.BillingPeriodStart),
		BillingPeriodEnd:   parseDate(p.BillingPeriodEnd),
	}

	for _, c := range p.Campaigns {
		item := models.CampaignLineItem{
			Name:        strings.TrimSpace(c.Name),
			Clicks:      c.Clicks,
			Impressions: c.Impressions,
		}
		if c.Amount != nil {
			item.Amount = *c.Amount
		}
		if item.Name == "" {
			continue
		}
		fields.Campaigns = append(fields.Campaigns, item)
	}

	for _, pay := range p.Payments {
		item := models.PaymentLineItem{
			Date:          parseDate(pay.Date),
			TransactionID: strings.TrimSpace(pay.TransactionID),
			PaymentMode:   strings.TrimSpace(pay.PaymentMode),
		}
		if pay.Amount != nil {
			item.Amount = *pay.Amount
		}
		fields.Payments = append(fields.Payments, item)
	}

	return fields
}
