package models

import "time"

// Platform identifies the advertising network that issued an invoice
type Platform string

const (
	PlatformGoogleAds    Platform = "google_ads"
	PlatformMetaAds      Platform = "meta_ads"
	PlatformFacebookAds  Platform = "facebook_ads"
	PlatformInstagramAds Platform = "instagram_ads"
	PlatformOther        Platform = "other"
)

// IsValid checks if the platform is one of the defined constants
func (p Platform) IsValid() bool {
	switch p {
	case PlatformGoogleAds, PlatformMetaAds, PlatformFacebookAds, PlatformInstagramAds, PlatformOther:
		return true
	default:
		return false
	}
}

// Processing status constants for an invoice record
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// CampaignLineItem represents a single campaign row on an invoice.
// Clicks and cost-per-click apply to search-style platforms, impressions
// to social-style platforms; the unused metrics stay nil.
type CampaignLineItem struct {
	Name         string   `json:"name"`
	Amount       float64  `json:"amount"`
	Clicks       *int64   `json:"clicks,omitempty"`
	CostPerClick *float64 `json:"cost_per_click,omitempty"`
	Impressions  *int64   `json:"impressions,omitempty"`
}

// PaymentLineItem represents a payment or adjustment row on an invoice
type PaymentLineItem struct {
	Date          *time.Time `json:"date,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaymentMode   string     `json:"payment_mode,omitempty"`
	Amount        float64    `json:"amount"`
}

// ExtractedFields holds the structured billing data pulled out of an invoice
type ExtractedFields struct {
	InvoiceNumber      string             `json:"invoice_number,omitempty"`
	InvoiceDate        *time.Time         `json:"invoice_date,omitempty"`
	AccountID          string             `json:"account_id,omitempty"`
	AccountName        string             `json:"account_name,omitempty"`
	Location           string             `json:"location,omitempty"`
	Subtotal           *float64           `json:"subtotal,omitempty"`
	TaxAmount          *float64           `json:"tax_amount,omitempty"`
	TotalAmount        *float64           `json:"total_amount,omitempty"`
	Currency           string             `json:"currency,omitempty"`
	BillingPeriodStart *time.Time         `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time         `json:"billing_period_end,omitempty"`
	Campaigns          []CampaignLineItem `json:"campaigns,omitempty"`
	Payments           []PaymentLineItem  `json:"payments,omitempty"`
}

// InvoiceRecord is the durable entity produced by the ingestion pipeline.
// FileHash and FileName are the duplicate-detection keys; any match against
// an existing record rejects a new upload.
type InvoiceRecord struct {
	ID           int64           `json:"id"`
	FileName     string          `json:"file_name"`
	FilePath     string          `json:"file_path"`
	FileHash     string          `json:"file_hash"`
	Platform     Platform        `json:"platform"`
	Status       string          `json:"status"`
	Fields       ExtractedFields `json:"fields"`
	RawText      string          `json:"raw_text,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
