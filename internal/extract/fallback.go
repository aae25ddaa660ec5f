package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spendlyhq/invoice-ingest/internal/models"
)

// Deterministic regex extraction, tuned per platform. This tier runs whenever
// the generative tier is unavailable or its output is rejected.

var (
	reInvoiceNumber = regexp.MustCompile(`(?i)invoice\s*(?:number|no\.?|#)\s*[:\-]?\s*([A-Za-z0-9\-]+)`)
	reInvoiceDate   = regexp.MustCompile(`(?i)invoice\s*date\s*[:\-]?\s*([A-Za-z0-9 ,/\-]+)`)
	reAccountID     = regexp.MustCompile(`(?i)(?:billing|account)\s*id\s*[:\-]?\s*([A-Za-z0-9\-]+)`)
	reAccountName   = regexp.MustCompile(`(?i)account(?:\s*name)?\s*[:\-]\s*([^\n]+)`)
	reTotalIn       = regexp.MustCompile(`(?i)\btotal\s+in\s+([A-Z]{3})\b[^0-9\-]*([\d,]+(?:\.\d+)?)`)
	reTotalAmount   = regexp.MustCompile(`(?i)\b(?:total\s+amount|amount\s+(?:due|billed)|grand\s+total)\b[^0-9\-]*([\d,]+(?:\.\d+)?)`)
	reSubtotal      = regexp.MustCompile(`(?i)sub\s*total\b[^0-9\-]*([\d,]+(?:\.\d+)?)`)
	reTax           = regexp.MustCompile(`(?i)\b(?:igst|cgst|sgst|gst|vat|tax)\b[^\n]*?([\d,]+\.\d{2})`)
	reBillingPeriod = regexp.MustCompile(`(?i)billing\s+period\s*[:\-]?\s*([A-Za-z0-9 ,/\-]+?)\s*(?:-|–|to)\s*([A-Za-z0-9 ,/\-]+)`)
	reTransactionID = regexp.MustCompile(`(?i)transaction\s*id\s*[:\-]?\s*([A-Za-z0-9\-]+)`)
	reReferenceNo   = regexp.MustCompile(`(?i)reference\s*(?:number|no\.?)?\s*[:\-]?\s*([A-Za-z0-9\-]+)`)
	reCurrencyCode  = regexp.MustCompile(`\b(USD|EUR|GBP|INR|AUD|CAD|SGD)\b`)

	// One campaign row per line: name, click count, amount
	reCampaignRow = regexp.MustCompile(`(?m)^[ \t]*(\S(?:.*?\S)?)[ \t]+([\d,]+)[ \t]+[₹$€£]?[ \t]*([\d,]+\.\d{2})[ \t]*$`)
)

// words that disqualify a matched row from being a campaign line
var campaignStopWords = []string{"total", "subtotal", "invoice", "amount", "gst", "vat", "tax", "page", "balance"}

// Fallback extracts invoice fields with platform-tuned regular expressions
func Fallback(text string, platform models.Platform) models.ExtractedFields {
	fields := models.ExtractedFields{
		InvoiceNumber: firstMatch(reInvoiceNumber, text),
		InvoiceDate:   parseDate(firstMatch(reInvoiceDate, text)),
		AccountID:     firstMatch(reAccountID, text),
		AccountName:   strings.TrimSpace(firstMatch(reAccountName, text)),
	}

	if m := reTotalIn.FindStringSubmatch(text); len(m) > 2 {
		fields.Currency = strings.ToUpper(m[1])
		fields.TotalAmount = parseAmount(m[2])
	} else if m := reTotalAmount.FindStringSubmatch(text); len(m) > 1 {
		fields.TotalAmount = parseAmount(m[1])
	}

	if fields.Currency == "" {
		if m := reCurrencyCode.FindStringSubmatch(text); len(m) > 1 {
			fields.Currency = m[1]
		}
	}

	if m := reSubtotal.FindStringSubmatch(text); len(m) > 1 {
		fields.Subtotal = parseAmount(m[1])
	}
	if m := reTax.FindStringSubmatch(text); len(m) > 1 {
		fields.TaxAmount = parseAmount(m[1])
	}

	if m := reBillingPeriod.FindStringSubmatch(text); len(m) > 2 {
		fields.BillingPeriodStart = parseDate(strings.TrimSpace(m[1]))
		fields.BillingPeriodEnd = parseDate(strings.TrimSpace(m[2]))
	}

	switch platform {
	case models.PlatformGoogleAds:
		fields.Campaigns = extractCampaignRows(text)
	case models.PlatformMetaAds, models.PlatformFacebookAds, models.PlatformInstagramAds:
		if txn := firstMatch(reTransactionID, text); txn != "" {
			payment := models.PaymentLineItem{TransactionID: txn}
			if fields.TotalAmount != nil {
				payment.Amount = *fields.TotalAmount
			}
			fields.Payments = append(fields.Payments, payment)
		}
		if fields.InvoiceNumber == "" {
			fields.InvoiceNumber = firstMatch(reReferenceNo, text)
		}
	}

	return fields
}

// extractCampaignRows parses the search-style campaign table: repeated
// "name  clicks  amount" lines
func extractCampaignRows(text string) []models.CampaignLineItem {
	var items []models.CampaignLineItem

	for _, m := range reCampaignRow.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || isCampaignStopWord(name) {
			continue
		}

		clicks, err := strconv.ParseInt(strings.ReplaceAll(m[2], ",", ""), 10, 64)
		if err != nil {
			continue
		}
		amount := parseAmount(m[3])
		if amount == nil {
			continue
		}

		items = append(items, models.CampaignLineItem{
			Name:   name,
			Amount: *amount,
			Clicks: &clicks,
		})
	}

	return items
}

func isCampaignStopWord(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range campaignStopWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func parseAmount(s string) *float64 {
	f, ok := parseAmountString(s)
	if !ok {
		return nil
	}
	return &f
}
