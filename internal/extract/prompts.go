package extract

import (
	"fmt"

	"github.com/spendlyhq/invoice-ingest/internal/models"
)

const promptSchema = `{
  "invoice_number": "string",
  "invoice_date": "YYYY-MM-DD",
  "account_id": "string",
  "account_name": "string",
  "location": "string",
  "subtotal": number,
  "tax_amount": number,
  "total_amount": number,
  "currency": "ISO 4217 code, e.g. USD or INR",
  "billing_period_start": "YYYY-MM-DD",
  "billing_period_end": "YYYY-MM-DD",
  "campaigns": [{"name": "string", "amount": number, "clicks": integer, "impressions": integer}],
  "payments": [{"date": "YYYY-MM-DD", "transaction_id": "string", "payment_mode": "string", "amount": number}]
}`

// buildPrompt assembles the extraction instruction set for a platform
func buildPrompt(text string, platform models.Platform) string {
	var hints string
	switch platform {
	case models.PlatformGoogleAds:
		hints = `This is a Google Ads invoice. The campaign table lists one row per
campaign with clicks and amount; report clicks for each campaign and omit
impressions. Amounts may be printed with the currency symbol and Indian-style
thousand separators.`
	case models.PlatformMetaAds, models.PlatformFacebookAds, models.PlatformInstagramAds:
		hints = `This is a Meta-family ads invoice (Meta/Facebook/Instagram). Campaign
rows carry impression counts, not clicks; report impressions and omit clicks.
The transaction/reference identifier belongs in payments.`
	default:
		hints = `The issuing platform is unknown. Extract whatever billing fields are
present and leave the rest null.`
	}

	return fmt.Sprintf(`Extract billing data from this advertising invoice text.

%s

Rules:
- Extract EXACTLY what is printed. Never invent values.
- Use null for any field that is absent or unreadable.
- Amounts are plain numbers without currency symbols or separators.
- Dates use YYYY-MM-DD.

Return a single JSON object with this structure:
%s

Invoice text:
%s`, hints, promptSchema, text)
}
