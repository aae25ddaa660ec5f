// Package platform infers which advertising network issued an invoice.
package platform

import (
	"strings"

	"github.com/spendlyhq/invoice-ingest/internal/models"
)

// Classify infers the issuing platform from extracted invoice text.
// Rules run in priority order and the first match wins, so text mentioning
// several networks resolves to the most specific issuer.
func Classify(text string) models.Platform {
	t := strings.ToLower(text)

	switch {
	case strings.Contains(t, "google ads") || strings.Contains(t, "google invoice"):
		return models.PlatformGoogleAds
	case strings.Contains(t, "meta") && (strings.Contains(t, "ads") || strings.Contains(t, "advertising")):
		return models.PlatformMetaAds
	case strings.Contains(t, "facebook ads"):
		return models.PlatformFacebookAds
	case strings.Contains(t, "instagram ads"):
		return models.PlatformInstagramAds
	default:
		return models.PlatformOther
	}
}
