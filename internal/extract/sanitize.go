package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var moneyKeys = []string{"subtotal", "tax_amount", "total_amount"}

// stripFences removes markdown code fences some models wrap around JSON
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// sanitizeResponse coerces numeric strings to numbers and drops nulls and
// empty strings so the strict schema has a fair chance of accepting output
// from a model that quoted its amounts
func sanitizeResponse(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, k := range moneyKeys {
		coerceNumberKey(m, k)
	}

	if campaigns, ok := m["campaigns"].([]any); ok {
		for _, entry := range campaigns {
			if c, ok := entry.(map[string]any); ok {
				coerceNumberKey(c, "amount")
				coerceIntegerKey(c, "clicks")
				coerceIntegerKey(c, "impressions")
			}
		}
	}
	if payments, ok := m["payments"].([]any); ok {
		for _, entry := range payments {
			if p, ok := entry.(map[string]any); ok {
				coerceNumberKey(p, "amount")
			}
		}
	}

	// Empty strings for scalar fields read better as absent
	for k, v := range m {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			delete(m, k)
		}
	}

	return json.Marshal(m)
}

func coerceNumberKey(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		return
	case string:
		if f, ok := parseAmountString(t); ok {
			m[key] = f
		} else {
			delete(m, key)
		}
	case nil:
		delete(m, key)
	default:
		delete(m, key)
	}
}

func coerceIntegerKey(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		m[key] = int64(t)
	case string:
		if f, ok := parseAmountString(t); ok {
			m[key] = int64(f)
		} else {
			delete(m, key)
		}
	case nil:
		delete(m, key)
	default:
		delete(m, key)
	}
}

// parseAmountString parses a monetary string, tolerating thousand separators
// and common currency symbols
func parseAmountString(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
}

// parseDate parses a date string against the layouts seen on platform
// invoices; unparseable input yields nil rather than a raw string
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
