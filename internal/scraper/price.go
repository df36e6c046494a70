package scraper

import (
	"regexp"
	"strings"
)

var numericRunPattern = regexp.MustCompile(`[\d.,]+`)

// NormalizePrice converts store price strings like "1.234,56 TL" into the
// Merchant Center form "1234.56 TRY". Turkish formatting uses "." for
// thousands and "," for decimals. Strings without a TL marker pass through
// unchanged.
func NormalizePrice(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "TL") {
		return raw
	}

	numeric := numericRunPattern.FindString(raw)
	if numeric == "" {
		return raw
	}

	switch {
	case strings.Contains(numeric, ",") && strings.Contains(numeric, "."):
		numeric = strings.ReplaceAll(numeric, ".", "")
		numeric = strings.ReplaceAll(numeric, ",", ".")
	case strings.Contains(numeric, ","):
		numeric = strings.ReplaceAll(numeric, ",", ".")
	}
	return numeric + " TRY"
}
