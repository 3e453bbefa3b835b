// =============================================================================
// POS Migrator - Row Normalizer: Value Parsing
// =============================================================================
//
// This module turns the free-form string cells of a point-of-sale export into
// typed values. Source exports are assumed to be noisy, so none of these
// functions fail: an unparseable value becomes the zero value.
//
// SUPPORTED FORMATS:
//   - Currency: "$1,234.56", "-$5.00", "($5.00)", "1234.5", "" (zero)
//   - Integers: "1,204", "7", "7.0" (truncated)
//   - Booleans: "Y", "Yes", "true", "1", "x" (case-insensitive)
//   - Dates:    see dateLayouts below
//
// =============================================================================

package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY AND QUANTITIES
// =============================================================================

// ParseCurrency parses a currency-formatted cell into a decimal amount.
//
// Parentheses and a leading minus sign both mark a negative amount. Currency
// symbols, thousands separators and whitespace are ignored. Any value that is
// still not a number after cleaning yields zero.
func ParseCurrency(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	cleaned := cleanNumber(s)
	if strings.HasPrefix(cleaned, "-") {
		negative = !negative
		cleaned = cleaned[1:]
	}
	if cleaned == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// ParseQuantity parses an on-hand quantity. Quantities share the currency
// grammar (exports sometimes write "1,200" or "(3)").
func ParseQuantity(s string) decimal.Decimal {
	return ParseCurrency(s)
}

// ParseInt parses an integer count such as a visit count. Fractions are
// truncated and malformed values yield zero.
func ParseInt(s string) int {
	d := ParseCurrency(s)
	return int(d.IntPart())
}

// cleanNumber keeps digits, a single decimal point and a leading minus sign.
func cleanNumber(s string) string {
	var b strings.Builder
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		case r == '-' && b.Len() == 0 && i < len(s)-1:
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}

// =============================================================================
// BOOLEANS
// =============================================================================

// ParseBool reports whether a flag cell is set.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "t", "1", "x":
		return true
	default:
		return false
	}
}

// =============================================================================
// DATES
// =============================================================================

// dateLayouts are tried in order. The time part is optional.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/06 15:04",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseDate combines a date cell and an optional time cell. The zero time is
// returned when nothing matches.
func ParseDate(date, clock string) time.Time {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}
	}

	candidates := []string{date}
	if clock = strings.TrimSpace(clock); clock != "" {
		candidates = append([]string{date + " " + clock}, candidates...)
	}

	for _, value := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
