package normalize

import (
	"errors"
	"strings"
)

var (
	// ErrPhoneMissing is returned for a blank phone cell.
	ErrPhoneMissing = errors.New("phone number missing")

	// ErrPhoneInvalid is returned for a non-empty phone cell that does not
	// reduce to a dialable North American number.
	ErrPhoneInvalid = errors.New("phone number invalid")
)

// NormalizePhone reduces a phone cell to E.164 form ("+15551234567").
//
// Accepted inputs include "(555) 123-4567", "555.123.4567", "1-555-123-4567",
// "+1 555 123 4567" and "555-123-4567 x12" (extensions are dropped). Only
// NANP numbers are accepted and the area code may not start with 0 or 1.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrPhoneMissing
	}

	// Drop an extension suffix before extracting digits.
	lower := strings.ToLower(raw)
	for _, marker := range []string{"ext.", "ext", "x", "#"} {
		if idx := strings.LastIndex(lower, marker); idx > 0 {
			raw = raw[:idx]
			break
		}
	}

	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '+' || c == '(' || c == ')' || c == '-' || c == '.' || c == ' ' || c == '\t' || c == '/':
			// punctuation
		default:
			return "", ErrPhoneInvalid
		}
	}

	switch {
	case len(digits) == 11 && digits[0] == '1':
		digits = digits[1:]
	case len(digits) != 10:
		return "", ErrPhoneInvalid
	}

	if digits[0] < '2' {
		return "", ErrPhoneInvalid
	}

	return "+1" + string(digits), nil
}
