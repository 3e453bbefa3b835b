// =============================================================================
// POS Migrator - Customer Classifier
// =============================================================================
//
// Every customer row is placed into exactly one of four tiers:
//
//   | Tier | Phone            | Visits | Email     | Meaning                  |
//   |------|------------------|--------|-----------|--------------------------|
//   | 1    | valid            | > 0    | any       | active, reachable        |
//   | 2    | valid            | = 0    | any       | prospect, reachable      |
//   | 3    | missing/invalid  | any    | non-empty | reachable by email only  |
//   | 4    | missing/invalid  | any    | empty     | unreachable (not import) |
//
// Rows with a phone that is present but unusable are counted apart from rows
// with no phone at all: both fall through to tier 3/4, but the operator fixes
// them differently.
//
// =============================================================================

package customers

import (
	"errors"
	"fmt"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/shopspring/decimal"
)

// Tier is the reachability class of a customer.
type Tier int

const (
	TierActive      Tier = 1
	TierProspect    Tier = 2
	TierEmailOnly   Tier = 3
	TierUnreachable Tier = 4
)

// String returns a short label for reports.
func (t Tier) String() string {
	switch t {
	case TierActive:
		return "active"
	case TierProspect:
		return "prospect"
	case TierEmailOnly:
		return "email-only"
	case TierUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// PhoneStatus records the outcome of phone normalization.
type PhoneStatus string

const (
	PhoneValid   PhoneStatus = "valid"
	PhoneInvalid PhoneStatus = "invalid"
	PhoneMissing PhoneStatus = "missing"
)

// Classified is a customer row with its derived tier and phone fields. It is
// never mutated after Classify returns it.
type Classified struct {
	Row normalize.CustomerRow

	Tier Tier

	// NormalizedPhone is the E.164 phone, or "" when the phone is missing
	// or invalid.
	NormalizedPhone string
	PhoneValid      bool
	PhoneStatus     PhoneStatus
	OriginalPhone   string

	VisitCount    int
	LifetimeSpend decimal.Decimal
}

// Classify assigns a tier to every row. The output has the same length and
// order as the input.
func Classify(rows []normalize.CustomerRow) []Classified {
	out := make([]Classified, len(rows))
	for i, row := range rows {
		out[i] = classifyRow(row)
	}
	return out
}

// classifyRow derives the tier for one row.
func classifyRow(row normalize.CustomerRow) Classified {
	c := Classified{
		Row:           row,
		OriginalPhone: row.Phone,
		VisitCount:    row.Visits,
		LifetimeSpend: row.LifetimeSpend,
	}

	phone, err := normalize.NormalizePhone(row.Phone)
	switch {
	case err == nil:
		c.NormalizedPhone = phone
		c.PhoneValid = true
		c.PhoneStatus = PhoneValid
	case errors.Is(err, normalize.ErrPhoneMissing):
		c.PhoneStatus = PhoneMissing
	default:
		c.PhoneStatus = PhoneInvalid
	}

	switch {
	case c.PhoneValid && c.VisitCount > 0:
		c.Tier = TierActive
	case c.PhoneValid:
		c.Tier = TierProspect
	case row.Email != "":
		c.Tier = TierEmailOnly
	default:
		c.Tier = TierUnreachable
	}

	return c
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary holds classification counts for reporting.
type Summary struct {
	Total         int
	Tiers         map[Tier]int
	InvalidPhones int
	MissingPhones int
}

// Summarize counts tiers and phone outcomes. The tier counts always sum to
// Total.
func Summarize(classified []Classified) Summary {
	s := Summary{
		Total: len(classified),
		Tiers: map[Tier]int{
			TierActive:      0,
			TierProspect:    0,
			TierEmailOnly:   0,
			TierUnreachable: 0,
		},
	}
	for _, c := range classified {
		s.Tiers[c.Tier]++
		switch c.PhoneStatus {
		case PhoneInvalid:
			s.InvalidPhones++
		case PhoneMissing:
			s.MissingPhones++
		}
	}
	return s
}

// String renders the summary on one line.
func (s Summary) String() string {
	return fmt.Sprintf("tier1=%d tier2=%d tier3=%d tier4=%d invalid_phones=%d missing_phones=%d",
		s.Tiers[TierActive], s.Tiers[TierProspect], s.Tiers[TierEmailOnly], s.Tiers[TierUnreachable],
		s.InvalidPhones, s.MissingPhones)
}

// NaturalKey is the identity used to upsert and look up a customer in the
// store. Phone wins; customers without a phone fall back to their export
// reference id and finally to their row position, so that two email-only
// customers sharing an address are never merged.
func NaturalKey(c Classified) string {
	switch {
	case c.NormalizedPhone != "":
		return c.NormalizedPhone
	case c.Row.ReferenceID != "":
		return "ref:" + c.Row.ReferenceID
	default:
		return fmt.Sprintf("row:%d:%s", c.Row.RowIndex, c.Row.Email)
	}
}
