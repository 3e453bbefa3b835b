package customers

import (
	"fmt"
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(raw ...normalize.RawRow) []normalize.CustomerRow {
	return normalize.Customers(raw)
}

func TestClassifyExamples(t *testing.T) {
	classified := Classify(rows(
		normalize.RawRow{normalize.ColPhone: "(555) 123-4567", normalize.ColVisits: "3"},
		normalize.RawRow{normalize.ColEmail: "a@b.com", normalize.ColVisits: "0"},
		normalize.RawRow{},
		normalize.RawRow{normalize.ColPhone: "555-867-5309", normalize.ColVisits: "0"},
	))
	require.Len(t, classified, 4)

	assert.Equal(t, TierActive, classified[0].Tier)
	assert.Equal(t, "+15551234567", classified[0].NormalizedPhone)
	assert.True(t, classified[0].PhoneValid)

	assert.Equal(t, TierEmailOnly, classified[1].Tier)
	assert.Equal(t, PhoneMissing, classified[1].PhoneStatus)

	assert.Equal(t, TierUnreachable, classified[2].Tier)
	assert.Empty(t, classified[2].NormalizedPhone)

	assert.Equal(t, TierProspect, classified[3].Tier)

	// Tier 4 never reaches the importable set.
	importable := Importable(Deduplicate(classified), true)
	for _, c := range importable {
		assert.NotEqual(t, TierUnreachable, c.Tier)
	}
	assert.Len(t, importable, 3)
}

func TestInvalidPhoneReportedSeparately(t *testing.T) {
	classified := Classify(rows(
		normalize.RawRow{normalize.ColPhone: "12345", normalize.ColEmail: "x@y.com"},
		normalize.RawRow{normalize.ColEmail: "z@y.com"},
	))

	assert.Equal(t, TierEmailOnly, classified[0].Tier)
	assert.Equal(t, PhoneInvalid, classified[0].PhoneStatus)
	assert.False(t, classified[0].PhoneValid)
	assert.Equal(t, "12345", classified[0].OriginalPhone)

	s := Summarize(classified)
	assert.Equal(t, 1, s.InvalidPhones)
	assert.Equal(t, 1, s.MissingPhones)
	assert.Equal(t, 2, s.Tiers[TierEmailOnly])
}

func TestTotalPartition(t *testing.T) {
	phones := []string{"", "(555) 222-3333", "bogus", "5552223333", "1 (555) 444-5555"}
	emails := []string{"", "p@q.com"}
	visits := []string{"0", "4", "", "abc"}

	var raw []normalize.RawRow
	for _, p := range phones {
		for _, e := range emails {
			for _, v := range visits {
				raw = append(raw, normalize.RawRow{
					normalize.ColPhone:  p,
					normalize.ColEmail:  e,
					normalize.ColVisits: v,
				})
			}
		}
	}

	classified := Classify(rows(raw...))
	require.Len(t, classified, len(raw))

	s := Summarize(classified)
	sum := 0
	for tier, n := range s.Tiers {
		assert.GreaterOrEqual(t, int(tier), 1)
		assert.LessOrEqual(t, int(tier), 4)
		sum += n
	}
	assert.Equal(t, len(raw), sum)
	assert.Equal(t, len(raw), s.Total)
}

func TestDeduplicateKeepsHighestVisits(t *testing.T) {
	classified := Classify(rows(
		normalize.RawRow{normalize.ColPhone: "+1 555 000 1111", normalize.ColVisits: "2"},
		normalize.RawRow{normalize.ColPhone: "555-000-1111", normalize.ColVisits: "7"},
		normalize.RawRow{normalize.ColPhone: "555-999-1111", normalize.ColVisits: "1"},
	))

	before := len(Importable(DedupResult{Customers: classified}, false))
	dedup := Deduplicate(classified)
	after := len(Importable(dedup, false))

	require.Len(t, dedup.Groups, 1)
	assert.Equal(t, "+15550001111", dedup.Groups[0].Phone)
	assert.Equal(t, 7, dedup.Groups[0].Kept.VisitCount)
	assert.Equal(t, 1, dedup.Superseded)
	assert.Equal(t, before-1, after)
}

func TestDeduplicateTieKeepsFirstSeen(t *testing.T) {
	classified := Classify(rows(
		normalize.RawRow{normalize.ColPhone: "555-000-1111", normalize.ColVisits: "3", normalize.ColFirstName: "first"},
		normalize.RawRow{normalize.ColPhone: "555-000-1111", normalize.ColVisits: "3", normalize.ColFirstName: "second"},
	))

	dedup := Deduplicate(classified)
	require.Len(t, dedup.Customers, 1)
	assert.Equal(t, "first", dedup.Customers[0].Row.FirstName)
}

func TestDeduplicateIgnoresMissingPhonesAndEmails(t *testing.T) {
	classified := Classify(rows(
		normalize.RawRow{normalize.ColEmail: "same@x.com"},
		normalize.RawRow{normalize.ColEmail: "same@x.com"},
		normalize.RawRow{},
		normalize.RawRow{},
	))

	dedup := Deduplicate(classified)
	assert.Empty(t, dedup.Groups)
	assert.Len(t, dedup.Customers, 4)
	assert.NotEqual(t, NaturalKey(dedup.Customers[0]), NaturalKey(dedup.Customers[1]))
}

func TestDeduplicateIdempotent(t *testing.T) {
	var raw []normalize.RawRow
	for i := 0; i < 30; i++ {
		raw = append(raw, normalize.RawRow{
			normalize.ColPhone:  fmt.Sprintf("555-000-%04d", i%7),
			normalize.ColVisits: fmt.Sprintf("%d", i%4),
		})
	}

	once := Deduplicate(Classify(rows(raw...)))
	twice := Deduplicate(once.Customers)

	assert.Equal(t, once.Customers, twice.Customers)
	assert.Empty(t, twice.Groups)

	seen := make(map[string]bool)
	for _, c := range twice.Customers {
		require.False(t, seen[c.NormalizedPhone], "phone %s appears twice", c.NormalizedPhone)
		seen[c.NormalizedPhone] = true
	}
}

func TestImportableTierThreeIsCallerDecision(t *testing.T) {
	dedup := Deduplicate(Classify(rows(
		normalize.RawRow{normalize.ColEmail: "a@b.com"},
		normalize.RawRow{normalize.ColPhone: "555-123-4567", normalize.ColVisits: "1"},
	)))

	assert.Len(t, Importable(dedup, false), 1)
	assert.Len(t, Importable(dedup, true), 2)
}

func TestNaturalKey(t *testing.T) {
	classified := Classify(rows(
		normalize.RawRow{normalize.ColPhone: "555-123-4567"},
		normalize.RawRow{normalize.ColReferenceID: "R-9", normalize.ColEmail: "a@b.com"},
		normalize.RawRow{normalize.ColEmail: "a@b.com"},
	))

	assert.Equal(t, "+15551234567", NaturalKey(classified[0]))
	assert.Equal(t, "ref:R-9", NaturalKey(classified[1]))
	assert.Equal(t, "row:2:a@b.com", NaturalKey(classified[2]))
}
