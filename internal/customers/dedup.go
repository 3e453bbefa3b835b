package customers

import "sort"

// DuplicateGroup is a set of customers sharing one normalized phone.
type DuplicateGroup struct {
	Phone      string
	Kept       Classified
	Superseded []Classified
}

// DedupResult is the outcome of Deduplicate.
type DedupResult struct {
	// Customers holds every input record that was not superseded, in input
	// order.
	Customers []Classified

	// Groups lists only phones shared by more than one record, ordered by the
	// RowIndex of the kept record.
	Groups []DuplicateGroup

	// Superseded is the number of records dropped as duplicates.
	Superseded int
}

// Deduplicate collapses customers that share a normalized phone. Within a
// group the record with the highest visit count is kept; equal visit counts
// keep the lowest RowIndex. Records without a phone are never grouped.
//
// Deduplicate is idempotent: applying it to its own Customers output yields
// the same records and no groups.
func Deduplicate(classified []Classified) DedupResult {
	byPhone := make(map[string][]Classified)
	for _, c := range classified {
		if c.NormalizedPhone == "" {
			continue
		}
		byPhone[c.NormalizedPhone] = append(byPhone[c.NormalizedPhone], c)
	}

	superseded := make(map[int]bool)
	var groups []DuplicateGroup

	for phone, members := range byPhone {
		if len(members) < 2 {
			continue
		}

		kept := members[0]
		for _, m := range members[1:] {
			if better(m, kept) {
				kept = m
			}
		}

		group := DuplicateGroup{Phone: phone, Kept: kept}
		for _, m := range members {
			if m.Row.RowIndex == kept.Row.RowIndex {
				continue
			}
			group.Superseded = append(group.Superseded, m)
			superseded[m.Row.RowIndex] = true
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Kept.Row.RowIndex < groups[j].Kept.Row.RowIndex
	})

	result := DedupResult{
		Customers:  make([]Classified, 0, len(classified)-len(superseded)),
		Groups:     groups,
		Superseded: len(superseded),
	}
	for _, c := range classified {
		if !superseded[c.Row.RowIndex] {
			result.Customers = append(result.Customers, c)
		}
	}
	return result
}

// better reports whether a should be kept over b.
func better(a, b Classified) bool {
	if a.VisitCount != b.VisitCount {
		return a.VisitCount > b.VisitCount
	}
	return a.Row.RowIndex < b.Row.RowIndex
}

// Importable returns the customers eligible for import: tiers 1 and 2, plus
// tier 3 when includeEmailOnly is set, minus superseded duplicates. Order
// follows the deduplicated input.
func Importable(dedup DedupResult, includeEmailOnly bool) []Classified {
	out := make([]Classified, 0, len(dedup.Customers))
	for _, c := range dedup.Customers {
		switch c.Tier {
		case TierActive, TierProspect:
			out = append(out, c)
		case TierEmailOnly:
			if includeEmailOnly {
				out = append(out, c)
			}
		}
	}
	return out
}
