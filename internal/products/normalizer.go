// =============================================================================
// POS Migrator - Product Normalizer
// =============================================================================
//
// Turns catalog rows into importable products.
//
// PROCESSING RULES:
//   1. Skip rules, evaluated in order, first match wins:
//      a. SKU is in the configured skip-SKU set (processing fees and the like)
//      b. Item name is in the configured skip-name set ("Custom Amount")
//      c. Row is archived
//   2. Category mapping: the reporting category (falling back to the plain
//      category) is looked up in the mapping table. A missing entry leaves
//      the product uncategorized; it is still imported.
//   3. Vendors: the distinct vendor names of every kept row, in first-seen
//      order, so vendors can be created before products reference them.
//   4. Loyalty exclusion: a single configured SKU is flagged on the product
//      and honored again by the loyalty calculator.
//
// =============================================================================

package products

import (
	"strings"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/shopspring/decimal"
)

// Skip reasons.
const (
	ReasonSkipSKU  = "sku on skip list"
	ReasonSkipName = "item name on skip list"
	ReasonArchived = "archived in source"
)

// Processed is a catalog row after skip rules and category mapping.
type Processed struct {
	Row normalize.ProductRow

	Skip       bool
	SkipReason string

	LoyaltyExcluded bool

	// CategoryLabel is the source category text. CategorySlug is the mapped
	// target category, or "" when the label has no mapping entry.
	CategoryLabel string
	CategorySlug  string

	VendorName string
	Price      decimal.Decimal
	Cost       decimal.Decimal
	Quantity   decimal.Decimal
}

// Mapped reports whether the category resolved to a target slug.
func (p Processed) Mapped() bool {
	return p.CategorySlug != ""
}

// Result is the outcome of Process.
type Result struct {
	// Products has one entry per input row, in input order, skipped rows
	// included.
	Products []Processed

	// Vendors lists distinct vendor names across kept rows.
	Vendors []string

	// Unmapped lists distinct category labels with no mapping entry.
	Unmapped []string

	// SkipCounts counts skipped rows by reason.
	SkipCounts map[string]int
}

// Kept returns the products that were not skipped.
func (r Result) Kept() []Processed {
	out := make([]Processed, 0, len(r.Products))
	for _, p := range r.Products {
		if !p.Skip {
			out = append(out, p)
		}
	}
	return out
}

// Skipped returns the total number of skipped rows.
func (r Result) Skipped() int {
	n := 0
	for _, c := range r.SkipCounts {
		n += c
	}
	return n
}

// Normalizer holds the operator-supplied catalog rules.
type Normalizer struct {
	skipSKUs    map[string]bool
	skipNames   map[string]bool
	categoryMap map[string]string
	excludedSKU string
}

// NewNormalizer builds a Normalizer.
//
// PARAMETERS:
//   - skipSKUs: SKUs that are never imported (matched exactly, trimmed).
//   - skipNames: item names that are never imported (case-insensitive).
//   - categoryMap: source category label -> target slug (case-insensitive keys).
//   - loyaltyExcludedSKU: the SKU that earns no loyalty points; "" for none.
func NewNormalizer(skipSKUs, skipNames []string, categoryMap map[string]string, loyaltyExcludedSKU string) *Normalizer {
	n := &Normalizer{
		skipSKUs:    make(map[string]bool, len(skipSKUs)),
		skipNames:   make(map[string]bool, len(skipNames)),
		categoryMap: make(map[string]string, len(categoryMap)),
		excludedSKU: strings.TrimSpace(loyaltyExcludedSKU),
	}
	for _, s := range skipSKUs {
		if s = strings.TrimSpace(s); s != "" {
			n.skipSKUs[s] = true
		}
	}
	for _, s := range skipNames {
		if s = strings.TrimSpace(s); s != "" {
			n.skipNames[strings.ToLower(s)] = true
		}
	}
	for label, slug := range categoryMap {
		n.categoryMap[strings.ToLower(strings.TrimSpace(label))] = strings.TrimSpace(slug)
	}
	return n
}

// Process applies the catalog rules to every row.
func (n *Normalizer) Process(rows []normalize.ProductRow) Result {
	result := Result{
		Products:   make([]Processed, len(rows)),
		SkipCounts: make(map[string]int),
	}

	seenVendor := make(map[string]bool)
	seenUnmapped := make(map[string]bool)

	for i, row := range rows {
		p := n.processRow(row)
		result.Products[i] = p

		if p.Skip {
			result.SkipCounts[p.SkipReason]++
			continue
		}

		if p.VendorName != "" {
			key := strings.ToLower(p.VendorName)
			if !seenVendor[key] {
				seenVendor[key] = true
				result.Vendors = append(result.Vendors, p.VendorName)
			}
		}

		if !p.Mapped() && p.CategoryLabel != "" {
			key := strings.ToLower(p.CategoryLabel)
			if !seenUnmapped[key] {
				seenUnmapped[key] = true
				result.Unmapped = append(result.Unmapped, p.CategoryLabel)
			}
		}
	}

	return result
}

// processRow evaluates one row.
func (n *Normalizer) processRow(row normalize.ProductRow) Processed {
	p := Processed{
		Row:             row,
		LoyaltyExcluded: n.IsLoyaltyExcluded(row.SKU),
		VendorName:      row.VendorName,
		Price:           row.Price,
		Cost:            row.Cost,
		Quantity:        row.Quantity,
	}

	switch {
	case row.SKU != "" && n.skipSKUs[row.SKU]:
		p.Skip, p.SkipReason = true, ReasonSkipSKU
	case n.skipNames[strings.ToLower(row.ItemName)]:
		p.Skip, p.SkipReason = true, ReasonSkipName
	case row.Archived:
		p.Skip, p.SkipReason = true, ReasonArchived
	}
	if p.Skip {
		return p
	}

	p.CategoryLabel = row.ReportingCategory
	if p.CategoryLabel == "" {
		p.CategoryLabel = row.Category
	}
	if p.CategoryLabel != "" {
		p.CategorySlug = n.categoryMap[strings.ToLower(p.CategoryLabel)]
	}

	return p
}

// IsLoyaltyExcluded reports whether sku is the loyalty-excluded SKU.
func (n *Normalizer) IsLoyaltyExcluded(sku string) bool {
	return n.excludedSKU != "" && strings.TrimSpace(sku) == n.excludedSKU
}

// NaturalKey is the store identity of a product: SKU, else the catalog
// token, else the lower-cased display name.
func NaturalKey(p Processed) string {
	switch {
	case p.Row.SKU != "":
		return "sku:" + p.Row.SKU
	case p.Row.Token != "":
		return "token:" + p.Row.Token
	default:
		return "name:" + strings.ToLower(p.Row.DisplayName())
	}
}
