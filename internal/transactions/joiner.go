// =============================================================================
// POS Migrator - Transaction Joiner
// =============================================================================
//
// The transaction export has one header row per payment event; the item
// export has one row per line item. They are linked only by Transaction ID.
//
// JOIN STRATEGY:
//   1. Group item rows by Transaction ID (grouping, not filtering).
//   2. Keep only header rows whose Event Type is "Payment". Refunds and
//      adjustments are dropped.
//   3. Attach each kept header's items. Several payment headers sharing an id
//      (split tender) become one joined transaction whose money fields are
//      the sum of those headers.
//   4. Items whose id matches no kept header are orphans: counted, never
//      joined.
//
// Every money field is parsed on its own. Totals are never derived from one
// another; disagreements are counted, not corrected.
//
// =============================================================================

package transactions

import (
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INDEX
// =============================================================================

// Index groups item rows by transaction id and remembers the customer key on
// each header. It is built once and only read afterwards.
type Index struct {
	items          map[string][]normalize.ItemRow
	order          []string
	headerCustomer map[string]string
}

// BuildIndex groups items by transaction id, preserving first-seen order, and
// records the customer key of every header, payment or not.
func BuildIndex(headers []normalize.TransactionRow, items []normalize.ItemRow) *Index {
	idx := &Index{
		items:          make(map[string][]normalize.ItemRow),
		headerCustomer: make(map[string]string),
	}

	for _, item := range items {
		if _, ok := idx.items[item.TransactionID]; !ok {
			idx.order = append(idx.order, item.TransactionID)
		}
		idx.items[item.TransactionID] = append(idx.items[item.TransactionID], item)
	}

	for _, h := range headers {
		if h.TransactionID == "" || h.CustomerKey == "" {
			continue
		}
		if _, ok := idx.headerCustomer[h.TransactionID]; !ok {
			idx.headerCustomer[h.TransactionID] = h.CustomerKey
		}
	}

	return idx
}

// Items returns the items recorded under a transaction id.
func (idx *Index) Items(transactionID string) []normalize.ItemRow {
	return idx.items[transactionID]
}

// TransactionIDs returns every item transaction id in first-seen order.
func (idx *Index) TransactionIDs() []string {
	return idx.order
}

// ResolveCustomer returns the item's own customer key, or the key from its
// header when the item has none. "" means the item is anonymous.
func (idx *Index) ResolveCustomer(item normalize.ItemRow) string {
	if item.CustomerKey != "" {
		return item.CustomerKey
	}
	return idx.headerCustomer[item.TransactionID]
}

// =============================================================================
// JOIN
// =============================================================================

// Joined is a payment header with its line items and aggregate money fields.
type Joined struct {
	Header normalize.TransactionRow
	Items  []normalize.ItemRow

	GrossSales     decimal.Decimal
	Discounts      decimal.Decimal
	NetSales       decimal.Decimal
	Tax            decimal.Decimal
	Tip            decimal.Decimal
	TotalCollected decimal.Decimal

	// ItemNetSales is the sum of the items' own net sales.
	ItemNetSales decimal.Decimal

	CustomerKey string
	StaffName   string
	Date        time.Time

	// Payments is the number of payment headers merged into this record.
	Payments int
}

// Consistent reports whether gross sales less discounts equals net sales.
// Discounts are compared by magnitude since exports sign them either way.
func (j Joined) Consistent() bool {
	return j.GrossSales.Sub(j.Discounts.Abs()).Equal(j.NetSales)
}

// JoinResult is the outcome of Join.
type JoinResult struct {
	// Transactions are ordered by the first payment header of each id.
	Transactions []Joined

	// OrphanItems counts items whose transaction id has no payment header.
	OrphanItems int

	// DroppedHeaders counts non-payment headers.
	DroppedHeaders int

	// Discrepancies counts joined transactions that fail Consistent.
	Discrepancies int
}

// ItemCount returns the number of items attached across all transactions.
func (r JoinResult) ItemCount() int {
	n := 0
	for _, t := range r.Transactions {
		n += len(t.Items)
	}
	return n
}

// Join links payment headers to their items.
func Join(headers []normalize.TransactionRow, items []normalize.ItemRow) JoinResult {
	idx := BuildIndex(headers, items)
	var result JoinResult

	position := make(map[string]int)
	for _, h := range headers {
		if !h.IsPayment() {
			result.DroppedHeaders++
			continue
		}

		if i, ok := position[h.TransactionID]; ok && h.TransactionID != "" {
			result.Transactions[i] = merge(result.Transactions[i], h)
			continue
		}

		j := Joined{
			Header:      h,
			CustomerKey: h.CustomerKey,
			StaffName:   h.StaffName,
			Date:        h.Date,
		}
		j = merge(j, h)

		if h.TransactionID != "" {
			j.Items = idx.Items(h.TransactionID)
			position[h.TransactionID] = len(result.Transactions)
		}
		for _, item := range j.Items {
			j.ItemNetSales = j.ItemNetSales.Add(item.NetSales)
			if j.CustomerKey == "" && item.CustomerKey != "" {
				j.CustomerKey = item.CustomerKey
			}
		}

		result.Transactions = append(result.Transactions, j)
	}

	for _, id := range idx.TransactionIDs() {
		if _, ok := position[id]; !ok || id == "" {
			result.OrphanItems += len(idx.Items(id))
		}
	}

	for _, j := range result.Transactions {
		if !j.Consistent() {
			result.Discrepancies++
		}
	}

	return result
}

// merge adds one payment header's money fields to j.
func merge(j Joined, h normalize.TransactionRow) Joined {
	j.GrossSales = j.GrossSales.Add(h.GrossSales)
	j.Discounts = j.Discounts.Add(h.Discounts)
	j.NetSales = j.NetSales.Add(h.NetSales)
	j.Tax = j.Tax.Add(h.Tax)
	j.Tip = j.Tip.Add(h.Tip)
	j.TotalCollected = j.TotalCollected.Add(h.TotalCollected)
	j.Payments++
	return j
}
