// =============================================================================
// POS Migrator - Loyalty Calculator
// =============================================================================
//
// Builds the opening loyalty balance of every customer from their purchase
// history: one point per whole currency unit of eligible net sales.
//
// RULES:
//   - Only items attributable to a customer count (directly, or through the
//     header of their transaction).
//   - Net sales of the loyalty-excluded SKU go to ExcludedSpend and never
//     earn points.
//   - Points = floor(EligibleSpend), never negative.
//   - Customers with zero points are left out of the ledger.
//   - TransactionCount is the number of distinct transactions that added
//     eligible spend, not the number of items.
//
// =============================================================================

package loyalty

import (
	"sort"
	"strings"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/shopspring/decimal"
)

// ExclusionRule decides whether a SKU earns points.
type ExclusionRule interface {
	IsLoyaltyExcluded(sku string) bool
}

// ExcludedSKU is an ExclusionRule for a single SKU.
type ExcludedSKU string

// IsLoyaltyExcluded implements ExclusionRule.
func (s ExcludedSKU) IsLoyaltyExcluded(sku string) bool {
	want := strings.TrimSpace(string(s))
	return want != "" && strings.TrimSpace(sku) == want
}

// Resolver maps an item to its customer key, "" when anonymous.
type Resolver interface {
	ResolveCustomer(item normalize.ItemRow) string
}

// Entry is one customer's opening balance.
type Entry struct {
	CustomerKey      string
	EligibleSpend    decimal.Decimal
	ExcludedSpend    decimal.Decimal
	Points           int64
	TransactionCount int
}

// Ledger is the outcome of Calculate.
type Ledger struct {
	// Entries are sorted by customer key.
	Entries []Entry

	// AnonymousItems counts items with no resolvable customer.
	AnonymousItems int

	// ZeroPointCustomers counts customers omitted for earning no points.
	ZeroPointCustomers int
}

// TotalPoints sums the points of every entry.
func (l Ledger) TotalPoints() int64 {
	var n int64
	for _, e := range l.Entries {
		n += e.Points
	}
	return n
}

// Calculator computes loyalty ledgers.
type Calculator struct {
	rule ExclusionRule
}

// NewCalculator returns a Calculator. A nil rule excludes nothing.
func NewCalculator(rule ExclusionRule) *Calculator {
	if rule == nil {
		rule = ExcludedSKU("")
	}
	return &Calculator{rule: rule}
}

type account struct {
	eligible     decimal.Decimal
	excluded     decimal.Decimal
	transactions map[string]bool
}

// Calculate folds the items into a ledger. resolver may be nil, in which case
// only the item's own customer key is used.
func (c *Calculator) Calculate(items []normalize.ItemRow, resolver Resolver) Ledger {
	accounts := make(map[string]*account)
	var ledger Ledger

	for _, item := range items {
		customer := item.CustomerKey
		if resolver != nil {
			customer = resolver.ResolveCustomer(item)
		}
		if customer == "" {
			ledger.AnonymousItems++
			continue
		}

		acct, ok := accounts[customer]
		if !ok {
			acct = &account{transactions: make(map[string]bool)}
			accounts[customer] = acct
		}

		if c.rule.IsLoyaltyExcluded(item.SKU) {
			acct.excluded = acct.excluded.Add(item.NetSales)
			continue
		}
		acct.eligible = acct.eligible.Add(item.NetSales)
		if item.TransactionID != "" {
			acct.transactions[item.TransactionID] = true
		}
	}

	for customer, acct := range accounts {
		points := Points(acct.eligible)
		if points == 0 {
			ledger.ZeroPointCustomers++
			continue
		}
		ledger.Entries = append(ledger.Entries, Entry{
			CustomerKey:      customer,
			EligibleSpend:    acct.eligible,
			ExcludedSpend:    acct.excluded,
			Points:           points,
			TransactionCount: len(acct.transactions),
		})
	}

	sort.Slice(ledger.Entries, func(i, j int) bool {
		return ledger.Entries[i].CustomerKey < ledger.Entries[j].CustomerKey
	})

	return ledger
}

// Points converts eligible spend to points: floor, clamped at zero.
func Points(eligible decimal.Decimal) int64 {
	if !eligible.IsPositive() {
		return 0
	}
	return eligible.Floor().IntPart()
}
