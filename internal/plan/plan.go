// =============================================================================
// POS Migrator - Migration Plan
// =============================================================================
//
// The Planner composes the pure transforms over a Source. Import stages and
// the reconciliation validator both call it, so the validator recomputes
// source-side counts with exactly the rules the import used.
//
// =============================================================================

package plan

import (
	"strings"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/customers"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/employees"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/loyalty"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/products"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/transactions"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/vehicles"
)

// Planner applies the operator rules to a Source.
type Planner struct {
	products     *products.Normalizer
	inferencer   *vehicles.Inferencer
	calculator   *loyalty.Calculator
	includeTier3 bool
}

// NewPlanner builds a Planner. A nil rules value uses the defaults.
func NewPlanner(rules *config.Rules, includeTier3 bool) *Planner {
	if rules == nil {
		rules = config.DefaultRules()
	}
	normalizer := products.NewNormalizer(rules.SkipSKUs, rules.SkipItemNames, rules.CategoryMapping, rules.LoyaltyExcludedSKU)
	return &Planner{
		products:     normalizer,
		inferencer:   vehicles.NewInferencer(rules.Tokens()),
		calculator:   loyalty.NewCalculator(normalizer),
		includeTier3: includeTier3,
	}
}

// IncludesTier3 reports whether email-only customers are imported.
func (p *Planner) IncludesTier3() bool {
	return p.includeTier3
}

// CustomerPlan is the customer side of a migration.
type CustomerPlan struct {
	Classified []customers.Classified
	Summary    customers.Summary
	Dedup      customers.DedupResult
	Importable []customers.Classified
}

// Customers classifies, deduplicates and filters the customer export.
func (p *Planner) Customers(src *Source) CustomerPlan {
	classified := customers.Classify(src.Customers)
	dedup := customers.Deduplicate(classified)
	return CustomerPlan{
		Classified: classified,
		Summary:    customers.Summarize(classified),
		Dedup:      dedup,
		Importable: customers.Importable(dedup, p.includeTier3),
	}
}

// CustomerRefs maps export reference ids to the store natural key of the
// imported customer, so transactions, vehicles and loyalty can point at it.
// A superseded duplicate maps to the record that was kept for its phone.
func (cp CustomerPlan) CustomerRefs() map[string]string {
	refs := make(map[string]string, len(cp.Importable)+cp.Dedup.Superseded)
	imported := make(map[string]bool, len(cp.Importable))
	for _, c := range cp.Importable {
		key := customers.NaturalKey(c)
		imported[key] = true
		if c.Row.ReferenceID != "" {
			refs[c.Row.ReferenceID] = key
		}
	}

	for _, g := range cp.Dedup.Groups {
		key := customers.NaturalKey(g.Kept)
		if !imported[key] {
			continue
		}
		for _, dup := range g.Superseded {
			if dup.Row.ReferenceID != "" {
				refs[dup.Row.ReferenceID] = key
			}
		}
	}
	return refs
}

// Products applies skip rules and category mapping to the catalog.
func (p *Planner) Products(src *Source) products.Result {
	return p.products.Process(src.Products)
}

// Employees extracts the staff roster.
func (p *Planner) Employees(src *Source) []employees.Employee {
	return employees.Extract(src.Transactions, src.Items)
}

// Index builds the transaction lookup shared by vehicle and loyalty
// inference.
func (p *Planner) Index(src *Source) *transactions.Index {
	return transactions.BuildIndex(src.Transactions, src.Items)
}

// Vehicles infers vehicle sizes from line item price points.
func (p *Planner) Vehicles(src *Source) vehicles.Result {
	return p.inferencer.Infer(src.Items, p.Index(src))
}

// Transactions joins payment headers to their items.
func (p *Planner) Transactions(src *Source) transactions.JoinResult {
	return transactions.Join(src.Transactions, src.Items)
}

// Loyalty computes opening point balances.
func (p *Planner) Loyalty(src *Source) loyalty.Ledger {
	return p.calculator.Calculate(src.Items, p.Index(src))
}

// =============================================================================
// CUSTOMER LINKING
// =============================================================================

// Items are resolved to the imported customer before vehicles and loyalty
// are computed, so duplicates of one customer fold into a single record.
// Reference ids with no imported customer resolve to unlinkedPrefix + id and
// are counted instead of written.

const unlinkedPrefix = "unlinked\x00"

// linkingResolver resolves an item to the natural key of its imported
// customer.
type linkingResolver struct {
	index *transactions.Index
	refs  map[string]string
}

func (r linkingResolver) ResolveCustomer(item normalize.ItemRow) string {
	ref := r.index.ResolveCustomer(item)
	if ref == "" {
		return ""
	}
	if key, ok := r.refs[ref]; ok {
		return key
	}
	return unlinkedPrefix + ref
}

func unlinked(key string) bool {
	return strings.HasPrefix(key, unlinkedPrefix)
}

// VehiclePlan is the vehicle side of a migration.
type VehiclePlan struct {
	vehicles.Result

	// Linked holds the vehicles of imported customers, with CustomerKey set
	// to the customer's natural key.
	Linked []vehicles.Inferred

	// Unlinked counts vehicles whose customer is not imported.
	Unlinked int
}

// LinkedVehicles infers vehicles for imported customers.
func (p *Planner) LinkedVehicles(src *Source, refs map[string]string) VehiclePlan {
	vp := VehiclePlan{Result: p.inferencer.Infer(src.Items, linkingResolver{p.Index(src), refs})}
	for _, v := range vp.Vehicles {
		if unlinked(v.CustomerKey) {
			vp.Unlinked++
			continue
		}
		vp.Linked = append(vp.Linked, v)
	}
	return vp
}

// LoyaltyPlan is the loyalty side of a migration.
type LoyaltyPlan struct {
	loyalty.Ledger

	// Linked holds the entries of imported customers, with CustomerKey set
	// to the customer's natural key.
	Linked []loyalty.Entry

	// Unlinked counts entries whose customer is not imported.
	Unlinked int
}

// LinkedLoyalty computes opening balances for imported customers.
func (p *Planner) LinkedLoyalty(src *Source, refs map[string]string) LoyaltyPlan {
	lp := LoyaltyPlan{Ledger: p.calculator.Calculate(src.Items, linkingResolver{p.Index(src), refs})}
	for _, e := range lp.Entries {
		if unlinked(e.CustomerKey) {
			lp.Unlinked++
			continue
		}
		lp.Linked = append(lp.Linked, e)
	}
	return lp
}
