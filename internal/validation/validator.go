// =============================================================================
// POS Migrator - Reconciliation Validator
// =============================================================================
//
// This module proves, after the import stages have run, that the migration
// did not silently drop or corrupt data. It never trusts the import stages'
// own counts: every source-side figure is recomputed from the parsed exports
// with the same rules the stages used, and compared with what the store
// reports.
//
// CHECKS:
//   1. Entity counts: one Check per migrated entity (pass / warn / fail)
//   2. Top spenders: the N largest lifetime spenders are looked up one by
//      one and their persisted spend compared with the source
//   3. Inventory: total on-hand quantity of the source catalog against the
//      persisted total
//
// ERROR HANDLING:
//   - Errors are collected, not thrown
//   - A failed store query turns into a fail verdict with no store count
//   - Run always returns a complete Report
//
// =============================================================================

package validation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/customers"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// VERDICTS
// =============================================================================

// Status is the verdict of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// rank orders statuses from best to worst.
func (s Status) rank() int {
	switch s {
	case StatusPass:
		return 0
	case StatusWarn:
		return 1
	default:
		return 2
	}
}

// Check compares the source and store counts of one entity.
type Check struct {
	EntityLabel string       `yaml:"entity_label"`
	Entity      store.Entity `yaml:"entity"`
	SourceCount int          `yaml:"source_count"`

	// StoreCount is nil when the store could not be queried.
	StoreCount *int `yaml:"store_count"`

	Status Status `yaml:"status"`
	Note   string `yaml:"note,omitempty"`
}

// Evaluate turns a pair of counts into a verdict.
//
// PARAMETERS:
//   - label: The entity label shown to the operator.
//   - entity: The store entity that was counted.
//   - source: The recomputed source count.
//   - storeCount: The store's count, or nil when the query failed.
//   - note: Explains documented exclusions. It is attached to passing
//     checks whose store count is below the source count.
//
// RULES:
//   - fail: the store count is unavailable
//   - warn: nothing was stored for a non-empty source ("stage appears
//     skipped"), or less than half the source was stored
//   - pass: everything else
func Evaluate(label string, entity store.Entity, source int, storeCount *int, note string) Check {
	c := Check{EntityLabel: label, Entity: entity, SourceCount: source, StoreCount: storeCount}

	switch {
	case storeCount == nil:
		c.Status = StatusFail
		c.Note = "store count unavailable"
	case *storeCount == 0 && source > 0:
		c.Status = StatusWarn
		c.Note = "nothing stored; stage appears skipped"
	case *storeCount*2 < source:
		c.Status = StatusWarn
		c.Note = fmt.Sprintf("significant unexplained gap: %d of %d stored", *storeCount, source)
	case *storeCount < source:
		c.Status = StatusPass
		c.Note = fmt.Sprintf("%d of %d stored", *storeCount, source)
		if note != "" {
			c.Note += "; " + note
		}
	default:
		c.Status = StatusPass
		c.Note = note
	}

	return c
}

// =============================================================================
// SPOT CHECKS
// =============================================================================

// SpendMismatch is a top spender whose persisted spend disagrees with the
// source.
type SpendMismatch struct {
	CustomerKey string          `yaml:"customer_key"`
	Name        string          `yaml:"name"`
	SourceSpend decimal.Decimal `yaml:"source_spend"`
	StoreSpend  decimal.Decimal `yaml:"store_spend"`
	Found       bool            `yaml:"found"`
	Error       string          `yaml:"error,omitempty"`
}

// Delta is the absolute spend difference. Missing records count in full.
func (m SpendMismatch) Delta() decimal.Decimal {
	return m.SourceSpend.Sub(m.StoreSpend).Abs()
}

// SpendCheck is the outcome of the top spender spot check.
type SpendCheck struct {
	Checked    int             `yaml:"checked"`
	Tolerance  decimal.Decimal `yaml:"tolerance"`
	Mismatches []SpendMismatch `yaml:"mismatches,omitempty"`
	Status     Status          `yaml:"status"`
}

// InventoryCheck compares aggregate on-hand quantity.
type InventoryCheck struct {
	SourceQuantity decimal.Decimal `yaml:"source_quantity"`
	StoreQuantity  decimal.Decimal `yaml:"store_quantity"`
	Delta          decimal.Decimal `yaml:"delta"`
	Tolerance      decimal.Decimal `yaml:"tolerance"`
	Status         Status          `yaml:"status"`
	Note           string          `yaml:"note,omitempty"`
}

// =============================================================================
// REPORT
// =============================================================================

// Report is everything one validation run produced.
type Report struct {
	GeneratedAt time.Time      `yaml:"generated_at"`
	Checks      []Check        `yaml:"checks"`
	Spend       SpendCheck     `yaml:"top_spenders"`
	Inventory   InventoryCheck `yaml:"inventory"`
}

// Status returns the worst verdict across every check.
func (r *Report) Status() Status {
	worst := StatusPass
	consider := func(s Status) {
		if s.rank() > worst.rank() {
			worst = s
		}
	}
	for _, c := range r.Checks {
		consider(c.Status)
	}
	consider(r.Spend.Status)
	consider(r.Inventory.Status)
	return worst
}

// Counts tallies the entity checks by verdict.
func (r *Report) Counts() (pass, warn, fail int) {
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		default:
			fail++
		}
	}
	return pass, warn, fail
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options tunes the spot checks.
type Options struct {
	// TopSpenders is the number of customers re-verified. Default: 10
	TopSpenders int

	// SpendTolerance is the largest acceptable spend difference. Zero
	// demands exact agreement. Default: 1.00
	SpendTolerance decimal.Decimal

	// QuantityTolerance is the largest acceptable inventory difference.
	// Default: 5
	QuantityTolerance decimal.Decimal

	// Concurrency bounds the parallel spot check lookups. Default: 4
	Concurrency int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		TopSpenders:       10,
		SpendTolerance:    decimal.NewFromInt(1),
		QuantityTolerance: decimal.NewFromInt(5),
		Concurrency:       4,
	}
}

// Validator reconciles a Source against a Store.
type Validator struct {
	planner *plan.Planner
	src     *plan.Source
	store   store.Store
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

// New builds a Validator. Tolerances are used as given, so a zero tolerance
// demands exact agreement; start from DefaultOptions for the documented
// defaults. A non-positive TopSpenders or Concurrency falls back to its
// default.
func New(planner *plan.Planner, src *plan.Source, s store.Store, opts Options, logger *zap.Logger) *Validator {
	defaults := DefaultOptions()
	if opts.TopSpenders <= 0 {
		opts.TopSpenders = defaults.TopSpenders
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{planner: planner, src: src, store: s, opts: opts, logger: logger, now: time.Now}
}

// Run performs every check.
func (v *Validator) Run(ctx context.Context) *Report {
	cp := v.planner.Customers(v.src)

	report := &Report{GeneratedAt: v.now().UTC()}
	report.Checks = v.entityChecks(ctx, cp)
	report.Spend = v.topSpenders(ctx, cp)
	report.Inventory = v.inventory(ctx)

	pass, warn, fail := report.Counts()
	v.logger.Info("validation finished",
		zap.Int("pass", pass),
		zap.Int("warn", warn),
		zap.Int("fail", fail),
		zap.Int("spend_mismatches", len(report.Spend.Mismatches)),
		zap.String("inventory", string(report.Inventory.Status)))

	return report
}

// entityChecks recomputes every source count and compares it with the store.
func (v *Validator) entityChecks(ctx context.Context, cp plan.CustomerPlan) []Check {
	refs := cp.CustomerRefs()
	products := v.planner.Products(v.src)
	joined := v.planner.Transactions(v.src)
	vp := v.planner.LinkedVehicles(v.src, refs)
	lp := v.planner.LinkedLoyalty(v.src, refs)

	customerNote := fmt.Sprintf("%d duplicates superseded, %d tier 4 not imported",
		cp.Dedup.Superseded, cp.Summary.Tiers[customers.TierUnreachable])
	if !v.planner.IncludesTier3() {
		customerNote += fmt.Sprintf(", %d tier 3 excluded", cp.Summary.Tiers[customers.TierEmailOnly])
	}

	specs := []struct {
		label  string
		entity store.Entity
		source int
		note   string
	}{
		{"Customers", store.Customers, len(cp.Importable), customerNote},
		{"Vendors", store.Vendors, len(products.Vendors), ""},
		{"Products", store.Products, len(products.Kept()), fmt.Sprintf("%d skipped by rule", products.Skipped())},
		{"Employees", store.Employees, len(v.planner.Employees(v.src)), ""},
		{"Vehicles", store.Vehicles, len(vp.Linked), fmt.Sprintf("%d unlinked", vp.Unlinked)},
		{"Transactions", store.Transactions, len(joined.Transactions), fmt.Sprintf("%d non-payment headers dropped", joined.DroppedHeaders)},
		{"Loyalty", store.Loyalty, len(lp.Linked), fmt.Sprintf("%d unlinked", lp.Unlinked)},
	}

	checks := make([]Check, 0, len(specs))
	for _, s := range specs {
		var count *int
		n, err := v.store.CountMigrated(ctx, s.entity)
		if err != nil {
			v.logger.Warn("store count failed", zap.String("entity", string(s.entity)), zap.Error(err))
		} else {
			count = &n
		}
		checks = append(checks, Evaluate(s.label, s.entity, s.source, count, s.note))
	}
	return checks
}

// topSpenders re-verifies the largest spenders. Lookups run concurrently and
// all of them finish before the verdict is computed.
func (v *Validator) topSpenders(ctx context.Context, cp plan.CustomerPlan) SpendCheck {
	candidates := TopSpenders(cp.Importable, v.opts.TopSpenders)
	check := SpendCheck{Checked: len(candidates), Tolerance: v.opts.SpendTolerance, Status: StatusPass}

	results := make([]*SpendMismatch, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.opts.Concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			key := customers.NaturalKey(c)
			m := SpendMismatch{CustomerKey: key, Name: c.Row.FullName(), SourceSpend: c.LifetimeSpend}

			rec, found, err := v.store.Lookup(gctx, store.Customers, key)
			switch {
			case err != nil:
				m.Error = err.Error()
			case !found:
			default:
				m.Found = true
				m.StoreSpend = rec.Spend
				if m.Delta().LessThanOrEqual(v.opts.SpendTolerance) {
					return nil
				}
			}
			results[i] = &m
			return nil
		})
	}
	_ = g.Wait()

	for _, m := range results {
		if m != nil {
			check.Mismatches = append(check.Mismatches, *m)
		}
	}
	if len(check.Mismatches) > 0 {
		check.Status = StatusWarn
		for _, m := range check.Mismatches {
			if m.Error != "" {
				check.Status = StatusFail
				break
			}
		}
	}
	return check
}

// TopSpenders returns up to n customers with the largest lifetime spend,
// largest first. Equal spend keeps the lower RowIndex first. Customers with
// no spend are never candidates.
func TopSpenders(importable []customers.Classified, n int) []customers.Classified {
	out := make([]customers.Classified, 0, len(importable))
	for _, c := range importable {
		if c.LifetimeSpend.IsPositive() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if cmp := out[i].LifetimeSpend.Cmp(out[j].LifetimeSpend); cmp != 0 {
			return cmp > 0
		}
		return out[i].Row.RowIndex < out[j].Row.RowIndex
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// inventory compares the total on-hand quantity of every source catalog row
// with the persisted product total.
func (v *Validator) inventory(ctx context.Context) InventoryCheck {
	check := InventoryCheck{Tolerance: v.opts.QuantityTolerance}
	for _, p := range v.src.Products {
		check.SourceQuantity = check.SourceQuantity.Add(p.Quantity)
	}

	stored, err := v.store.SumQuantity(ctx, store.Products)
	if err != nil {
		v.logger.Warn("store quantity failed", zap.Error(err))
		check.Status = StatusFail
		check.Note = "store quantity unavailable: " + err.Error()
		return check
	}

	check.StoreQuantity = stored
	check.Delta = check.SourceQuantity.Sub(stored).Abs()
	if check.Delta.LessThanOrEqual(check.Tolerance) {
		check.Status = StatusPass
	} else {
		check.Status = StatusWarn
		check.Note = fmt.Sprintf("difference of %s exceeds tolerance %s", check.Delta, check.Tolerance)
	}
	return check
}
