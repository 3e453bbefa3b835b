// =============================================================================
// POS Migrator - Stage Runners
// =============================================================================
//
// One runner per stage. Every runner follows the same pipeline:
//
//   1. Check the exports it needs were uploaded (missing -> error status)
//   2. Recompute its slice of the plan from the immutable Source
//   3. Convert the plan output to store records
//   4. Write the records through the BatchWriter
//   5. Summarize counts and batch errors in the StageResult
//
// Runners share nothing but the Source and the Store.
//
// =============================================================================

package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/customers"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/employees"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/loyalty"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/products"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/transactions"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/types"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/validation"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/vehicles"
	"go.uber.org/zap"
)

// Config wires the stage runners to their collaborators.
type Config struct {
	Planner *plan.Planner
	Source  *plan.Source
	Store   store.Store

	// BatchSize is the number of records per store write.
	BatchSize int

	// Progress is called after every batch. May be nil.
	Progress Progress

	// Validation tunes the final stage.
	Validation validation.Options

	// RunID prefixes every external reference written by this run.
	// Default: a random UUID
	RunID string

	Logger *zap.Logger
}

// Stages holds the runners of one migration run.
type Stages struct {
	cfg    Config
	writer *BatchWriter
	logger *zap.Logger
	report *validation.Report
}

// NewStages builds the runners.
func NewStages(cfg Config) *Stages {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.With(zap.String("run_id", cfg.RunID))
	return &Stages{
		cfg:    cfg,
		writer: NewBatchWriter(cfg.Store, cfg.BatchSize, cfg.Progress, logger),
		logger: logger,
	}
}

// RunID returns the identifier stamped on every record of this run.
func (s *Stages) RunID() string {
	return s.cfg.RunID
}

// Report returns the validation report, or nil before the validation stage
// has run.
func (s *Stages) Report() *validation.Report {
	return s.report
}

// List returns the stages for NewOrchestrator. Employees, vehicles,
// transactions and loyalty are optional.
func (s *Stages) List() []Stage {
	return []Stage{
		{Name: types.StageUpload, Run: s.runUpload},
		{Name: types.StageCustomers, Run: s.runCustomers},
		{Name: types.StageProducts, Run: s.runProducts},
		{Name: types.StageEmployees, Run: s.runEmployees, Optional: true},
		{Name: types.StageVehicles, Run: s.runVehicles, Optional: true},
		{Name: types.StageTransactions, Run: s.runTransactions, Optional: true},
		{Name: types.StageLoyalty, Run: s.runLoyalty, Optional: true},
		{Name: types.StageValidation, Run: s.runValidation},
	}
}

// NewOrchestrator is shorthand for NewOrchestrator(s.List(), logger).
func (s *Stages) NewOrchestrator() *Orchestrator {
	return NewOrchestrator(s.List(), s.logger)
}

// =============================================================================
// UPLOAD
// =============================================================================

// requiredExports must be present for the migration to start.
var requiredExports = []plan.Export{plan.ExportCustomers, plan.ExportCatalog}

func (s *Stages) runUpload(ctx context.Context) types.StageResult {
	src := s.cfg.Source

	if missing := src.Missing(requiredExports...); len(missing) > 0 {
		return types.StageResult{
			Status:  types.StatusError,
			Message: "required export not uploaded: " + joinExports(missing),
		}
	}

	counts := map[plan.Export]int{
		plan.ExportCustomers:    len(src.Customers),
		plan.ExportCatalog:      len(src.Products),
		plan.ExportTransactions: len(src.Transactions),
		plan.ExportItems:        len(src.Items),
	}

	var parts []string
	total := 0
	for _, e := range plan.Exports {
		if !src.Has(e) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d rows", e, counts[e]))
		total += counts[e]
	}
	msg := strings.Join(parts, ", ")
	if missing := src.Missing(plan.ExportTransactions, plan.ExportItems); len(missing) > 0 {
		msg += "; not uploaded: " + joinExports(missing)
	}

	return types.StageResult{Status: types.StatusCompleted, Count: types.IntPtr(total), Message: msg}
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Stages) runCustomers(ctx context.Context) types.StageResult {
	if r, ok := s.require(plan.ExportCustomers); !ok {
		return r
	}

	cp := s.cfg.Planner.Customers(s.cfg.Source)
	records := make([]store.Record, 0, len(cp.Importable))
	for _, c := range cp.Importable {
		records = append(records, s.customerRecord(c))
	}

	res := s.writer.Write(ctx, store.Customers, records)
	msg := fmt.Sprintf("%s; %d duplicates superseded; %d importable", cp.Summary, cp.Dedup.Superseded, len(records))
	return s.finish(res, msg)
}

func (s *Stages) customerRecord(c customers.Classified) store.Record {
	sourceID := c.Row.ReferenceID
	if sourceID == "" {
		sourceID = fmt.Sprintf("row-%d", c.Row.RowIndex)
	}
	return store.Record{
		NaturalKey:  customers.NaturalKey(c),
		ExternalRef: s.ref(sourceID),
		Spend:       c.LifetimeSpend,
		Payload: map[string]any{
			"first_name":   c.Row.FirstName,
			"last_name":    c.Row.LastName,
			"email":        c.Row.Email,
			"phone":        c.NormalizedPhone,
			"tier":         int(c.Tier),
			"visit_count":  c.VisitCount,
			"notes":        c.Row.Notes,
			"reference_id": c.Row.ReferenceID,
		},
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// runProducts writes vendors first so that products can reference them.
func (s *Stages) runProducts(ctx context.Context) types.StageResult {
	if r, ok := s.require(plan.ExportCatalog); !ok {
		return r
	}

	result := s.cfg.Planner.Products(s.cfg.Source)

	vendors := make([]store.Record, 0, len(result.Vendors))
	for _, name := range result.Vendors {
		vendors = append(vendors, store.Record{
			NaturalKey:  vendorKey(name),
			ExternalRef: s.ref("vendor:" + name),
			Payload:     map[string]any{"name": name},
		})
	}
	vres := s.writer.Write(ctx, store.Vendors, vendors)

	kept := result.Kept()
	records := make([]store.Record, 0, len(kept))
	for _, p := range kept {
		records = append(records, s.productRecord(p))
	}
	pres := s.writer.Write(ctx, store.Products, records)
	pres.Errors = append(vres.Errors, pres.Errors...)

	msg := fmt.Sprintf("%d products, %d vendors, %d skipped (%s)",
		pres.Written, vres.Written, result.Skipped(), skipSummary(result.SkipCounts))
	if len(result.Unmapped) > 0 {
		msg += "; unmapped categories: " + strings.Join(result.Unmapped, ", ")
	}
	return s.finish(pres, msg)
}

func (s *Stages) productRecord(p products.Processed) store.Record {
	payload := map[string]any{
		"name":             p.Row.DisplayName(),
		"sku":              p.Row.SKU,
		"category_label":   p.CategoryLabel,
		"category_slug":    p.CategorySlug,
		"price":            p.Price.StringFixed(2),
		"cost":             p.Cost.StringFixed(2),
		"loyalty_excluded": p.LoyaltyExcluded,
	}
	if p.VendorName != "" {
		payload["vendor"] = vendorKey(p.VendorName)
	}
	return store.Record{
		NaturalKey:  products.NaturalKey(p),
		ExternalRef: s.ref(p.Row.Token),
		Quantity:    p.Quantity,
		Payload:     payload,
	}
}

func vendorKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func skipSummary(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%s: %d", reason, counts[reason])
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Stages) runEmployees(ctx context.Context) types.StageResult {
	src := s.cfg.Source
	if !src.Has(plan.ExportTransactions) && !src.Has(plan.ExportItems) {
		return types.StageResult{
			Status:  types.StatusError,
			Message: "no transactions or items export uploaded; skip this stage to continue",
		}
	}

	staff := s.cfg.Planner.Employees(src)
	records := make([]store.Record, 0, len(staff))
	for _, e := range staff {
		records = append(records, s.employeeRecord(e))
	}

	res := s.writer.Write(ctx, store.Employees, records)
	return s.finish(res, fmt.Sprintf("%d staff members", len(staff)))
}

func (s *Stages) employeeRecord(e employees.Employee) store.Record {
	return store.Record{
		NaturalKey:  e.NaturalKey(),
		ExternalRef: s.ref("staff:" + e.Name),
		Payload: map[string]any{
			"first_name":        e.FirstName,
			"last_name":         e.LastName,
			"transaction_count": e.TransactionCount,
		},
	}
}

// =============================================================================
// VEHICLES
// =============================================================================

func (s *Stages) runVehicles(ctx context.Context) types.StageResult {
	if r, ok := s.require(plan.ExportItems); !ok {
		return r
	}

	refs := s.cfg.Planner.Customers(s.cfg.Source).CustomerRefs()
	vp := s.cfg.Planner.LinkedVehicles(s.cfg.Source, refs)

	records := make([]store.Record, 0, len(vp.Linked))
	for _, v := range vp.Linked {
		records = append(records, s.vehicleRecord(v))
	}

	res := s.writer.Write(ctx, store.Vehicles, records)
	msg := fmt.Sprintf("%d vehicles; %d anonymous items, %d labels without a size, %d for customers not imported",
		len(records), vp.Anonymous, vp.Unmatched, vp.Unlinked)
	return s.finish(res, msg)
}

func (s *Stages) vehicleRecord(v vehicles.Inferred) store.Record {
	return store.Record{
		NaturalKey:  v.NaturalKey(),
		ExternalRef: s.ref("vehicle:" + v.NaturalKey()),
		Payload: map[string]any{
			"customer":          v.CustomerKey,
			"size_class":        string(v.SizeClass),
			"observation_count": v.ObservationCount,
			"incomplete":        v.Incomplete,
		},
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// runTransactions writes joined payments. Each record gets a fresh key, so
// running this stage twice against the same store duplicates transactions.
func (s *Stages) runTransactions(ctx context.Context) types.StageResult {
	if r, ok := s.require(plan.ExportTransactions); !ok {
		return r
	}

	s.logger.Warn("transaction records have no natural key; re-running this stage duplicates them")

	refs := s.cfg.Planner.Customers(s.cfg.Source).CustomerRefs()
	joined := s.cfg.Planner.Transactions(s.cfg.Source)

	records := make([]store.Record, 0, len(joined.Transactions))
	for _, j := range joined.Transactions {
		records = append(records, s.transactionRecord(j, refs))
	}

	res := s.writer.Write(ctx, store.Transactions, records)
	msg := fmt.Sprintf("%d transactions with %d items; %d non-payment headers dropped, %d orphan items, %d with inconsistent totals",
		len(records), joined.ItemCount(), joined.DroppedHeaders, joined.OrphanItems, joined.Discrepancies)
	return s.finish(res, msg)
}

func (s *Stages) transactionRecord(j transactions.Joined, refs map[string]string) store.Record {
	payload := map[string]any{
		"transaction_id":  j.Header.TransactionID,
		"staff":           j.StaffName,
		"gross_sales":     j.GrossSales.StringFixed(2),
		"discounts":       j.Discounts.StringFixed(2),
		"net_sales":       j.NetSales.StringFixed(2),
		"tax":             j.Tax.StringFixed(2),
		"tip":             j.Tip.StringFixed(2),
		"total_collected": j.TotalCollected.StringFixed(2),
		"item_count":      len(j.Items),
		"payments":        j.Payments,
	}
	if !j.Date.IsZero() {
		payload["date"] = j.Date.Format("2006-01-02T15:04:05")
	}
	if key, ok := refs[j.CustomerKey]; ok {
		payload["customer"] = key
	}
	return store.Record{
		NaturalKey:  uuid.NewString(),
		ExternalRef: s.ref(j.Header.TransactionID),
		Spend:       j.NetSales,
		Payload:     payload,
	}
}

// =============================================================================
// LOYALTY
// =============================================================================

func (s *Stages) runLoyalty(ctx context.Context) types.StageResult {
	if r, ok := s.require(plan.ExportItems); !ok {
		return r
	}

	refs := s.cfg.Planner.Customers(s.cfg.Source).CustomerRefs()
	lp := s.cfg.Planner.LinkedLoyalty(s.cfg.Source, refs)

	records := make([]store.Record, 0, len(lp.Linked))
	var points int64
	for _, e := range lp.Linked {
		records = append(records, s.loyaltyRecord(e))
		points += e.Points
	}

	res := s.writer.Write(ctx, store.Loyalty, records)
	msg := fmt.Sprintf("%d balances totalling %d points; %d customers with no points, %d anonymous items, %d for customers not imported",
		len(records), points, lp.ZeroPointCustomers, lp.AnonymousItems, lp.Unlinked)
	return s.finish(res, msg)
}

func (s *Stages) loyaltyRecord(e loyalty.Entry) store.Record {
	return store.Record{
		NaturalKey:  e.CustomerKey,
		ExternalRef: s.ref("loyalty:" + e.CustomerKey),
		Spend:       e.EligibleSpend,
		Payload: map[string]any{
			"points":            e.Points,
			"excluded_spend":    e.ExcludedSpend.StringFixed(2),
			"transaction_count": e.TransactionCount,
		},
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func (s *Stages) runValidation(ctx context.Context) types.StageResult {
	v := validation.New(s.cfg.Planner, s.cfg.Source, s.cfg.Store, s.cfg.Validation, s.logger)
	report := v.Run(ctx)
	s.report = report

	pass, warn, fail := report.Counts()
	var errs []string
	for _, c := range report.Checks {
		if c.Status == validation.StatusFail {
			errs = append(errs, fmt.Sprintf("%s: %s", c.EntityLabel, c.Note))
		}
	}
	if report.Inventory.Status == validation.StatusFail {
		errs = append(errs, "inventory: "+report.Inventory.Note)
	}

	return types.StageResult{
		Status: types.StatusCompleted,
		Count:  types.IntPtr(len(report.Checks)),
		Message: fmt.Sprintf("%d pass, %d warn, %d fail; %d spend mismatches; inventory %s",
			pass, warn, fail, len(report.Spend.Mismatches), report.Inventory.Status),
		Errors: errs,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// require returns an error result when the export was not uploaded.
func (s *Stages) require(exports ...plan.Export) (types.StageResult, bool) {
	if missing := s.cfg.Source.Missing(exports...); len(missing) > 0 {
		return types.StageResult{
			Status:  types.StatusError,
			Message: "export not uploaded: " + joinExports(missing),
		}, false
	}
	return types.StageResult{}, true
}

// finish turns a write result into a completed stage result. Batch errors do
// not change the status.
func (s *Stages) finish(res WriteResult, msg string) types.StageResult {
	return types.StageResult{
		Status:  types.StatusCompleted,
		Count:   types.IntPtr(res.Written),
		Message: msg,
		Errors:  res.Errors,
	}
}

// ref builds an external reference tagged with the run id.
func (s *Stages) ref(sourceID string) string {
	return s.cfg.RunID + ":" + sourceID
}

func joinExports(exports []plan.Export) string {
	names := make([]string, len(exports))
	for i, e := range exports {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}
