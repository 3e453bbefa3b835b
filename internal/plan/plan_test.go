package plan_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/csvparser"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/customers"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan/plantest"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/vehicles"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planner(t *testing.T, includeTier3 bool) *plan.Planner {
	t.Helper()
	dir := plantest.WriteExports(t, t.TempDir())
	rules, err := config.LoadRules(filepath.Join(dir, "rules.yaml"))
	require.NoError(t, err)
	return plan.NewPlanner(rules, includeTier3)
}

func TestCustomerPlan(t *testing.T) {
	src := plantest.Source(t)

	cp := planner(t, false).Customers(src)
	assert.Equal(t, 7, cp.Summary.Total)
	assert.Equal(t, 3, cp.Summary.Tiers[customers.TierActive])
	assert.Equal(t, 1, cp.Summary.Tiers[customers.TierProspect])
	assert.Equal(t, 2, cp.Summary.Tiers[customers.TierEmailOnly])
	assert.Equal(t, 1, cp.Summary.Tiers[customers.TierUnreachable])
	assert.Equal(t, 1, cp.Summary.InvalidPhones)
	assert.Equal(t, 1, cp.Dedup.Superseded)
	assert.Len(t, cp.Importable, 3)

	assert.Equal(t, map[string]string{
		"C1": "+15551234567",
		"C3": "+15550001111",
		"C4": "+15552223333",
	}, cp.CustomerRefs())

	withTier3 := planner(t, true)
	assert.True(t, withTier3.IncludesTier3())
	assert.Len(t, withTier3.Customers(src).Importable, 5)
}

func TestProductPlan(t *testing.T) {
	result := planner(t, false).Products(plantest.Source(t))

	assert.Len(t, result.Kept(), 2)
	assert.Equal(t, 3, result.Skipped())
	assert.Equal(t, []string{"Aqua Co"}, result.Vendors)
	assert.Equal(t, []string{"Beverages"}, result.Unmapped)
}

func TestTransactionSidePlans(t *testing.T) {
	src := plantest.Source(t)
	p := planner(t, false)

	joined := p.Transactions(src)
	assert.Len(t, joined.Transactions, 3)
	assert.Equal(t, 1, joined.DroppedHeaders)
	assert.Equal(t, 2, joined.OrphanItems)

	v := p.Vehicles(src)
	require.Len(t, v.Vehicles, 4)
	assert.Equal(t, vehicles.Inferred{CustomerKey: "C1", SizeClass: vehicles.Sedan, ObservationCount: 2, Incomplete: true}, v.Vehicles[0])
	assert.Equal(t, 1, v.Unmatched)

	ledger := p.Loyalty(src)
	require.Len(t, ledger.Entries, 3)
	assert.Equal(t, "C1", ledger.Entries[0].CustomerKey)
	assert.Equal(t, int64(185), ledger.Entries[0].Points)
	assert.Equal(t, "1.5", ledger.Entries[0].ExcludedSpend.String())
	assert.Equal(t, 2, ledger.Entries[0].TransactionCount)

	staff := p.Employees(src)
	require.Len(t, staff, 2)
	assert.Equal(t, "Maria Lopez", staff[0].Name)
	assert.Equal(t, 2, staff[0].TransactionCount)
}

func TestLinkingToImportableCustomers(t *testing.T) {
	src := plantest.Source(t)
	p := planner(t, false)
	refs := p.Customers(src).CustomerRefs()

	// C2 is a superseded duplicate of C3.
	assert.Equal(t, refs["C3"], refs["C2"])
	assert.NotContains(t, refs, "C5")

	vp := p.LinkedVehicles(src, refs)
	require.Len(t, vp.Linked, 4)
	assert.Equal(t, 0, vp.Unlinked)
	assert.Equal(t, "+15550001111|suv_3row_van", vp.Linked[0].NaturalKey())

	lp := p.LinkedLoyalty(src, refs)
	require.Len(t, lp.Linked, 3)
	assert.Equal(t, "+15551234567", lp.Linked[1].CustomerKey)

	delete(refs, "C4")
	assert.Equal(t, 1, p.LinkedVehicles(src, refs).Unlinked)
	assert.Equal(t, 1, p.LinkedLoyalty(src, refs).Unlinked)
}

func TestLoad(t *testing.T) {
	dir := plantest.WriteExports(t, t.TempDir())

	src, err := plan.Load(config.InputConfig{Dir: dir})
	require.NoError(t, err)
	assert.Len(t, src.Customers, 7)
	assert.Empty(t, src.Missing(plan.Exports...))

	src, err = plan.Load(config.InputConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, plan.Exports, src.Missing(plan.Exports...))
	assert.False(t, src.Has(plan.ExportCustomers))
}

func TestNilRulesUseDefaults(t *testing.T) {
	result := plan.NewPlanner(nil, false).Products(plantest.Source(t))

	// Without the rules file FEE-01 is no longer skipped.
	assert.Len(t, result.Kept(), 3)
}

func TestDuplicateHistoryFoldsIntoKeptCustomer(t *testing.T) {
	read := func(name, body string) *csvparser.Table {
		table, err := csvparser.Read(strings.NewReader(body), name)
		require.NoError(t, err)
		return table
	}
	src := plan.FromTables(
		read("customers.csv", `Reference ID,First Name,Last Name,Email Address,Phone Number,Transaction Count,Total Spend
A,Grace,Hopper,,555-000-1111,2,$150.00
B,Grace,Hopper,grace@example.com,(555) 000-1111,7,$400.00
`),
		nil,
		read("transactions.csv", `Date,Time,Transaction ID,Event Type,Gross Sales,Discounts,Net Sales,Tax,Tip,Total Collected,Staff Name,Customer Reference ID
2024-03-01,10:00:00,T1,Payment,$120.00,$0.00,$120.00,$0.00,$0.00,$120.00,Dee,A
2024-03-02,10:00:00,T2,Payment,$30.50,$0.00,$30.50,$0.00,$0.00,$30.50,Dee,B
`),
		read("items.csv", `Date,Transaction ID,Item,Qty,Price Point Name,SKU,Gross Sales,Net Sales,Customer Reference ID,Employee
2024-03-01,T1,Full Detail,1,Sedan,DET-1,$120.00,$120.00,,Dee
2024-03-02,T2,Wash,1,Sedan,WASH,$30.50,$30.50,,Dee
`),
	)
	p := plan.NewPlanner(nil, false)

	cp := p.Customers(src)
	require.Len(t, cp.Importable, 1)
	refs := cp.CustomerRefs()
	assert.Equal(t, map[string]string{"A": "+15550001111", "B": "+15550001111"}, refs)

	lp := p.LinkedLoyalty(src, refs)
	assert.Equal(t, 0, lp.Unlinked)
	require.Len(t, lp.Linked, 1)
	entry := lp.Linked[0]
	assert.Equal(t, "+15550001111", entry.CustomerKey)
	assert.Equal(t, int64(150), entry.Points)
	assert.True(t, entry.EligibleSpend.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, 2, entry.TransactionCount)

	vp := p.LinkedVehicles(src, refs)
	assert.Equal(t, 0, vp.Unlinked)
	require.Len(t, vp.Linked, 1)
	assert.Equal(t, "+15550001111|sedan", vp.Linked[0].NaturalKey())
	assert.Equal(t, 2, vp.Linked[0].ObservationCount)
}
