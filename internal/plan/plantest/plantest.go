// Package plantest provides a small, realistic set of POS exports for tests.
package plantest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/csvparser"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
)

// CustomersCSV has 7 rows: 3 tier 1 (two share a phone), 1 tier 2, 2 tier 3
// (one with an invalid phone) and 1 tier 4.
const CustomersCSV = `Reference ID,First Name,Last Name,Email Address,Phone Number,Transaction Count,Total Spend
C1,Ada,Lovelace,ada@example.com,(555) 123-4567,3,$250.00
C2,Grace,Hopper,,555-000-1111,2,$40.00
C3,Grace,Hopper,grace@example.com,+1 555 000 1111,7,$310.50
C4,Alan,Turing,,555-222-3333,0,$0.00
C5,Edsger,Dijkstra,ed@example.com,,0,$0.00
C6,Barbara,Liskov,barbara@example.com,12345,1,$15.00
C7,Nobody,Known,,,0,$0.00
`

// CatalogCSV has 5 rows: 1 skipped by SKU, 1 by name, 1 archived and 2
// kept. The bottled water is unmapped and loyalty excluded. On-hand quantity
// is 27 across all rows and 24 across kept rows.
const CatalogCSV = `Token,Item Name,Variation Name,SKU,Category,Reporting Category,Price,Archived,Default Vendor Name,Current Quantity Main
tk1,Full Detail,Regular,DET-1,Detailing,,$199.00,N,,0
tk2,Bottled Water,Regular,WATER-500,Beverages,,$1.50,N,Aqua Co,24
tk3,Processing Fee,Regular,FEE-01,Fees,,$0.30,N,,0
tk4,Custom Amount,Regular,,Misc,,$0.00,N,,0
tk5,Old Wax,Regular,WAX-9,Retail,,$15.00,Y,Wax Inc,3
`

// TransactionsCSV has 4 headers: 3 payments and 1 refund.
const TransactionsCSV = `Date,Time,Transaction ID,Event Type,Gross Sales,Discounts,Net Sales,Tax,Tip,Total Collected,Staff Name,Customer Reference ID
2024-03-01,10:00:00,T1,Payment,$201.50,$0.00,$201.50,$16.12,$10.00,$227.62,Maria Lopez,C1
2024-03-02,11:30:00,T2,Payment,$42.50,$0.00,$42.50,$3.40,$0.00,$45.90,Dee,C3
2024-03-03,09:15:00,T3,Refund,-$15.00,$0.00,-$15.00,$0.00,$0.00,-$15.00,Dee,C1
2024-03-04,14:45:00,T4,Payment,$25.00,$0.00,$25.00,$2.00,$0.00,$27.00,Maria Lopez,
`

// ItemsCSV has 6 items: 3 on T1, 1 on T2, 1 on the refund and 1 orphan.
const ItemsCSV = `Date,Transaction ID,Item,Qty,Price Point Name,SKU,Gross Sales,Net Sales,Customer Reference ID,Employee
2024-03-01,T1,Full Detail,1,Sedan,DET-1,$199.00,$199.00,,Maria Lopez
2024-03-01,T1,Bottled Water,1,Regular,WATER-500,$1.50,$1.50,,Maria Lopez
2024-03-01,T1,Tire Shine,1,Vehicle Size - MEDIUM,SHINE,$1.00,$1.00,C1,
2024-03-02,T2,Full Detail,1,Vehicle Size - LARGE,DET-1,$42.50,$42.50,,Dee
2024-03-03,T3,Full Detail,1,Sedan,DET-1,-$15.00,-$15.00,,Dee
2024-03-05,T9,Wash,1,Truck,WASH,$20.00,$20.00,C4,
`

// RulesYAML skips FEE-01, maps Detailing and excludes WATER-500 from loyalty.
const RulesYAML = `category_mapping:
  Detailing: detail-services
  Retail: retail
skip_skus: [FEE-01]
skip_item_names: [Custom Amount]
loyalty_excluded_sku: WATER-500
`

// Source parses the fixtures into a plan.Source.
func Source(t testing.TB) *plan.Source {
	t.Helper()
	read := func(name, body string) *csvparser.Table {
		table, err := csvparser.Read(strings.NewReader(body), name)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		return table
	}
	return plan.FromTables(
		read("customers.csv", CustomersCSV),
		read("catalog.csv", CatalogCSV),
		read("transactions.csv", TransactionsCSV),
		read("items.csv", ItemsCSV),
	)
}

// WriteExports writes the fixtures into dir under their default file names
// and returns dir.
func WriteExports(t testing.TB, dir string) string {
	t.Helper()
	files := map[string]string{
		"customers.csv":    CustomersCSV,
		"catalog.csv":      CatalogCSV,
		"transactions.csv": TransactionsCSV,
		"items.csv":        ItemsCSV,
		"rules.yaml":       RulesYAML,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
