package transactions

import (
	"fmt"
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(id, event, customer, gross, net string) normalize.RawRow {
	return normalize.RawRow{
		normalize.ColTransactionID:       id,
		normalize.ColEventType:           event,
		normalize.ColCustomerReferenceID: customer,
		normalize.ColGrossSales:          gross,
		normalize.ColNetSales:            net,
		normalize.ColTotalCollected:      net,
	}
}

func item(id, customer, net string) normalize.RawRow {
	return normalize.RawRow{
		normalize.ColTransactionID:       id,
		normalize.ColCustomerReferenceID: customer,
		normalize.ColNetSales:            net,
	}
}

func TestJoinFiltersPaymentsAndCountsOrphans(t *testing.T) {
	headers := normalize.Transactions([]normalize.RawRow{
		header("T1", "Payment", "C1", "$30.00", "$30.00"),
		header("T2", "Refund", "C1", "-$10.00", "-$10.00"),
		header("T3", "payment", "", "$5.00", "$5.00"),
	})
	items := normalize.Items([]normalize.RawRow{
		item("T1", "", "$20.00"),
		item("T1", "", "$10.00"),
		item("T2", "", "-$10.00"),
		item("T9", "C2", "$1.00"),
		item("T3", "C3", "$5.00"),
	})

	result := Join(headers, items)

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 1, result.DroppedHeaders)
	assert.Equal(t, 2, result.OrphanItems)

	t1 := result.Transactions[0]
	assert.Len(t, t1.Items, 2)
	assert.Equal(t, "C1", t1.CustomerKey)
	assert.True(t, t1.ItemNetSales.Equal(decimal.NewFromInt(30)))

	// Header has no customer; taken from its items.
	assert.Equal(t, "C3", result.Transactions[1].CustomerKey)
}

func TestJoinCompleteness(t *testing.T) {
	var rawHeaders, rawItems []normalize.RawRow
	for i := 0; i < 20; i++ {
		event := "Payment"
		if i%3 == 0 {
			event = "Refund"
		}
		rawHeaders = append(rawHeaders, header(fmt.Sprintf("T%d", i), event, "", "$1.00", "$1.00"))
	}
	for i := 0; i < 60; i++ {
		rawItems = append(rawItems, item(fmt.Sprintf("T%d", i%25), "", "$1.00"))
	}
	items := normalize.Items(rawItems)
	result := Join(normalize.Transactions(rawHeaders), items)

	seen := make(map[int]int)
	for _, j := range result.Transactions {
		for _, it := range j.Items {
			seen[it.RowIndex]++
		}
	}

	retained := make(map[string]bool)
	for _, j := range result.Transactions {
		retained[j.Header.TransactionID] = true
	}

	orphans := 0
	for _, it := range items {
		if retained[it.TransactionID] {
			assert.Equal(t, 1, seen[it.RowIndex], "item %d", it.RowIndex)
		} else {
			assert.Zero(t, seen[it.RowIndex], "item %d", it.RowIndex)
			orphans++
		}
	}
	assert.Equal(t, orphans, result.OrphanItems)
	assert.Equal(t, len(items), result.ItemCount()+result.OrphanItems)
}

func TestJoinSplitTenderMergesHeaders(t *testing.T) {
	headers := normalize.Transactions([]normalize.RawRow{
		header("T1", "Payment", "C1", "$20.00", "$20.00"),
		header("T1", "Payment", "C1", "$15.00", "$15.00"),
	})
	items := normalize.Items([]normalize.RawRow{item("T1", "", "$35.00")})

	result := Join(headers, items)

	require.Len(t, result.Transactions, 1)
	j := result.Transactions[0]
	assert.Equal(t, 2, j.Payments)
	assert.Len(t, j.Items, 1)
	assert.True(t, j.GrossSales.Equal(decimal.NewFromInt(35)))
	assert.True(t, j.TotalCollected.Equal(decimal.NewFromInt(35)))
}

func TestJoinSurfacesDiscrepancies(t *testing.T) {
	raw := header("T1", "Payment", "C1", "$50.00", "$40.00")
	raw[normalize.ColDiscounts] = "-$5.00"
	ok := header("T2", "Payment", "C1", "$50.00", "$45.00")
	ok[normalize.ColDiscounts] = "-$5.00"

	result := Join(normalize.Transactions([]normalize.RawRow{raw, ok}), nil)

	assert.Equal(t, 1, result.Discrepancies)
	// Values are kept as parsed.
	assert.True(t, result.Transactions[0].NetSales.Equal(decimal.NewFromInt(40)))
}

func TestResolveCustomerBackfill(t *testing.T) {
	headers := normalize.Transactions([]normalize.RawRow{
		header("T1", "Payment", "C1", "", ""),
		header("T2", "Refund", "C2", "", ""),
	})
	items := normalize.Items([]normalize.RawRow{
		item("T1", "", ""),
		item("T1", "C9", ""),
		item("T2", "", ""),
		item("T3", "", ""),
	})
	idx := BuildIndex(headers, items)

	assert.Equal(t, "C1", idx.ResolveCustomer(items[0]))
	assert.Equal(t, "C9", idx.ResolveCustomer(items[1]))
	assert.Equal(t, "C2", idx.ResolveCustomer(items[2]))
	assert.Empty(t, idx.ResolveCustomer(items[3]))
	assert.Equal(t, []string{"T1", "T2", "T3"}, idx.TransactionIDs())
}
