// =============================================================================
// POS Migrator - Row Normalizer: Typed Rows
// =============================================================================
//
// The ingestion layer hands us rows as maps keyed by arbitrary header strings.
// This module is the only place those maps are read. Every export type gets a
// fixed-schema row struct and an adapter from the raw map; downstream packages
// only ever see the typed rows.
//
// EXPORTS:
//   - Customers     : one row per customer profile
//   - Catalog       : one row per item variation
//   - Transactions  : one row per payment/refund event (the "header")
//   - Item details  : one row per line item, linked to a header by Transaction ID
//
// Header names follow the Square export format.
//
// =============================================================================

package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Customer export columns.
const (
	ColReferenceID   = "Reference ID"
	ColSquareID      = "Square Customer ID"
	ColFirstName     = "First Name"
	ColLastName      = "Last Name"
	ColEmail         = "Email Address"
	ColPhone         = "Phone Number"
	ColVisits        = "Transaction Count"
	ColTotalSpend    = "Total Spend"
	ColCreationDate  = "Creation Date"
	ColFirstVisit    = "First Visit"
	ColLastVisit     = "Last Visit"
	ColCustomerNotes = "Memo"
)

// Catalog export columns.
const (
	ColToken             = "Token"
	ColItemName          = "Item Name"
	ColVariationName     = "Variation Name"
	ColSKU               = "SKU"
	ColDescription       = "Description"
	ColCategory          = "Category"
	ColReportingCategory = "Reporting Category"
	ColPrice             = "Price"
	ColArchived          = "Archived"
	ColVendorName        = "Default Vendor Name"
	ColUnitCost          = "Default Unit Cost"

	// ColQuantityPrefix matches per-location stock columns such as
	// "Current Quantity Main Street".
	ColQuantityPrefix = "Current Quantity"
)

// Transaction and item export columns.
const (
	ColDate                = "Date"
	ColTime                = "Time"
	ColGrossSales          = "Gross Sales"
	ColDiscounts           = "Discounts"
	ColNetSales            = "Net Sales"
	ColTax                 = "Tax"
	ColTip                 = "Tip"
	ColTotalCollected      = "Total Collected"
	ColTransactionID       = "Transaction ID"
	ColPaymentID           = "Payment ID"
	ColStaffName           = "Staff Name"
	ColCustomerName        = "Customer Name"
	ColCustomerReferenceID = "Customer Reference ID"
	ColEventType           = "Event Type"
	ColItem                = "Item"
	ColQty                 = "Qty"
	ColPricePointName      = "Price Point Name"
	ColEmployee            = "Employee"
)

// RawRow is one record from the ingestion layer.
type RawRow = map[string]string

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerRow is a typed customer profile.
type CustomerRow struct {
	// RowIndex is the 0-based position of the row in its export. It is the
	// stable ordering key for every customer decision (dedup tie-breaks,
	// spot-check ordering).
	RowIndex int

	ReferenceID   string
	SquareID      string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Visits        int
	LifetimeSpend decimal.Decimal
	CreatedAt     time.Time
	FirstVisit    time.Time
	LastVisit     time.Time
	Notes         string
}

// FullName joins the first and last name.
func (c CustomerRow) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CustomerFromRaw adapts a raw customer row.
func CustomerFromRaw(index int, raw RawRow) CustomerRow {
	visits := ParseInt(raw[ColVisits])
	if visits < 0 {
		visits = 0
	}
	spend := ParseCurrency(raw[ColTotalSpend])
	if spend.IsNegative() {
		spend = decimal.Zero
	}

	return CustomerRow{
		RowIndex:      index,
		ReferenceID:   field(raw, ColReferenceID),
		SquareID:      field(raw, ColSquareID),
		FirstName:     field(raw, ColFirstName),
		LastName:      field(raw, ColLastName),
		Email:         strings.ToLower(field(raw, ColEmail)),
		Phone:         field(raw, ColPhone),
		Visits:        visits,
		LifetimeSpend: spend,
		CreatedAt:     ParseDate(raw[ColCreationDate], ""),
		FirstVisit:    ParseDate(raw[ColFirstVisit], ""),
		LastVisit:     ParseDate(raw[ColLastVisit], ""),
		Notes:         field(raw, ColCustomerNotes),
	}
}

// Customers adapts every raw customer row, preserving order.
func Customers(rows []RawRow) []CustomerRow {
	out := make([]CustomerRow, len(rows))
	for i, raw := range rows {
		out[i] = CustomerFromRaw(i, raw)
	}
	return out
}

// =============================================================================
// CATALOG
// =============================================================================

// ProductRow is a typed catalog row.
type ProductRow struct {
	RowIndex          int
	Token             string
	ItemName          string
	VariationName     string
	SKU               string
	Description       string
	Category          string
	ReportingCategory string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	Quantity          decimal.Decimal
	Archived          bool
	VendorName        string
}

// DisplayName joins item and variation names, omitting the placeholder
// "Regular" variation.
func (p ProductRow) DisplayName() string {
	if p.VariationName == "" || strings.EqualFold(p.VariationName, "Regular") {
		return p.ItemName
	}
	return p.ItemName + " - " + p.VariationName
}

// ProductFromRaw adapts a raw catalog row.
func ProductFromRaw(index int, raw RawRow) ProductRow {
	return ProductRow{
		RowIndex:          index,
		Token:             field(raw, ColToken),
		ItemName:          field(raw, ColItemName),
		VariationName:     field(raw, ColVariationName),
		SKU:               field(raw, ColSKU),
		Description:       field(raw, ColDescription),
		Category:          field(raw, ColCategory),
		ReportingCategory: field(raw, ColReportingCategory),
		Price:             ParseCurrency(raw[ColPrice]),
		Cost:              ParseCurrency(raw[ColUnitCost]),
		Quantity:          ParseQuantity(quantityCell(raw)),
		Archived:          ParseBool(raw[ColArchived]),
		VendorName:        field(raw, ColVendorName),
	}
}

// Products adapts every raw catalog row, preserving order.
func Products(rows []RawRow) []ProductRow {
	out := make([]ProductRow, len(rows))
	for i, raw := range rows {
		out[i] = ProductFromRaw(i, raw)
	}
	return out
}

// quantityCell returns the first stock column in header order. Map iteration
// order is random, so candidate headers are sorted first.
func quantityCell(raw RawRow) string {
	var headers []string
	for header := range raw {
		if strings.HasPrefix(header, ColQuantityPrefix) {
			headers = append(headers, header)
		}
	}
	if len(headers) == 0 {
		return ""
	}
	sort.Strings(headers)
	return raw[headers[0]]
}

// =============================================================================
// TRANSACTIONS (HEADERS)
// =============================================================================

// TransactionRow is a typed transaction header.
type TransactionRow struct {
	RowIndex       int
	TransactionID  string
	PaymentID      string
	EventType      string
	Date           time.Time
	GrossSales     decimal.Decimal
	Discounts      decimal.Decimal
	NetSales       decimal.Decimal
	Tax            decimal.Decimal
	Tip            decimal.Decimal
	TotalCollected decimal.Decimal
	StaffName      string
	CustomerName   string
	CustomerKey    string
}

// IsPayment reports whether the header is a completed payment event.
func (t TransactionRow) IsPayment() bool {
	return strings.EqualFold(t.EventType, "Payment")
}

// TransactionFromRaw adapts a raw transaction header row.
func TransactionFromRaw(index int, raw RawRow) TransactionRow {
	return TransactionRow{
		RowIndex:       index,
		TransactionID:  field(raw, ColTransactionID),
		PaymentID:      field(raw, ColPaymentID),
		EventType:      field(raw, ColEventType),
		Date:           ParseDate(raw[ColDate], raw[ColTime]),
		GrossSales:     ParseCurrency(raw[ColGrossSales]),
		Discounts:      ParseCurrency(raw[ColDiscounts]),
		NetSales:       ParseCurrency(raw[ColNetSales]),
		Tax:            ParseCurrency(raw[ColTax]),
		Tip:            ParseCurrency(raw[ColTip]),
		TotalCollected: ParseCurrency(raw[ColTotalCollected]),
		StaffName:      field(raw, ColStaffName),
		CustomerName:   field(raw, ColCustomerName),
		CustomerKey:    field(raw, ColCustomerReferenceID),
	}
}

// Transactions adapts every raw transaction row, preserving order.
func Transactions(rows []RawRow) []TransactionRow {
	out := make([]TransactionRow, len(rows))
	for i, raw := range rows {
		out[i] = TransactionFromRaw(i, raw)
	}
	return out
}

// =============================================================================
// ITEM DETAILS
// =============================================================================

// ItemRow is a typed line item.
type ItemRow struct {
	RowIndex       int
	TransactionID  string
	Date           time.Time
	Category       string
	ItemName       string
	Quantity       decimal.Decimal
	PricePointName string
	SKU            string
	GrossSales     decimal.Decimal
	Discounts      decimal.Decimal
	NetSales       decimal.Decimal
	Tax            decimal.Decimal
	CustomerName   string
	// CustomerKey is the item-level reference id. It is often blank and is
	// backfilled from the header by the transaction joiner.
	CustomerKey    string
	Employee       string
}

// ItemFromRaw adapts a raw item detail row.
func ItemFromRaw(index int, raw RawRow) ItemRow {
	return ItemRow{
		RowIndex:       index,
		TransactionID:  field(raw, ColTransactionID),
		Date:           ParseDate(raw[ColDate], raw[ColTime]),
		Category:       field(raw, ColCategory),
		ItemName:       field(raw, ColItem),
		Quantity:       ParseQuantity(raw[ColQty]),
		PricePointName: field(raw, ColPricePointName),
		SKU:            field(raw, ColSKU),
		GrossSales:     ParseCurrency(raw[ColGrossSales]),
		Discounts:      ParseCurrency(raw[ColDiscounts]),
		NetSales:       ParseCurrency(raw[ColNetSales]),
		Tax:            ParseCurrency(raw[ColTax]),
		CustomerName:   field(raw, ColCustomerName),
		CustomerKey:    field(raw, ColCustomerReferenceID),
		Employee:       field(raw, ColEmployee),
	}
}

// Items adapts every raw item row, preserving order.
func Items(rows []RawRow) []ItemRow {
	out := make([]ItemRow, len(rows))
	for i, raw := range rows {
		out[i] = ItemFromRaw(i, raw)
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// field returns a trimmed cell; missing columns read as empty.
func field(raw RawRow, column string) string {
	return strings.TrimSpace(raw[column])
}
