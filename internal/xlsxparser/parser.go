// =============================================================================
// POS Migrator - XLSX Rules Workbook Parser
// =============================================================================
//
// Operators usually keep their migration rules in a spreadsheet. This module
// reads that workbook so the rules can be edited in Excel instead of YAML.
//
// WORKBOOK STRUCTURE (one sheet per table, row 1 is a header row):
//
//   | Sheet        | Column A          | Column B     |
//   |--------------|-------------------|--------------|
//   | Categories   | Source Category   | Target Slug  |
//   | Skip SKUs    | SKU               |              |
//   | Skip Items   | Item Name         |              |
//   | Loyalty      | Excluded SKU      |              |
//   | Size Tokens  | Token             | Size Class   |
//
// Missing sheets are treated as empty tables. Sheet names and column
// positions are configurable via SheetLayout.
//
// CUSTOMIZATION:
//   - Change DefaultSheetLayout if your workbook uses other sheet names
//   - Use Write to produce a starter workbook from the current rules
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// WORKBOOK STRUCTURE
// =============================================================================

// Workbook holds the rule tables read from an XLSX file.
type Workbook struct {
	// File is the path the workbook was read from.
	File string

	// Categories maps a source category label to a target slug.
	Categories map[string]string

	// SkipSKUs and SkipItems are the product skip lists.
	SkipSKUs  []string
	SkipItems []string

	// LoyaltyExcludedSKU is the first SKU on the Loyalty sheet.
	LoyaltyExcludedSKU string

	// SizeTokens maps a price point token to a size class name.
	SizeTokens map[string]string
}

// =============================================================================
// SHEET LAYOUT CONFIGURATION
// =============================================================================

// SheetLayout defines where each table lives in the workbook.
// Column indices are 0-based (A=0, B=1, ...).
type SheetLayout struct {
	CategoriesSheet string
	SkipSKUsSheet   string
	SkipItemsSheet  string
	LoyaltySheet    string
	SizeTokensSheet string

	// KeyColumn and ValueColumn are shared by every sheet. Single-column
	// sheets only read KeyColumn.
	KeyColumn   int
	ValueColumn int

	// DataStartRow is the first data row (0-based). Default: 1 (Row 2)
	DataStartRow int
}

// DefaultSheetLayout returns the standard workbook layout.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		CategoriesSheet: "Categories",
		SkipSKUsSheet:   "Skip SKUs",
		SkipItemsSheet:  "Skip Items",
		LoyaltySheet:    "Loyalty",
		SizeTokensSheet: "Size Tokens",
		KeyColumn:       0, // Column A
		ValueColumn:     1, // Column B
		DataStartRow:    1, // Row 2
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a rules workbook using the default layout.
func Parse(path string) (*Workbook, error) {
	return ParseWithLayout(path, DefaultSheetLayout())
}

// ParseWithLayout reads a rules workbook.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - layout: Sheet names and column positions.
//
// RETURNS:
//   - The parsed Workbook.
//   - An error if the file cannot be opened or a sheet cannot be read.
func ParseWithLayout(path string, layout SheetLayout) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{
		File:       path,
		Categories: make(map[string]string),
		SizeTokens: make(map[string]string),
	}

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[strings.ToLower(name)] = true
	}

	read := func(sheet string) ([][]string, error) {
		if !present[strings.ToLower(sheet)] {
			return nil, nil
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) <= layout.DataStartRow {
			return nil, nil
		}
		return rows[layout.DataStartRow:], nil
	}

	rows, err := read(layout.CategoriesSheet)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if key := getCell(row, layout.KeyColumn); key != "" {
			wb.Categories[key] = getCell(row, layout.ValueColumn)
		}
	}

	if rows, err = read(layout.SkipSKUsSheet); err != nil {
		return nil, err
	}
	wb.SkipSKUs = column(rows, layout.KeyColumn)

	if rows, err = read(layout.SkipItemsSheet); err != nil {
		return nil, err
	}
	wb.SkipItems = column(rows, layout.KeyColumn)

	if rows, err = read(layout.LoyaltySheet); err != nil {
		return nil, err
	}
	if skus := column(rows, layout.KeyColumn); len(skus) > 0 {
		wb.LoyaltyExcludedSKU = skus[0]
	}

	if rows, err = read(layout.SizeTokensSheet); err != nil {
		return nil, err
	}
	for i, row := range rows {
		key := getCell(row, layout.KeyColumn)
		if key == "" {
			continue
		}
		value := getCell(row, layout.ValueColumn)
		if value == "" {
			return nil, fmt.Errorf("sheet %q row %d: token %q has no size class",
				layout.SizeTokensSheet, i+layout.DataStartRow+1, key)
		}
		wb.SizeTokens[key] = value
	}

	return wb, nil
}

// =============================================================================
// WRITER
// =============================================================================

// Write saves wb as a workbook in the default layout.
func Write(path string, wb *Workbook) error {
	layout := DefaultSheetLayout()
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name    string
		headers []string
		rows    [][]string
	}{
		{layout.CategoriesSheet, []string{"Source Category", "Target Slug"}, pairs(wb.Categories)},
		{layout.SkipSKUsSheet, []string{"SKU"}, singles(wb.SkipSKUs)},
		{layout.SkipItemsSheet, []string{"Item Name"}, singles(wb.SkipItems)},
		{layout.LoyaltySheet, []string{"Excluded SKU"}, singles(nonEmpty(wb.LoyaltyExcludedSKU))},
		{layout.SizeTokensSheet, []string{"Token", "Size Class"}, pairs(wb.SizeTokens)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", s.name, err)
		}

		all := append([][]string{s.headers}, s.rows...)
		for r, row := range all {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(s.name, cell, value); err != nil {
					return fmt.Errorf("failed to write %s!%s: %w", s.name, cell, err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// getCell safely returns a trimmed cell value.
func getCell(row []string, index int) string {
	if index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}

// column returns the non-empty cells of one column.
func column(rows [][]string, index int) []string {
	var out []string
	for _, row := range rows {
		if v := getCell(row, index); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pairs flattens a map into sorted two-column rows.
func pairs(m map[string]string) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = []string{k, m[k]}
	}
	return out
}

// singles turns values into one-column rows.
func singles(values []string) [][]string {
	out := make([][]string, len(values))
	for i, v := range values {
		out[i] = []string{v}
	}
	return out
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
