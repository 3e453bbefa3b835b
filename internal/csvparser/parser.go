// =============================================================================
// POS Migrator - CSV Parser Module
// =============================================================================
//
// This module is the ingestion collaborator: it turns one POS export file into
// an ordered header list plus one string map per data row. It knows nothing
// about what the columns mean; that is the row normalizer's job.
//
// FEATURES:
//   - UTF-8 byte order mark stripped (Square exports carry one)
//   - Ragged rows tolerated: missing cells read as ""
//   - Blank header cells named "Column_N", repeated headers suffixed " (2)"
//   - Blank lines skipped
//
// The whole file is read into memory: every stage needs the complete row set
// before it runs.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// Table represents a parsed CSV file.
type Table struct {
	// Headers contains the column headers in file order.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path of the parsed file, or a caller label for Read.
	SourceFile string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasHeader reports whether the table has the given column.
func (t *Table) HasHeader(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//
// RETURNS:
//   - The parsed Table.
//   - An error if the file cannot be opened, is empty, or is not valid CSV.
func Parse(filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Read(file, filePath)
}

// Read parses CSV from r. source labels the table in errors and reports.
func Read(r io.Reader, source string) (*Table, error) {
	reader := bufio.NewReader(r)
	if bom, err := reader.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		reader.Discard(3)
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", source, err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file %s is empty", source)
	}

	headers := cleanHeaders(allRows[0])

	return &Table{
		Headers:    headers,
		Rows:       extractDataRows(allRows[1:], headers),
		SourceFile: source,
	}, nil
}

// configureReader sets the csv.Reader options used for every export.
func configureReader(reader *csv.Reader) {
	reader.Comma = ','

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = true
}

// cleanHeaders trims headers, names blank ones by position and makes
// repeated ones unique.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int)

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		seen[header]++
		if n := seen[header]; n > 1 {
			header = fmt.Sprintf("%s (%d)", header, n)
		}

		cleaned[i] = header
	}

	return cleaned
}

// extractDataRows converts records to maps. Every map has every header.
func extractDataRows(records [][]string, headers []string) []map[string]string {
	dataRows := make([]map[string]string, 0, len(records))

	for _, row := range records {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				rowMap[header] = strings.TrimSpace(row[colIndex])
			} else {
				rowMap[header] = ""
			}
		}

		dataRows = append(dataRows, rowMap)
	}

	return dataRows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
