// =============================================================================
// POS Migrator - Migration Source
// =============================================================================
//
// A Source is the fully parsed, typed content of the uploaded exports. It is
// built once, before any stage runs, and never modified afterwards. Stages
// and the validator each recompute what they need from it.
//
// =============================================================================

package plan

import (
	"errors"
	"fmt"
	"os"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/csvparser"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
	"golang.org/x/sync/errgroup"
)

// Export names one uploaded file.
type Export string

const (
	ExportCustomers    Export = "customers"
	ExportCatalog      Export = "catalog"
	ExportTransactions Export = "transactions"
	ExportItems        Export = "items"
)

// Exports lists every export in upload order.
var Exports = []Export{ExportCustomers, ExportCatalog, ExportTransactions, ExportItems}

// Source holds the typed rows of every uploaded export.
type Source struct {
	Customers    []normalize.CustomerRow
	Products     []normalize.ProductRow
	Transactions []normalize.TransactionRow
	Items        []normalize.ItemRow

	// Files maps each uploaded export to its file. Exports that were not
	// uploaded are absent.
	Files map[Export]string
}

// Has reports whether the export was uploaded.
func (s *Source) Has(e Export) bool {
	_, ok := s.Files[e]
	return ok
}

// Missing lists the exports among want that were not uploaded.
func (s *Source) Missing(want ...Export) []Export {
	var out []Export
	for _, e := range want {
		if !s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// FromTables builds a Source from parsed tables. A nil table means the
// export was not uploaded.
func FromTables(customers, catalog, transactions, items *csvparser.Table) *Source {
	src := &Source{Files: make(map[Export]string)}

	if customers != nil {
		src.Customers = normalize.Customers(customers.Rows)
		src.Files[ExportCustomers] = customers.SourceFile
	}
	if catalog != nil {
		src.Products = normalize.Products(catalog.Rows)
		src.Files[ExportCatalog] = catalog.SourceFile
	}
	if transactions != nil {
		src.Transactions = normalize.Transactions(transactions.Rows)
		src.Files[ExportTransactions] = transactions.SourceFile
	}
	if items != nil {
		src.Items = normalize.Items(items.Rows)
		src.Files[ExportItems] = items.SourceFile
	}

	return src
}

// Load parses every export the input config points at, each in its own
// goroutine. Files that do not exist are left out of the Source; whether
// that is fatal is decided by the stage that needs them.
func Load(in config.InputConfig) (*Source, error) {
	customers, catalog, transactions, items := in.Paths()

	tables := make([]*csvparser.Table, 4)
	var g errgroup.Group
	for i, path := range []string{customers, catalog, transactions, items} {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		g.Go(func() error {
			t, err := csvparser.Parse(path)
			if err != nil {
				return fmt.Errorf("failed to load %s export: %w", Exports[i], err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FromTables(tables[0], tables[1], tables[2], tables[3]), nil
}
