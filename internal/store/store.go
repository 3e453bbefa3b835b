// =============================================================================
// POS Migrator - Store
// =============================================================================
//
// The persistence collaborator. The pipeline only needs four operations from
// the target system:
//
//   Upsert        : write a batch of records, keyed by (entity, natural key)
//   CountMigrated : count records that carry an external reference, i.e.
//                   records this migration created
//   Lookup        : fetch one record by natural key
//   SumQuantity   : total on-hand quantity of migrated records
//
// IMPLEMENTATIONS:
//   - SQLite : local database file (modernc.org/sqlite, no cgo)
//   - Memory : in-process map, used for dry runs and tests
//   - Client : HTTP client for a remote store served by NewHandler
//
// =============================================================================

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Entity names a kind of migrated record.
type Entity string

const (
	Customers    Entity = "customers"
	Vendors      Entity = "vendors"
	Products     Entity = "products"
	Employees    Entity = "employees"
	Vehicles     Entity = "vehicles"
	Transactions Entity = "transactions"
	Loyalty      Entity = "loyalty"
)

// Entities lists every entity in import order.
var Entities = []Entity{Customers, Vendors, Products, Employees, Vehicles, Transactions, Loyalty}

// ParseEntity validates an entity name.
func ParseEntity(s string) (Entity, error) {
	e := Entity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Entities {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity %q", s)
}

// Record is one migrated row as the store sees it. Spend and Quantity are
// lifted out of the payload because validation queries them directly.
type Record struct {
	Entity      Entity          `json:"entity"`
	NaturalKey  string          `json:"natural_key"`
	ExternalRef string          `json:"external_ref,omitempty"`
	Spend       decimal.Decimal `json:"spend"`
	Quantity    decimal.Decimal `json:"quantity"`
	Payload     map[string]any  `json:"payload,omitempty"`
}

// Migrated reports whether the record was created by a migration run.
func (r Record) Migrated() bool {
	return r.ExternalRef != ""
}

// Store is the target data store.
type Store interface {
	// Upsert writes records for one entity and returns how many were
	// written. A batch either succeeds or fails as a whole.
	Upsert(ctx context.Context, entity Entity, records []Record) (int, error)

	// CountMigrated counts records with a non-empty external reference.
	CountMigrated(ctx context.Context, entity Entity) (int, error)

	// Lookup returns the record with the given natural key.
	Lookup(ctx context.Context, entity Entity, key string) (Record, bool, error)

	// SumQuantity totals Quantity over migrated records.
	SumQuantity(ctx context.Context, entity Entity) (decimal.Decimal, error)
}

// checkBatch rejects records that cannot be keyed.
func checkBatch(records []Record) error {
	for i, r := range records {
		if r.NaturalKey == "" {
			return fmt.Errorf("record %d has no natural key", i)
		}
	}
	return nil
}
