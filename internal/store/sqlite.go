package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the records table.
func (s *SQLite) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		entity       TEXT NOT NULL,
		natural_key  TEXT NOT NULL,
		external_ref TEXT NOT NULL DEFAULT '',
		spend        TEXT NOT NULL DEFAULT '0',
		quantity     TEXT NOT NULL DEFAULT '0',
		payload      TEXT,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (entity, natural_key)
	);
	CREATE INDEX IF NOT EXISTS idx_records_external_ref ON records(entity, external_ref);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Upsert implements Store.
func (s *SQLite) Upsert(ctx context.Context, entity Entity, records []Record) (int, error) {
	if err := checkBatch(records); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (entity, natural_key, external_ref, spend, quantity, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(entity, natural_key) DO UPDATE SET
		 external_ref = excluded.external_ref,
		 spend = excluded.spend,
		 quantity = excluded.quantity,
		 payload = excluded.payload,
		 updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode payload for %s: %w", r.NaturalKey, err)
		}
		if _, err := stmt.ExecContext(ctx, string(entity), r.NaturalKey, r.ExternalRef,
			r.Spend.String(), r.Quantity.String(), string(payload)); err != nil {
			return 0, fmt.Errorf("failed to upsert %s: %w", r.NaturalKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return len(records), nil
}

// CountMigrated implements Store.
func (s *SQLite) CountMigrated(ctx context.Context, entity Entity) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE entity = ? AND external_ref <> ''",
		string(entity),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", entity, err)
	}
	return n, nil
}

// Lookup implements Store.
func (s *SQLite) Lookup(ctx context.Context, entity Entity, key string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r                        Record
		spend, quantity, payload string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT natural_key, external_ref, spend, quantity, COALESCE(payload, '') FROM records WHERE entity = ? AND natural_key = ?",
		string(entity), key,
	).Scan(&r.NaturalKey, &r.ExternalRef, &spend, &quantity, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to look up %s %s: %w", entity, key, err)
	}

	r.Entity = entity
	r.Spend, _ = decimal.NewFromString(spend)
	r.Quantity, _ = decimal.NewFromString(quantity)
	if payload != "" && payload != "null" {
		if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
			return Record{}, false, fmt.Errorf("failed to decode payload for %s: %w", key, err)
		}
	}
	return r, true, nil
}

// SumQuantity implements Store. Quantities are stored as decimal text and
// summed here so that no precision is lost to SQLite's REAL arithmetic.
func (s *SQLite) SumQuantity(ctx context.Context, entity Entity) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT quantity FROM records WHERE entity = ? AND external_ref <> ''",
		string(entity),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query %s quantities: %w", entity, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return decimal.Zero, fmt.Errorf("failed to read quantity: %w", err)
		}
		if d, err := decimal.NewFromString(q); err == nil {
			total = total.Add(d)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to read quantities: %w", err)
	}
	return total, nil
}
