package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process Store. Dry runs write here so that every stage and
// the validator run exactly as they would against a real store.
type Memory struct {
	mu      sync.RWMutex
	records map[Entity]map[string]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[Entity]map[string]Record)}
}

// Upsert implements Store.
func (m *Memory) Upsert(ctx context.Context, entity Entity, records []Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkBatch(records); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.records[entity]
	if !ok {
		bucket = make(map[string]Record)
		m.records[entity] = bucket
	}
	for _, r := range records {
		r.Entity = entity
		bucket[r.NaturalKey] = r
	}
	return len(records), nil
}

// CountMigrated implements Store.
func (m *Memory) CountMigrated(ctx context.Context, entity Entity) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.records[entity] {
		if r.Migrated() {
			n++
		}
	}
	return n, nil
}

// Lookup implements Store.
func (m *Memory) Lookup(ctx context.Context, entity Entity, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[entity][key]
	return r, ok, nil
}

// SumQuantity implements Store.
func (m *Memory) SumQuantity(ctx context.Context, entity Entity) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, r := range m.records[entity] {
		if r.Migrated() {
			total = total.Add(r.Quantity)
		}
	}
	return total, nil
}
