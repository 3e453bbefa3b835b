// =============================================================================
// POS Migrator - Batch Writer
// =============================================================================
//
// Every import stage writes through a BatchWriter. Records are split into
// fixed-size chunks and written one chunk at a time:
//
//   - a failed chunk is recorded as an error string and the next chunk is
//     still written
//   - the progress callback sees a monotonically increasing count
//   - nothing is written concurrently
//
// =============================================================================

package migration

import (
	"context"
	"fmt"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"go.uber.org/zap"
)

// DefaultBatchSize is used when a BatchWriter is given a size below one.
const DefaultBatchSize = 50

// Progress is called after every chunk with the number of records processed
// so far and the total.
type Progress func(entity store.Entity, done, total int)

// BatchWriter writes records to a Store in sequential chunks.
type BatchWriter struct {
	store    store.Store
	size     int
	progress Progress
	logger   *zap.Logger
}

// NewBatchWriter returns a writer over s. progress and logger may be nil.
func NewBatchWriter(s store.Store, size int, progress Progress, logger *zap.Logger) *BatchWriter {
	if size < 1 {
		size = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchWriter{store: s, size: size, progress: progress, logger: logger}
}

// WriteResult is the outcome of one Write call.
type WriteResult struct {
	Written int
	Errors  []string
}

// Write upserts records chunk by chunk. A cancelled context stops before the
// next chunk; the remaining chunks are reported as not written.
//
// RETURNS:
//   - The number of records the store accepted and one error string per
//     failed chunk. Write itself never fails.
func (w *BatchWriter) Write(ctx context.Context, entity store.Entity, records []store.Record) WriteResult {
	var result WriteResult
	total := len(records)

	for start, batch := 0, 1; start < total; start, batch = start+w.size, batch+1 {
		end := start + w.size
		if end > total {
			end = total
		}

		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("batch %d (records %d-%d): not written: %v", batch, start+1, total, err))
			w.logger.Warn("batch write cancelled",
				zap.String("entity", string(entity)),
				zap.Int("batch", batch),
				zap.Error(err))
			break
		}

		n, err := w.store.Upsert(ctx, entity, records[start:end])
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("batch %d (records %d-%d): %v", batch, start+1, end, err))
			w.logger.Warn("batch write failed",
				zap.String("entity", string(entity)),
				zap.Int("batch", batch),
				zap.Int("records", end-start),
				zap.Error(err))
		} else {
			result.Written += n
			w.logger.Debug("batch written",
				zap.String("entity", string(entity)),
				zap.Int("batch", batch),
				zap.Int("records", n))
		}

		if w.progress != nil {
			w.progress(entity, end, total)
		}
	}

	return result
}
