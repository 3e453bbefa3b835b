package migration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan/plantest"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/types"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

func stubStages(status map[types.StageName]types.Status) []Stage {
	var out []Stage
	for _, name := range types.Stages {
		name := name
		out = append(out, Stage{
			Name:     name,
			Optional: name == types.StageVehicles || name == types.StageLoyalty,
			Run: func(ctx context.Context) types.StageResult {
				return types.StageResult{Status: status[name], Count: types.IntPtr(1)}
			},
		})
	}
	return out
}

func TestForwardMovesOneStageAfterCompletion(t *testing.T) {
	o := NewOrchestrator(stubStages(nil), nil)
	assert.Equal(t, types.StageUpload, o.Current())

	err := o.GoTo(types.StageCustomers)
	assert.ErrorIs(t, err, ErrStageNotFinished)

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.Advance())
	assert.Equal(t, types.StageCustomers, o.Current())

	err = o.GoTo(types.StageEmployees)
	assert.ErrorIs(t, err, ErrForwardJump)
	assert.Equal(t, types.StageCustomers, o.Current())
}

func TestBackwardMovesAreFree(t *testing.T) {
	o := NewOrchestrator(stubStages(nil), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := o.Run(ctx)
		require.NoError(t, err)
		require.NoError(t, o.Advance())
	}
	assert.Equal(t, types.StageEmployees, o.Current())

	// Going back to a completed stage leaves it completed.
	require.NoError(t, o.GoTo(types.StageUpload))
	res, err := o.Result(types.StageUpload)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)

	// Forward from there is one step at a time again.
	assert.ErrorIs(t, o.GoTo(types.StageProducts), ErrForwardJump)
	require.NoError(t, o.Advance())
}

func TestCompletedStageNeverRegresses(t *testing.T) {
	o := NewOrchestrator(stubStages(nil), nil)
	ctx := context.Background()

	_, err := o.Run(ctx)
	require.NoError(t, err)

	_, err = o.Run(ctx)
	assert.ErrorIs(t, err, ErrStageCompleted)
	res, _ := o.Result(types.StageUpload)
	assert.Equal(t, types.StatusCompleted, res.Status)
}

func TestErrorStageCanBeRetried(t *testing.T) {
	status := map[types.StageName]types.Status{types.StageUpload: types.StatusError}
	o := NewOrchestrator(stubStages(status), nil)
	ctx := context.Background()

	res, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, res.Status)
	assert.ErrorIs(t, o.Advance(), ErrStageNotFinished)

	status[types.StageUpload] = types.StatusCompleted
	res, err = o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.NoError(t, o.Advance())
}

func TestSkipOnlyOptionalStages(t *testing.T) {
	o := NewOrchestrator(stubStages(nil), nil)

	_, err := o.Skip("")
	assert.ErrorIs(t, err, ErrNotOptional)

	results, err := o.RunAll(context.Background(), map[types.StageName]bool{types.StageVehicles: true})
	require.NoError(t, err)
	require.Len(t, results, len(types.Stages))
	for _, r := range results {
		want := types.StatusCompleted
		if r.Stage == types.StageVehicles {
			want = types.StatusSkipped
		}
		assert.Equal(t, want, r.Status, r.Stage)
	}

	// Skipping a required stage through RunAll is refused.
	o = NewOrchestrator(stubStages(nil), nil)
	_, err = o.RunAll(context.Background(), map[types.StageName]bool{types.StageCustomers: true})
	assert.ErrorIs(t, err, ErrNotOptional)
	assert.Equal(t, types.StageCustomers, o.Current())
}

func TestStageRunsOnlyOnce(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	stages := stubStages(nil)
	stages[0].Run = func(ctx context.Context) types.StageResult {
		calls.Add(1)
		close(started)
		<-release
		return types.StageResult{Count: types.IntPtr(1)}
	}
	o := NewOrchestrator(stages, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background())
		done <- err
	}()
	<-started

	res, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrStageRunning)
	assert.Equal(t, types.StatusInProgress, res.Status)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())

	res, err = o.Result(types.StageUpload)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
}

func TestRunAllStopsAtUnfinishedStage(t *testing.T) {
	status := map[types.StageName]types.Status{types.StageProducts: types.StatusError}
	o := NewOrchestrator(stubStages(status), nil)

	results, err := o.RunAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStageNotFinished)
	assert.Equal(t, types.StageProducts, o.Current())
	assert.Equal(t, types.StatusPending, results[3].Status)
}

func TestUnknownStage(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	assert.ErrorIs(t, o.GoTo("nowhere"), ErrUnknownStage)
	assert.False(t, o.IsOptional("nowhere"))
}

// =============================================================================
// BATCH WRITER
// =============================================================================

// flakyStore fails every Upsert whose first key is in fail.
type flakyStore struct {
	*store.Memory
	fail map[string]bool
}

func (f *flakyStore) Upsert(ctx context.Context, entity store.Entity, records []store.Record) (int, error) {
	if len(records) > 0 && f.fail[records[0].NaturalKey] {
		return 0, errors.New("connection reset")
	}
	return f.Memory.Upsert(ctx, entity, records)
}

func records(n int) []store.Record {
	out := make([]store.Record, n)
	for i := range out {
		out[i] = store.Record{NaturalKey: fmt.Sprintf("k%d", i), ExternalRef: "run:x"}
	}
	return out
}

func TestBatchWriterContinuesPastFailedBatch(t *testing.T) {
	s := &flakyStore{Memory: store.NewMemory(), fail: map[string]bool{"k2": true}}

	var progress []int
	w := NewBatchWriter(s, 2, func(_ store.Entity, done, total int) {
		assert.Equal(t, 7, total)
		progress = append(progress, done)
	}, zaptest.NewLogger(t))

	res := w.Write(context.Background(), store.Products, records(7))
	assert.Equal(t, 5, res.Written)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "batch 2 (records 3-4)")
	assert.Equal(t, []int{2, 4, 6, 7}, progress)

	n, err := s.CountMigrated(context.Background(), store.Products)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestBatchWriterStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewBatchWriter(store.NewMemory(), 0, nil, nil).Write(ctx, store.Products, records(3))
	assert.Zero(t, res.Written)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "not written")
}

func TestBatchWriterEmpty(t *testing.T) {
	res := NewBatchWriter(store.NewMemory(), 10, nil, nil).Write(context.Background(), store.Products, nil)
	assert.Zero(t, res.Written)
	assert.Empty(t, res.Errors)
}

// =============================================================================
// STAGES
// =============================================================================

func newPlanner(t *testing.T) *plan.Planner {
	t.Helper()
	dir := plantest.WriteExports(t, t.TempDir())
	rules, err := config.LoadRules(filepath.Join(dir, "rules.yaml"))
	require.NoError(t, err)
	return plan.NewPlanner(rules, false)
}

func TestFullMigration(t *testing.T) {
	mem := store.NewMemory()
	stages := NewStages(Config{
		Planner:    newPlanner(t),
		Source:     plantest.Source(t),
		Store:      mem,
		BatchSize:  2,
		Validation: validation.DefaultOptions(),
		RunID:      "run-1",
		Logger:     zaptest.NewLogger(t),
	})
	o := stages.NewOrchestrator()

	results, err := o.RunAll(context.Background(), nil)
	require.NoError(t, err)

	counts := make(map[types.StageName]int)
	for _, r := range results {
		assert.Equal(t, types.StatusCompleted, r.Status, r.Stage)
		assert.Empty(t, r.Errors, r.Stage)
		counts[r.Stage] = r.CountValue()
	}
	assert.Equal(t, map[types.StageName]int{
		types.StageUpload:       22,
		types.StageCustomers:    3,
		types.StageProducts:     2,
		types.StageEmployees:    2,
		types.StageVehicles:     4,
		types.StageTransactions: 3,
		types.StageLoyalty:      3,
		types.StageValidation:   7,
	}, counts)

	report := stages.Report()
	require.NotNil(t, report)
	assert.Equal(t, validation.StatusPass, report.Status())
	assert.Equal(t, 2, report.Spend.Checked)
	assert.True(t, report.Inventory.Delta.Equal(decimal.NewFromInt(3)))

	rec, ok, err := mem.Lookup(context.Background(), store.Customers, "+15550001111")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1:C3", rec.ExternalRef)
	assert.True(t, rec.Spend.Equal(decimal.RequireFromString("310.50")))

	rec, ok, err = mem.Lookup(context.Background(), store.Loyalty, "+15551234567")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(185), rec.Payload["points"])

	rec, ok, err = mem.Lookup(context.Background(), store.Products, "sku:WATER-500")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, true, rec.Payload["loyalty_excluded"])
	assert.Equal(t, "aqua co", rec.Payload["vendor"])
}

func TestSkippedStageWarnsInValidation(t *testing.T) {
	stages := NewStages(Config{
		Planner: newPlanner(t),
		Source:  plantest.Source(t),
		Store:   store.NewMemory(),
	})
	o := stages.NewOrchestrator()

	_, err := o.RunAll(context.Background(), map[types.StageName]bool{types.StageVehicles: true})
	require.NoError(t, err)

	res, err := o.Result(types.StageVehicles)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSkipped, res.Status)

	for _, c := range stages.Report().Checks {
		if c.Entity == store.Vehicles {
			assert.Equal(t, validation.StatusWarn, c.Status)
			assert.Contains(t, c.Note, "skipped")
		}
	}
}

func TestMissingRequiredExport(t *testing.T) {
	src := plantest.Source(t)
	delete(src.Files, plan.ExportCatalog)

	o := NewStages(Config{Planner: newPlanner(t), Source: src, Store: store.NewMemory()}).NewOrchestrator()
	_, err := o.RunAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStageNotFinished)

	res, _ := o.Result(types.StageUpload)
	assert.Equal(t, types.StatusError, res.Status)
	assert.Contains(t, res.Message, "catalog")
}

func TestMissingOptionalExportNeedsExplicitSkip(t *testing.T) {
	src := plantest.Source(t)
	delete(src.Files, plan.ExportItems)
	src.Items = nil

	o := NewStages(Config{Planner: newPlanner(t), Source: src, Store: store.NewMemory()}).NewOrchestrator()
	_, err := o.RunAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStageNotFinished)
	assert.Equal(t, types.StageVehicles, o.Current())

	// The operator skips every stage that needs items.
	skip := map[types.StageName]bool{types.StageVehicles: true, types.StageLoyalty: true}
	results, err := o.RunAll(context.Background(), skip)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSkipped, results[4].Status)
	assert.Equal(t, types.StatusCompleted, results[5].Status)
}

func TestBatchErrorsDoNotFailStage(t *testing.T) {
	s := &flakyStore{Memory: store.NewMemory(), fail: map[string]bool{"+15551234567": true}}
	stages := NewStages(Config{Planner: newPlanner(t), Source: plantest.Source(t), Store: s, BatchSize: 1})
	o := stages.NewOrchestrator()

	require.NoError(t, o.GoTo(types.StageUpload))
	_, err := o.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.Advance())

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, res.Status)
	assert.Equal(t, 2, res.CountValue())
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.Contains(res.Errors[0], "connection reset"))
}
