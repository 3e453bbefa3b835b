// =============================================================================
// POS Migrator - Migration Orchestrator
// =============================================================================
//
// The orchestrator sequences the migration stages and holds one StageResult
// per stage. It is independent of any user interface: the CLI drives it, and
// so could anything else.
//
// NAVIGATION RULES:
//   1. Any stage up to the current one may be revisited.
//   2. Moving forward is allowed only to the next stage, and only when the
//      current stage is completed or skipped.
//   3. A completed stage is never run again and never changes status.
//   4. Only one stage runs at a time; Run and Skip are refused while a
//      stage is in progress.
//   5. Only optional stages can be skipped, and only by an explicit Skip.
//
// =============================================================================

package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/types"
	"go.uber.org/zap"
)

// Transition errors.
var (
	ErrForwardJump      = errors.New("can only move forward to the next stage")
	ErrStageNotFinished = errors.New("current stage is not completed or skipped")
	ErrStageCompleted   = errors.New("stage is already completed")
	ErrNotOptional      = errors.New("stage is not optional")
	ErrUnknownStage     = errors.New("unknown stage")
	ErrStageRunning     = errors.New("a stage is already running")
)

// Runner executes one stage. The returned result's Stage field is filled in
// by the orchestrator; an empty Status means completed.
type Runner func(ctx context.Context) types.StageResult

// Stage binds a runner to a stage name.
type Stage struct {
	Name     types.StageName
	Run      Runner
	Optional bool
}

// Orchestrator is the migration state machine. It is safe for concurrent
// use, but stages run one at a time.
type Orchestrator struct {
	mu      sync.Mutex
	stages  []Stage
	results []types.StageResult
	current int
	running bool
	logger  *zap.Logger
}

// NewOrchestrator builds an orchestrator over the stages in types.Stages
// order. Stages without a runner complete immediately with no count.
func NewOrchestrator(stages []Stage, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	byName := make(map[types.StageName]Stage, len(stages))
	for _, s := range stages {
		byName[s.Name] = s
	}

	o := &Orchestrator{logger: logger}
	for _, name := range types.Stages {
		s, ok := byName[name]
		if !ok {
			s = Stage{Name: name}
		}
		o.stages = append(o.stages, s)
		o.results = append(o.results, types.StageResult{Stage: name, Status: types.StatusPending})
	}
	return o
}

// Current returns the stage the orchestrator is on.
func (o *Orchestrator) Current() types.StageName {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stages[o.current].Name
}

// Result returns the result of one stage.
func (o *Orchestrator) Result(name types.StageName) (types.StageResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i, err := o.index(name)
	if err != nil {
		return types.StageResult{}, err
	}
	return o.results[i], nil
}

// Results returns every stage result in stage order.
func (o *Orchestrator) Results() []types.StageResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]types.StageResult, len(o.results))
	copy(out, o.results)
	return out
}

// IsOptional reports whether a stage may be skipped.
func (o *Orchestrator) IsOptional(name types.StageName) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	i, err := o.index(name)
	return err == nil && o.stages[i].Optional
}

// GoTo moves to another stage.
//
// RETURNS:
//   - ErrForwardJump when the target is more than one stage ahead.
//   - ErrStageNotFinished when moving to the next stage before the current
//     one is completed or skipped.
func (o *Orchestrator) GoTo(name types.StageName) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	target, err := o.index(name)
	if err != nil {
		return err
	}

	switch {
	case target <= o.current:
	case target == o.current+1:
		if !o.results[o.current].Status.Finished() {
			return fmt.Errorf("cannot leave %s (%s): %w",
				o.stages[o.current].Name, o.results[o.current].Status, ErrStageNotFinished)
		}
	default:
		return fmt.Errorf("cannot move from %s to %s: %w", o.stages[o.current].Name, name, ErrForwardJump)
	}

	o.current = target
	return nil
}

// Advance moves to the stage after the current one.
func (o *Orchestrator) Advance() error {
	o.mu.Lock()
	next := o.current + 1
	if next >= len(o.stages) {
		last := o.stages[o.current].Name
		o.mu.Unlock()
		return fmt.Errorf("%s is the final stage: %w", last, ErrForwardJump)
	}
	name := o.stages[next].Name
	o.mu.Unlock()

	return o.GoTo(name)
}

// Run executes the current stage and records its result. Stage failures are
// reported in the result; the error is reserved for refusals.
func (o *Orchestrator) Run(ctx context.Context) (types.StageResult, error) {
	o.mu.Lock()
	i := o.current
	stage := o.stages[i]
	if o.running {
		o.mu.Unlock()
		return o.results[i], fmt.Errorf("cannot run %s: %w", stage.Name, ErrStageRunning)
	}
	if o.results[i].Status == types.StatusCompleted {
		o.mu.Unlock()
		return o.results[i], fmt.Errorf("cannot run %s: %w", stage.Name, ErrStageCompleted)
	}
	o.results[i] = types.StageResult{Stage: stage.Name, Status: types.StatusInProgress}
	o.running = true
	o.mu.Unlock()

	o.logger.Info("stage started", zap.String("stage", string(stage.Name)))

	var result types.StageResult
	if stage.Run != nil {
		result = stage.Run(ctx)
	}
	result.Stage = stage.Name
	if result.Status == "" || result.Status == types.StatusInProgress || result.Status == types.StatusPending {
		result.Status = types.StatusCompleted
	}

	fields := []zap.Field{
		zap.String("stage", string(stage.Name)),
		zap.String("status", string(result.Status)),
		zap.Int("count", result.CountValue()),
		zap.Int("errors", len(result.Errors)),
	}
	if result.Status == types.StatusError {
		o.logger.Error("stage failed", append(fields, zap.String("message", result.Message))...)
	} else {
		o.logger.Info("stage finished", fields...)
	}

	o.mu.Lock()
	o.results[i] = result
	o.running = false
	o.mu.Unlock()

	return result, nil
}

// Skip marks the current stage as skipped.
func (o *Orchestrator) Skip(reason string) (types.StageResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	stage := o.stages[o.current]
	if !stage.Optional {
		return o.results[o.current], fmt.Errorf("cannot skip %s: %w", stage.Name, ErrNotOptional)
	}
	if o.results[o.current].Status == types.StatusCompleted {
		return o.results[o.current], fmt.Errorf("cannot skip %s: %w", stage.Name, ErrStageCompleted)
	}
	if o.running {
		return o.results[o.current], fmt.Errorf("cannot skip %s: %w", stage.Name, ErrStageRunning)
	}

	if reason == "" {
		reason = "skipped by operator"
	}
	o.results[o.current] = types.StageResult{Stage: stage.Name, Status: types.StatusSkipped, Message: reason}
	o.logger.Info("stage skipped", zap.String("stage", string(stage.Name)), zap.String("reason", reason))

	return o.results[o.current], nil
}

// RunAll drives the orchestrator from the current stage to the end. Stages
// named in skip are skipped instead of run. It stops at the first stage that
// does not finish, returning ErrStageNotFinished.
func (o *Orchestrator) RunAll(ctx context.Context, skip map[types.StageName]bool) ([]types.StageResult, error) {
	for {
		name := o.Current()
		current, _ := o.Result(name)

		switch {
		case current.Status == types.StatusCompleted:
		case skip[name]:
			if _, err := o.Skip("skipped by operator"); err != nil {
				return o.Results(), err
			}
		default:
			result, err := o.Run(ctx)
			if err != nil {
				return o.Results(), err
			}
			if !result.Status.Finished() {
				return o.Results(), fmt.Errorf("%s: %s: %w", name, result.Message, ErrStageNotFinished)
			}
		}

		if name == types.Stages[len(types.Stages)-1] {
			return o.Results(), nil
		}
		if err := o.Advance(); err != nil {
			return o.Results(), err
		}
	}
}

// index finds a stage by name. Callers hold o.mu.
func (o *Orchestrator) index(name types.StageName) (int, error) {
	for i, s := range o.stages {
		if s.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}
