// =============================================================================
// POS Migrator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - migration (orchestrator and stage runners)
//   - report
//   - cmd
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// STAGES
// =============================================================================

// StageName identifies one step of a migration.
type StageName string

const (
	StageUpload       StageName = "upload"
	StageCustomers    StageName = "customers"
	StageProducts     StageName = "products"
	StageEmployees    StageName = "employees"
	StageVehicles     StageName = "vehicles"
	StageTransactions StageName = "transactions"
	StageLoyalty      StageName = "loyalty"
	StageValidation   StageName = "validation"
)

// Stages lists every stage in execution order.
var Stages = []StageName{
	StageUpload,
	StageCustomers,
	StageProducts,
	StageEmployees,
	StageVehicles,
	StageTransactions,
	StageLoyalty,
	StageValidation,
}

// ParseStage validates a stage name.
func ParseStage(s string) (StageName, error) {
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// =============================================================================
// STAGE RESULTS
// =============================================================================

// Status is the outcome of a stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusSkipped    Status = "skipped"
)

// Finished reports whether the status allows moving past the stage.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage  StageName `yaml:"stage"`
	Status Status    `yaml:"status"`

	// Count is the number of records the stage wrote. Nil until the stage
	// has run.
	Count *int `yaml:"count,omitempty"`

	// Message is a one-line summary for the operator.
	Message string `yaml:"message,omitempty"`

	// Errors holds per-batch failures. A completed stage may carry errors.
	Errors []string `yaml:"errors,omitempty"`
}

// CountValue returns Count, or 0 when unset.
func (r StageResult) CountValue() int {
	if r.Count == nil {
		return 0
	}
	return *r.Count
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
