// =============================================================================
// POS Migrator - Report Writer Module
// =============================================================================
//
// This module renders the outcome of a migration run. Two formats share one
// document model:
//
//   - Text: a short operator summary, one line per stage and per check
//   - YAML: the complete record of the run, written to the report directory
//
// DOCUMENT STRUCTURE (YAML):
//
//   run_id: 5f0c...
//   started_at: 2024-03-01T10:00:00Z
//   finished_at: 2024-03-01T10:00:04Z
//   dry_run: false
//   store: sqlite ./migration.db
//   stages:
//     - stage: customers
//       status: completed
//       count: 412
//   validation:
//     checks: [...]
//     top_spenders: {...}
//     inventory: {...}
//
// =============================================================================

package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/types"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/validation"
	"github.com/nayeem-1786/AutoDetailApp-sub001/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Run is the document written for one migration run.
type Run struct {
	RunID      string              `yaml:"run_id"`
	StartedAt  time.Time           `yaml:"started_at"`
	FinishedAt time.Time           `yaml:"finished_at"`
	DryRun     bool                `yaml:"dry_run"`
	Store      string              `yaml:"store"`
	Stages     []types.StageResult `yaml:"stages"`
	Validation *validation.Report  `yaml:"validation,omitempty"`
	Errors     []string            `yaml:"errors,omitempty"`
}

// Failed reports whether any stage ended in error.
func (r *Run) Failed() bool {
	for _, s := range r.Stages {
		if s.Status == types.StatusError {
			return true
		}
	}
	return false
}

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions tunes the YAML output.
type GenerateOptions struct {
	// Indent is the number of spaces per nesting level. Default: 2
	Indent int
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Indent: 2}
}

// =============================================================================
// YAML
// =============================================================================

// Generate renders the run as YAML.
func Generate(run *Run) ([]byte, error) {
	return GenerateWithOptions(run, DefaultGenerateOptions())
}

// GenerateWithOptions renders the run as YAML with custom options.
func GenerateWithOptions(run *Run, options GenerateOptions) ([]byte, error) {
	if options.Indent <= 0 {
		options.Indent = 2
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(options.Indent)
	if err := enc.Encode(run); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the run and saves it in dir under a unique name.
//
// RETURNS:
//   - The path to the report file.
//   - An error if the report cannot be rendered or written.
func Write(run *Run, dir string) (string, error) {
	data, err := Generate(run)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := utils.GenerateOutputFileName("migration_{run}_{timestamp}", map[string]string{"run": shortID(run.RunID)}, ".yaml")
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Load reads a report written by Write.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var run Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &run, nil
}

// =============================================================================
// TEXT
// =============================================================================

// WriteText prints the operator summary.
func WriteText(w io.Writer, run *Run) error {
	var b strings.Builder

	mode := ""
	if run.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(&b, "Migration %s%s\n", run.RunID, mode)
	fmt.Fprintf(&b, "Store: %s\n", run.Store)
	if !run.StartedAt.IsZero() && !run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\nStages:\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, s := range run.Stages {
		count := "-"
		if s.Count != nil {
			count = fmt.Sprintf("%d", *s.Count)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.Stage, s.Status, count, s.Message)
		for _, e := range s.Errors {
			fmt.Fprintf(tw, "  \t\t\t! %s\n", e)
		}
	}
	tw.Flush()

	if v := run.Validation; v != nil {
		writeValidation(&b, v)
	}

	for _, e := range run.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeValidation(b *strings.Builder, v *validation.Report) {
	fmt.Fprintf(b, "\nValidation: %s\n", v.Status())

	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  entity\tsource\tstore\tstatus\tnote")
	for _, c := range v.Checks {
		stored := "n/a"
		if c.StoreCount != nil {
			stored = fmt.Sprintf("%d", *c.StoreCount)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\n", c.EntityLabel, c.SourceCount, stored, c.Status, c.Note)
	}
	tw.Flush()

	fmt.Fprintf(b, "\nTop spenders: %d checked, %d mismatches (tolerance %s)\n",
		v.Spend.Checked, len(v.Spend.Mismatches), v.Spend.Tolerance.StringFixed(2))
	for _, m := range v.Spend.Mismatches {
		switch {
		case m.Error != "":
			fmt.Fprintf(b, "  %s %s: lookup failed: %s\n", m.CustomerKey, m.Name, m.Error)
		case !m.Found:
			fmt.Fprintf(b, "  %s %s: not in store (source %s)\n", m.CustomerKey, m.Name, m.SourceSpend.StringFixed(2))
		default:
			fmt.Fprintf(b, "  %s %s: source %s, store %s\n", m.CustomerKey, m.Name,
				m.SourceSpend.StringFixed(2), m.StoreSpend.StringFixed(2))
		}
	}

	inv := v.Inventory
	fmt.Fprintf(b, "Inventory: source %s, store %s, delta %s (tolerance %s): %s\n",
		inv.SourceQuantity, inv.StoreQuantity, inv.Delta, inv.Tolerance, inv.Status)
	if inv.Note != "" {
		fmt.Fprintf(b, "  %s\n", inv.Note)
	}
}

// shortID keeps report names readable.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
