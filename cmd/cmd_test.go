package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan/plantest"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and resets the flag state
// afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, verbose = "config.yaml", false
		dryRun, includeTier3, archiveInputs, runID, skipStages = false, false, false, "", nil
		resetChanged(rootCmd)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetChanged(c *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetChanged(sub)
	}
}

// workspace writes the fixture exports under dir/input and a config file
// with the given extra settings, and returns the input dir and config path.
func workspace(t *testing.T, dir, settings string) (input, cfgPath string) {
	t.Helper()
	input = filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(input, 0755))
	plantest.WriteExports(t, input)

	cfg := "input:\n  dir: " + input + "\n" +
		"report_dir: " + filepath.Join(dir, "reports") + "\n" +
		"archive_dir: " + filepath.Join(dir, "archive") + "\n" +
		"log_level: error\n" + settings
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return input, cfgPath
}

func TestRunThenValidate(t *testing.T) {
	dir := t.TempDir()
	_, cfgPath := workspace(t, dir,
		"store:\n  driver: sqlite\n  dsn: "+filepath.Join(dir, "migration.db")+"\n"+
			"rules_file: input/rules.yaml\n")

	out, err := execute(t, "run", "--config", cfgPath, "--run-id", "cli-run")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Summary ===")
	assert.Contains(t, out, "Validation: pass")

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "migration_cli-run_*.yaml"))
	require.NoError(t, err)
	require.Len(t, reports, 1)

	run, err := report.Load(reports[0])
	require.NoError(t, err)
	assert.Equal(t, "cli-run", run.RunID)
	assert.Len(t, run.Stages, 8)
	assert.False(t, run.Failed())

	out, err = execute(t, "validate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: pass")
}

func TestRunArchivesExports(t *testing.T) {
	dir := t.TempDir()
	input, cfgPath := workspace(t, dir, "store:\n  driver: memory\nrules_file: input/rules.yaml\n")

	_, err := execute(t, "run", "--config", cfgPath, "--archive")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(input, "customers.csv"))
	assert.True(t, os.IsNotExist(err))
	archived, err := filepath.Glob(filepath.Join(dir, "archive", "*", "*", "*", "customers.csv"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestRunFailsOnMissingOptionalExport(t *testing.T) {
	dir := t.TempDir()
	input, cfgPath := workspace(t, dir, "store:\n  driver: memory\n")
	require.NoError(t, os.Remove(filepath.Join(input, "transactions.csv")))

	_, err := execute(t, "run", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transactions")

	logs, err := filepath.Glob(filepath.Join(dir, "reports", "error_log_*.txt"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = execute(t, "run", "--config", cfgPath, "--skip", "transactions")
	require.NoError(t, err)
}

func TestRunRejectsUnknownSkip(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  driver: memory\nlog_level: error\n"), 0644))

	_, err := execute(t, "run", "--config", cfgPath, "--skip", "invoices")
	assert.ErrorContains(t, err, `unknown stage "invoices"`)
}

func TestRulesExport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  driver: memory\nlog_level: error\n"), 0644))
	path := filepath.Join(dir, "rules.yaml")

	out, err := execute(t, "rules", "export", path, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	rules, err := config.LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRules().SizeTokens, rules.SizeTokens)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "POS Migrator")
	assert.Contains(t, out, "Version:    "+Version)
}
