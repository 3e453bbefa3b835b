// =============================================================================
// POS Migrator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which reconciles the store with
// the exports without writing anything. It is the validation stage on its
// own, for stores filled by an earlier run.
//
// COMMAND USAGE:
//   migrator validate [--include-tier3]
//
// EXIT STATUS:
//   Non-zero when any check fails.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/report"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/validation"
	"github.com/spf13/cobra"
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Reconcile the store with the exports",
	Long: `The validate command recomputes every expected count from the exports and
compares it with the store, re-checks the lifetime spend of the top
customers, and compares the on-hand inventory. Nothing is written to the
store.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mainConfig
		started := time.Now()

		rules, err := loadRules(cfg)
		if err != nil {
			return err
		}
		src, err := plan.Load(cfg.Input)
		if err != nil {
			return err
		}
		opts, err := validationOptions(cfg)
		if err != nil {
			return err
		}

		s, storeName, closeStore, err := openStore(cfg, false)
		if err != nil {
			return err
		}
		defer closeStore()

		planner := plan.NewPlanner(rules, cfg.Migration.IncludeTier3 || includeTier3)
		result := validation.New(planner, src, s, opts, logger).Run(cmd.Context())

		run := &report.Run{
			RunID:      "validate",
			StartedAt:  started,
			FinishedAt: time.Now(),
			Store:      storeName,
			Validation: result,
		}
		if err := report.WriteText(cmd.OutOrStdout(), run); err != nil {
			return err
		}

		if result.Status() == validation.StatusFail {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(
		&includeTier3,
		"include-tier3",
		false,
		"Count customers reachable only by email as importable",
	)
}
