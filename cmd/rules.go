// =============================================================================
// POS Migrator - Rules Command
// =============================================================================
//
// This file defines the 'rules' command group. Operators start from the
// exported defaults and edit the category mapping, skip lists and vehicle
// size tokens by hand.
//
// COMMAND USAGE:
//   migrator rules export <path>
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/spf13/cobra"
)

// rulesCmd groups the rules subcommands.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the operator rules file",
}

// rulesExportCmd writes the effective rules to a file.
var rulesExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the effective rules to a YAML file",
	Long: `Write the rules in effect to a YAML file: the configured rules file when one
is set, otherwise the defaults.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := loadRules(mainConfig)
		if err != nil {
			return err
		}
		if err := config.SaveRules(args[0], rules); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rules written to %s\n", args[0])
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesExportCmd)
	rootCmd.AddCommand(rulesCmd)
}
