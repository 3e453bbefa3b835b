// =============================================================================
// POS Migrator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (migrator)
//   ├── runCmd      (migrator run)
//   ├── validateCmd (migrator validate)
//   ├── serveCmd    (migrator serve)
//   ├── rulesCmd    (migrator rules export)
//   └── versionCmd  (migrator version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/logging"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig and logger are set up before any subcommand runs.
var (
	mainConfig *config.MainConfig
	logger     = zap.NewNop()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "migrator",
	Short: "POS Migrator - Move a point-of-sale export into the shop database",

	Long: `POS Migrator imports the customer, catalog and transaction exports of a
point-of-sale system into a data store, then proves the import is complete by
recomputing every count from the exports and comparing it with the store.

Stages (in order):
  upload, customers, products, employees, vehicles, transactions, loyalty,
  validation

Example Usage:
  migrator run                         # Migrate the exports in ./input
  migrator run --dry-run               # Run every stage against memory
  migrator run --skip vehicles         # Skip an optional stage
  migrator validate                    # Re-run the reconciliation only
  migrator serve --addr :8080          # Serve the store over HTTP`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return setup(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// setup loads the configuration and builds the logger. A missing config file
// is only an error when --config was given explicitly.
func setup(cmd *cobra.Command) error {
	path := cfgFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		path = ""
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	l, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}

	mainConfig = cfg
	logger = l
	logger.Debug("configuration loaded", zap.String("path", path), zap.String("store", cfg.Store.Driver))
	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadRules reads the operator rules named in the config, or the defaults.
func loadRules(cfg *config.MainConfig) (*config.Rules, error) {
	if cfg.RulesFile == "" {
		logger.Info("no rules file configured; using default rules")
		return config.DefaultRules(), nil
	}
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules, nil
}

// openStore opens the configured store. memory forces an in-process store.
//
// RETURNS:
//   - The store, a short description for reports, and a close function.
func openStore(cfg *config.MainConfig, memory bool) (store.Store, string, func() error, error) {
	noop := func() error { return nil }

	driver := cfg.Store.Driver
	if memory {
		driver = config.DriverMemory
	}

	switch driver {
	case config.DriverMemory:
		return store.NewMemory(), "memory", noop, nil
	case config.DriverSQLite:
		s, err := store.OpenSQLite(cfg.Store.DSN)
		if err != nil {
			return nil, "", nil, err
		}
		return s, "sqlite " + s.Path(), s.Close, nil
	case config.DriverHTTP:
		return store.NewClient(cfg.Store.URL, cfg.Store.Timeout), "http " + cfg.Store.URL, noop, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// validationOptions converts the migration settings.
func validationOptions(cfg *config.MainConfig) (validation.Options, error) {
	spend, err := cfg.Migration.SpendToleranceValue()
	if err != nil {
		return validation.Options{}, err
	}
	quantity, err := cfg.Migration.QuantityToleranceValue()
	if err != nil {
		return validation.Options{}, err
	}
	return validation.Options{
		TopSpenders:       cfg.Migration.TopSpenders,
		SpendTolerance:    spend,
		QuantityTolerance: quantity,
		Concurrency:       cfg.Migration.LookupConcurrency,
	}, nil
}
