// =============================================================================
// POS Migrator - Configuration Module
// =============================================================================
//
// This module loads the two configuration inputs of a migration:
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): where the exports are, which store to write
//      to, batch sizes and validation tolerances
//   2. Rules (rules.yaml or rules.xlsx): the operator's domain tables
//      (category mapping, skip lists, loyalty exclusion, size tokens)
//
// Both are validated on load. Every setting has a default so an empty main
// config is a valid local SQLite migration.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// Input locates the POS export files.
	Input InputConfig `yaml:"input"`

	// =========================================================================
	// STORE SETTINGS
	// =========================================================================

	// Store selects where migrated records are written.
	Store StoreConfig `yaml:"store"`

	// =========================================================================
	// MIGRATION SETTINGS
	// =========================================================================

	// Migration tunes batch writes and validation.
	Migration MigrationConfig `yaml:"migration"`

	// RulesFile is the path to the operator rules (.yaml, .yml or .xlsx).
	// When empty the built-in defaults are used.
	RulesFile string `yaml:"rules_file"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ReportDir is where run reports and error logs are written.
	// Default: "./reports"
	ReportDir string `yaml:"report_dir"`

	// ArchiveDir receives processed export files when archiving is enabled.
	// Default: "./input_archive"
	ArchiveDir string `yaml:"archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional log file path in addition to stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// InputConfig locates the four export files. Any path left empty is looked
// up in Dir by its usual Square export file name.
type InputConfig struct {
	// Dir is the directory holding the exports. Default: "./input"
	Dir string `yaml:"dir"`

	Customers    string `yaml:"customers"`
	Catalog      string `yaml:"catalog"`
	Transactions string `yaml:"transactions"`
	Items        string `yaml:"items"`
}

// StoreConfig selects the target store.
type StoreConfig struct {
	// Driver is "sqlite", "http" or "memory". Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the SQLite database path. Default: "./migration.db"
	DSN string `yaml:"dsn"`

	// URL is the base URL of a remote store served by "migrator serve".
	URL string `yaml:"url"`

	// Timeout bounds each HTTP request. Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// MigrationConfig tunes the import and validation stages.
type MigrationConfig struct {
	// BatchSize is the number of records per store write. Default: 50
	BatchSize int `yaml:"batch_size"`

	// IncludeTier3 imports email-only customers. Default: false
	IncludeTier3 bool `yaml:"include_tier3"`

	// TopSpenders is the number of customers re-verified by lifetime spend.
	// Default: 10
	TopSpenders int `yaml:"top_spenders"`

	// SpendTolerance is the largest acceptable spend difference, in
	// currency units. Default: "1.00"
	SpendTolerance string `yaml:"spend_tolerance"`

	// QuantityTolerance is the largest acceptable inventory difference, in
	// units. Default: "5"
	QuantityTolerance string `yaml:"quantity_tolerance"`

	// LookupConcurrency bounds the parallel spot-check lookups. Default: 4
	LookupConcurrency int `yaml:"lookup_concurrency"`
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverHTTP   = "http"
	DriverMemory = "memory"
)

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. An empty path
//     yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Relative rules paths are resolved against the config file.
		if config.RulesFile != "" && !filepath.IsAbs(config.RulesFile) {
			config.RulesFile = filepath.Join(filepath.Dir(configPath), config.RulesFile)
		}
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no config file is given.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.Input.Dir == "" {
		config.Input.Dir = "./input"
	}
	if config.Store.Driver == "" {
		config.Store.Driver = DriverSQLite
	}
	if config.Store.DSN == "" {
		config.Store.DSN = "./migration.db"
	}
	if config.Store.Timeout == 0 {
		config.Store.Timeout = 30 * time.Second
	}
	if config.Migration.BatchSize == 0 {
		config.Migration.BatchSize = 50
	}
	if config.Migration.TopSpenders == 0 {
		config.Migration.TopSpenders = 10
	}
	if config.Migration.SpendTolerance == "" {
		config.Migration.SpendTolerance = "1.00"
	}
	if config.Migration.QuantityTolerance == "" {
		config.Migration.QuantityTolerance = "5"
	}
	if config.Migration.LookupConcurrency == 0 {
		config.Migration.LookupConcurrency = 4
	}
	if config.ReportDir == "" {
		config.ReportDir = "./reports"
	}
	if config.ArchiveDir == "" {
		config.ArchiveDir = "./input_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	config.Store.Driver = strings.ToLower(config.Store.Driver)
	switch config.Store.Driver {
	case DriverSQLite, DriverMemory:
	case DriverHTTP:
		if config.Store.URL == "" {
			return fmt.Errorf("store.url is required for the http driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", config.Store.Driver)
	}

	if config.Migration.BatchSize < 1 {
		return fmt.Errorf("migration.batch_size must be positive, got %d", config.Migration.BatchSize)
	}
	if config.Migration.TopSpenders < 0 {
		return fmt.Errorf("migration.top_spenders must not be negative")
	}
	if config.Migration.LookupConcurrency < 1 {
		return fmt.Errorf("migration.lookup_concurrency must be positive")
	}
	if _, err := config.Migration.SpendToleranceValue(); err != nil {
		return err
	}
	if _, err := config.Migration.QuantityToleranceValue(); err != nil {
		return err
	}

	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.LogLevel)
	}

	return nil
}

// =============================================================================
// INPUT FILE RESOLUTION
// =============================================================================

// Default Square export file names.
const (
	DefaultCustomersFile    = "customers.csv"
	DefaultCatalogFile      = "catalog.csv"
	DefaultTransactionsFile = "transactions.csv"
	DefaultItemsFile        = "items.csv"
)

// Paths returns the resolved export paths. Explicit paths win; the rest are
// joined onto Dir.
func (in InputConfig) Paths() (customers, catalog, transactions, items string) {
	pick := func(explicit, name string) string {
		if explicit != "" {
			return explicit
		}
		return filepath.Join(in.Dir, name)
	}
	return pick(in.Customers, DefaultCustomersFile),
		pick(in.Catalog, DefaultCatalogFile),
		pick(in.Transactions, DefaultTransactionsFile),
		pick(in.Items, DefaultItemsFile)
}
