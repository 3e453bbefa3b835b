package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/vehicles"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	cfg, err := LoadMainConfig("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "./migration.db", cfg.Store.DSN)
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 50, cfg.Migration.BatchSize)
	assert.Equal(t, 10, cfg.Migration.TopSpenders)
	assert.Equal(t, "./reports", cfg.ReportDir)
	assert.Equal(t, "info", cfg.LogLevel)

	spend, err := cfg.Migration.SpendToleranceValue()
	require.NoError(t, err)
	assert.True(t, spend.Equal(decimal.NewFromInt(1)))

	qty, err := cfg.Migration.QuantityToleranceValue()
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(5)))
}

func TestLoadMainConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
input:
  dir: ./exports
  items: /data/items-2024.csv
store:
  driver: HTTP
  url: http://localhost:8080
  timeout: 5s
migration:
  batch_size: 100
  include_tier3: true
  spend_tolerance: "0.50"
rules_file: rules.yaml
log_level: debug
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DriverHTTP, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 100, cfg.Migration.BatchSize)
	assert.True(t, cfg.Migration.IncludeTier3)
	assert.Equal(t, filepath.Join(dir, "rules.yaml"), cfg.RulesFile)

	customers, _, _, items := cfg.Input.Paths()
	assert.Equal(t, filepath.Join("exports", DefaultCustomersFile), customers)
	assert.Equal(t, "/data/items-2024.csv", items)
}

func TestLoadMainConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"driver":    "store:\n  driver: postgres\n",
		"http url":  "store:\n  driver: http\n",
		"batch":     "migration:\n  batch_size: -1\n",
		"tolerance": "migration:\n  spend_tolerance: lots\n",
		"negative":  "migration:\n  quantity_tolerance: \"-2\"\n",
		"log level": "log_level: chatty\n",
		"yaml":      "store: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMainConfig(writeFile(t, dir, name+".yaml", body))
			assert.Error(t, err)
		})
	}

	_, err := LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRulesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)

	assert.Equal(t, []string{"Custom Amount"}, rules.SkipItemNames)
	assert.Equal(t, vehicles.DefaultTokens(), rules.Tokens())
	assert.NotNil(t, rules.CategoryMapping)
}

func TestLoadRulesYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", `
category_mapping:
  Exterior: exterior
skip_skus: [FEE-01]
loyalty_excluded_sku: WATER-500
size_tokens:
  coupe: sedan
  medium: truck_suv_2row
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, "exterior", rules.CategoryMapping["Exterior"])
	assert.Equal(t, []string{"FEE-01"}, rules.SkipSKUs)
	assert.Equal(t, "WATER-500", rules.LoyaltyExcludedSKU)
	assert.Equal(t, map[string]vehicles.SizeClass{
		"coupe":  vehicles.Sedan,
		"medium": vehicles.TruckSUV2Row,
	}, rules.Tokens())
}

func TestLoadRulesRejectsUnknownSize(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yml", "size_tokens:\n  bus: coach\n")

	_, err := LoadRules(path)
	assert.ErrorContains(t, err, "bus")
}

func TestSaveRulesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := DefaultRules()
	want.SkipSKUs = []string{"FEE-01"}
	want.LoyaltyExcludedSKU = "WATER-500"
	want.CategoryMapping = map[string]string{"Retail": "retail"}

	for _, name := range []string{"rules.yaml", "rules.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveRules(path, want))

			got, err := LoadRules(path)
			require.NoError(t, err)
			assert.Equal(t, want.SkipSKUs, got.SkipSKUs)
			assert.Equal(t, want.LoyaltyExcludedSKU, got.LoyaltyExcludedSKU)
			assert.Equal(t, want.CategoryMapping, got.CategoryMapping)
			assert.Equal(t, want.Tokens(), got.Tokens())
		})
	}

	assert.Error(t, SaveRules(filepath.Join(dir, "rules.json"), want))
	_, err := LoadRules(filepath.Join(dir, "rules.json"))
	assert.Error(t, err)
}
