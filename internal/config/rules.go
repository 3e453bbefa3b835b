package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/vehicles"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/xlsxparser"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// RULES STRUCTURE
// =============================================================================

// Rules holds the operator-supplied domain tables.
type Rules struct {
	// CategoryMapping maps a source category label to a target category
	// slug. Labels with no entry are imported uncategorized.
	//
	// CUSTOMIZATION: one entry per POS category.
	// Example:
	//   category_mapping:
	//     "Exterior Detailing": exterior
	//     "Retail": retail
	CategoryMapping map[string]string `yaml:"category_mapping"`

	// SkipSKUs are catalog SKUs that are never imported (processing fees).
	SkipSKUs []string `yaml:"skip_skus"`

	// SkipItemNames are item names that are never imported.
	// Default: ["Custom Amount"]
	SkipItemNames []string `yaml:"skip_item_names"`

	// LoyaltyExcludedSKU earns no loyalty points.
	LoyaltyExcludedSKU string `yaml:"loyalty_excluded_sku"`

	// SizeTokens maps price point tokens to a size class
	// (sedan, truck_suv_2row, suv_3row_van). The words small, medium and
	// large are only matched inside a "Vehicle Size - X" label.
	// Default: vehicles.DefaultTokens
	SizeTokens map[string]string `yaml:"size_tokens"`
}

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() *Rules {
	r := &Rules{}
	applyRulesDefaults(r)
	return r
}

// LoadRules reads rules from a YAML or XLSX file. An empty path yields the
// defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	var rules Rules
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file: %w", err)
		}
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return nil, fmt.Errorf("failed to parse rules file: %w", err)
		}
	case ".xlsx":
		wb, err := xlsxparser.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rules workbook: %w", err)
		}
		rules = Rules{
			CategoryMapping:    wb.Categories,
			SkipSKUs:           wb.SkipSKUs,
			SkipItemNames:      wb.SkipItems,
			LoyaltyExcludedSKU: wb.LoyaltyExcludedSKU,
			SizeTokens:         wb.SizeTokens,
		}
	default:
		return nil, fmt.Errorf("unsupported rules file type %q", filepath.Ext(path))
	}

	applyRulesDefaults(&rules)

	if err := validateRules(&rules); err != nil {
		return nil, fmt.Errorf("invalid rules in %s: %w", path, err)
	}
	return &rules, nil
}

// SaveRules writes rules as YAML or XLSX depending on the file extension.
func SaveRules(path string, rules *Rules) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(rules)
		if err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write rules file: %w", err)
		}
		return nil
	case ".xlsx":
		return xlsxparser.Write(path, &xlsxparser.Workbook{
			Categories:         rules.CategoryMapping,
			SkipSKUs:           rules.SkipSKUs,
			SkipItems:          rules.SkipItemNames,
			LoyaltyExcludedSKU: rules.LoyaltyExcludedSKU,
			SizeTokens:         rules.SizeTokens,
		})
	default:
		return fmt.Errorf("unsupported rules file type %q", filepath.Ext(path))
	}
}

// applyRulesDefaults fills in tables the operator left out.
func applyRulesDefaults(rules *Rules) {
	if rules.CategoryMapping == nil {
		rules.CategoryMapping = map[string]string{}
	}
	if len(rules.SkipItemNames) == 0 {
		rules.SkipItemNames = []string{"Custom Amount"}
	}
	if len(rules.SizeTokens) == 0 {
		rules.SizeTokens = make(map[string]string)
		for token, size := range vehicles.DefaultTokens() {
			rules.SizeTokens[token] = string(size)
		}
	}
}

// validateRules checks that every size token names a known size class.
func validateRules(rules *Rules) error {
	for token, size := range rules.SizeTokens {
		if _, err := vehicles.ParseSizeClass(size); err != nil {
			return fmt.Errorf("size token %q: %w", token, err)
		}
	}
	return nil
}

// Tokens returns the size token table in typed form. Entries that do not
// name a size class are dropped; LoadRules rejects them up front.
func (r *Rules) Tokens() map[string]vehicles.SizeClass {
	out := make(map[string]vehicles.SizeClass, len(r.SizeTokens))
	for token, size := range r.SizeTokens {
		if c, err := vehicles.ParseSizeClass(size); err == nil {
			out[token] = c
		}
	}
	return out
}

// =============================================================================
// TOLERANCES
// =============================================================================

// SpendToleranceValue parses SpendTolerance.
func (m MigrationConfig) SpendToleranceValue() (decimal.Decimal, error) {
	return parseTolerance("migration.spend_tolerance", m.SpendTolerance)
}

// QuantityToleranceValue parses QuantityTolerance.
func (m MigrationConfig) QuantityToleranceValue() (decimal.Decimal, error) {
	return parseTolerance("migration.quantity_tolerance", m.QuantityTolerance)
}

func parseTolerance(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", name, value)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
