// =============================================================================
// POS Migrator - Vehicle Inferencer
// =============================================================================
//
// The POS never recorded vehicles. What it did record is the price point a
// service was sold at, and for a detailing shop price points are sized by
// vehicle ("Sedan", "Truck/SUV 2-Row", "Vehicle Size - LARGE"). This module
// turns those labels into one incomplete vehicle record per customer and
// size class.
//
// MATCHING (first match wins per item):
//   Pass 1: case-insensitive match of a configured token as a whole word,
//           so "van" matches "Cargo Van" but not "Advanced Package".
//           Longer tokens are tried first so "3-row suv" beats "suv".
//   Pass 2: the structured label "Vehicle Size - SMALL|MEDIUM|LARGE". The
//           captured word is looked up in the same token table. These three
//           words are only ever matched inside the structured label.
//
// A customer with evidence for two size classes gets two vehicles. A single
// observation is enough; every vehicle is marked incomplete because make,
// model and year are unknown.
//
// =============================================================================

package vehicles

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
)

// SizeClass is the canonical vehicle size.
type SizeClass string

const (
	Sedan        SizeClass = "sedan"
	TruckSUV2Row SizeClass = "truck_suv_2row"
	SUV3RowVan   SizeClass = "suv_3row_van"
)

// ParseSizeClass validates a size class name.
func ParseSizeClass(s string) (SizeClass, error) {
	switch c := SizeClass(strings.ToLower(strings.TrimSpace(s))); c {
	case Sedan, TruckSUV2Row, SUV3RowVan:
		return c, nil
	default:
		return "", fmt.Errorf("unknown size class %q", s)
	}
}

// structuredSize matches the "Vehicle Size - X" price point label.
var structuredSize = regexp.MustCompile(`(?i)vehicle\s*size\s*-\s*(small|medium|large)\b`)

// structuredWords are matched by pass 2 only.
var structuredWords = map[string]bool{"small": true, "medium": true, "large": true}

// DefaultTokens is the token table used when the rules file has none.
func DefaultTokens() map[string]SizeClass {
	return map[string]SizeClass{
		"sedan":     Sedan,
		"coupe":     Sedan,
		"compact":   Sedan,
		"small":     Sedan,
		"truck":     TruckSUV2Row,
		"2-row":     TruckSUV2Row,
		"2 row":     TruckSUV2Row,
		"crossover": TruckSUV2Row,
		"medium":    TruckSUV2Row,
		"3-row":     SUV3RowVan,
		"3 row":     SUV3RowVan,
		"minivan":   SUV3RowVan,
		"van":       SUV3RowVan,
		"cargo van": SUV3RowVan,
		"large":     SUV3RowVan,
	}
}

// Resolver maps an item to its customer key, "" when anonymous.
type Resolver interface {
	ResolveCustomer(item normalize.ItemRow) string
}

// Inferred is a vehicle known only by size.
type Inferred struct {
	CustomerKey      string
	SizeClass        SizeClass
	ObservationCount int
	Incomplete       bool
}

// NaturalKey is the store identity of an inferred vehicle.
func (v Inferred) NaturalKey() string {
	return v.CustomerKey + "|" + string(v.SizeClass)
}

// Result is the outcome of Infer.
type Result struct {
	// Vehicles are sorted by customer key, then size class.
	Vehicles []Inferred

	// Anonymous counts labeled items with no resolvable customer.
	Anonymous int

	// Unmatched counts labeled, attributed items with no size signal.
	Unmatched int
}

type token struct {
	text    string
	size    SizeClass
	pattern *regexp.Regexp
}

// Inferencer holds the compiled token table.
type Inferencer struct {
	tokens     []token
	structured map[string]SizeClass
}

// NewInferencer compiles a token table. Keys are matched case-insensitively.
func NewInferencer(tokens map[string]SizeClass) *Inferencer {
	inf := &Inferencer{structured: make(map[string]SizeClass)}

	for text, size := range tokens {
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			continue
		}
		if structuredWords[text] {
			inf.structured[text] = size
			continue
		}
		inf.tokens = append(inf.tokens, token{text: text, size: size, pattern: wordPattern(text)})
	}

	sort.Slice(inf.tokens, func(i, j int) bool {
		a, b := inf.tokens[i].text, inf.tokens[j].text
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	return inf
}

// wordPattern matches text only where it is not part of a longer word. Edges
// of text that are not word characters need no boundary.
func wordPattern(text string) *regexp.Regexp {
	expr := regexp.QuoteMeta(text)
	if isWordByte(text[0]) {
		expr = `\b` + expr
	}
	if isWordByte(text[len(text)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Match returns the size class signalled by a price point label.
func (inf *Inferencer) Match(label string) (SizeClass, bool) {
	lower := strings.ToLower(label)
	if lower == "" {
		return "", false
	}

	for _, t := range inf.tokens {
		if t.pattern.MatchString(lower) {
			return t.size, true
		}
	}

	if m := structuredSize.FindStringSubmatch(lower); m != nil {
		if size, ok := inf.structured[m[1]]; ok {
			return size, true
		}
	}

	return "", false
}

// Infer scans every item row for size signals. resolver may be nil, in which
// case only the item's own customer key is used.
func (inf *Inferencer) Infer(items []normalize.ItemRow, resolver Resolver) Result {
	type key struct {
		customer string
		size     SizeClass
	}

	counts := make(map[key]int)
	var result Result

	for _, item := range items {
		if item.PricePointName == "" {
			continue
		}

		customer := item.CustomerKey
		if resolver != nil {
			customer = resolver.ResolveCustomer(item)
		}
		if customer == "" {
			result.Anonymous++
			continue
		}

		size, ok := inf.Match(item.PricePointName)
		if !ok {
			result.Unmatched++
			continue
		}
		counts[key{customer, size}]++
	}

	result.Vehicles = make([]Inferred, 0, len(counts))
	for k, n := range counts {
		result.Vehicles = append(result.Vehicles, Inferred{
			CustomerKey:      k.customer,
			SizeClass:        k.size,
			ObservationCount: n,
			Incomplete:       true,
		})
	}

	sort.Slice(result.Vehicles, func(i, j int) bool {
		a, b := result.Vehicles[i], result.Vehicles[j]
		if a.CustomerKey != b.CustomerKey {
			return a.CustomerKey < b.CustomerKey
		}
		return a.SizeClass < b.SizeClass
	})

	return result
}
