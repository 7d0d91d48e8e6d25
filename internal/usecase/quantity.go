package usecase

import (
	"math/big"
	"strings"
	"unicode"
)

// DefaultQuantity is returned when a quantity string matches no rule
const DefaultQuantity = 0.1

// Unit multipliers towards kilograms or liters, kept exact
var (
	percentFactor    = big.NewRat(1, 100)
	centiliterFactor = big.NewRat(1, 100)
	gramFactor       = big.NewRat(1, 1000)
	kilogramFactor   = big.NewRat(1, 1)
	milliliterFactor = big.NewRat(1, 1000)
	literFactor      = big.NewRat(1, 1)
	cupFactor        = big.NewRat(24, 100)
	unitFactor       = big.NewRat(1, 1)
)

// quantityRule is one row of the unit decision table
type quantityRule struct {
	name   string
	match  func(q parsedQuantity) bool
	factor *big.Rat
}

// unitAliases maps words found in recipe quantities to the unit token they stand for
var unitAliases = map[string]string{
	"cl": "cl",
	"g": "g", "gr": "g", "gramme": "g", "grammes": "g",
	"kg": "kg", "kilo": "kg", "kilos": "kg", "kilogramme": "kg", "kilogrammes": "kg",
	"ml": "ml",
	"l": "l", "litre": "l", "litres": "l",
	"tasse": "tasse", "tasses": "tasse",
}

// quantityRules is evaluated in order, first match wins.
// The decimal-comma rule is handled before the table.
var quantityRules = []quantityRule{
	{name: "percent", match: func(q parsedQuantity) bool { return strings.Contains(q.lower, "%") }, factor: percentFactor},
	{name: "cl", match: hasUnit("cl"), factor: centiliterFactor},
	{name: "g", match: hasUnit("g"), factor: gramFactor},
	{name: "kg", match: hasUnit("kg"), factor: kilogramFactor},
	{name: "ml", match: hasUnit("ml"), factor: milliliterFactor},
	{name: "l", match: hasUnit("l"), factor: literFactor},
	{name: "cup", match: hasUnit("tasse"), factor: cupFactor},
	{name: "fraction", match: func(q parsedQuantity) bool { return strings.Contains(q.magnitude, "/") }, factor: unitFactor},
}

type parsedQuantity struct {
	lower     string
	magnitude string
	units     map[string]bool
}

func hasUnit(unit string) func(q parsedQuantity) bool {
	return func(q parsedQuantity) bool {
		return q.units[unit]
	}
}

// NormalizeQuantity converts a recipe quantity ("250g", "2 cl", "1/2 tasse") into
// kilograms or liters. It never fails: anything it cannot read yields DefaultQuantity.
// A zero magnitude is returned as 0; callers decide how to treat it.
func NormalizeQuantity(text string) float64 {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return DefaultQuantity
	}

	if strings.Contains(lower, ",") {
		value, ok := parseMagnitude(numericPart(strings.ReplaceAll(lower, ",", ".")))
		if !ok {
			return DefaultQuantity
		}
		f, _ := value.Float64()
		return f
	}

	q := parsedQuantity{
		lower:     lower,
		magnitude: numericPart(lower),
		units:     unitTokens(lower),
	}

	for _, rule := range quantityRules {
		if !rule.match(q) {
			continue
		}
		value, ok := parseMagnitude(q.magnitude)
		if !ok {
			return DefaultQuantity
		}
		f, _ := value.Mul(value, rule.factor).Float64()
		return f
	}

	return DefaultQuantity
}

// numericPart keeps digits, '.', '/' and the spaces separating them
func numericPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '/':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// unitTokens collects the unit tokens among the letter runs of s
func unitTokens(s string) map[string]bool {
	units := make(map[string]bool)
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		if unit, ok := unitAliases[word]; ok {
			units[unit] = true
		}
	}
	return units
}

// parseMagnitude reads a decimal, a fraction or a mixed number ("1 1/2") as an exact
// rational. Separate integers are concatenated, so "1 000" reads as 1000.
func parseMagnitude(s string) (*big.Rat, bool) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 0:
		return nil, false
	case 2:
		if !strings.Contains(parts[0], "/") && strings.Contains(parts[1], "/") {
			whole, ok := parseRat(parts[0])
			if !ok {
				return nil, false
			}
			frac, ok := parseRat(parts[1])
			if !ok {
				return nil, false
			}
			return whole.Add(whole, frac), true
		}
	}

	return parseRat(strings.Join(parts, ""))
}

func parseRat(s string) (*big.Rat, bool) {
	if strings.Count(s, "/") > 1 || strings.Count(s, ".") > 1 {
		return nil, false
	}
	if num, den, isFrac := strings.Cut(s, "/"); isFrac {
		// big.Rat reads a leading 0 in a fraction as an octal prefix
		s = trimLeadingZeros(num) + "/" + trimLeadingZeros(den)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return r, true
}

func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}
