package domain

import (
	"encoding/json"
	"strings"
)

// Source identifies where a price record was collected
type Source string

const (
	// SourceALDI is the discount retailer catalog
	SourceALDI Source = "ALDI"
	// SourceUSP is the agricultural direct-sale price list
	SourceUSP Source = "USP"
)

// Sources lists the known sources in report order
var Sources = []Source{SourceALDI, SourceUSP}

// UnmarshalJSON accepts source names in any case ("aldi", "Usp", ...)
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSource(raw)
	return nil
}

// ParseSource normalizes a source name. Unknown names are kept upper-cased.
func ParseSource(raw string) Source {
	return Source(strings.ToUpper(strings.TrimSpace(raw)))
}

// Known reports whether s is one of the priced sources
func (s Source) Known() bool {
	return s == SourceALDI || s == SourceUSP
}

// NoPricePerKg marks a record whose unit price could not be converted to a per-kg basis
const NoPricePerKg = -1.0

// Unassigned is the ingredient value of a record the matcher has not linked yet
const Unassigned = ""

// PriceRecord is one scraped product or price-list row
type PriceRecord struct {
	Source           Source   `json:"source" csv:"source" validate:"required"`
	Name             string   `json:"name" csv:"name" validate:"required"`
	PriceKg          float64  `json:"price_kg" csv:"price_kg"`
	Price            float64  `json:"price" csv:"price" validate:"gte=0"`
	Ingredient       string   `json:"ingredient" csv:"ingredient"`
	OtherIngredients []string `json:"other_ingredients,omitempty" csv:"-"`
	Link             string   `json:"link,omitempty" csv:"link"`
}

// PerKg returns the per-kg price and whether the record has one.
// A zero price is valid; only the negative sentinel means "not applicable".
func (r PriceRecord) PerKg() (float64, bool) {
	if r.PriceKg < 0 {
		return 0, false
	}
	return r.PriceKg, true
}

// Assigned reports whether the matcher linked the record to a canonical ingredient
func (r PriceRecord) Assigned() bool {
	return r.Ingredient != Unassigned
}

// Satisfies reports whether the record can price the given ingredient,
// either as its assigned ingredient or through other_ingredients
func (r PriceRecord) Satisfies(ingredient string) bool {
	if ingredient == "" {
		return false
	}
	if r.Ingredient == ingredient {
		return true
	}
	for _, other := range r.OtherIngredients {
		if other == ingredient {
			return true
		}
	}
	return false
}
