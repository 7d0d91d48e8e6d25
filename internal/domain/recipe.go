package domain

import (
	"encoding/json"
	"math"
)

// Recipe is a scraped recipe, read-only input to cost computation
type Recipe struct {
	Name        string                 `json:"name" validate:"required"`
	Category    string                 `json:"category,omitempty"`
	PriceRange  string                 `json:"price_range,omitempty"`
	Servings    json.RawMessage        `json:"servings_quantity,omitempty"`
	Ingredients []RecipeIngredientLine `json:"ingredients" validate:"dive"`
}

// RecipeIngredientLine is one ingredient as written in the recipe
type RecipeIngredientLine struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Catalog is the ordered, deduplicated set of canonical ingredient names.
// Iteration order is first-seen order and decides matching ties.
type Catalog struct {
	names []string
	index map[string]int
}

// NewCatalog builds a catalog from names, skipping blanks and duplicates
func NewCatalog(names ...string) *Catalog {
	c := &Catalog{index: make(map[string]int, len(names))}
	for _, name := range names {
		c.add(name)
	}
	return c
}

// CatalogFromRecipes collects every distinct ingredient name across recipes
func CatalogFromRecipes(recipes []Recipe) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, recipe := range recipes {
		for _, line := range recipe.Ingredients {
			c.add(line.Name)
		}
	}
	return c
}

func (c *Catalog) add(name string) {
	if name == "" {
		return
	}
	if _, ok := c.index[name]; ok {
		return
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
}

// Names returns a copy of the canonical names in iteration order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Contains reports whether name is a canonical ingredient
func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Len returns the number of canonical ingredients
func (c *Catalog) Len() int {
	return len(c.names)
}

// CostTotal holds the three running sums for one source.
// Values accumulate unrounded and are rounded to cents when serialized.
type CostTotal struct {
	DirectPrice   float64 `json:"direct_price"`
	QuantityPrice float64 `json:"quantity_price"`
	KgPrice       float64 `json:"kg_price"`
}

// MarshalJSON rounds every sum to 2 decimals
func (t CostTotal) MarshalJSON() ([]byte, error) {
	type rounded CostTotal
	return json.Marshal(rounded{
		DirectPrice:   Round2(t.DirectPrice),
		QuantityPrice: Round2(t.QuantityPrice),
		KgPrice:       Round2(t.KgPrice),
	})
}

// RecipeCost holds the totals of one recipe for both sources
type RecipeCost struct {
	ALDI CostTotal `json:"ALDI_equivalent"`
	USP  CostTotal `json:"USP_equivalent"`
}

// For returns a pointer to the totals of the given source, or nil for unknown sources
func (c *RecipeCost) For(source Source) *CostTotal {
	switch source {
	case SourceALDI:
		return &c.ALDI
	case SourceUSP:
		return &c.USP
	}
	return nil
}

// CostReport maps recipe names to their costs
type CostReport map[string]RecipeCost

// Round2 rounds a price to cents
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
