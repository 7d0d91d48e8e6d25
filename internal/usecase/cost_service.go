package usecase

import (
	"github.com/rs/zerolog/log"

	"github.com/recipeprice/backend/internal/domain"
)

// PriceIndex answers "which record prices this ingredient at this source" in O(1).
// For every (source, ingredient) pair it keeps the first record, in input order,
// whose ingredient or other_ingredients names the ingredient.
type PriceIndex struct {
	bySource map[domain.Source]map[string]domain.PriceRecord
}

// NewPriceIndex indexes records. The index copies what it needs; later changes to
// the slice do not affect it.
func NewPriceIndex(records []domain.PriceRecord) *PriceIndex {
	idx := &PriceIndex{bySource: make(map[domain.Source]map[string]domain.PriceRecord)}

	for _, r := range records {
		if !r.Source.Known() {
			continue
		}
		bucket, ok := idx.bySource[r.Source]
		if !ok {
			bucket = make(map[string]domain.PriceRecord)
			idx.bySource[r.Source] = bucket
		}

		keys := append([]string{r.Ingredient}, r.OtherIngredients...)
		for _, key := range keys {
			if key == "" {
				continue
			}
			if _, taken := bucket[key]; !taken {
				bucket[key] = r
			}
		}
	}

	return idx
}

// Lookup returns the record pricing ingredient at source
func (idx *PriceIndex) Lookup(source domain.Source, ingredient string) (domain.PriceRecord, bool) {
	r, ok := idx.bySource[source][ingredient]
	return r, ok
}

// CostService aggregates recipe costs from normalized quantities and indexed prices
type CostService struct {
	enableDebugLogging bool
}

// NewCostService creates a new cost service
func NewCostService(enableDebugLogging bool) *CostService {
	return &CostService{enableDebugLogging: enableDebugLogging}
}

// ComputeCosts sums, for each source, the direct price, the per-kg price and the
// quantity-scaled price of every distinct ingredient of the recipe.
// An ingredient listed twice is priced once with its first quantity. Ingredients
// without a record at a source leave that source's totals unchanged.
func (s *CostService) ComputeCosts(recipe domain.Recipe, index *PriceIndex) domain.RecipeCost {
	var cost domain.RecipeCost
	for _, line := range distinctLines(recipe.Ingredients) {
		s.PriceLine(&cost, recipe.Name, line, index)
	}
	return cost
}

// PriceLine adds one ingredient line to cost, for every source the index has a
// record for
func (s *CostService) PriceLine(cost *domain.RecipeCost, recipeName string, line domain.RecipeIngredientLine, index *PriceIndex) {
	quantity := NormalizeQuantity(line.Quantity)

	for _, source := range domain.Sources {
		record, ok := index.Lookup(source, line.Name)
		if !ok {
			continue
		}

		contribution := priceContribution(record, quantity)
		total := cost.For(source)
		total.DirectPrice += contribution.DirectPrice
		total.KgPrice += contribution.KgPrice
		total.QuantityPrice += contribution.QuantityPrice

		if s.enableDebugLogging {
			log.Debug().
				Str("recipe", recipeName).
				Str("source", string(source)).
				Str("ingredient", line.Name).
				Str("product", record.Name).
				Float64("quantity", quantity).
				Float64("direct_price", contribution.DirectPrice).
				Float64("kg_price", contribution.KgPrice).
				Float64("quantity_price", contribution.QuantityPrice).
				Msg("ingredient priced")
		}
	}
}

// priceContribution is what one record adds to a source's totals. Records without a
// per-kg price fall back to their direct price for the quantity-scaled sum.
func priceContribution(record domain.PriceRecord, quantity float64) domain.CostTotal {
	contribution := domain.CostTotal{DirectPrice: record.Price}

	perKg, ok := record.PerKg()
	if !ok {
		contribution.QuantityPrice = record.Price
		return contribution
	}

	if quantity == 0 {
		quantity = DefaultQuantity
	}
	contribution.KgPrice = perKg
	contribution.QuantityPrice = quantity * perKg
	return contribution
}

// distinctLines keeps the first line of every ingredient name, dropping unnamed lines
func distinctLines(lines []domain.RecipeIngredientLine) []domain.RecipeIngredientLine {
	seen := make(map[string]bool, len(lines))
	out := make([]domain.RecipeIngredientLine, 0, len(lines))
	for _, line := range lines {
		if line.Name == "" || seen[line.Name] {
			continue
		}
		seen[line.Name] = true
		out = append(out, line)
	}
	return out
}
