package filestore

import (
	"context"
	"strings"

	"github.com/recipeprice/backend/internal/domain"
)

// Repository serves recipes and price records loaded from the batch files.
// It is read-only after construction and safe for concurrent use.
type Repository struct {
	recipes   []domain.Recipe
	byName    map[string]int
	byFolded  map[string]int
	prices    []domain.PriceRecord
	priceRefs map[string][]int
}

// NewRepository indexes recipes by name and price records by the ingredients they satisfy
func NewRepository(recipes []domain.Recipe, prices []domain.PriceRecord) *Repository {
	r := &Repository{
		recipes:   recipes,
		byName:    make(map[string]int, len(recipes)),
		byFolded:  make(map[string]int, len(recipes)),
		prices:    prices,
		priceRefs: make(map[string][]int),
	}

	// later duplicates win, as in the batch report
	for i, recipe := range recipes {
		r.byName[recipe.Name] = i
		r.byFolded[foldName(recipe.Name)] = i
	}

	for i, record := range prices {
		seen := make(map[string]bool, 1+len(record.OtherIngredients))
		for _, key := range append([]string{record.Ingredient}, record.OtherIngredients...) {
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			r.priceRefs[key] = append(r.priceRefs[key], i)
		}
	}

	return r
}

// FindRecipe returns the recipe with the given name, falling back to a
// case-insensitive comparison
func (r *Repository) FindRecipe(_ context.Context, name string) (*domain.Recipe, error) {
	i, ok := r.byName[name]
	if !ok {
		i, ok = r.byFolded[foldName(name)]
	}
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	recipe := r.recipes[i]
	return &recipe, nil
}

// FindPrices returns the records satisfying the ingredient, in file order
func (r *Repository) FindPrices(_ context.Context, ingredient string) ([]domain.PriceRecord, error) {
	refs := r.priceRefs[ingredient]
	out := make([]domain.PriceRecord, 0, len(refs))
	for _, i := range refs {
		out = append(out, r.prices[i])
	}
	return out, nil
}

// Recipes returns the number of indexed recipes
func (r *Repository) Recipes() int {
	return len(r.recipes)
}

// Prices returns the indexed price records
func (r *Repository) Prices() []domain.PriceRecord {
	return r.prices
}

func foldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
