package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecipeRepository looks recipes up by name
type RecipeRepository interface {
	FindRecipe(ctx context.Context, name string) (*Recipe, error)
}

// PriceRepository returns the price records that may price an ingredient,
// i.e. records whose ingredient or other_ingredients match the name.
// Records are returned in store order.
type PriceRepository interface {
	FindPrices(ctx context.Context, ingredient string) ([]PriceRecord, error)
}

// BatchStore loads the input catalogs and persists batch outputs.
// Save operations must not leave partial files behind on failure.
type BatchStore interface {
	LoadRecipes(ctx context.Context) ([]Recipe, error)
	LoadPrices(ctx context.Context) ([]PriceRecord, error)
	SavePrices(ctx context.Context, records []PriceRecord) error
	SaveMatchReport(ctx context.Context, report MatchReport) error
	SaveCostReport(ctx context.Context, report CostReport) error
}
