package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/recipeprice/backend/internal/domain"
)

// PricingServiceConfig holds configuration for the pricing service
type PricingServiceConfig struct {
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// PricingService answers per-recipe cost queries for the HTTP API
type PricingService struct {
	cache       domain.CacheRepository
	recipes     domain.RecipeRepository
	prices      domain.PriceRepository
	costService *CostService
	cacheTTL    time.Duration
}

// NewPricingService creates a new pricing service with dependencies
func NewPricingService(
	cache domain.CacheRepository,
	recipes domain.RecipeRepository,
	prices domain.PriceRepository,
	config PricingServiceConfig,
) *PricingService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &PricingService{
		cache:       cache,
		recipes:     recipes,
		prices:      prices,
		costService: NewCostService(config.EnableDebugLogging),
		cacheTTL:    cacheTTL,
	}
}

// RecipeCost looks a recipe up by name and prices it.
// Flow: find recipe -> check cache -> price each ingredient from its own records -> cache -> return
// The cache is keyed on the resolved recipe name, so a lookup miss is never answered from cache.
func (s *PricingService) RecipeCost(ctx context.Context, name string) (*domain.RecipeCost, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidRequest
	}

	recipe, err := s.recipes.FindRecipe(ctx, name)
	if err != nil {
		return nil, err
	}

	cacheKey := generateCacheKey(recipe.Name)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	cost, err := s.computeCost(ctx, recipe)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, cost, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("recipe", recipe.Name).Msg("failed to cache recipe cost")
	}

	return &cost, nil
}

// IngredientPrices returns, per source, the record used to price an ingredient
func (s *PricingService) IngredientPrices(ctx context.Context, ingredient string) (map[domain.Source]domain.PriceRecord, error) {
	if strings.TrimSpace(ingredient) == "" {
		return nil, domain.ErrInvalidRequest
	}

	records, err := s.prices.FindPrices(ctx, ingredient)
	if err != nil {
		return nil, err
	}

	index := NewPriceIndex(records)
	result := make(map[domain.Source]domain.PriceRecord)
	for _, source := range domain.Sources {
		if record, ok := index.Lookup(source, ingredient); ok {
			result[source] = record
		}
	}
	return result, nil
}

// computeCost prices every distinct line against the records returned for that line
// only. Each result list is in store order, so the first record per source wins just
// as it does over the whole file.
func (s *PricingService) computeCost(ctx context.Context, recipe *domain.Recipe) (domain.RecipeCost, error) {
	var cost domain.RecipeCost
	for _, line := range distinctLines(recipe.Ingredients) {
		found, err := s.prices.FindPrices(ctx, line.Name)
		if err != nil {
			return domain.RecipeCost{}, fmt.Errorf("prices for %q: %w", line.Name, err)
		}
		s.costService.PriceLine(&cost, recipe.Name, line, NewPriceIndex(found))
	}
	return cost, nil
}

// generateCacheKey creates the cache key of a resolved recipe name.
// Format: "cost:{recipe_name}"
func generateCacheKey(name string) string {
	return fmt.Sprintf("cost:%s", name)
}

// getFromCache retrieves a recipe cost from cache
func (s *PricingService) getFromCache(ctx context.Context, key string) (*domain.RecipeCost, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case domain.RecipeCost:
		return &v, nil
	case *domain.RecipeCost:
		return v, nil
	case map[string]interface{}:
		// JSON round-tripped by the cache
		return mapToRecipeCost(v)
	}
	return nil, domain.ErrCacheMiss
}

// mapToRecipeCost converts a map (from JSON cache) to RecipeCost
func mapToRecipeCost(data map[string]interface{}) (*domain.RecipeCost, error) {
	cost := &domain.RecipeCost{}
	found := false
	for key, total := range map[string]*domain.CostTotal{
		"ALDI_equivalent": &cost.ALDI,
		"USP_equivalent":  &cost.USP,
	} {
		m, ok := data[key].(map[string]interface{})
		if !ok {
			continue
		}
		found = true
		if v, ok := m["direct_price"].(float64); ok {
			total.DirectPrice = v
		}
		if v, ok := m["quantity_price"].(float64); ok {
			total.QuantityPrice = v
		}
		if v, ok := m["kg_price"].(float64); ok {
			total.KgPrice = v
		}
	}
	if !found {
		return nil, domain.ErrCacheMiss
	}
	return cost, nil
}

// IsNotFound reports whether err means the requested recipe does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrRecipeNotFound)
}
