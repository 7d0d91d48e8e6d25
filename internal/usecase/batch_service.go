package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/recipeprice/backend/internal/domain"
)

const defaultWorkers = 4

// BatchConfig holds configuration for batch runs
type BatchConfig struct {
	Workers int
	Match   MatchConfig
}

// BatchService runs the load-all, compute-all, write-all pipelines
type BatchService struct {
	store   domain.BatchStore
	matcher *MatchingService
	costs   *CostService
	workers int
}

// NewBatchService creates a batch service over a store
func NewBatchService(store domain.BatchStore, config BatchConfig) *BatchService {
	workers := config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &BatchService{
		store:   store,
		matcher: NewMatchingService(config.Match),
		costs:   NewCostService(config.Match.EnableDebugLogging),
		workers: workers,
	}
}

// Match assigns canonical ingredients to every price record, then saves the
// records and the match report
func (s *BatchService) Match(ctx context.Context) (domain.MatchReport, error) {
	recipes, prices, err := s.load(ctx)
	if err != nil {
		return domain.MatchReport{}, err
	}

	report := s.assign(ctx, recipes, prices)

	if err := s.store.SavePrices(ctx, prices); err != nil {
		return domain.MatchReport{}, fmt.Errorf("save prices: %w", err)
	}
	if err := s.store.SaveMatchReport(ctx, report); err != nil {
		return domain.MatchReport{}, fmt.Errorf("save match report: %w", err)
	}
	return report, nil
}

// Cost prices every recipe against already assigned records and saves the report
func (s *BatchService) Cost(ctx context.Context) (domain.CostReport, error) {
	recipes, prices, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.computeAll(ctx, recipes, NewPriceIndex(prices))
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveCostReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save cost report: %w", err)
	}
	return report, nil
}

// Run matches and prices in one pass. Nothing is written unless both steps succeed.
func (s *BatchService) Run(ctx context.Context) (domain.MatchReport, domain.CostReport, error) {
	recipes, prices, err := s.load(ctx)
	if err != nil {
		return domain.MatchReport{}, nil, err
	}

	matchReport := s.assign(ctx, recipes, prices)

	costReport, err := s.computeAll(ctx, recipes, NewPriceIndex(prices))
	if err != nil {
		return domain.MatchReport{}, nil, err
	}

	if err := s.store.SavePrices(ctx, prices); err != nil {
		return domain.MatchReport{}, nil, fmt.Errorf("save prices: %w", err)
	}
	if err := s.store.SaveMatchReport(ctx, matchReport); err != nil {
		return domain.MatchReport{}, nil, fmt.Errorf("save match report: %w", err)
	}
	if err := s.store.SaveCostReport(ctx, costReport); err != nil {
		return domain.MatchReport{}, nil, fmt.Errorf("save cost report: %w", err)
	}
	return matchReport, costReport, nil
}

func (s *BatchService) load(ctx context.Context) ([]domain.Recipe, []domain.PriceRecord, error) {
	logger := zerolog.Ctx(ctx)

	recipes, err := s.store.LoadRecipes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load recipes: %w", err)
	}
	prices, err := s.store.LoadPrices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load prices: %w", err)
	}

	logger.Info().Int("recipes", len(recipes)).Int("prices", len(prices)).Msg("inputs loaded")
	return recipes, prices, nil
}

func (s *BatchService) assign(ctx context.Context, recipes []domain.Recipe, prices []domain.PriceRecord) domain.MatchReport {
	catalog := domain.CatalogFromRecipes(recipes)
	s.matcher.AssignIngredients(prices, catalog)
	report := s.matcher.BuildMatchReport(prices, catalog)

	zerolog.Ctx(ctx).Info().
		Int("ingredients", report.Stats.Ingredients).
		Int("matched_products", report.Stats.MatchedProducts).
		Int("unmatched_products", report.Stats.UnmatchedProducts).
		Int("unmatched_ingredients", report.Stats.UnmatchedIngredients).
		Msg("ingredients assigned")

	return report
}

// computeAll prices recipes on a bounded worker pool. Workers only read the index
// and write their own slot; the report map is assembled afterwards on this goroutine.
func (s *BatchService) computeAll(ctx context.Context, recipes []domain.Recipe, index *PriceIndex) (domain.CostReport, error) {
	logger := zerolog.Ctx(ctx)
	costs := make([]domain.RecipeCost, len(recipes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range recipes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			costs[i] = s.costs.ComputeCosts(recipes[i], index)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := make(domain.CostReport, len(recipes))
	for i, recipe := range recipes {
		if _, dup := report[recipe.Name]; dup {
			logger.Warn().Str("recipe", recipe.Name).Msg("duplicate recipe name, keeping the last one")
		}
		report[recipe.Name] = costs[i]
	}

	logger.Info().Int("recipes", len(report)).Msg("recipe costs computed")
	return report, nil
}
