package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/recipeprice/backend/config"
	httpDelivery "github.com/recipeprice/backend/internal/delivery/http"
	"github.com/recipeprice/backend/internal/domain"
	"github.com/recipeprice/backend/internal/infrastructure/cache"
	"github.com/recipeprice/backend/internal/infrastructure/filestore"
	"github.com/recipeprice/backend/internal/infrastructure/search"
	"github.com/recipeprice/backend/internal/logging"
	"github.com/recipeprice/backend/internal/usecase"
)

type cacheStore interface {
	domain.CacheRepository
	Close() error
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logging.Setup(cfg.Log, os.Stdout); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Str("store", cfg.Store.Type).
		Msg("starting RecipePrice backend v1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	costCache, err := newCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer costCache.Close()

	recipes, prices, err := newRepositories(ctx, cfg)
	if err != nil {
		return err
	}

	// Initialize usecase layer
	pricingService := usecase.NewPricingService(
		costCache,
		recipes,
		prices,
		usecase.PricingServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			EnableDebugLogging: cfg.Matching.EnableDebugLogging,
		},
	)

	handler := httpDelivery.NewHandler(pricingService)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newCache(cfg config.CacheConfig) (cacheStore, error) {
	if cfg.Type == "bolt" {
		log.Info().Str("path", cfg.Path).Dur("ttl", cfg.TTL).Msg("using bolt cost cache")
		return cache.NewBoltCache(cfg.Path)
	}
	log.Info().Dur("ttl", cfg.TTL).Msg("using in-memory cost cache")
	return cache.NewMemoryCache(0), nil
}

// newRepositories serves recipes and prices from the document store, or from the
// assigned batch files loaded once at startup
func newRepositories(ctx context.Context, cfg *config.Config) (domain.RecipeRepository, domain.PriceRepository, error) {
	if cfg.Store.Type == "search" {
		client := search.NewClient(cfg.Store.SearchURL, cfg.Store.RecipeIndex, cfg.Store.PriceIndex, cfg.Store.RateLimit)
		if cfg.Server.Environment == "development" {
			client.SetDebug(true)
		}
		log.Info().Str("url", cfg.Store.SearchURL).Msg("using document store")
		return client, client, nil
	}

	pricesPath := cfg.Data.PricesPath
	if cfg.Data.AssignedPath != "" {
		pricesPath = cfg.Data.AssignedPath
	}
	store := filestore.New(afero.NewOsFs(), filestore.Paths{
		Recipes: cfg.Data.RecipesPath,
		Prices:  pricesPath,
	}, cfg.Data.ReportFormat)

	recipes, err := store.LoadRecipes(ctx)
	if err != nil {
		return nil, nil, err
	}
	prices, err := store.LoadPrices(ctx)
	if err != nil {
		return nil, nil, err
	}

	repo := filestore.NewRepository(recipes, prices)
	log.Info().Int("recipes", repo.Recipes()).Int("prices", len(repo.Prices())).Msg("catalogs loaded")
	return repo, repo, nil
}
