package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mercai/backend/config"
	httpDelivery "github.com/mercai/backend/internal/delivery/http"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/infrastructure/cache"
	"github.com/mercai/backend/internal/infrastructure/catalog"
	"github.com/mercai/backend/internal/logging"
	"github.com/mercai/backend/internal/usecase"
)

const version = "1.0.0"

// catalogSource serves both session-bound lookups and public browsing
type catalogSource interface {
	domain.CatalogProvider
	domain.Browser
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load configuration", "err", err)
	}

	if err := logging.Init(os.Stderr, cfg.Log.Level); err != nil {
		logging.Fatal("failed to initialise logger", "err", err)
	}

	logging.Info("starting MercAI ranking service",
		"version", version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"catalog", cfg.Catalog.Source,
		"cache", cfg.Cache.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogs, closeCatalog, err := newCatalogProvider(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to set up catalog", "source", cfg.Catalog.Source, "err", err)
	}
	defer closeCatalog()

	// Initialize infrastructure dependencies
	var cacheRepo domain.CacheRepository
	if cfg.Cache.Type == "memory" {
		memoryCache := cache.NewMemoryCache()
		defer memoryCache.Close()
		cacheRepo = memoryCache
		logging.Info("catalog cache enabled", "ttl", cfg.Cache.TTL)
	}

	// Initialize usecase layer
	rankingService := usecase.NewRankingService(catalogs, cacheRepo, usecase.RankingServiceConfig{
		Ranking: usecase.RankingConfig{
			MaxOffersPerItem:   cfg.Ranking.MaxOffersPerItem,
			MaxAlternatives:    cfg.Ranking.MaxAlternatives,
			LookupConcurrency:  cfg.Ranking.LookupConcurrency,
			EnableDebugLogging: cfg.Ranking.EnableDebugLogging,
		},
		CacheTTL: cfg.Cache.TTL,
	})
	offerService := usecase.NewOfferService(catalogs, cacheRepo, cfg.Cache.TTL)
	productService := usecase.NewProductSearchService(catalogs, cacheRepo, cfg.Ranking.EnableDebugLogging)
	storeService := usecase.NewStoreService(catalogs, cacheRepo)

	handler := httpDelivery.NewHandler(rankingService, offerService, productService, storeService)
	router := httpDelivery.SetupRouter(cfg, handler)

	if cfg.Auth.JWTSecret == "" {
		logging.Warn("JWT secret not set, ranking endpoints are unauthenticated")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info("server listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server failed", "err", err)
		}
	case <-ctx.Done():
		logging.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error("graceful shutdown failed", "err", err)
		}
	}
}

// newCatalogProvider builds the catalog source selected by configuration.
// The returned func releases its resources.
func newCatalogProvider(ctx context.Context, cfg *config.Config) (catalogSource, func(), error) {
	switch cfg.Catalog.Source {
	case "remote":
		client := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, cfg.RateLimit.Catalog)
		logging.Info("remote catalog configured", "base_url", cfg.Catalog.BaseURL, "timeout", cfg.Catalog.Timeout)
		return client, func() {}, nil

	case "sql":
		sqlCatalog, err := catalog.OpenSQLCatalog(ctx, cfg.Catalog.Driver, cfg.Catalog.DSN)
		if err != nil {
			return nil, nil, err
		}
		logging.Info("sql catalog connected", "driver", cfg.Catalog.Driver)
		return sqlCatalog, func() {
			if err := sqlCatalog.Close(); err != nil {
				logging.Error("closing sql catalog", "err", err)
			}
		}, nil

	default:
		return newMemoryCatalog(ctx, cfg)
	}
}

func newMemoryCatalog(ctx context.Context, cfg *config.Config) (catalogSource, func(), error) {
	if cfg.Catalog.FixturePath == "" {
		memory, err := catalog.NewMemoryCatalog()
		if err != nil {
			return nil, nil, err
		}
		logging.Info("memory catalog loaded from embedded fixture")
		return memory, func() {}, nil
	}

	memory, err := catalog.NewMemoryCatalogFromFile(cfg.Catalog.FixturePath)
	if err != nil {
		return nil, nil, err
	}
	logging.Info("memory catalog loaded", "fixture", cfg.Catalog.FixturePath)

	if !cfg.Catalog.WatchFixture {
		return memory, func() {}, nil
	}

	watcher, err := catalog.NewFixtureWatcher(memory, cfg.Catalog.FixturePath)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("fixture watcher stopped", "err", err)
		}
	}()

	return memory, func() {
		if err := watcher.Stop(); err != nil {
			logging.Error("stopping fixture watcher", "err", err)
		}
	}, nil
}
