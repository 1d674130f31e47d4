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

	"github.com/google/uuid"
	"github.com/recipepanel/foodsync/config"
	httpDelivery "github.com/recipepanel/foodsync/internal/delivery/http"
	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/recipepanel/foodsync/internal/infrastructure/cache"
	"github.com/recipepanel/foodsync/internal/infrastructure/memory"
	"github.com/recipepanel/foodsync/internal/infrastructure/off"
	"github.com/recipepanel/foodsync/internal/infrastructure/postgres"
	"github.com/recipepanel/foodsync/internal/infrastructure/ratelimit"
	"github.com/recipepanel/foodsync/internal/scheduler"
	"github.com/recipepanel/foodsync/internal/usecase"
	"github.com/recipepanel/foodsync/pkg/logger"
	"gorm.io/gorm"
)

const (
	serviceName = "foodsync"
	version     = "1.0.0"
)

// stores groups the persistence backends selected by configuration
type stores struct {
	db       *gorm.DB
	products domain.ProductRepository
	runs     domain.SeedRunRepository
	cache    domain.CacheRepository
	closers  []func()
}

func main() {
	logger.Init(serviceName, "info")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Environment == "development" {
		logger.InitConsole(serviceName, cfg.Server.LogLevel)
	} else {
		logger.Init(serviceName, cfg.Server.LogLevel)
	}

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Type).
		Msg("starting foodsync")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer st.close()

	offClient := off.NewClient(off.ClientConfig{
		BaseURL:           cfg.OFF.BaseURL,
		UserAgent:         cfg.OFF.UserAgent,
		Timeout:           cfg.OFF.Timeout,
		RequestsPerMinute: cfg.OFF.RequestsPerMinute,
	})
	logger.Info().
		Str("base_url", cfg.OFF.BaseURL).
		Int("requests_per_minute", cfg.OFF.RequestsPerMinute).
		Msg("upstream client configured")

	foodService := usecase.NewFoodService(st.cache, offClient, st.products, usecase.FoodServiceConfig{
		DefaultLocale:   cfg.OFF.DefaultLocale,
		SearchPageSize:  cfg.OFF.SearchPageSize,
		SearchTTL:       cfg.Cache.SearchTTL,
		ProductTTL:      cfg.Cache.ProductTTL,
		SearchHitPolicy: cfg.Cache.SearchHitPolicy,
		LocalFallback:   cfg.OFF.LocalFallback,
	})

	seedLocale := cfg.Seed.Locale
	if seedLocale == "" {
		seedLocale = cfg.OFF.DefaultLocale
	}
	seedService := usecase.NewSeedService(st.runs, offClient, st.products, st.cache, usecase.SeedServiceConfig{
		DefaultLocale:   seedLocale,
		DefaultTerms:    cfg.Seed.Terms,
		DefaultPageSize: cfg.Seed.PageSize,
		ProductTTL:      cfg.Cache.ProductTTL,
	})

	if cfg.Seed.Schedule != "" {
		seedScheduler, err := startSeedScheduler(ctx, cfg.Seed, seedService)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start seed scheduler")
		}
		defer seedScheduler.Stop()
	}

	handler := httpDelivery.NewHandler(foodService, seedService, version)
	router := httpDelivery.SetupRouter(cfg, handler, ratelimit.New())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("foodsync stopped")
}

// openStores selects the product/seed stores and the response cache
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}

	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(postgres.Options{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
			RetryDelay:      cfg.Database.RetryDelay,
			LogSQL:          cfg.Database.LogSQL,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			st.closers = append(st.closers, func() { _ = sqlDB.Close() })
		}
		st.db = db
		st.products = postgres.NewProductRepository(db)
		st.runs = postgres.NewSeedRunRepository(db)
		logger.Info().Msg("connected to postgres")
	default:
		st.products = memory.NewProductStore()
		st.runs = memory.NewSeedRunStore()
		logger.Warn().Msg("using in-memory product store; data is lost on restart")
	}

	switch cfg.Cache.Type {
	case "postgres":
		st.cache = postgres.NewCacheRepository(st.db)
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.cache = cache.NewRedisCache(client)
		logger.Info().Msg("connected to redis")
	default:
		memoryCache := cache.NewMemoryCache(cfg.Cache.SweepInterval)
		st.closers = append(st.closers, memoryCache.Close)
		st.cache = memoryCache
	}

	return st, nil
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func startSeedScheduler(ctx context.Context, cfg config.SeedConfig, seeds *usecase.SeedService) (*scheduler.SeedScheduler, error) {
	var runID uuid.UUID
	if cfg.RunID != "" {
		parsed, err := uuid.Parse(cfg.RunID)
		if err != nil {
			return nil, fmt.Errorf("invalid seed run id %q: %w", cfg.RunID, err)
		}
		runID = parsed
	}

	s := scheduler.NewSeedScheduler(seeds, usecase.SeedRequest{
		Locale:   cfg.Locale,
		Terms:    cfg.Terms,
		PageSize: cfg.PageSize,
	}, runID)

	if err := s.Start(ctx, cfg.Schedule); err != nil {
		return nil, err
	}
	return s, nil
}
