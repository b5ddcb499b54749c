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

	"stockroom/internal/cache"
	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/enrichment"
	"stockroom/internal/events"
	"stockroom/internal/handler"
	"stockroom/internal/metrics"
	"stockroom/internal/repository"
	"stockroom/internal/router"
	"stockroom/internal/scheduler"
	"stockroom/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, cfg.Server.Name)
	logger.Info().Msg("starting stockroom API server")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool and schema
	pool, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	m := metrics.New(cfg.Metrics.Namespace)

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger, repository.WithLockTimeout(cfg.Database.LockTimeout))
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	reportCache, closeCache := newReportCache(ctx, cfg.Redis, m, logger)
	defer closeCache()

	publisher, closePublisher := newPublisher(cfg, m, logger)
	defer closePublisher()

	// Initialize services
	reportService := service.NewReportService(productRepo, orderRepo, reportCache, logger)
	productService := service.NewProductService(
		productRepo,
		enrichment.NewClient(cfg.Enrichment, logger),
		reportService,
		publisher,
		m,
		cfg.Archive.MaxAge,
		logger,
	)
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, reportService, publisher, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Reports:  handler.NewReportHandler(reportService, logger),
	}, m, cfg.Auth.APIKey, cfg.Server.RequestTimeout, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.Archive.Enabled {
		archiver := scheduler.NewArchiver(productService, cfg.Archive.Interval, m, logger)
		g.Go(func() error {
			return archiver.Start(gctx)
		})
	} else {
		logger.Info().Msg("archive scheduler disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
		return nil
	})

	return g.Wait()
}

// newReportCache connects to Redis when enabled. An unreachable Redis is
// logged and kept, since the cache degrades to database reads.
func newReportCache(ctx context.Context, cfg config.RedisConfig, m *metrics.Metrics, logger zerolog.Logger) (cache.Cache, func()) {
	if !cfg.Enabled {
		logger.Info().Msg("report cache disabled")
		return cache.NewNop(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, reports will read through")
	} else {
		logger.Info().Str("addr", cfg.Addr).Msg("report cache connected")
	}

	c := cache.NewRedisCache(client, logger, cache.WithTTL(cfg.ReportTTL), cache.WithMetrics(m))
	return c, func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
}

// newPublisher returns a Kafka publisher when enabled, otherwise a no-op.
func newPublisher(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (events.Publisher, func()) {
	if !cfg.Kafka.Enabled {
		logger.Info().Msg("event publishing disabled")
		return events.NewNopPublisher(), func() {}
	}

	p := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Server.Name, cfg.Kafka.QueueSize, m, logger)
	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Msg("event publishing enabled")

	return p, func() {
		if err := p.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}
}
