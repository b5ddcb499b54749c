package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockroom/internal/cache"
	"stockroom/internal/catalog"
	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/enrichment"
	"stockroom/internal/events"
	"stockroom/internal/model"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// seedUsers are created or refreshed on every run.
var seedUsers = []model.User{
	{Email: "admin@example.com", FirstName: "Super", LastName: "Admin", Role: "admin"},
	{Email: "john.doe@example.com", FirstName: "John", LastName: "Doe", Role: "user"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, cfg.Server.Name+"-seed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool, logger)
	if err := upsertUsers(ctx, userRepo, logger); err != nil {
		return err
	}

	productRepo := repository.NewProductRepository(pool, logger, repository.WithLockTimeout(cfg.Database.LockTimeout))
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Seeding publishes nothing and caches nothing
	reports := service.NewReportService(productRepo, orderRepo, cache.NewNop(), logger)
	products := service.NewProductService(
		productRepo,
		enrichment.NewClient(cfg.Enrichment, logger),
		reports,
		events.NewNopPublisher(),
		nil,
		cfg.Archive.MaxAge,
		logger,
	)

	loader, err := newLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := catalog.NewSeeder(loader, products, logger).Seed(ctx, cfg.Seed.Files)
	if err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}

	logger.Info().
		Int("loaded", result.Loaded).
		Int("created", result.Created).
		Int("duplicates", result.Duplicates).
		Int("invalid", result.Invalid).
		Msg("seeding completed")

	return nil
}

func upsertUsers(ctx context.Context, users repository.UserRepository, logger zerolog.Logger) error {
	for _, u := range seedUsers {
		existing, err := users.GetByEmail(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("failed to look up user %s: %w", u.Email, err)
		}

		saved, err := users.Upsert(ctx, u)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}

		logger.Info().
			Int64("user_id", saved.ID).
			Str("email", saved.Email).
			Bool("created", existing == nil).
			Msg("user seeded")
	}
	return nil
}

// newLoader reads seed files from S3 when configured, falling back to disk.
func newLoader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (catalog.Loader, error) {
	fileLoader := catalog.NewFileLoader(logger)
	if !cfg.S3.Enabled {
		return catalog.NewFallbackLoader(nil, fileLoader, "", false, logger), nil
	}

	s3Loader, err := catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 loader: %w", err)
	}

	return catalog.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, true, logger), nil
}
