package service

import (
	"context"
	"fmt"

	"stockroom/internal/cache"
	"stockroom/internal/model"
	"stockroom/internal/repository"

	"github.com/rs/zerolog"
)

// Report cache keys.
const (
	stockCategoriesKey = "stock-categories"
	latestProductsKey  = "latest-products"
	userRankingKey     = "user-ranking"
)

// reportService implements ReportService on top of the stores and a cache.
type reportService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	cache       cache.Cache
	logger      zerolog.Logger
}

// NewReportService creates a new report service. Pass cache.NewNop() to
// always read through to the database.
func NewReportService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	c cache.Cache,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		cache:       c,
		logger:      logger.With().Str("service", "report").Logger(),
	}
}

// StockCategories counts products per stock band.
func (s *reportService) StockCategories(ctx context.Context) ([]model.StockCategory, error) {
	return cached(ctx, s, stockCategoriesKey, s.productRepo.GetStockCategories)
}

// LatestProductsByName returns the newest product per name prefix.
func (s *reportService) LatestProductsByName(ctx context.Context) ([]model.Product, error) {
	return cached(ctx, s, latestProductsKey, s.productRepo.GetLatestProductByName)
}

// UserRanking ranks users by the sum of their order totals.
func (s *reportService) UserRanking(ctx context.Context) ([]model.UserOrderTotal, error) {
	return cached(ctx, s, userRankingKey, s.orderRepo.RankUsersByTotalOrder)
}

// Invalidate advances the cache generation so every cached report, including
// one being built by a concurrent read, is ignored from now on.
func (s *reportService) Invalidate(ctx context.Context) {
	if _, err := s.cache.NextGeneration(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate report cache")
	}
}

// cached serves key from the cache, falling back to load and storing the
// result. Entries are keyed by the generation read before load, so a result
// built across an Invalidate lands under a generation nobody reads.
func cached[T any](ctx context.Context, s *reportService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("report", key).Msg("report cache unavailable, reading through")
		return build(ctx, s, key, load)
	}
	entry := fmt.Sprintf("%s:%d", key, gen)

	var rows []T
	if s.cache.Get(ctx, entry, &rows) {
		s.logger.Debug().Str("report", key).Int64("generation", gen).Msg("report served from cache")
		return rows, nil
	}

	rows, err = build(ctx, s, key, load)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, entry, rows); err != nil {
		s.logger.Warn().Err(err).Str("report", key).Msg("failed to cache report")
	}

	return rows, nil
}

// build runs load and normalises a nil result to an empty slice.
func build[T any](ctx context.Context, s *reportService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	rows, err := load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("report", key).Msg("failed to build report")
		return nil, fmt.Errorf("failed to build %s report: %w", key, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
