package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockroom/internal/events"
	"stockroom/internal/metrics"
	"stockroom/internal/model"
	"stockroom/internal/productcode"
	"stockroom/internal/repository"

	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo   repository.ProductRepository
	generator     ProductGenerator
	reports       ReportInvalidator
	publisher     events.Publisher
	metrics       *metrics.Metrics
	archiveMaxAge time.Duration
	logger        zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	productRepo repository.ProductRepository,
	generator ProductGenerator,
	reports ReportInvalidator,
	publisher events.Publisher,
	m *metrics.Metrics,
	archiveMaxAge time.Duration,
	logger zerolog.Logger,
) ProductService {
	return &productService{
		productRepo:   productRepo,
		generator:     generator,
		reports:       reports,
		publisher:     publisher,
		metrics:       m,
		archiveMaxAge: archiveMaxAge,
		logger:        logger.With().Str("service", "product").Logger(),
	}
}

// Create creates a product and assigns it the next code for today.
func (s *productService) Create(ctx context.Context, req model.CreateProductRequest) (*model.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, model.ErrValidationFailed.WithMessage("Product name is required")
	}

	product, err := s.productRepo.Create(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrCodeGenerationFailed) {
			s.metrics.CodeGenerationFailed()
		}
		s.logger.Warn().Err(err).Str("product_name", req.Name).Msg("failed to create product")
		return nil, wrapErr(err, "create product")
	}

	s.metrics.ProductCreated()
	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.ProductCreated, events.Key("product", product.ID), product)

	s.logger.Info().
		Int64("product_id", product.ID).
		Str("code", product.Code).
		Msg("product created successfully")

	return product, nil
}

// CreateRandom creates a product from the enrichment source.
func (s *productService) CreateRandom(ctx context.Context) (*model.Product, error) {
	draft, err := s.generator.RandomProduct(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to generate random product")
		return nil, wrapErr(err, "generate random product")
	}

	return s.Create(ctx, *draft)
}

// GetAll retrieves products with pagination.
func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	limit, offset = clampPage(limit, offset)

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to get all products")
		return nil, wrapErr(err, "get products")
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product by ID")
		return nil, wrapErr(err, "get product")
	}

	if product == nil {
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// GetByName retrieves a single product by exact name.
func (s *productService) GetByName(ctx context.Context, name string) (*model.Product, error) {
	product, err := s.productRepo.GetByName(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("product_name", name).Msg("failed to get product by name")
		return nil, wrapErr(err, "get product")
	}

	if product == nil {
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// GetByCode retrieves a single product by code. Malformed codes cannot
// exist and are reported as not found without a query.
func (s *productService) GetByCode(ctx context.Context, code string) (*model.Product, error) {
	if _, _, err := productcode.Parse(code); err != nil {
		s.logger.Debug().Str("code", code).Msg("malformed product code")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("failed to get product by code")
		return nil, wrapErr(err, "get product")
	}

	if product == nil {
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (s *productService) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to get products by IDs")
		return nil, wrapErr(err, "get products")
	}

	return products, nil
}

// Update applies a partial update.
func (s *productService) Update(ctx context.Context, id int64, req model.UpdateProductRequest) (*model.Product, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, model.ErrValidationFailed.WithMessage("Product name cannot be empty")
		}
		req.Name = &name
	}
	if req.IsEmpty() {
		return nil, model.ErrValidationFailed.WithMessage("No fields to update")
	}

	product, err := s.productRepo.Update(ctx, id, req)
	if err != nil {
		s.logger.Warn().Err(err).Int64("product_id", id).Msg("failed to update product")
		return nil, wrapErr(err, "update product")
	}

	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.ProductUpdated, events.Key("product", product.ID), product)

	return product, nil
}

// Remove deletes a product.
func (s *productService) Remove(ctx context.Context, id int64) error {
	if err := s.productRepo.Remove(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("product_id", id).Msg("failed to remove product")
		return wrapErr(err, "remove product")
	}

	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.ProductDeleted, events.Key("product", id), events.Deleted{ID: id})

	s.logger.Info().Int64("product_id", id).Msg("product removed")

	return nil
}

// Archive archives a product and returns its snapshot.
func (s *productService) Archive(ctx context.Context, id int64) (*model.ProductArchive, error) {
	snapshot, err := s.productRepo.Archive(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("product_id", id).Msg("failed to archive product")
		return nil, wrapErr(err, "archive product")
	}

	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.ProductArchived, events.Key("product", id), snapshot)

	s.logger.Info().
		Int64("product_id", id).
		Str("code", snapshot.Code).
		Msg("product archived")

	return snapshot, nil
}

// FindProductToArchive returns one archive candidate, or nil.
func (s *productService) FindProductToArchive(ctx context.Context) (*model.Product, error) {
	product, err := s.productRepo.FindProductToArchive(ctx, s.archiveMaxAge)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to find product to archive")
		return nil, wrapErr(err, "find product to archive")
	}
	return product, nil
}
