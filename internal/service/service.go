package service

import (
	"context"
	"fmt"

	"stockroom/internal/events"
	"stockroom/internal/model"

	"github.com/rs/zerolog"
)

// Pagination bounds applied by the list operations.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// ProductService defines operations for product management.
type ProductService interface {
	// Create creates a product and assigns it the next code for today.
	Create(ctx context.Context, req model.CreateProductRequest) (*model.Product, error)

	// CreateRandom creates a product from the enrichment source.
	CreateRandom(ctx context.Context) (*model.Product, error)

	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByName retrieves a single product by exact name.
	GetByName(ctx context.Context, name string) (*model.Product, error)

	// GetByCode retrieves a single product by code.
	GetByCode(ctx context.Context, code string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// Update applies a partial update.
	Update(ctx context.Context, id int64, req model.UpdateProductRequest) (*model.Product, error)

	// Remove deletes a product.
	Remove(ctx context.Context, id int64) error

	// Archive archives a product and returns its snapshot.
	Archive(ctx context.Context, id int64) (*model.ProductArchive, error)

	// FindProductToArchive returns one archive candidate, or nil.
	FindProductToArchive(ctx context.Context) (*model.Product, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// Create validates and stores a new order.
	Create(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error)

	// GetAll retrieves orders with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// GetByIDs retrieves orders by their IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Order, error)

	// Update validates and applies a partial update.
	Update(ctx context.Context, id int64, req *model.UpdateOrderRequest) (*model.Order, error)

	// Remove deletes an order.
	Remove(ctx context.Context, id int64) error
}

// ReportInvalidator drops cached report results after a write.
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

// ReportService defines the read-only reporting operations.
type ReportService interface {
	ReportInvalidator

	// StockCategories counts products per stock band.
	StockCategories(ctx context.Context) ([]model.StockCategory, error)

	// LatestProductsByName returns the newest product per name prefix.
	LatestProductsByName(ctx context.Context) ([]model.Product, error)

	// UserRanking ranks users by the sum of their order totals.
	UserRanking(ctx context.Context) ([]model.UserOrderTotal, error)
}

// ProductGenerator produces product drafts from an external source.
type ProductGenerator interface {
	RandomProduct(ctx context.Context) (*model.CreateProductRequest, error)
}

// clampPage normalises pagination arguments.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// wrapErr returns domain errors unchanged and wraps anything else.
func wrapErr(err error, action string) error {
	if model.KindOf(err) != model.KindInternal {
		return err
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// publish emits an event, logging instead of failing the committed write.
func publish(ctx context.Context, p events.Publisher, logger zerolog.Logger, eventType, key string, payload any) {
	if err := p.Publish(ctx, eventType, key, payload); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Str("key", key).Msg("failed to publish event")
	}
}
