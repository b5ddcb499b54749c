package repository

import (
	"context"
	"time"

	"stockroom/internal/model"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// Create inserts a product with a freshly generated code. The name check,
	// code generation and insert share one transaction under a table lock.
	Create(ctx context.Context, req model.CreateProductRequest) (*model.Product, error)

	// GetAll retrieves products with pagination support, ordered by id.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns nil if absent.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByName retrieves a single product by its exact name. Returns nil if absent.
	GetByName(ctx context.Context, name string) (*model.Product, error)

	// GetByCode retrieves a single product by its code. Returns nil if absent.
	GetByCode(ctx context.Context, code string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs, ordered by id.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// Update applies a partial update. Code is never modified.
	Update(ctx context.Context, id int64, req model.UpdateProductRequest) (*model.Product, error)

	// Remove deletes a product that no order references.
	Remove(ctx context.Context, id int64) error

	// Archive marks a product archived and writes its snapshot atomically.
	Archive(ctx context.Context, id int64) (*model.ProductArchive, error)

	// GetArchive retrieves an archive snapshot by product ID. Returns nil if absent.
	GetArchive(ctx context.Context, id int64) (*model.ProductArchive, error)

	// FindProductToArchive returns one non-archived product that is out of
	// stock or older than maxAge, or nil if there is none.
	FindProductToArchive(ctx context.Context, maxAge time.Duration) (*model.Product, error)

	// GetStockCategories counts products per stock band.
	GetStockCategories(ctx context.Context) ([]model.StockCategory, error)

	// GetLatestProductByName returns the newest product for each first word of
	// the product name.
	GetLatestProductByName(ctx context.Context) ([]model.Product, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts the order header and its product links in one transaction
	// and returns the aggregated read-back.
	Create(ctx context.Context, order model.NewOrder) (*model.Order, error)

	// GetAll retrieves aggregated orders with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// GetByID retrieves an aggregated order. Returns nil if absent.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// GetByIDs retrieves aggregated orders for the given IDs.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Order, error)

	// Update applies header changes and, when ProductIDs is non-nil, replaces
	// the product links, all in one transaction.
	Update(ctx context.Context, id int64, changes model.OrderChanges) (*model.Order, error)

	// Remove deletes the product links and the order header in one transaction.
	Remove(ctx context.Context, id int64) error

	// RankUsersByTotalOrder lists every user with the sum of their order totals.
	RankUsersByTotalOrder(ctx context.Context) ([]model.UserOrderTotal, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// GetByID retrieves a user by ID. Returns nil if absent.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByEmail retrieves a user by email. Returns nil if absent.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// Upsert inserts a user or updates the names and role of the user with
	// the same email.
	Upsert(ctx context.Context, user model.User) (*model.User, error)
}
