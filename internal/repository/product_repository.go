package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, "productName", price, code, stock, "isArchived", "createdAt", "updatedAt"`

const archiveColumns = `id, "productName", price, code, stock, "createdAt", "updatedAt"`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	codes  *codeGenerator
}

// ProductRepositoryOption customises a product repository.
type ProductRepositoryOption func(*productRepository)

// WithLockTimeout bounds how long Create and Update wait for the product
// table lock. Zero waits indefinitely.
func WithLockTimeout(d time.Duration) ProductRepositoryOption {
	return func(r *productRepository) {
		r.codes.lockTimeout = d
	}
}

// WithClock sets the clock used to date product codes.
func WithClock(now func() time.Time) ProductRepositoryOption {
	return func(r *productRepository) {
		r.codes.now = now
	}
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger, opts ...ProductRepositoryOption) ProductRepository {
	r := &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
		codes: &codeGenerator{
			now:         time.Now,
			lockTimeout: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Code, &p.Stock, &p.IsArchived, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanArchive(row pgx.Row) (*model.ProductArchive, error) {
	var a model.ProductArchive
	err := row.Scan(&a.ID, &a.Name, &a.Price, &a.Code, &a.Stock, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *productRepository) collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// nameTaken reports whether any live, archived or snapshotted product other
// than excludeID already uses name.
func nameTaken(ctx context.Context, tx pgx.Tx, name string, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM product WHERE "productName" = $1 AND id <> $2
			UNION ALL
			SELECT 1 FROM product_archive WHERE "productName" = $1 AND id <> $2
		)
	`

	var taken bool
	if err := tx.QueryRow(ctx, query, name, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check product name: %w", err)
	}
	return taken, nil
}

// lockError maps a failure to take the product table lock or to insert the
// generated code onto ErrCodeGenerationFailed.
func lockError(err error) error {
	switch pgErrorCode(err) {
	case pgLockNotAvailable, pgUniqueViolation:
		return model.ErrCodeGenerationFailed
	}
	return err
}

// Create inserts a product with a freshly generated code.
func (r *productRepository) Create(ctx context.Context, req model.CreateProductRequest) (*model.Product, error) {
	query := `
		INSERT INTO product ("productName", price, code, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns

	var created *model.Product
	err := inTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		if err := r.codes.lock(ctx, tx); err != nil {
			return lockError(err)
		}

		taken, err := nameTaken(ctx, tx, req.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrDuplicateName
		}

		code, err := r.codes.next(ctx, tx)
		if err != nil {
			return err
		}

		created, err = scanProduct(tx.QueryRow(ctx, query, req.Name, req.Price, code, req.Stock))
		if err != nil {
			return lockError(fmt.Errorf("failed to insert product: %w", err))
		}
		return nil
	})
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			r.logger.Error().Err(err).Str("product_name", req.Name).Msg("failed to create product")
			return nil, fmt.Errorf("failed to create product: %w", err)
		}
		r.logger.Warn().Err(err).Str("product_name", req.Name).Msg("product not created")
		return nil, err
	}

	r.logger.Debug().
		Int64("product_id", created.ID).
		Str("code", created.Code).
		Msg("product created successfully")

	return created, nil
}

// GetAll retrieves products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM product
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return r.collectProducts(rows)
}

func (r *productRepository) getOne(ctx context.Context, where string, arg any) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE ` + where

	p, err := scanProduct(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByName retrieves a single product by its exact name.
func (r *productRepository) GetByName(ctx context.Context, name string) (*model.Product, error) {
	return r.getOne(ctx, `"productName" = $1 ORDER BY id LIMIT 1`, name)
}

// GetByCode retrieves a single product by its code.
func (r *productRepository) GetByCode(ctx context.Context, code string) (*model.Product, error) {
	return r.getOne(ctx, `code = $1`, code)
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT ` + productColumns + `
		FROM product
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	return r.collectProducts(rows)
}

// Update applies a partial update. A name change takes the product table
// lock so it cannot race a concurrent create of the same name.
func (r *productRepository) Update(ctx context.Context, id int64, req model.UpdateProductRequest) (*model.Product, error) {
	query := `
		UPDATE product
		SET "productName" = COALESCE($2, "productName"),
			price = COALESCE($3, price),
			stock = COALESCE($4, stock),
			"updatedAt" = now()
		WHERE id = $1
		RETURNING ` + productColumns

	var updated *model.Product
	err := inTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		if req.Name != nil {
			if err := r.codes.lock(ctx, tx); err != nil {
				return lockError(err)
			}
		}

		current, err := scanProduct(tx.QueryRow(ctx,
			`SELECT `+productColumns+` FROM product WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrProductNotFound
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		if req.Name != nil {
			if *req.Name == current.Name {
				return model.ErrDuplicateName
			}
			taken, err := nameTaken(ctx, tx, *req.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return model.ErrDuplicateName
			}
		}

		updated, err = scanProduct(tx.QueryRow(ctx, query, id, req.Name, req.Price, req.Stock))
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return nil
	})
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to update product")
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		return nil, err
	}

	return updated, nil
}

// Remove deletes a product that no order references.
func (r *productRepository) Remove(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product WHERE id = $1`, id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			r.logger.Warn().Int64("product_id", id).Msg("product is referenced by orders")
			return model.ErrProductInUse
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// Archive marks a product archived and writes its snapshot in a single
// statement, so either both happen or neither does.
func (r *productRepository) Archive(ctx context.Context, id int64) (*model.ProductArchive, error) {
	query := `
		WITH archived AS (
			UPDATE product
			SET "isArchived" = true
			WHERE id = $1 AND "isArchived" = false
			RETURNING id, "productName", price, code, stock
		)
		INSERT INTO product_archive (id, "productName", price, code, stock)
		SELECT id, "productName", price, code, stock FROM archived
		RETURNING ` + archiveColumns

	var snapshot *model.ProductArchive
	err := inTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		var err error
		snapshot, err = scanArchive(tx.QueryRow(ctx, query, id))
		if err == nil {
			return nil
		}
		if pgErrorCode(err) == pgUniqueViolation {
			return model.ErrProductAlreadyArchived
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to archive product: %w", err)
		}

		var archived bool
		err = tx.QueryRow(ctx, `SELECT "isArchived" FROM product WHERE id = $1`, id).Scan(&archived)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}
		return model.ErrProductAlreadyArchived
	})
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to archive product")
			return nil, fmt.Errorf("failed to archive product: %w", err)
		}
		return nil, err
	}

	r.logger.Debug().Int64("product_id", id).Str("code", snapshot.Code).Msg("product archived")

	return snapshot, nil
}

// GetArchive retrieves an archive snapshot by product ID.
func (r *productRepository) GetArchive(ctx context.Context, id int64) (*model.ProductArchive, error) {
	query := `SELECT ` + archiveColumns + ` FROM product_archive WHERE id = $1`

	a, err := scanArchive(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product archive")
		return nil, fmt.Errorf("failed to query product archive: %w", err)
	}

	return a, nil
}

// FindProductToArchive returns one archive candidate or nil.
func (r *productRepository) FindProductToArchive(ctx context.Context, maxAge time.Duration) (*model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM product
		WHERE (stock <= 0 OR "createdAt" < now() - make_interval(secs => $1))
			AND "isArchived" = false
		ORDER BY id
		LIMIT 1
	`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, maxAge.Seconds()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query archive candidate")
		return nil, fmt.Errorf("failed to query archive candidate: %w", err)
	}

	return p, nil
}

// GetStockCategories counts products per stock band: Low below 10, Medium
// from 10 to 50 inclusive, High above 50.
func (r *productRepository) GetStockCategories(ctx context.Context) ([]model.StockCategory, error) {
	query := `
		SELECT
			CASE
				WHEN stock < 10 THEN 'Low'
				WHEN stock BETWEEN 10 AND 50 THEN 'Medium'
				ELSE 'High'
			END AS "stockCategory",
			COUNT(*) AS "productCount"
		FROM product
		GROUP BY "stockCategory"
		ORDER BY "stockCategory"
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query stock categories")
		return nil, fmt.Errorf("failed to query stock categories: %w", err)
	}
	defer rows.Close()

	categories := []model.StockCategory{}
	for rows.Next() {
		var c model.StockCategory
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan stock category row")
			return nil, fmt.Errorf("failed to scan stock category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating stock category rows")
		return nil, fmt.Errorf("error iterating stock categories: %w", err)
	}

	return categories, nil
}

// GetLatestProductByName returns, for each first word of the product name,
// the product with the highest id.
func (r *productRepository) GetLatestProductByName(ctx context.Context) ([]model.Product, error) {
	query := `
		SELECT p.id, p."productName", p.price, p.code, p.stock, p."isArchived", p."createdAt", p."updatedAt"
		FROM product p
		JOIN (
			SELECT split_part("productName", ' ', 1) AS "baseName", MAX(id) AS "maxId"
			FROM product
			GROUP BY "baseName"
		) latest ON p.id = latest."maxId"
		ORDER BY p.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query latest products by name")
		return nil, fmt.Errorf("failed to query latest products by name: %w", err)
	}

	return r.collectProducts(rows)
}
