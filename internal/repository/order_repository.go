package repository

import (
	"context"
	"errors"
	"fmt"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderSelect builds the aggregated order read. Products are folded into a
// JSON array carrying their live values; orders without products get an
// empty array rather than a single null element.
func orderSelect(where, tail string) string {
	return `
		SELECT o.id, o."totalAmount", o."createdAt",
			u.id, u.email, u."firstName", u."lastName",
			COALESCE(
				json_agg(json_build_object(
					'id', p.id,
					'productName', p."productName",
					'price', p.price,
					'code', p.code,
					'stock', p.stock,
					'isArchived', p."isArchived"
				) ORDER BY p.id) FILTER (WHERE p.id IS NOT NULL),
				'[]'
			) AS products
		FROM "order" o
		LEFT JOIN "user" u ON u.id = o."userId"
		LEFT JOIN order_product op ON op."orderId" = o.id
		LEFT JOIN product p ON p.id = op."productId"
		` + where + `
		GROUP BY o.id, u.id
		ORDER BY o.id
		` + tail
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o         model.Order
		userID    *int64
		email     *string
		firstName *string
		lastName  *string
	)

	err := row.Scan(&o.ID, &o.TotalAmount, &o.CreatedAt, &userID, &email, &firstName, &lastName, &o.Products)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		o.User = &model.OrderUser{ID: *userID}
		if email != nil {
			o.User.Email = *email
		}
		if firstName != nil {
			o.User.FirstName = *firstName
		}
		if lastName != nil {
			o.User.LastName = *lastName
		}
	}
	if o.Products == nil {
		o.Products = []model.OrderProduct{}
	}

	return &o, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// insertOrderProducts links products to an order within the provided
// transaction.
func (r *orderRepository) insertOrderProducts(ctx context.Context, tx pgx.Tx, orderID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	query := `INSERT INTO order_product ("orderId", "productId") VALUES ($1, $2)`

	batch := &pgx.Batch{}
	for _, productID := range productIDs {
		batch.Queue(query, orderID, productID)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for _, productID := range productIDs {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", orderID).
				Int64("product_id", productID).
				Msg("failed to link product to order")
			switch pgErrorCode(err) {
			case pgForeignKeyViolation:
				return model.ErrInvalidProducts.WithMessage(fmt.Sprintf("Product %d not found", productID))
			case pgUniqueViolation:
				return model.ErrInvalidProducts.WithMessage(fmt.Sprintf("Product %d listed more than once", productID))
			}
			return fmt.Errorf("failed to link product to order: %w", err)
		}
	}

	return nil
}

// headerError translates a failed write to the order header.
func headerError(err error) error {
	if pgErrorCode(err) == pgForeignKeyViolation {
		return model.ErrInvalidUser
	}
	return err
}

// Create inserts the order header and its product links in one transaction.
func (r *orderRepository) Create(ctx context.Context, order model.NewOrder) (*model.Order, error) {
	var orderID int64
	err := inTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO "order" ("totalAmount", "userId") VALUES ($1, $2) RETURNING id`,
			order.TotalAmount, order.UserID,
		).Scan(&orderID)
		if err != nil {
			return headerError(fmt.Errorf("failed to insert order: %w", err))
		}

		return r.insertOrderProducts(ctx, tx, orderID, order.ProductIDs)
	})
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			r.logger.Error().Err(err).Int64("user_id", order.UserID).Msg("failed to create order")
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		return nil, err
	}

	r.logger.Debug().
		Int64("order_id", orderID).
		Int("products", len(order.ProductIDs)).
		Msg("order created successfully")

	created, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, model.ErrOrderNotFound
	}
	return created, nil
}

// GetAll retrieves aggregated orders with pagination support.
func (r *orderRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	return r.queryOrders(ctx, orderSelect("", "LIMIT $1 OFFSET $2"), limit, offset)
}

// GetByID retrieves an aggregated order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect("WHERE o.id = $1", ""), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return o, nil
}

// GetByIDs retrieves aggregated orders for the given IDs.
func (r *orderRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Order, error) {
	if len(ids) == 0 {
		return []model.Order{}, nil
	}
	return r.queryOrders(ctx, orderSelect("WHERE o.id = ANY($1)", ""), ids)
}

// Update applies header changes and optionally replaces the product links.
func (r *orderRepository) Update(ctx context.Context, id int64, changes model.OrderChanges) (*model.Order, error) {
	err := inTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE "order"
			SET "totalAmount" = COALESCE($2, "totalAmount"),
				"userId" = COALESCE($3, "userId")
			WHERE id = $1
		`, id, changes.TotalAmount, changes.UserID)
		if err != nil {
			return headerError(fmt.Errorf("failed to update order: %w", err))
		}
		if tag.RowsAffected() == 0 {
			return model.ErrOrderNotFound
		}

		if changes.ProductIDs == nil {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_product WHERE "orderId" = $1`, id); err != nil {
			return fmt.Errorf("failed to clear order products: %w", err)
		}

		return r.insertOrderProducts(ctx, tx, id, changes.ProductIDs)
	})
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to update order")
			return nil, fmt.Errorf("failed to update order: %w", err)
		}
		return nil, err
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.ErrOrderNotFound
	}
	return updated, nil
}

// Remove deletes the product links and then the order header.
func (r *orderRepository) Remove(ctx context.Context, id int64) error {
	err := inTx(ctx, r.pool, r.logger, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM order_product WHERE "orderId" = $1`, id); err != nil {
			return fmt.Errorf("failed to delete order products: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM "order" WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrOrderNotFound
		}
		return nil
	})
	if err != nil && model.KindOf(err) == model.KindInternal {
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to remove order")
	}
	return err
}

// RankUsersByTotalOrder lists every user with the sum of their order totals.
// Users with orders come first by descending total; ties and users without
// orders are ordered by id.
func (r *orderRepository) RankUsersByTotalOrder(ctx context.Context) ([]model.UserOrderTotal, error) {
	query := `
		SELECT u.id,
			COALESCE(u."firstName", ''),
			COALESCE(u."lastName", ''),
			COALESCE(SUM(o."totalAmount"), 0) AS "totalOrderAmount"
		FROM "user" u
		LEFT JOIN "order" o ON o."userId" = u.id
		GROUP BY u.id
		ORDER BY (SUM(o."totalAmount") IS NULL) ASC,
			COALESCE(SUM(o."totalAmount"), 0) DESC,
			u.id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query user ranking")
		return nil, fmt.Errorf("failed to query user ranking: %w", err)
	}
	defer rows.Close()

	ranking := []model.UserOrderTotal{}
	for rows.Next() {
		var u model.UserOrderTotal
		if err := rows.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.TotalOrderAmount); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan user ranking row")
			return nil, fmt.Errorf("failed to scan user ranking: %w", err)
		}
		ranking = append(ranking, u)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating user ranking rows")
		return nil, fmt.Errorf("error iterating user ranking: %w", err)
	}

	return ranking, nil
}
