package repository

import (
	"context"
	"testing"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedUser inserts a user and returns its ID.
func seedUser(t *testing.T, pool *pgxpool.Pool, email string) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO "user" (email, "firstName", "lastName") VALUES ($1, 'Test', 'User') RETURNING id`,
		email,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()

	var count int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&count))
	return count
}

type orderFixture struct {
	pool     *pgxpool.Pool
	orders   OrderRepository
	products ProductRepository
	userID   int64
	book     *model.Product
	pen      *model.Product
}

func setupOrderFixture(t *testing.T) (*orderFixture, func()) {
	pool, cleanup := setupTestDB(t)

	products := newTestProductRepository(pool)
	f := &orderFixture{
		pool:     pool,
		orders:   NewOrderRepository(pool, zerolog.Nop()),
		products: products,
		userID:   seedUser(t, pool, "alice@example.com"),
		book:     mustCreateProduct(t, products, "Book", 50000, 10),
		pen:      mustCreateProduct(t, products, "Pen", 1500, 200),
	}
	return f, cleanup
}

func TestOrderRepository_Create(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("returns aggregated order", func(t *testing.T) {
		order, err := f.orders.Create(ctx, model.NewOrder{
			TotalAmount: 51500,
			UserID:      f.userID,
			ProductIDs:  []int64{f.pen.ID, f.book.ID},
		})

		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, 51500, order.TotalAmount)
		require.NotNil(t, order.User)
		assert.Equal(t, f.userID, order.User.ID)
		assert.Equal(t, "alice@example.com", order.User.Email)
		require.Len(t, order.Products, 2)
		assert.Equal(t, f.book.ID, order.Products[0].ID)
		assert.Equal(t, "Book", order.Products[0].Name)
		assert.Equal(t, 50000, order.Products[0].Price)
		assert.Equal(t, f.book.Code, order.Products[0].Code)
		assert.Equal(t, f.pen.ID, order.Products[1].ID)
	})

	t.Run("missing product rolls back the header", func(t *testing.T) {
		before := countRows(t, f.pool, `"order"`)

		_, err := f.orders.Create(ctx, model.NewOrder{
			TotalAmount: 50000,
			UserID:      f.userID,
			ProductIDs:  []int64{f.book.ID, 9999},
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrInvalidProducts)
		assert.Equal(t, before, countRows(t, f.pool, `"order"`))
	})

	t.Run("duplicate product rolls back the header", func(t *testing.T) {
		before := countRows(t, f.pool, `"order"`)

		_, err := f.orders.Create(ctx, model.NewOrder{
			TotalAmount: 100000,
			UserID:      f.userID,
			ProductIDs:  []int64{f.book.ID, f.book.ID},
		})

		assert.ErrorIs(t, err, model.ErrInvalidProducts)
		assert.Equal(t, before, countRows(t, f.pool, `"order"`))
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := f.orders.Create(ctx, model.NewOrder{
			TotalAmount: 1500,
			UserID:      9999,
			ProductIDs:  []int64{f.pen.ID},
		})

		assert.ErrorIs(t, err, model.ErrInvalidUser)
	})
}

func TestOrderRepository_Reads(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	first, err := f.orders.Create(ctx, model.NewOrder{TotalAmount: 50000, UserID: f.userID, ProductIDs: []int64{f.book.ID}})
	require.NoError(t, err)
	second, err := f.orders.Create(ctx, model.NewOrder{TotalAmount: 1500, UserID: f.userID, ProductIDs: []int64{f.pen.ID}})
	require.NoError(t, err)

	t.Run("GetByID reflects live product values", func(t *testing.T) {
		price := 42000
		_, err := f.products.Update(ctx, f.book.ID, model.UpdateProductRequest{Price: &price})
		require.NoError(t, err)

		order, err := f.orders.GetByID(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, order)
		require.Len(t, order.Products, 1)
		assert.Equal(t, 42000, order.Products[0].Price)
		assert.Equal(t, 50000, order.TotalAmount)
	})

	t.Run("GetByID missing", func(t *testing.T) {
		order, err := f.orders.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("GetAll paginates", func(t *testing.T) {
		page, err := f.orders.GetAll(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first.ID, page[0].ID)

		page, err = f.orders.GetAll(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, second.ID, page[0].ID)

		page, err = f.orders.GetAll(ctx, 10, 2)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("GetByIDs", func(t *testing.T) {
		orders, err := f.orders.GetByIDs(ctx, []int64{second.ID, 9999})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, second.ID, orders[0].ID)
	})

	t.Run("order without products has empty list", func(t *testing.T) {
		_, err := f.pool.Exec(ctx, `DELETE FROM order_product WHERE "orderId" = $1`, second.ID)
		require.NoError(t, err)

		order, err := f.orders.GetByID(ctx, second.ID)
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.NotNil(t, order.Products)
		assert.Empty(t, order.Products)
	})
}

func TestOrderRepository_Update(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	order, err := f.orders.Create(ctx, model.NewOrder{TotalAmount: 50000, UserID: f.userID, ProductIDs: []int64{f.book.ID}})
	require.NoError(t, err)

	t.Run("header only keeps products", func(t *testing.T) {
		total := 49000
		updated, err := f.orders.Update(ctx, order.ID, model.OrderChanges{TotalAmount: &total})

		require.NoError(t, err)
		assert.Equal(t, 49000, updated.TotalAmount)
		require.Len(t, updated.Products, 1)
		assert.Equal(t, f.book.ID, updated.Products[0].ID)
	})

	t.Run("replaces product set", func(t *testing.T) {
		total := 1500
		updated, err := f.orders.Update(ctx, order.ID, model.OrderChanges{
			TotalAmount: &total,
			ProductIDs:  []int64{f.pen.ID},
		})

		require.NoError(t, err)
		require.Len(t, updated.Products, 1)
		assert.Equal(t, f.pen.ID, updated.Products[0].ID)
		assert.Equal(t, 1, countRows(t, f.pool, "order_product"))
	})

	t.Run("changes owner", func(t *testing.T) {
		bob := seedUser(t, f.pool, "bob@example.com")
		updated, err := f.orders.Update(ctx, order.ID, model.OrderChanges{UserID: &bob})

		require.NoError(t, err)
		require.NotNil(t, updated.User)
		assert.Equal(t, bob, updated.User.ID)
	})

	t.Run("failed replacement keeps previous products", func(t *testing.T) {
		_, err := f.orders.Update(ctx, order.ID, model.OrderChanges{ProductIDs: []int64{9999}})
		assert.ErrorIs(t, err, model.ErrInvalidProducts)

		current, err := f.orders.GetByID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, current.Products, 1)
		assert.Equal(t, f.pen.ID, current.Products[0].ID)
	})

	t.Run("missing order", func(t *testing.T) {
		total := 1
		_, err := f.orders.Update(ctx, 9999, model.OrderChanges{TotalAmount: &total})
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}

func TestOrderRepository_Remove(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	order, err := f.orders.Create(ctx, model.NewOrder{TotalAmount: 51500, UserID: f.userID, ProductIDs: []int64{f.book.ID, f.pen.ID}})
	require.NoError(t, err)

	require.NoError(t, f.orders.Remove(ctx, order.ID))

	gone, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, 0, countRows(t, f.pool, "order_product"))

	// Products survive and can now be deleted.
	assert.NoError(t, f.products.Remove(ctx, f.pen.ID))

	assert.ErrorIs(t, f.orders.Remove(ctx, order.ID), model.ErrOrderNotFound)
}

func TestOrderRepository_RankUsersByTotalOrder(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	bob := seedUser(t, f.pool, "bob@example.com")
	carol := seedUser(t, f.pool, "carol@example.com")

	for _, o := range []model.NewOrder{
		{TotalAmount: 1500, UserID: f.userID, ProductIDs: []int64{f.pen.ID}},
		{TotalAmount: 50000, UserID: bob, ProductIDs: []int64{f.book.ID}},
		{TotalAmount: 1500, UserID: bob, ProductIDs: []int64{f.pen.ID}},
	} {
		_, err := f.orders.Create(ctx, o)
		require.NoError(t, err)
	}

	ranking, err := f.orders.RankUsersByTotalOrder(ctx)
	require.NoError(t, err)
	require.Len(t, ranking, 3)

	assert.Equal(t, bob, ranking[0].UserID)
	assert.Equal(t, int64(51500), ranking[0].TotalOrderAmount)
	assert.Equal(t, f.userID, ranking[1].UserID)
	assert.Equal(t, int64(1500), ranking[1].TotalOrderAmount)
	assert.Equal(t, carol, ranking[2].UserID)
	assert.Equal(t, int64(0), ranking[2].TotalOrderAmount)
}

func TestOrderRepository_RankUsersByTotalOrder_TiesByID(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	idle := seedUser(t, f.pool, "bob@example.com")
	carol := seedUser(t, f.pool, "carol@example.com")

	// Carol orders first so insertion order disagrees with id order.
	for _, o := range []model.NewOrder{
		{TotalAmount: 100, UserID: carol, ProductIDs: []int64{f.pen.ID}},
		{TotalAmount: 200, UserID: carol, ProductIDs: []int64{f.book.ID}},
		{TotalAmount: 300, UserID: f.userID, ProductIDs: []int64{f.pen.ID, f.book.ID}},
	} {
		_, err := f.orders.Create(ctx, o)
		require.NoError(t, err)
	}

	ranking, err := f.orders.RankUsersByTotalOrder(ctx)
	require.NoError(t, err)
	require.Len(t, ranking, 3)

	ids := []int64{ranking[0].UserID, ranking[1].UserID, ranking[2].UserID}
	assert.Equal(t, []int64{f.userID, carol, idle}, ids)
	assert.Equal(t, int64(300), ranking[0].TotalOrderAmount)
	assert.Equal(t, int64(300), ranking[1].TotalOrderAmount)
	assert.Equal(t, int64(0), ranking[2].TotalOrderAmount)
}

func TestOrderRepository_ErrorPaths(t *testing.T) {
	f, cleanup := setupOrderFixture(t)
	defer cleanup()

	ctx := context.Background()

	order, err := f.orders.Create(ctx, model.NewOrder{TotalAmount: 1500, UserID: f.userID, ProductIDs: []int64{f.pen.ID}})
	require.NoError(t, err)

	// Close the pool to simulate database errors
	f.pool.Close()

	t.Run("GetByID with closed pool", func(t *testing.T) {
		got, err := f.orders.GetByID(ctx, order.ID)
		require.Error(t, err)
		assert.Nil(t, got)
	})

	t.Run("Create with closed pool", func(t *testing.T) {
		_, err := f.orders.Create(ctx, model.NewOrder{TotalAmount: 1500, UserID: f.userID, ProductIDs: []int64{f.pen.ID}})
		require.Error(t, err)
		assert.Equal(t, model.KindInternal, model.KindOf(err))
	})

	t.Run("Remove with closed pool", func(t *testing.T) {
		require.Error(t, f.orders.Remove(ctx, order.ID))
	})
}
