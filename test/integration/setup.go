package integration

import (
	"context"
	"testing"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/model"
	"stockroom/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
}

// SetupTestDB creates a PostgreSQL test container and opens it through
// database.Open, which applies the embedded migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.Open(ctx, config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
		ApplicationName: "stockroom-integration",
	}, logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
	}
}

// SeedUser inserts a user and returns it.
func SeedUser(t *testing.T, pool *pgxpool.Pool, email, firstName, lastName string) *model.User {
	t.Helper()

	user, err := repository.NewUserRepository(pool, zerolog.Nop()).Upsert(context.Background(), model.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user
}

// SeedProducts inserts the test catalogue and returns it in insertion order.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) []model.Product {
	t.Helper()

	repo := repository.NewProductRepository(pool, zerolog.Nop())
	seeds := []model.CreateProductRequest{
		{Name: "Laptop Pro", Price: 99900, Stock: 5},
		{Name: "Smartphone", Price: 69900, Stock: 100},
		{Name: "Headphones", Price: 19900, Stock: 200},
		{Name: "Tablet", Price: 49900, Stock: 30},
		{Name: "Laptop Air", Price: 89900, Stock: 20},
	}

	products := make([]model.Product, 0, len(seeds))
	for _, s := range seeds {
		p, err := repo.Create(context.Background(), s)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", s.Name, err)
		}
		products = append(products, *p)
	}
	return products
}

// CleanupDB removes all rows and resets id sequences.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE order_product, "order", product_archive, product, "user" RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}
