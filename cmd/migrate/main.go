package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/database"

	"github.com/joho/godotenv"
)

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

	logger := config.NewLogger(cfg.Logger, cfg.Server.Name+"-migrate")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Printf("Database %s is up to date\n", dbName)
	return nil
}
