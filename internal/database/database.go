// Package database owns the PostgreSQL pool and the embedded schema.
package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stockroom/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool creates a PostgreSQL connection pool for the catalogue stores.
// Every connection reports cfg.ApplicationName and carries the session
// statement timeout; product creation tightens lock waits per transaction.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger = logger.With().Str("component", "database").Logger()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	for k, v := range runtimeParams(cfg) {
		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error().
			Err(err).
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Msg("database unreachable")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Str("application_name", cfg.ApplicationName).
		Int("max_connections", cfg.MaxConnections).
		Dur("statement_timeout", cfg.StatementTimeout).
		Msg("database pool ready")

	return pool, nil
}

// Open creates the pool and brings the schema up to date. The pool is closed
// again if migrations fail.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return pool, nil
}

// runtimeParams returns the session settings sent on every new connection.
func runtimeParams(cfg config.DatabaseConfig) map[string]string {
	params := map[string]string{}
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return params
}
