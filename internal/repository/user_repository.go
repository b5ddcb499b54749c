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

const userColumns = `id, email, COALESCE("firstName", ''), COALESCE("lastName", ''), role`

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM "user" WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("user not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

// Upsert inserts a user or refreshes the user sharing its email.
func (r *userRepository) Upsert(ctx context.Context, user model.User) (*model.User, error) {
	role := user.Role
	if role == "" {
		role = "user"
	}

	query := `
		INSERT INTO "user" (email, "firstName", "lastName", role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET "firstName" = EXCLUDED."firstName",
			"lastName" = EXCLUDED."lastName",
			role = EXCLUDED.role
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, user.Email, user.FirstName, user.LastName, role))
	if err != nil {
		r.logger.Error().Err(err).Str("email", user.Email).Msg("failed to upsert user")
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return u, nil
}
