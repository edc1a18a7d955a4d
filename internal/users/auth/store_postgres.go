// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/messagely/internal/platform/apperr"
	"github.com/taibuivan/messagely/internal/platform/database/schema"
	"github.com/taibuivan/messagely/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users table.

Description: Relies on the primary key to reject duplicates atomically.

Parameters:
  - ctx: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on a duplicate username, Internal otherwise
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.User.Table, strings.Join(schema.User.Columns(), ", "))

	_, err := repository.pool.Exec(ctx, query,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.JoinedAt,
		user.LastLoginAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Username is already taken")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", dberr.Wrap(err, "User"))
	}

	return nil
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - ctx: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.User.Columns(), ", "), schema.User.Table, schema.User.Username)

	user := &User{}
	err := repository.pool.QueryRow(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.JoinedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", dberr.Wrap(err, "User"))
	}

	user.JoinedAt = user.JoinedAt.UTC()
	user.LastLoginAt = user.LastLoginAt.UTC()

	return user, nil
}

/*
UpdateLastLogin advances the user's last_login_at timestamp.

Returns:
  - error: apperr.NotFound if no row matched
*/
func (repository *PostgresUserRepository) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.User.Table, schema.User.LastLoginAt, schema.User.Username)

	tag, err := repository.pool.Exec(ctx, query, username, at)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_last_login_failed: %w", dberr.Wrap(err, "User"))
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// List returns the public profile of every user ordered by username.
func (repository *PostgresUserRepository) List(ctx context.Context) ([]PublicProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		strings.Join(schema.User.PublicColumns(), ", "), schema.User.Table, schema.User.Username)

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_list_failed: %w", dberr.Wrap(err, "User"))
	}
	defer rows.Close()

	profiles := make([]PublicProfile, 0)
	for rows.Next() {
		var profile PublicProfile
		if err := rows.Scan(&profile.Username, &profile.FirstName, &profile.LastName, &profile.Phone); err != nil {
			return nil, fmt.Errorf("postgres_user_repo_list_scan_failed: %w", dberr.Wrap(err, "User"))
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_user_repo_list_failed: %w", dberr.Wrap(err, "User"))
	}

	return profiles, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
