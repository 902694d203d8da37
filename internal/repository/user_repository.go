package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shortly-app/shortly-api/internal/models"
)

// UserRepository provides database access for user records. Every read path
// filters on the disabled flag; disabled users are invisible to lookups.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns an active user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT id, login, password_hash, refresh_token, disabled, created_at FROM users WHERE id = $1 AND disabled = FALSE LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByLogin returns an active user by login.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	const query = `SELECT id, login, password_hash, refresh_token, disabled, created_at FROM users WHERE login = $1 AND disabled = FALSE LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, login); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by login: %w", err)
	}
	return &user, nil
}

// Create inserts a new user and fills in the server-assigned id and
// timestamp. Login uniqueness is enforced by the table constraint.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (login, password_hash, refresh_token, disabled) VALUES ($1, $2, '', FALSE) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, user.Login, user.PasswordHash).Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("create user: %w", translateError(err))
	}
	return nil
}

// UpdateRefreshToken overwrites the stored refresh token, invalidating any
// previously issued one. Returns sql.ErrNoRows when the user is gone or
// disabled.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id int64, token string) error {
	const query = `UPDATE users SET refresh_token = $2 WHERE id = $1 AND disabled = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Disable performs a soft delete and clears the refresh token so no further
// token refresh can succeed for this user.
func (r *UserRepository) Disable(ctx context.Context, id int64) error {
	const query = `UPDATE users SET disabled = TRUE, refresh_token = '' WHERE id = $1 AND disabled = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("disable user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
