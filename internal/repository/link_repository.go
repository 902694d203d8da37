package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/shortly-app/shortly-api/internal/models"
)

// LinkRepository provides database access for shortened links. Inserts are
// optimistic: key uniqueness is enforced by the short_key constraint and a
// conflict surfaces as ErrDuplicate for the service to retry.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository creates a new instance of LinkRepository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a new link and fills in the server-assigned fields.
func (r *LinkRepository) Create(ctx context.Context, link *models.Link) error {
	const query = `INSERT INTO links (short_key, original_url, user_id, expires_at, disabled) VALUES ($1, $2, $3, $4, FALSE) RETURNING id, created_at, last_access_at, view_count`
	err := r.db.QueryRowxContext(ctx, query, link.ShortKey, link.OriginalURL, link.UserID, link.ExpiresAt).
		Scan(&link.ID, &link.CreatedAt, &link.LastAccessAt, &link.ViewCount)
	if err != nil {
		return fmt.Errorf("create link: %w", translateError(err))
	}
	return nil
}

// FindByKey returns an active link by short key regardless of owner. Used by
// the public redirect path.
func (r *LinkRepository) FindByKey(ctx context.Context, key string) (*models.Link, error) {
	const query = `SELECT id, short_key, original_url, user_id, created_at, expires_at, last_access_at, view_count, disabled FROM links WHERE short_key = $1 AND disabled = FALSE LIMIT 1`
	var link models.Link
	if err := r.db.GetContext(ctx, &link, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find link by key: %w", err)
	}
	return &link, nil
}

// FindByKeyAndUser returns an active link owned by the given user.
func (r *LinkRepository) FindByKeyAndUser(ctx context.Context, key string, userID int64) (*models.Link, error) {
	const query = `SELECT id, short_key, original_url, user_id, created_at, expires_at, last_access_at, view_count, disabled FROM links WHERE short_key = $1 AND user_id = $2 AND disabled = FALSE LIMIT 1`
	var link models.Link
	if err := r.db.GetContext(ctx, &link, query, key, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find link by key and user: %w", err)
	}
	return &link, nil
}

// ListByUser returns all active links owned by the given user.
func (r *LinkRepository) ListByUser(ctx context.Context, userID int64) ([]models.Link, error) {
	const query = `SELECT id, short_key, original_url, user_id, created_at, expires_at, last_access_at, view_count, disabled FROM links WHERE user_id = $1 AND disabled = FALSE ORDER BY created_at DESC`
	var links []models.Link
	if err := r.db.SelectContext(ctx, &links, query, userID); err != nil {
		return nil, fmt.Errorf("list links by user: %w", err)
	}
	return links, nil
}

// Disable performs a soft delete of an owned link.
func (r *LinkRepository) Disable(ctx context.Context, key string, userID int64) error {
	const query = `UPDATE links SET disabled = TRUE, last_access_at = $3 WHERE short_key = $1 AND user_id = $2 AND disabled = FALSE`
	res, err := r.db.ExecContext(ctx, query, key, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("disable link: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RegisterView increments the view counter and bumps the last access
// timestamp for an active link.
func (r *LinkRepository) RegisterView(ctx context.Context, key string, ts time.Time) error {
	const query = `UPDATE links SET view_count = view_count + 1, last_access_at = $2 WHERE short_key = $1 AND disabled = FALSE`
	if _, err := r.db.ExecContext(ctx, query, key, ts); err != nil {
		return fmt.Errorf("register view: %w", err)
	}
	return nil
}
