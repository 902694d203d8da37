package models

import "time"

// Link represents a shortened URL stored in the links table. Deletion is
// soft: read paths filter on the disabled flag.
type Link struct {
	ID           int64      `db:"id" json:"id"`
	ShortKey     string     `db:"short_key" json:"short_key"`
	OriginalURL  string     `db:"original_url" json:"original_url"`
	UserID       int64      `db:"user_id" json:"user_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	LastAccessAt time.Time  `db:"last_access_at" json:"last_access_at"`
	ViewCount    int64      `db:"view_count" json:"view_count"`
	Disabled     bool       `db:"disabled" json:"disabled"`
}

// LinkStats is the per-link usage summary returned by the stats endpoint.
type LinkStats struct {
	ShortKey     string    `json:"short_key"`
	OriginalURL  string    `json:"original_url"`
	ViewCount    int64     `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}
