package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shortly-app/shortly-api/internal/keygen"
	"github.com/shortly-app/shortly-api/internal/models"
	"github.com/shortly-app/shortly-api/internal/repository"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
	"github.com/shortly-app/shortly-api/pkg/jobs"
)

// ViewJobType labels asynchronous view-recording jobs.
const ViewJobType = "link_view"

type linkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	FindByKey(ctx context.Context, key string) (*models.Link, error)
	FindByKeyAndUser(ctx context.Context, key string, userID int64) (*models.Link, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Link, error)
	Disable(ctx context.Context, key string, userID int64) error
	RegisterView(ctx context.Context, key string, ts time.Time) error
}

type redirectCache interface {
	GetRedirect(ctx context.Context, key string) (string, error)
	SetRedirect(ctx context.Context, key, url string, ttl time.Duration) error
	InvalidateRedirect(ctx context.Context, key string) error
}

type viewEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CreateLinkRequest represents the payload for shortening a URL.
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// LinkConfig tunes key generation retries and redirect caching.
type LinkConfig struct {
	MaxKeyAttempts   int
	RedirectCacheTTL time.Duration
}

// LinkService orchestrates link creation with collision-bounded key
// generation, owner-scoped reads and the public redirect path.
type LinkService struct {
	repo      linkRepository
	cache     redirectCache
	views     viewEnqueuer
	keys      *keygen.Generator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    LinkConfig
}

// NewLinkService constructs a LinkService instance. cache, views and metrics
// may be nil; the service degrades gracefully without them.
func NewLinkService(repo linkRepository, cache redirectCache, views viewEnqueuer, keys *keygen.Generator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config LinkConfig) *LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if keys == nil {
		keys = keygen.New("", 0)
	}
	if config.MaxKeyAttempts <= 0 {
		config.MaxKeyAttempts = 5
	}
	if config.RedirectCacheTTL <= 0 {
		config.RedirectCacheTTL = time.Hour
	}
	return &LinkService{
		repo:      repo,
		cache:     cache,
		views:     views,
		keys:      keys,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Create shortens a URL for the given owner. Insertion is optimistic: no
// existence pre-check, the unique constraint on short_key arbitrates and a
// collision burns one attempt from the retry budget. Budget exhaustion is a
// retryable server error, accepted as a small non-zero probability under
// heavy key-space saturation.
func (s *LinkService) Create(ctx context.Context, req CreateLinkRequest, userID int64) (*models.Link, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}

	for attempt := 1; attempt <= s.config.MaxKeyAttempts; attempt++ {
		link := &models.Link{
			ShortKey:    s.keys.Generate(),
			OriginalURL: req.OriginalURL,
			UserID:      userID,
			ExpiresAt:   req.ExpiresAt,
		}

		err := s.repo.Create(ctx, link)
		if err == nil {
			s.logger.Info("link created", zap.String("short_key", link.ShortKey), zap.Int64("user_id", userID))
			return link, nil
		}

		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordKeyCollision()
			s.logger.Warn("short key collision",
				zap.String("short_key", link.ShortKey),
				zap.Int("attempt", attempt),
				zap.Int("budget", s.config.MaxKeyAttempts))
			continue
		}

		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create link")
	}

	return nil, appErrors.Clone(appErrors.ErrKeyGeneration, "")
}

// List returns all active links owned by the user.
func (s *LinkService) List(ctx context.Context, userID int64) ([]models.Link, error) {
	links, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list links")
	}
	return links, nil
}

// Get returns an active link by key, scoped to its owner.
func (s *LinkService) Get(ctx context.Context, key string, userID int64) (*models.Link, error) {
	link, err := s.repo.FindByKeyAndUser(ctx, key, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "could not find link by key "+key)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load link")
	}
	return link, nil
}

// Stats returns the usage summary for an owned link.
func (s *LinkService) Stats(ctx context.Context, key string, userID int64) (*models.LinkStats, error) {
	link, err := s.Get(ctx, key, userID)
	if err != nil {
		return nil, err
	}
	return &models.LinkStats{
		ShortKey:     link.ShortKey,
		OriginalURL:  link.OriginalURL,
		ViewCount:    link.ViewCount,
		CreatedAt:    link.CreatedAt,
		LastAccessAt: link.LastAccessAt,
	}, nil
}

// Disable soft-deletes an owned link and drops its redirect cache entry.
func (s *LinkService) Disable(ctx context.Context, key string, userID int64) error {
	if err := s.repo.Disable(ctx, key, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "could not find link by key "+key)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to disable link")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRedirect(ctx, key); err != nil {
			s.logger.Warn("failed to invalidate redirect cache", zap.String("short_key", key), zap.Error(err))
		}
	}

	s.logger.Info("link disabled", zap.String("short_key", key), zap.Int64("user_id", userID))
	return nil
}

// Resolve maps a short key to its original URL for the public redirect. The
// cache is consulted first; misses fall through to the store and warm the
// cache. Each successful resolution records a view off the request path.
func (s *LinkService) Resolve(ctx context.Context, key string) (string, error) {
	if s.cache != nil {
		start := time.Now()
		url, err := s.cache.GetRedirect(ctx, key)
		if err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			s.metrics.RecordRedirect()
			s.recordView(ctx, key)
			return url, nil
		}
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("redirect cache lookup failed", zap.String("short_key", key), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
	}

	link, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "could not find link by key "+key)
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve link")
	}

	if link.ExpiresAt != nil && time.Now().UTC().After(*link.ExpiresAt) {
		return "", appErrors.Clone(appErrors.ErrNotFound, "link has expired")
	}

	if s.cache != nil {
		ttl := s.config.RedirectCacheTTL
		if link.ExpiresAt != nil {
			if remaining := time.Until(*link.ExpiresAt); remaining < ttl {
				ttl = remaining
			}
		}
		if err := s.cache.SetRedirect(ctx, key, link.OriginalURL, ttl); err != nil {
			s.logger.Warn("failed to warm redirect cache", zap.String("short_key", key), zap.Error(err))
		}
	}

	s.metrics.RecordRedirect()
	s.recordView(ctx, key)
	return link.OriginalURL, nil
}

// RecordView applies one view to a link. It is the handler behind the view
// queue and the synchronous fallback when the queue is unavailable.
func (s *LinkService) RecordView(ctx context.Context, key string) error {
	return s.repo.RegisterView(ctx, key, time.Now().UTC())
}

func (s *LinkService) recordView(ctx context.Context, key string) {
	if s.views != nil {
		err := s.views.Enqueue(jobs.Job{ID: uuid.NewString(), Type: ViewJobType, Payload: key})
		if err == nil {
			return
		}
		s.logger.Warn("failed to enqueue view job, recording synchronously", zap.String("short_key", key), zap.Error(err))
	}

	if err := s.RecordView(ctx, key); err != nil {
		s.logger.Warn("failed to record view", zap.String("short_key", key), zap.Error(err))
	}
}
