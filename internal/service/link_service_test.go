package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortly-app/shortly-api/internal/keygen"
	"github.com/shortly-app/shortly-api/internal/models"
	"github.com/shortly-app/shortly-api/internal/repository"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
	"github.com/shortly-app/shortly-api/pkg/jobs"
)

type linkRepoStub struct {
	links       map[string]*models.Link
	failCreates int
	createCalls int
	nextID      int64
	viewKeys    []string
}

func (s *linkRepoStub) Create(ctx context.Context, link *models.Link) error {
	s.createCalls++
	if s.createCalls <= s.failCreates {
		return repository.ErrDuplicate
	}
	if _, exists := s.links[link.ShortKey]; exists {
		return repository.ErrDuplicate
	}
	if s.links == nil {
		s.links = make(map[string]*models.Link)
	}
	s.nextID++
	link.ID = s.nextID
	link.CreatedAt = time.Now().UTC()
	stored := *link
	s.links[link.ShortKey] = &stored
	return nil
}

func (s *linkRepoStub) FindByKey(ctx context.Context, key string) (*models.Link, error) {
	link, ok := s.links[key]
	if !ok || link.Disabled {
		return nil, sql.ErrNoRows
	}
	copied := *link
	return &copied, nil
}

func (s *linkRepoStub) FindByKeyAndUser(ctx context.Context, key string, userID int64) (*models.Link, error) {
	link, ok := s.links[key]
	if !ok || link.Disabled || link.UserID != userID {
		return nil, sql.ErrNoRows
	}
	copied := *link
	return &copied, nil
}

func (s *linkRepoStub) ListByUser(ctx context.Context, userID int64) ([]models.Link, error) {
	result := []models.Link{}
	for _, link := range s.links {
		if link.UserID == userID && !link.Disabled {
			result = append(result, *link)
		}
	}
	return result, nil
}

func (s *linkRepoStub) Disable(ctx context.Context, key string, userID int64) error {
	link, ok := s.links[key]
	if !ok || link.Disabled || link.UserID != userID {
		return sql.ErrNoRows
	}
	link.Disabled = true
	return nil
}

func (s *linkRepoStub) RegisterView(ctx context.Context, key string, ts time.Time) error {
	s.viewKeys = append(s.viewKeys, key)
	if link, ok := s.links[key]; ok {
		link.ViewCount++
		link.LastAccessAt = ts
	}
	return nil
}

type cacheStub struct {
	entries     map[string]string
	ttls        map[string]time.Duration
	invalidated []string
}

func (s *cacheStub) GetRedirect(ctx context.Context, key string) (string, error) {
	if url, ok := s.entries[key]; ok {
		return url, nil
	}
	return "", appErrors.ErrCacheMiss
}

func (s *cacheStub) SetRedirect(ctx context.Context, key, url string, ttl time.Duration) error {
	if s.entries == nil {
		s.entries = make(map[string]string)
		s.ttls = make(map[string]time.Duration)
	}
	s.entries[key] = url
	s.ttls[key] = ttl
	return nil
}

func (s *cacheStub) InvalidateRedirect(ctx context.Context, key string) error {
	delete(s.entries, key)
	s.invalidated = append(s.invalidated, key)
	return nil
}

type enqueuerStub struct {
	jobs []jobs.Job
	err  error
}

func (s *enqueuerStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func newLinkFixture(repo *linkRepoStub, cache *cacheStub, views *enqueuerStub) *LinkService {
	var c redirectCache
	if cache != nil {
		c = cache
	}
	var v viewEnqueuer
	if views != nil {
		v = views
	}
	return NewLinkService(repo, c, v, keygen.New("", 0), nil, nil, nil, LinkConfig{MaxKeyAttempts: 5, RedirectCacheTTL: time.Hour})
}

func TestLinkServiceCreate(t *testing.T) {
	repo := &linkRepoStub{}
	svc := newLinkFixture(repo, nil, nil)

	link, err := svc.Create(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com/page"}, 7)
	require.NoError(t, err)
	assert.Len(t, link.ShortKey, keygen.DefaultLength)
	assert.Equal(t, "https://example.com/page", link.OriginalURL)
	assert.Equal(t, int64(7), link.UserID)
	assert.Equal(t, 1, repo.createCalls)
}

func TestLinkServiceCreateInvalidURL(t *testing.T) {
	svc := newLinkFixture(&linkRepoStub{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateLinkRequest{OriginalURL: "not a url"}, 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLinkServiceCreateRetriesOnCollision(t *testing.T) {
	repo := &linkRepoStub{failCreates: 3}
	svc := newLinkFixture(repo, nil, nil)

	link, err := svc.Create(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"}, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, link.ShortKey)
	assert.Equal(t, 4, repo.createCalls)
}

func TestLinkServiceCreateExhaustsBudget(t *testing.T) {
	repo := &linkRepoStub{failCreates: 5}
	svc := newLinkFixture(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateLinkRequest{OriginalURL: "https://example.com"}, 7)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrKeyGeneration.Code, appErr.Code)
	assert.Equal(t, 500, appErr.Status)
	assert.Equal(t, 5, repo.createCalls)
}

func TestLinkServiceGetScopedToOwner(t *testing.T) {
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7},
	}}
	svc := newLinkFixture(repo, nil, nil)

	link, err := svc.Get(context.Background(), "abc1234", 7)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.OriginalURL)

	_, err = svc.Get(context.Background(), "abc1234", 8)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLinkServiceDisableInvalidatesCache(t *testing.T) {
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7},
	}}
	cache := &cacheStub{entries: map[string]string{"abc1234": "https://example.com"}}
	svc := newLinkFixture(repo, cache, nil)

	require.NoError(t, svc.Disable(context.Background(), "abc1234", 7))
	assert.True(t, repo.links["abc1234"].Disabled)
	assert.Contains(t, cache.invalidated, "abc1234")

	err := svc.Disable(context.Background(), "abc1234", 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLinkServiceResolveWarmsCacheAndEnqueuesView(t *testing.T) {
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7},
	}}
	cache := &cacheStub{}
	views := &enqueuerStub{}
	svc := newLinkFixture(repo, cache, views)

	url, err := svc.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)
	assert.Equal(t, "https://example.com", cache.entries["abc1234"])

	require.Len(t, views.jobs, 1)
	assert.Equal(t, ViewJobType, views.jobs[0].Type)
	assert.Equal(t, "abc1234", views.jobs[0].Payload)
	assert.Empty(t, repo.viewKeys)
}

func TestLinkServiceResolveCacheHitSkipsStore(t *testing.T) {
	repo := &linkRepoStub{}
	cache := &cacheStub{entries: map[string]string{"abc1234": "https://cached.example.com"}}
	svc := newLinkFixture(repo, cache, nil)

	url, err := svc.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, "https://cached.example.com", url)
	// A cache hit still records the view synchronously without a queue.
	assert.Equal(t, []string{"abc1234"}, repo.viewKeys)
}

func TestLinkServiceResolveUnknownKey(t *testing.T) {
	svc := newLinkFixture(&linkRepoStub{}, nil, nil)

	_, err := svc.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLinkServiceResolveExpiredLink(t *testing.T) {
	expired := time.Now().UTC().Add(-time.Hour)
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7, ExpiresAt: &expired},
	}}
	svc := newLinkFixture(repo, nil, nil)

	_, err := svc.Resolve(context.Background(), "abc1234")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLinkServiceResolveCapsCacheTTLByExpiry(t *testing.T) {
	soon := time.Now().UTC().Add(10 * time.Minute)
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7, ExpiresAt: &soon},
	}}
	cache := &cacheStub{}
	svc := newLinkFixture(repo, cache, nil)

	_, err := svc.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.LessOrEqual(t, cache.ttls["abc1234"], 10*time.Minute)
}

func TestLinkServiceResolveFallsBackWhenQueueFull(t *testing.T) {
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7},
	}}
	views := &enqueuerStub{err: jobs.ErrFull}
	svc := newLinkFixture(repo, nil, views)

	_, err := svc.Resolve(context.Background(), "abc1234")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc1234"}, repo.viewKeys)
}

func TestLinkServiceStats(t *testing.T) {
	accessed := time.Now().UTC().Add(-time.Minute)
	repo := &linkRepoStub{links: map[string]*models.Link{
		"abc1234": {ID: 1, ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7, ViewCount: 12, LastAccessAt: accessed},
	}}
	svc := newLinkFixture(repo, nil, nil)

	stats, err := svc.Stats(context.Background(), "abc1234", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.ViewCount)
	assert.Equal(t, accessed, stats.LastAccessAt)
}
