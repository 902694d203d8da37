package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortly-app/shortly-api/internal/middleware"
	"github.com/shortly-app/shortly-api/internal/models"
	"github.com/shortly-app/shortly-api/internal/service"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
)

type fakeLinkSrv struct {
	link    *models.Link
	links   []models.Link
	stats   *models.LinkStats
	err     error
	lastKey string
}

func (f *fakeLinkSrv) Create(context.Context, service.CreateLinkRequest, int64) (*models.Link, error) {
	return f.link, f.err
}

func (f *fakeLinkSrv) List(context.Context, int64) ([]models.Link, error) {
	return f.links, f.err
}

func (f *fakeLinkSrv) Get(_ context.Context, key string, _ int64) (*models.Link, error) {
	f.lastKey = key
	return f.link, f.err
}

func (f *fakeLinkSrv) Stats(_ context.Context, key string, _ int64) (*models.LinkStats, error) {
	f.lastKey = key
	return f.stats, f.err
}

func (f *fakeLinkSrv) Disable(_ context.Context, key string, _ int64) error {
	f.lastKey = key
	return f.err
}

func authedContext(t *testing.T, rec *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.User{ID: 7, Login: "alice"})
	return c
}

func TestLinkHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(&fakeLinkSrv{link: &models.Link{ShortKey: "abc1234", OriginalURL: "https://example.com", UserID: 7}}, "/api/v1")

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, jsonRequest(http.MethodPost, "/links", `{"original_url":"https://example.com"}`))

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/links/abc1234", rec.Header().Get("Location"))
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "abc1234", envelope.Data["short_key"])
}

func TestLinkHandlerCreateWithoutUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(&fakeLinkSrv{}, "/api/v1")

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/links", `{"original_url":"https://example.com"}`)

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLinkHandlerCreateKeyExhaustion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(&fakeLinkSrv{err: appErrors.ErrKeyGeneration}, "/api/v1")

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, jsonRequest(http.MethodPost, "/links", `{"original_url":"https://example.com"}`))

	handler.Create(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "KEY_GENERATION_FAILED", envelope.Error["code"])
}

func TestLinkHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(&fakeLinkSrv{links: []models.Link{{ShortKey: "abc1234"}, {ShortKey: "def5678"}}}, "/api/v1")

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, httptest.NewRequest(http.MethodGet, "/links", nil))

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "abc1234")
	assert.Contains(t, rec.Body.String(), "def5678")
}

func TestLinkHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLinkSrv{err: appErrors.ErrNotFound}
	handler := NewLinkHandler(service, "/api/v1")

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, httptest.NewRequest(http.MethodGet, "/links/missing", nil))
	c.Params = gin.Params{{Key: "key", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "missing", service.lastKey)
}

func TestLinkHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLinkHandler(&fakeLinkSrv{stats: &models.LinkStats{ShortKey: "abc1234", ViewCount: 12}}, "/api/v1")

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, httptest.NewRequest(http.MethodGet, "/links/abc1234/stats", nil))
	c.Params = gin.Params{{Key: "key", Value: "abc1234"}}

	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(12), envelope.Data["view_count"])
}

func TestLinkHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLinkSrv{}
	handler := NewLinkHandler(service, "/api/v1")

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, httptest.NewRequest(http.MethodDelete, "/links/abc1234", nil))
	c.Params = gin.Params{{Key: "key", Value: "abc1234"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc1234", service.lastKey)
}
