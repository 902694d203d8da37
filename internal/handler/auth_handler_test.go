package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortly-app/shortly-api/internal/models"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

type fakeAuthSrv struct {
	pair        *models.TokenPair
	err         error
	lastRefresh string
}

func (f *fakeAuthSrv) Login(context.Context, models.LoginRequest) (*models.TokenPair, error) {
	return f.pair, f.err
}

func (f *fakeAuthSrv) Refresh(_ context.Context, refreshToken string) (*models.TokenPair, error) {
	f.lastRefresh = refreshToken
	return f.pair, f.err
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthSrv{pair: &models.TokenPair{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/token", `{"login":"alice","password":"secret"}`)

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "acc", envelope.Data["access_token"])
	assert.Equal(t, "bearer", envelope.Data["token_type"])
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/token", `{"login":`)

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthSrv{err: appErrors.ErrInvalidCredentials})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/token", `{"login":"alice","password":"wrong"}`)

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error["code"])
}

func TestAuthHandlerRefreshPassesQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeAuthSrv{pair: &models.TokenPair{AccessToken: "acc", RefreshToken: "ref2", TokenType: "bearer"}}
	handler := NewAuthHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/refresh-token?refresh_token=old-token", nil)

	handler.Refresh(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old-token", service.lastRefresh)
}

func TestAuthHandlerRefreshStaleToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthSrv{err: appErrors.ErrRefreshTokenStale})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/refresh-token?refresh_token=stale", nil)

	handler.Refresh(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "REFRESH_TOKEN_STALE", envelope.Error["code"])
}
