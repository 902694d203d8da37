package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shortly-app/shortly-api/internal/models"
	"github.com/shortly-app/shortly-api/internal/security"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
)

type authUserRepository interface {
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateRefreshToken(ctx context.Context, id int64, token string) error
}

// AuthConfig defines expiry windows for issued token pairs.
type AuthConfig struct {
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// AuthService orchestrates login, token verification and refresh rotation.
type AuthService struct {
	repo      authUserRepository
	codec     *security.TokenCodec
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, codec *security.TokenCodec, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, codec: codec, validator: validate, logger: logger, config: config}
}

// Login verifies credentials and issues a fresh token pair. Unknown login,
// wrong password and disabled account all collapse into the same
// INVALID_CREDENTIALS outcome so the endpoint cannot be used as a login
// oracle.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !security.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	pair, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return pair, nil
}

// Authenticate resolves an access token into the user it certifies. The
// store lookup re-evaluates existence and the disabled flag, so disabling a
// user cuts off access tokens that are still within their validity window.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	return s.resolveUser(ctx, accessToken, models.TokenTypeAccess)
}

// Refresh exchanges a refresh token for a brand-new pair. The presented
// token must exactly equal the one stored on the user record: that equality
// check is what makes refresh tokens revocable, since every login or refresh
// overwrites the stored value and strands older tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	user, err := s.resolveUser(ctx, refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if user.RefreshToken != refreshToken {
		s.logger.Warn("stale refresh token presented", zap.Int64("user_id", user.ID))
		return nil, appErrors.Clone(appErrors.ErrRefreshTokenStale, "")
	}

	pair, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", zap.Int64("user_id", user.ID))
	return pair, nil
}

func (s *AuthService) resolveUser(ctx context.Context, token string, want models.TokenType) (*models.User, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingCredential, "")
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, err
	}

	if claims.TokenType != want {
		return nil, appErrors.Clone(appErrors.ErrTokenTypeMismatch, "")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTokenMalformed.Code, appErrors.ErrTokenMalformed.Status, "token subject is not a user id")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	return user, nil
}

// issueTokens mints an access/refresh pair and persists the refresh token,
// overwriting the previous one. The overwrite is the sole revocation
// mechanism; under concurrent refreshes the last write wins and the loser's
// pair turns stale immediately.
func (s *AuthService) issueTokens(ctx context.Context, userID int64) (*models.TokenPair, error) {
	subject := strconv.FormatInt(userID, 10)

	accessToken, err := s.codec.Encode(models.TokenTypeAccess, subject, s.config.AccessExpiry)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.codec.Encode(models.TokenTypeRefresh, subject, s.config.RefreshExpiry)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRefreshToken(ctx, userID, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
