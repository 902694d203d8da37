package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shortly-app/shortly-api/internal/models"
	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
)

// CodecConfig defines the signing parameters for the token codec.
type CodecConfig struct {
	Secret string
	Issuer string
}

// TokenCodec signs and verifies access and refresh tokens with a shared HS256
// secret. Verification is stateless; only refresh tokens need an additional
// store cross-check, which belongs to the auth service.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec constructs a codec from explicit configuration.
func NewTokenCodec(cfg CodecConfig) *TokenCodec {
	return &TokenCodec{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// Encode builds and signs a token of the given type for the subject. The jti
// claim makes two tokens minted within the same second distinct.
func (c *TokenCodec) Encode(tokenType models.TokenType, subject string, expiresIn time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", appErrors.Wrap(errors.New("empty signing secret"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "token signing misconfigured")
	}

	now := time.Now().UTC()
	claims := &models.TokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}

// Decode verifies the signature and expiry and parses the claims. Callers can
// branch on three distinct failures: ErrTokenExpired (valid signature, past
// expiry), ErrTokenInvalid (bad signature, garbage, unsupported algorithm)
// and ErrTokenMalformed (claims parse but fail shape validation).
func (c *TokenCodec) Decode(token string) (*models.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &models.TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, appErrors.ErrTokenInvalid.Message)
	}

	claims, ok := parsed.Claims.(*models.TokenClaims)
	if !ok || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "invalid token claims")
	}

	if claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "token is missing a subject")
	}
	if claims.TokenType != models.TokenTypeAccess && claims.TokenType != models.TokenTypeRefresh {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "unknown token type")
	}

	return claims, nil
}
