package models

import "github.com/golang-jwt/jwt/v5"

// TokenType tags a JWT as usable for exactly one purpose. Access and refresh
// tokens share the signing mechanism; the tag is the only structural
// difference between them.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access_token"
	TokenTypeRefresh TokenType = "refresh_token"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair returns the issued tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenClaims is the JWT payload shared by access and refresh tokens.
type TokenClaims struct {
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}
