package service

import (
	"time"

	"praxis/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims defines the custom claims carried by access tokens.
// Email and role are embedded so authorization decisions stay stateless.
type AccessClaims struct {
	Email string      `json:"email"`
	Role  entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims defines the claims carried by refresh tokens.
// Only the subject is embedded; everything else is looked up on refresh.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenService defines the interface for generating and validating JWTs.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// GenerateTokens creates a new access token and refresh token for a given user.
	GenerateTokens(user *entity.User) (accessToken string, refreshToken string, err error)

	// ValidateAccessToken checks the validity of an access token string and returns its claims.
	ValidateAccessToken(tokenString string) (*AccessClaims, error)

	// ValidateRefreshToken checks the validity of a refresh token string and
	// returns the user ID embedded in its subject.
	ValidateRefreshToken(tokenString string) (uuid.UUID, error)

	// HashToken returns the SHA-256 hex digest used to store and look up
	// refresh tokens without persisting the raw token.
	HashToken(tokenString string) string

	// RefreshTokenDuration returns the configured lifetime for refresh tokens.
	RefreshTokenDuration() time.Duration
}
