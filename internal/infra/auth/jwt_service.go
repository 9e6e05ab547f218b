package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"praxis/config"
	"praxis/internal/domain/entity"
	"praxis/internal/domain/service"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  string        // Secret key for signing access tokens.
	refreshSecret string        // Secret key for signing refresh tokens.
	issuer        string        // "iss" claim on both token kinds.
	audience      string        // "aud" claim on both token kinds.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}

	return &jwtService{
		accessSecret:  cfg.SecretKey.Access,
		refreshSecret: cfg.SecretKey.Refresh,
		issuer:        cfg.SecretKey.Issuer,
		audience:      cfg.SecretKey.Audience,
		accessTTL:     cfg.Auth.AccessTokenTTL,
		refreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, nil
}

// GenerateTokens creates a new access token and refresh token for a given user.
// The access token carries the email and role for stateless authorization;
// the refresh token carries only the subject.
func (s *jwtService) GenerateTokens(user *entity.User) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessClaims := &service.AccessClaims{
		Email:            user.Email,
		Role:             user.Role,
		RegisteredClaims: s.registeredClaims(user.ID, now, s.accessTTL),
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.accessSecret))
	if err != nil {
		return "", "", errors.Wrap(err, "sign access token")
	}

	refreshClaims := &service.RefreshClaims{
		RegisteredClaims: s.registeredClaims(user.ID, now, s.refreshTTL),
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.refreshSecret))
	if err != nil {
		return "", "", errors.Wrap(err, "sign refresh token")
	}

	return accessToken, refreshToken, nil
}

// ValidateAccessToken checks the validity of an access token string and returns its claims.
func (s *jwtService) ValidateAccessToken(tokenString string) (*service.AccessClaims, error) {
	claims := &service.AccessClaims{}
	if err := s.parseInto(tokenString, s.accessSecret, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// ValidateRefreshToken checks the validity of a refresh token string and
// returns the user ID embedded in its subject.
func (s *jwtService) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	claims := &service.RefreshClaims{}
	if err := s.parseInto(tokenString, s.refreshSecret, claims); err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "parse refresh token subject")
	}

	return userID, nil
}

// HashToken returns the SHA-256 hex digest of a token string.
// Refresh tokens are persisted only as this digest.
func (s *jwtService) HashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))

	return hex.EncodeToString(sum[:])
}

// RefreshTokenDuration returns the configured duration for refresh tokens.
func (s *jwtService) RefreshTokenDuration() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) registeredClaims(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if s.issuer != "" {
		claims.Issuer = s.issuer
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	return claims
}

func (s *jwtService) parseInto(tokenString, secret string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return errors.Wrap(err, "parse token")
	}
	if !token.Valid {
		return jwt.ErrTokenUnverifiable
	}

	return nil
}
