// Package service provides hand-written testify mocks for the domain service
// interfaces.
package service

import (
	"context"
	"time"

	"praxis/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	domainservice "praxis/internal/domain/service"
)

// PasswordHasher is a mock implementation of service.PasswordHasher.
type PasswordHasher struct {
	mock.Mock
}

func (m *PasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)

	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Check(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

func (m *PasswordHasher) ValidatePasswordStrength(password string) error {
	return m.Called(password).Error(0)
}

// TokenService is a mock implementation of service.TokenService.
type TokenService struct {
	mock.Mock
}

func (m *TokenService) GenerateTokens(user *entity.User) (string, string, error) {
	args := m.Called(user)

	return args.String(0), args.String(1), args.Error(2)
}

func (m *TokenService) ValidateAccessToken(tokenString string) (*domainservice.AccessClaims, error) {
	args := m.Called(tokenString)
	if claims, ok := args.Get(0).(*domainservice.AccessClaims); ok {
		return claims, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *TokenService) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	args := m.Called(tokenString)
	if id, ok := args.Get(0).(uuid.UUID); ok {
		return id, args.Error(1)
	}

	return uuid.Nil, args.Error(1)
}

func (m *TokenService) HashToken(tokenString string) string {
	return m.Called(tokenString).String(0)
}

func (m *TokenService) RefreshTokenDuration() time.Duration {
	args := m.Called()
	if d, ok := args.Get(0).(time.Duration); ok {
		return d
	}

	return 0
}

// ChallengeStore is a mock implementation of service.ChallengeStore.
type ChallengeStore struct {
	mock.Mock
}

func (m *ChallengeStore) Issue(ctx context.Context, challenge *entity.Challenge) error {
	return m.Called(ctx, challenge).Error(0)
}

func (m *ChallengeStore) Get(ctx context.Context, userID uuid.UUID, purpose entity.ChallengePurpose) (*entity.Challenge, error) {
	args := m.Called(ctx, userID, purpose)
	if ch, ok := args.Get(0).(*entity.Challenge); ok {
		return ch, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *ChallengeStore) Invalidate(ctx context.Context, userID uuid.UUID, purpose entity.ChallengePurpose) error {
	return m.Called(ctx, userID, purpose).Error(0)
}

// Mailer is a mock implementation of service.Mailer.
type Mailer struct {
	mock.Mock
}

func (m *Mailer) SendOtpCode(ctx context.Context, to, code string) error {
	return m.Called(ctx, to, code).Error(0)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}

func (m *Mailer) SendEmailChangeConfirmation(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}
