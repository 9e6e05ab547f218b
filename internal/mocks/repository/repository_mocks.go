// Package repository provides hand-written testify mocks for the domain
// repository interfaces.
package repository

import (
	"context"
	"time"

	"praxis/internal/domain/entity"
	domainrepo "praxis/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// UserRepository is a mock implementation of repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) IncrementFailedLogins(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

// RefreshTokenRepository is a mock implementation of repository.RefreshTokenRepository.
type RefreshTokenRepository struct {
	mock.Mock
}

func (m *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *RefreshTokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if token, ok := args.Get(0).(*entity.RefreshToken); ok {
		return token, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *RefreshTokenRepository) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *RefreshTokenRepository) DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RefreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// TransactionManager is a mock implementation of repository.TransactionManager.
// Execute runs the callback against the configured Factory so transactional
// code paths behave like the real thing.
type TransactionManager struct {
	mock.Mock

	Factory *RepositoryFactory
}

func (m *TransactionManager) Execute(ctx context.Context, fn func(domainrepo.RepositoryFactory) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}

	return fn(m.Factory)
}

// RepositoryFactory is a mock implementation of repository.RepositoryFactory.
type RepositoryFactory struct {
	Users         *UserRepository
	RefreshTokens *RefreshTokenRepository
}

func (f *RepositoryFactory) UserRepo() domainrepo.UserRepository {
	return f.Users
}

func (f *RepositoryFactory) RefreshTokenRepo() domainrepo.RefreshTokenRepository {
	return f.RefreshTokens
}
