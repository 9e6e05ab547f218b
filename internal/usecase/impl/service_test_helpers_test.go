package impl

import (
	"io"
	"log/slog"
	"time"

	"praxis/config"
	"praxis/internal/domain/entity"
	mockrepo "praxis/internal/mocks/repository"
	mockservice "praxis/internal/mocks/service"
	"praxis/internal/usecase"

	"github.com/google/uuid"
)

// serviceFixture bundles the mocked collaborators shared by the auth and
// account service tests.
type serviceFixture struct {
	userRepo    *mockrepo.UserRepository
	refreshRepo *mockrepo.RefreshTokenRepository
	txManager   *mockrepo.TransactionManager
	hasher      *mockservice.PasswordHasher
	tokens      *mockservice.TokenService
	challenges  *mockservice.ChallengeStore
	mailer      *mockservice.Mailer
	cfg         *config.Config
}

func newServiceFixture() *serviceFixture {
	userRepo := &mockrepo.UserRepository{}
	refreshRepo := &mockrepo.RefreshTokenRepository{}

	cfg := &config.Config{}
	cfg.Auth = &config.AuthConfig{
		MaxFailedLogins:  3,
		OtpLength:        6,
		OtpTTL:           5 * time.Minute,
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  5 * 24 * time.Hour,
		PasswordResetTTL: 30 * time.Minute,
		EmailChangeTTL:   24 * time.Hour,
	}

	return &serviceFixture{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		txManager: &mockrepo.TransactionManager{
			Factory: &mockrepo.RepositoryFactory{
				Users:         userRepo,
				RefreshTokens: refreshRepo,
			},
		},
		hasher:     &mockservice.PasswordHasher{},
		tokens:     &mockservice.TokenService{},
		challenges: &mockservice.ChallengeStore{},
		mailer:     &mockservice.Mailer{},
		cfg:        cfg,
	}
}

func (f *serviceFixture) authService() usecase.AuthUsecase {
	return NewAuthService(AuthServiceParams{
		TxManager:        f.txManager,
		UserRepo:         f.userRepo,
		RefreshTokenRepo: f.refreshRepo,
		Hasher:           f.hasher,
		TokenService:     f.tokens,
		ChallengeStore:   f.challenges,
		Mailer:           f.mailer,
		Config:           f.cfg,
		Logger:           discardLogger(),
	})
}

func (f *serviceFixture) accountService() usecase.AccountUsecase {
	return NewAccountService(AccountServiceParams{
		TxManager:        f.txManager,
		UserRepo:         f.userRepo,
		RefreshTokenRepo: f.refreshRepo,
		Hasher:           f.hasher,
		TokenService:     f.tokens,
		ChallengeStore:   f.challenges,
		Mailer:           f.mailer,
		Config:           f.cfg,
		Logger:           discardLogger(),
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func verifiedUser(role entity.Role) *entity.User {
	return &entity.User{
		ID:              uuid.New(),
		Email:           "user@example.com",
		Name:            "Test User",
		PasswordHash:    "$2a$10$hash",
		Role:            role,
		IsEmailVerified: true,
	}
}
