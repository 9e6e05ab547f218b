// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"log/slog"
	"math/big"
	"time"

	"praxis/config"
	deliverycontext "praxis/internal/delivery/context"
	"praxis/internal/domain/entity"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/repository"
	"praxis/internal/domain/service"
	"praxis/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	challengeStore   service.ChallengeStore
	mailer           service.Mailer
	maxFailedLogins  int
	otpLength        int
	otpTTL           time.Duration
	logger           *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	ChallengeStore   service.ChallengeStore
	Mailer           service.Mailer
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	maxFailedLogins := 0
	otpLength := 6
	otpTTL := 5 * time.Minute
	if params.Config != nil && params.Config.Auth != nil {
		maxFailedLogins = params.Config.Auth.MaxFailedLogins
		if params.Config.Auth.OtpLength > 0 {
			otpLength = params.Config.Auth.OtpLength
		}
		if params.Config.Auth.OtpTTL > 0 {
			otpTTL = params.Config.Auth.OtpTTL
		}
	}

	return &authService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		challengeStore:   params.ChallengeStore,
		mailer:           params.Mailer,
		maxFailedLogins:  maxFailedLogins,
		otpLength:        otpLength,
		otpTTL:           otpTTL,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login verifies credentials for accounts whose role is in allowedRoles.
// Check order matters: lockout fires before the password check so a locked
// account stays locked even with the right password, and the verification and
// role gates only apply to callers who proved the credential.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput, allowedRoles entity.Roles) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Login for unknown email", slog.String("email", input.Email))

			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "login failed")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	if srv.maxFailedLogins > 0 && user.FailedLoginAttempts >= srv.maxFailedLogins {
		srv.log(ctx).Warn("Login on locked account", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrAccountLocked, "login failed")
	}

	// bcrypt check is CPU-bound and constant time with respect to the password.
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		if incErr := srv.userRepo.IncrementFailedLogins(ctx, user.ID); incErr != nil {
			srv.log(ctx).Error("Failed to increment failed logins", slog.Any("userID", user.ID), slog.Any("error", incErr))
		}
		srv.log(ctx).Warn("Login with wrong password", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	if !user.IsEmailVerified {
		srv.log(ctx).Warn("Login on unverified account", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrEmailNotVerified, "login failed")
	}

	if !allowedRoles.Contains(user.Role) {
		srv.log(ctx).Warn("Login with disallowed role", slog.Any("userID", user.ID), slog.Any("role", user.Role))

		return nil, errors.Wrap(domainerrors.ErrRoleNotAllowed, "login failed")
	}

	now := time.Now()
	if err := srv.userRepo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, errors.Wrap(err, "failed to record login success")
	}
	user.FailedLoginAttempts = 0
	user.LastLogin = &now

	if user.TwoFactorEnabled {
		if err := srv.issueOtpChallenge(ctx, user); err != nil {
			return nil, errors.Wrap(err, "failed to issue otp challenge")
		}
		srv.log(ctx).Debug("Login pending second factor", slog.Any("userID", user.ID))

		return &usecase.LoginOutput{User: user, RequiresOtp: true}, nil
	}

	accessToken, refreshToken, err := srv.issueSession(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session")
	}
	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyOtp consumes the pending login code and issues a session.
func (srv *authService) VerifyOtp(ctx context.Context, input usecase.VerifyOtpInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Verifying otp", slog.String("email", input.Email))

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "otp verification failed")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	ch, err := srv.challengeStore.Get(ctx, user.ID, entity.ChallengeOTP)
	if err != nil {
		if errors.Is(err, service.ErrChallengeNotFound) {
			srv.log(ctx).Warn("Otp verification with no live challenge", slog.Any("userID", user.ID))

			return nil, errors.Wrap(domainerrors.ErrOtpInvalid, "otp verification failed")
		}

		return nil, errors.Wrap(err, "failed to load otp challenge")
	}

	if ch.Expired(time.Now()) {
		// The TTL should already have evicted it; treat a straggler as gone.
		if invErr := srv.challengeStore.Invalidate(ctx, user.ID, entity.ChallengeOTP); invErr != nil {
			srv.log(ctx).Error("Failed to invalidate expired otp", slog.Any("userID", user.ID), slog.Any("error", invErr))
		}

		return nil, errors.Wrap(domainerrors.ErrOtpInvalid, "otp verification failed")
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(input.Otp)) != 1 {
		srv.log(ctx).Warn("Otp mismatch", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrOtpInvalid, "otp verification failed")
	}

	// Single use: the code is consumed on success.
	if err := srv.challengeStore.Invalidate(ctx, user.ID, entity.ChallengeOTP); err != nil {
		return nil, errors.Wrap(err, "failed to consume otp challenge")
	}

	now := time.Now()
	if err := srv.userRepo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, errors.Wrap(err, "failed to record login success")
	}
	user.FailedLoginAttempts = 0
	user.LastLogin = &now

	accessToken, refreshToken, err := srv.issueSession(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session")
	}
	srv.log(ctx).Debug("Otp login completed", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates a valid refresh token into a fresh pair. The presented
// token's stored hash must still exist, so a token that was already rotated
// out or revoked cannot be replayed even while its signature is valid.
func (srv *authService) Refresh(ctx context.Context, input usecase.RefreshInput) (*usecase.RefreshOutput, error) {
	srv.log(ctx).Debug("Attempting to refresh session")

	userID, err := srv.tokenService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		srv.log(ctx).Warn("Refresh with invalid token", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh failed")
	}

	var output *usecase.RefreshOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		refreshRepo := repoFactory.RefreshTokenRepo()

		tokenHash := srv.tokenService.HashToken(input.RefreshToken)

		stored, err := refreshRepo.FindRefreshTokenByHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenExpired) {
				return errors.Wrap(domainerrors.ErrRefreshTokenExpired, "refresh failed")
			}
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token not recognized")
			}

			return errors.Wrap(err, "failed to find refresh token")
		}

		if stored.UserID != userID {
			return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token subject mismatch")
		}

		// Rotation: the old token dies inside the same transaction that
		// creates its replacement.
		if err := refreshRepo.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil {
			return errors.Wrap(err, "failed to rotate out refresh token")
		}

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		accessToken, refreshToken, err := srv.tokenService.GenerateTokens(user)
		if err != nil {
			return errors.Wrap(err, "failed to generate tokens")
		}

		if err := srv.storeRefreshToken(ctx, refreshRepo, user, refreshToken); err != nil {
			return err
		}

		output = &usecase.RefreshOutput{
			User:         user,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Debug("Session refreshed", slog.Any("userID", output.User.ID))

	return output, nil
}

// Logout ends the session behind the given refresh token.
func (srv *authService) Logout(ctx context.Context, input usecase.LogoutInput) error {
	srv.log(ctx).Debug("Attempting to log out")

	if input.RefreshToken == "" {
		return nil
	}

	tokenHash := srv.tokenService.HashToken(input.RefreshToken)
	if err := srv.refreshTokenRepo.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil {
		// Unknown tokens are fine: the session is gone either way.
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to delete refresh token")
	}

	// Piggyback expired-row cleanup on logout traffic.
	if err := srv.refreshTokenRepo.DeleteExpiredRefreshTokens(ctx); err != nil {
		srv.log(ctx).Warn("Failed to purge expired refresh tokens", slog.Any("error", err))
	}

	srv.log(ctx).Debug("Successfully logged out")

	return nil
}

// issueOtpChallenge stores a fresh numeric code for the user and emails it.
// Issuing supersedes any previous unconsumed code for the same user.
func (srv *authService) issueOtpChallenge(ctx context.Context, user *entity.User) error {
	code, err := generateNumericCode(srv.otpLength)
	if err != nil {
		return errors.Wrap(err, "failed to generate otp code")
	}

	now := time.Now()
	ch := &entity.Challenge{
		UserID:    user.ID,
		Purpose:   entity.ChallengeOTP,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(srv.otpTTL),
	}
	if err := srv.challengeStore.Issue(ctx, ch); err != nil {
		return errors.Wrap(err, "failed to store otp challenge")
	}

	if err := srv.mailer.SendOtpCode(ctx, user.Email, code); err != nil {
		return errors.Wrap(err, "failed to email otp code")
	}

	return nil
}

// issueSession generates a token pair and persists the refresh token's hash.
func (srv *authService) issueSession(ctx context.Context, user *entity.User) (string, string, error) {
	accessToken, refreshToken, err := srv.tokenService.GenerateTokens(user)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate tokens")
	}

	if err := srv.storeRefreshToken(ctx, srv.refreshTokenRepo, user, refreshToken); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (srv *authService) storeRefreshToken(ctx context.Context, refreshRepo repository.RefreshTokenRepository, user *entity.User, refreshToken string) error {
	newToken := &entity.RefreshToken{
		UserID:    user.ID,
		TokenHash: srv.tokenService.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(srv.tokenService.RefreshTokenDuration()),
	}
	if err := refreshRepo.CreateRefreshToken(ctx, newToken); err != nil {
		return errors.Wrap(err, "failed to store refresh token")
	}

	return nil
}

// generateNumericCode draws each digit from crypto/rand.
func generateNumericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", errors.Wrap(err, "failed to read random digit")
		}
		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}
