package impl

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"time"

	"praxis/config"
	deliverycontext "praxis/internal/delivery/context"
	"praxis/internal/domain/entity"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/repository"
	"praxis/internal/domain/service"
	"praxis/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	challengeStore   service.ChallengeStore
	mailer           service.Mailer
	resetTTL         time.Duration
	emailChangeTTL   time.Duration
	logger           *slog.Logger
}

// AccountServiceParams holds dependencies for accountService, injected by Fx.
type AccountServiceParams struct {
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

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	resetTTL := 30 * time.Minute
	emailChangeTTL := 24 * time.Hour
	if params.Config != nil && params.Config.Auth != nil {
		if params.Config.Auth.PasswordResetTTL > 0 {
			resetTTL = params.Config.Auth.PasswordResetTTL
		}
		if params.Config.Auth.EmailChangeTTL > 0 {
			emailChangeTTL = params.Config.Auth.EmailChangeTTL
		}
	}

	return &accountService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		challengeStore:   params.ChallengeStore,
		mailer:           params.Mailer,
		resetTTL:         resetTTL,
		emailChangeTTL:   emailChangeTTL,
		logger:           params.Logger,
	}
}

func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RegisterCustomer creates an unverified customer account and emails a
// verification token to its address.
func (srv *accountService) RegisterCustomer(ctx context.Context, input usecase.RegisterCustomerInput) (*usecase.RegisterOutput, error) {
	srv.log(ctx).Info("Starting customer registration", slog.String("email", input.Email))

	// Hash enforces the strength policy before touching the database.
	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Warn("Password rejected during registration", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	newUser := &entity.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         entity.RoleUser,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		if _, err := userRepo.FindByEmail(ctx, input.Email); err == nil {
			return errors.Wrap(domainerrors.ErrUserAlreadyExists, "registration failed")
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check existing email")
		}

		return userRepo.Create(ctx, newUser)
	})
	if err != nil {
		srv.log(ctx).Warn("Customer registration failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	// The signup verification reuses the email-change mechanics with the
	// pending address equal to the account's own address.
	if err := srv.issueEmailToken(ctx, newUser.ID, newUser.Email, newUser.Email); err != nil {
		srv.log(ctx).Error("Failed to send verification email", slog.Any("userID", newUser.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to send verification email")
	}

	srv.log(ctx).Debug("Customer registered", slog.Any("userID", newUser.ID))

	return &usecase.RegisterOutput{User: newUser}, nil
}

// VerifyEmail consumes the signup verification token and marks the account's
// email as verified.
func (srv *accountService) VerifyEmail(ctx context.Context, input usecase.VerifyEmailInput) error {
	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(domainerrors.ErrChallengeInvalid, "email verification failed")
		}

		return errors.Wrap(err, "failed to find user by email")
	}

	ch, err := srv.consumeEmailToken(ctx, user.ID, input.Token)
	if err != nil {
		return err
	}
	if ch.Email != user.Email {
		return errors.Wrap(domainerrors.ErrChallengeInvalid, "email verification failed")
	}

	user.IsEmailVerified = true
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return errors.Wrap(err, "failed to mark email verified")
	}

	srv.log(ctx).Info("Email verified", slog.Any("userID", user.ID))

	return nil
}

// RequestPasswordReset emails a reset token. Unknown emails return nil so the
// endpoint does not reveal which addresses exist.
func (srv *accountService) RequestPasswordReset(ctx context.Context, input usecase.RequestPasswordResetInput) error {
	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Debug("Password reset for unknown email", slog.String("email", input.Email))

			return nil
		}

		return errors.Wrap(err, "failed to find user by email")
	}

	token, err := generateOpaqueToken()
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}

	now := time.Now()
	ch := &entity.Challenge{
		UserID:    user.ID,
		Purpose:   entity.ChallengePasswordReset,
		Code:      token,
		IssuedAt:  now,
		ExpiresAt: now.Add(srv.resetTTL),
	}
	if err := srv.challengeStore.Issue(ctx, ch); err != nil {
		return errors.Wrap(err, "failed to store reset challenge")
	}

	if err := srv.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return errors.Wrap(err, "failed to email reset token")
	}

	srv.log(ctx).Info("Password reset requested", slog.Any("userID", user.ID))

	return nil
}

// UpdatePassword consumes a reset token, re-hashes the password, and revokes
// every refresh token the user holds.
func (srv *accountService) UpdatePassword(ctx context.Context, input usecase.UpdatePasswordInput) error {
	user, err := srv.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same failure as a bad token so the endpoint does not confirm
			// which user IDs exist.
			return errors.Wrap(domainerrors.ErrChallengeInvalid, "password update failed")
		}

		return errors.Wrap(err, "failed to find user")
	}

	ch, err := srv.challengeStore.Get(ctx, user.ID, entity.ChallengePasswordReset)
	if err != nil {
		if errors.Is(err, service.ErrChallengeNotFound) {
			return errors.Wrap(domainerrors.ErrChallengeInvalid, "password update failed")
		}

		return errors.Wrap(err, "failed to load reset challenge")
	}
	if ch.Expired(time.Now()) || subtle.ConstantTimeCompare([]byte(ch.Code), []byte(input.Token)) != 1 {
		return errors.Wrap(domainerrors.ErrChallengeInvalid, "password update failed")
	}

	if err := srv.applyNewPassword(ctx, user, input.NewPassword); err != nil {
		return err
	}

	if err := srv.challengeStore.Invalidate(ctx, user.ID, entity.ChallengePasswordReset); err != nil {
		srv.log(ctx).Error("Failed to consume reset challenge", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	srv.log(ctx).Info("Password updated via reset", slog.Any("userID", user.ID))

	return nil
}

// ChangePassword verifies the current password before setting a new one.
func (srv *accountService) ChangePassword(ctx context.Context, input usecase.ChangePasswordInput) error {
	user, err := srv.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(domainerrors.ErrUserNotFound, "password change failed")
		}

		return errors.Wrap(err, "failed to find user")
	}

	if !srv.hasher.Check(input.OldPassword, user.PasswordHash) {
		srv.log(ctx).Warn("Password change with wrong current password", slog.Any("userID", user.ID))

		return errors.Wrap(domainerrors.ErrInvalidCredentials, "password change failed")
	}

	if err := srv.applyNewPassword(ctx, user, input.NewPassword); err != nil {
		return err
	}

	srv.log(ctx).Info("Password changed", slog.Any("userID", user.ID))

	return nil
}

// SetTwoFactor enables or disables the OTP second factor for a user.
func (srv *accountService) SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "two-factor update failed")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	if user.TwoFactorEnabled == enabled {
		return user, nil
	}

	user.TwoFactorEnabled = enabled
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to update two-factor flag")
	}

	// Disabling the factor kills any code still in flight.
	if !enabled {
		if err := srv.challengeStore.Invalidate(ctx, user.ID, entity.ChallengeOTP); err != nil {
			srv.log(ctx).Error("Failed to invalidate pending otp", slog.Any("userID", user.ID), slog.Any("error", err))
		}
	}

	srv.log(ctx).Info("Two-factor setting changed", slog.Any("userID", user.ID), slog.Bool("enabled", enabled))

	return user, nil
}

// RequestEmailChange stores the pending address and emails a confirmation
// token to it.
func (srv *accountService) RequestEmailChange(ctx context.Context, input usecase.RequestEmailChangeInput) error {
	user, err := srv.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(domainerrors.ErrUserNotFound, "email change failed")
		}

		return errors.Wrap(err, "failed to find user")
	}

	if _, err := srv.userRepo.FindByEmail(ctx, input.NewEmail); err == nil {
		return errors.Wrap(domainerrors.ErrUserAlreadyExists, "email change failed")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return errors.Wrap(err, "failed to check new email")
	}

	if err := srv.issueEmailToken(ctx, user.ID, input.NewEmail, input.NewEmail); err != nil {
		return errors.Wrap(err, "failed to issue email change token")
	}

	srv.log(ctx).Info("Email change requested", slog.Any("userID", user.ID))

	return nil
}

// ConfirmEmailChange applies the pending address, marks it verified, and
// issues a fresh session for the new identity.
func (srv *accountService) ConfirmEmailChange(ctx context.Context, input usecase.ConfirmEmailChangeInput) (*usecase.LoginOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "email change failed")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	ch, err := srv.consumeEmailToken(ctx, user.ID, input.Token)
	if err != nil {
		return nil, err
	}

	user.Email = ch.Email
	user.IsEmailVerified = true
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to apply email change")
	}

	// The old access token still carries the old email, so hand the client a
	// fresh session for the new identity.
	accessToken, refreshToken, err := srv.tokenService.GenerateTokens(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate tokens")
	}
	newToken := &entity.RefreshToken{
		UserID:    user.ID,
		TokenHash: srv.tokenService.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(srv.tokenService.RefreshTokenDuration()),
	}
	if err := srv.refreshTokenRepo.CreateRefreshToken(ctx, newToken); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	srv.log(ctx).Info("Email change confirmed", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// applyNewPassword validates, hashes, and stores a new password, revoking all
// refresh tokens in the same transaction.
func (srv *accountService) applyNewPassword(ctx context.Context, user *entity.User, newPassword string) error {
	hashedPassword, err := srv.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		refreshRepo := repoFactory.RefreshTokenRepo()

		user.PasswordHash = hashedPassword
		if err := userRepo.Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to store new password")
		}

		// Every existing session dies with the old password.
		if err := refreshRepo.DeleteRefreshTokensByUserID(ctx, user.ID); err != nil {
			return errors.Wrap(err, "failed to revoke refresh tokens")
		}

		return nil
	})
}

// issueEmailToken stores an email-change challenge and mails the token to the
// pending address.
func (srv *accountService) issueEmailToken(ctx context.Context, userID uuid.UUID, pendingEmail, to string) error {
	token, err := generateOpaqueToken()
	if err != nil {
		return errors.Wrap(err, "failed to generate email token")
	}

	now := time.Now()
	ch := &entity.Challenge{
		UserID:    userID,
		Purpose:   entity.ChallengeEmailChange,
		Code:      token,
		Email:     pendingEmail,
		IssuedAt:  now,
		ExpiresAt: now.Add(srv.emailChangeTTL),
	}
	if err := srv.challengeStore.Issue(ctx, ch); err != nil {
		return errors.Wrap(err, "failed to store email challenge")
	}

	return srv.mailer.SendEmailChangeConfirmation(ctx, to, token)
}

// consumeEmailToken validates and single-uses an email-change challenge.
func (srv *accountService) consumeEmailToken(ctx context.Context, userID uuid.UUID, token string) (*entity.Challenge, error) {
	ch, err := srv.challengeStore.Get(ctx, userID, entity.ChallengeEmailChange)
	if err != nil {
		if errors.Is(err, service.ErrChallengeNotFound) {
			return nil, errors.Wrap(domainerrors.ErrChallengeInvalid, "email token rejected")
		}

		return nil, errors.Wrap(err, "failed to load email challenge")
	}

	if ch.Expired(time.Now()) || subtle.ConstantTimeCompare([]byte(ch.Code), []byte(token)) != 1 {
		return nil, errors.Wrap(domainerrors.ErrChallengeInvalid, "email token rejected")
	}

	if err := srv.challengeStore.Invalidate(ctx, userID, entity.ChallengeEmailChange); err != nil {
		return nil, errors.Wrap(err, "failed to consume email challenge")
	}

	return ch, nil
}

// generateOpaqueToken returns a 32-byte random token in hex.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return hex.EncodeToString(buf), nil
}
