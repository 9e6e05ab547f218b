package impl

import (
	"context"
	"testing"
	"time"

	"praxis/internal/domain/entity"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/repository"
	"praxis/internal/domain/service"
	"praxis/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var customerRoles = entity.Roles{entity.RoleUser, entity.RolePhysiotherapist}

func TestLogin_Success(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "correct-password", user.PasswordHash).Return(true)
	f.userRepo.On("RecordLoginSuccess", mock.Anything, user.ID, mock.Anything).Return(nil)
	f.tokens.On("GenerateTokens", user).Return("access-token", "refresh-token", nil)
	f.tokens.On("HashToken", "refresh-token").Return("refresh-hash")
	f.tokens.On("RefreshTokenDuration").Return(5 * 24 * time.Hour)
	f.refreshRepo.On("CreateRefreshToken", mock.Anything, mock.MatchedBy(func(tok *entity.RefreshToken) bool {
		return tok.UserID == user.ID && tok.TokenHash == "refresh-hash"
	})).Return(nil)

	out, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, customerRoles)

	require.NoError(t, err)
	assert.Equal(t, "access-token", out.AccessToken)
	assert.Equal(t, "refresh-token", out.RefreshToken)
	assert.False(t, out.RequiresOtp)
	assert.NotNil(t, out.User.LastLogin)
	f.userRepo.AssertExpectations(t)
	f.refreshRepo.AssertExpectations(t)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newServiceFixture()
	f.userRepo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever",
	}, customerRoles)

	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound))
	f.hasher.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "wrong", user.PasswordHash).Return(false)
	f.userRepo.On("IncrementFailedLogins", mock.Anything, user.ID).Return(nil)

	_, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "wrong",
	}, customerRoles)

	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	f.userRepo.AssertCalled(t, "IncrementFailedLogins", mock.Anything, user.ID)
	f.tokens.AssertNotCalled(t, "GenerateTokens", mock.Anything)
}

func TestLogin_LockedAccount(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)
	user.FailedLoginAttempts = 3 // at the configured threshold

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, customerRoles)

	assert.True(t, errors.Is(err, domainerrors.ErrAccountLocked))
	// The lock check fires before the password is ever examined.
	f.hasher.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestLogin_LockoutDisabled(t *testing.T) {
	f := newServiceFixture()
	f.cfg.Auth.MaxFailedLogins = 0
	user := verifiedUser(entity.RoleUser)
	user.FailedLoginAttempts = 99

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "correct-password", user.PasswordHash).Return(true)
	f.userRepo.On("RecordLoginSuccess", mock.Anything, user.ID, mock.Anything).Return(nil)
	f.tokens.On("GenerateTokens", user).Return("access-token", "refresh-token", nil)
	f.tokens.On("HashToken", "refresh-token").Return("refresh-hash")
	f.tokens.On("RefreshTokenDuration").Return(5 * 24 * time.Hour)
	f.refreshRepo.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	_, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, customerRoles)

	assert.NoError(t, err)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)
	user.IsEmailVerified = false

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "correct-password", user.PasswordHash).Return(true)

	_, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, customerRoles)

	assert.True(t, errors.Is(err, domainerrors.ErrEmailNotVerified))
	f.tokens.AssertNotCalled(t, "GenerateTokens", mock.Anything)
}

func TestLogin_RoleNotAllowed(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleAdmin)

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "correct-password", user.PasswordHash).Return(true)

	// Admins cannot come through the customer login.
	_, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, customerRoles)

	assert.True(t, errors.Is(err, domainerrors.ErrRoleNotAllowed))
}

func TestLogin_AdminWhitelist(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleAdmin)

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "correct-password", user.PasswordHash).Return(true)
	f.userRepo.On("RecordLoginSuccess", mock.Anything, user.ID, mock.Anything).Return(nil)
	f.tokens.On("GenerateTokens", user).Return("access-token", "refresh-token", nil)
	f.tokens.On("HashToken", "refresh-token").Return("refresh-hash")
	f.tokens.On("RefreshTokenDuration").Return(5 * 24 * time.Hour)
	f.refreshRepo.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	out, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, entity.Roles{entity.RoleAdmin})

	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, out.User.Role)
}

func TestLogin_TwoFactorBranch(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RolePhysiotherapist)
	user.TwoFactorEnabled = true

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.hasher.On("Check", "correct-password", user.PasswordHash).Return(true)
	f.userRepo.On("RecordLoginSuccess", mock.Anything, user.ID, mock.Anything).Return(nil)
	f.challenges.On("Issue", mock.Anything, mock.MatchedBy(func(ch *entity.Challenge) bool {
		return ch.UserID == user.ID && ch.Purpose == entity.ChallengeOTP && len(ch.Code) == 6
	})).Return(nil)
	f.mailer.On("SendOtpCode", mock.Anything, user.Email, mock.Anything).Return(nil)

	out, err := f.authService().Login(context.Background(), usecase.LoginInput{
		Email:    user.Email,
		Password: "correct-password",
	}, customerRoles)

	require.NoError(t, err)
	assert.True(t, out.RequiresOtp)
	// No tokens cross the wire until the second factor clears.
	assert.Empty(t, out.AccessToken)
	assert.Empty(t, out.RefreshToken)
	f.tokens.AssertNotCalled(t, "GenerateTokens", mock.Anything)
	f.challenges.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
}

func TestVerifyOtp_Success(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)
	user.TwoFactorEnabled = true

	challenge := &entity.Challenge{
		UserID:    user.ID,
		Purpose:   entity.ChallengeOTP,
		Code:      "123456",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.challenges.On("Get", mock.Anything, user.ID, entity.ChallengeOTP).Return(challenge, nil)
	f.challenges.On("Invalidate", mock.Anything, user.ID, entity.ChallengeOTP).Return(nil)
	f.userRepo.On("RecordLoginSuccess", mock.Anything, user.ID, mock.Anything).Return(nil)
	f.tokens.On("GenerateTokens", user).Return("access-token", "refresh-token", nil)
	f.tokens.On("HashToken", "refresh-token").Return("refresh-hash")
	f.tokens.On("RefreshTokenDuration").Return(5 * 24 * time.Hour)
	f.refreshRepo.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	out, err := f.authService().VerifyOtp(context.Background(), usecase.VerifyOtpInput{
		Email: user.Email,
		Otp:   "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "access-token", out.AccessToken)
	f.challenges.AssertCalled(t, "Invalidate", mock.Anything, user.ID, entity.ChallengeOTP)
}

func TestVerifyOtp_WrongCode(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)

	challenge := &entity.Challenge{
		UserID:    user.ID,
		Purpose:   entity.ChallengeOTP,
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.challenges.On("Get", mock.Anything, user.ID, entity.ChallengeOTP).Return(challenge, nil)

	_, err := f.authService().VerifyOtp(context.Background(), usecase.VerifyOtpInput{
		Email: user.Email,
		Otp:   "654321",
	})

	assert.True(t, errors.Is(err, domainerrors.ErrOtpInvalid))
	// A mismatch does not consume the challenge; the TTL bounds retries.
	f.challenges.AssertNotCalled(t, "Invalidate", mock.Anything, user.ID, entity.ChallengeOTP)
}

func TestVerifyOtp_Expired(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)

	challenge := &entity.Challenge{
		UserID:    user.ID,
		Purpose:   entity.ChallengeOTP,
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.challenges.On("Get", mock.Anything, user.ID, entity.ChallengeOTP).Return(challenge, nil)
	f.challenges.On("Invalidate", mock.Anything, user.ID, entity.ChallengeOTP).Return(nil)

	_, err := f.authService().VerifyOtp(context.Background(), usecase.VerifyOtpInput{
		Email: user.Email,
		Otp:   "123456",
	})

	assert.True(t, errors.Is(err, domainerrors.ErrOtpInvalid))
	f.tokens.AssertNotCalled(t, "GenerateTokens", mock.Anything)
}

func TestVerifyOtp_NoChallenge(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)

	f.userRepo.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	f.challenges.On("Get", mock.Anything, user.ID, entity.ChallengeOTP).Return(nil, service.ErrChallengeNotFound)

	_, err := f.authService().VerifyOtp(context.Background(), usecase.VerifyOtpInput{
		Email: user.Email,
		Otp:   "123456",
	})

	assert.True(t, errors.Is(err, domainerrors.ErrOtpInvalid))
}

func TestRefresh_RotatesTokenPair(t *testing.T) {
	f := newServiceFixture()
	user := verifiedUser(entity.RoleUser)

	stored := &entity.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: "old-hash",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	f.tokens.On("ValidateRefreshToken", "old-refresh").Return(user.ID, nil)
	f.txManager.On("Execute", mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("HashToken", "old-refresh").Return("old-hash")
	f.refreshRepo.On("FindRefreshTokenByHash", mock.Anything, "old-hash").Return(stored, nil)
	f.refreshRepo.On("DeleteRefreshTokenByHash", mock.Anything, "old-hash").Return(nil)
	f.userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.tokens.On("GenerateTokens", user).Return("new-access", "new-refresh", nil)
	f.tokens.On("HashToken", "new-refresh").Return("new-hash")
	f.tokens.On("RefreshTokenDuration").Return(5 * 24 * time.Hour)
	f.refreshRepo.On("CreateRefreshToken", mock.Anything, mock.MatchedBy(func(tok *entity.RefreshToken) bool {
		return tok.TokenHash == "new-hash" && tok.UserID == user.ID
	})).Return(nil)

	out, err := f.authService().Refresh(context.Background(), usecase.RefreshInput{RefreshToken: "old-refresh"})

	require.NoError(t, err)
	assert.Equal(t, "new-access", out.AccessToken)
	assert.Equal(t, "new-refresh", out.RefreshToken)
	assert.Equal(t, user.ID, out.User.ID)
	f.refreshRepo.AssertCalled(t, "DeleteRefreshTokenByHash", mock.Anything, "old-hash")
}

func TestRefresh_RejectsInvalidSignature(t *testing.T) {
	f := newServiceFixture()
	f.tokens.On("ValidateRefreshToken", "tampered").Return(uuid.Nil, errors.New("signature is invalid"))

	_, err := f.authService().Refresh(context.Background(), usecase.RefreshInput{RefreshToken: "tampered"})

	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenInvalid))
}

func TestRefresh_RejectsRotatedOutToken(t *testing.T) {
	f := newServiceFixture()
	userID := uuid.New()

	f.tokens.On("ValidateRefreshToken", "replayed").Return(userID, nil)
	f.txManager.On("Execute", mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("HashToken", "replayed").Return("gone-hash")
	f.refreshRepo.On("FindRefreshTokenByHash", mock.Anything, "gone-hash").Return(nil, repository.ErrRefreshTokenNotFound)

	// The signature is still valid, but the stored hash was deleted by a
	// previous rotation: the replay must fail.
	_, err := f.authService().Refresh(context.Background(), usecase.RefreshInput{RefreshToken: "replayed"})

	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenInvalid))
}

func TestRefresh_RejectsExpiredStoredToken(t *testing.T) {
	f := newServiceFixture()
	userID := uuid.New()

	f.tokens.On("ValidateRefreshToken", "stale").Return(userID, nil)
	f.txManager.On("Execute", mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("HashToken", "stale").Return("stale-hash")
	f.refreshRepo.On("FindRefreshTokenByHash", mock.Anything, "stale-hash").Return(nil, repository.ErrRefreshTokenExpired)

	_, err := f.authService().Refresh(context.Background(), usecase.RefreshInput{RefreshToken: "stale"})

	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenExpired))
}

func TestRefresh_RejectsSubjectMismatch(t *testing.T) {
	f := newServiceFixture()
	stored := &entity.RefreshToken{
		UserID:    uuid.New(),
		TokenHash: "stolen-hash",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	f.tokens.On("ValidateRefreshToken", "stolen").Return(uuid.New(), nil)
	f.txManager.On("Execute", mock.Anything, mock.Anything).Return(nil)
	f.tokens.On("HashToken", "stolen").Return("stolen-hash")
	f.refreshRepo.On("FindRefreshTokenByHash", mock.Anything, "stolen-hash").Return(stored, nil)

	_, err := f.authService().Refresh(context.Background(), usecase.RefreshInput{RefreshToken: "stolen"})

	assert.True(t, errors.Is(err, domainerrors.ErrRefreshTokenInvalid))
	f.refreshRepo.AssertNotCalled(t, "DeleteRefreshTokenByHash", mock.Anything, "stolen-hash")
}

func TestLogout_DeletesToken(t *testing.T) {
	f := newServiceFixture()

	f.tokens.On("HashToken", "refresh-token").Return("refresh-hash")
	f.refreshRepo.On("DeleteRefreshTokenByHash", mock.Anything, "refresh-hash").Return(nil)
	f.refreshRepo.On("DeleteExpiredRefreshTokens", mock.Anything).Return(nil)

	err := f.authService().Logout(context.Background(), usecase.LogoutInput{RefreshToken: "refresh-token"})

	assert.NoError(t, err)
	f.refreshRepo.AssertCalled(t, "DeleteRefreshTokenByHash", mock.Anything, "refresh-hash")
}

func TestLogout_IsIdempotent(t *testing.T) {
	f := newServiceFixture()

	f.tokens.On("HashToken", "unknown").Return("unknown-hash")
	f.refreshRepo.On("DeleteRefreshTokenByHash", mock.Anything, "unknown-hash").Return(repository.ErrRefreshTokenNotFound)

	err := f.authService().Logout(context.Background(), usecase.LogoutInput{RefreshToken: "unknown"})

	assert.NoError(t, err)
}

func TestLogout_EmptyToken(t *testing.T) {
	f := newServiceFixture()

	err := f.authService().Logout(context.Background(), usecase.LogoutInput{})

	assert.NoError(t, err)
	f.refreshRepo.AssertNotCalled(t, "DeleteRefreshTokenByHash", mock.Anything, mock.Anything)
}
