package usecase

import (
	"context"

	"praxis/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterCustomerInput defines the data required to sign up a customer account.
type RegisterCustomerInput struct {
	Name     string
	Email    string
	Password string
}

// VerifyEmailInput completes initial email verification for a new account.
type VerifyEmailInput struct {
	Email string
	Token string
}

// RequestPasswordResetInput starts the forgotten-password flow.
type RequestPasswordResetInput struct {
	Email string
}

// UpdatePasswordInput completes the forgotten-password flow with the emailed token.
type UpdatePasswordInput struct {
	UserID      uuid.UUID
	Token       string
	NewPassword string
}

// ChangePasswordInput changes the password of an authenticated user.
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// RequestEmailChangeInput starts an email change for an authenticated user.
type RequestEmailChangeInput struct {
	UserID   uuid.UUID
	NewEmail string
}

// ConfirmEmailChangeInput completes an email change with the emailed token.
type ConfirmEmailChangeInput struct {
	UserID uuid.UUID
	Token  string
}

// --- Output DTOs ---

// RegisterOutput returns the newly created user's basic information.
type RegisterOutput struct {
	User *entity.User
}

// AccountUsecase defines account management operations that sit next to the
// login flows: signup, password lifecycle, two-factor toggle, email change.
type AccountUsecase interface {
	// RegisterCustomer creates an unverified customer account and emails a
	// verification token.
	RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*RegisterOutput, error)

	// VerifyEmail consumes the signup verification token and marks the
	// account's email as verified.
	VerifyEmail(ctx context.Context, input VerifyEmailInput) error

	// RequestPasswordReset emails a reset token. Unknown emails return nil so
	// the endpoint does not leak which addresses exist.
	RequestPasswordReset(ctx context.Context, input RequestPasswordResetInput) error

	// UpdatePassword consumes a reset token, re-hashes the password, and
	// revokes every refresh token the user holds.
	UpdatePassword(ctx context.Context, input UpdatePasswordInput) error

	// ChangePassword verifies the current password before setting a new one.
	ChangePassword(ctx context.Context, input ChangePasswordInput) error

	// SetTwoFactor enables or disables the OTP second factor for a user.
	SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) (*entity.User, error)

	// RequestEmailChange stores the pending address and emails a confirmation
	// token to it.
	RequestEmailChange(ctx context.Context, input RequestEmailChangeInput) error

	// ConfirmEmailChange applies the pending address, marks it verified, and
	// issues a fresh session for the new identity.
	ConfirmEmailChange(ctx context.Context, input ConfirmEmailChangeInput) (*LoginOutput, error)
}
