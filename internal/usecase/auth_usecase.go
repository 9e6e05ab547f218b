// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"praxis/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a credentials login.
type LoginInput struct {
	Email    string
	Password string
}

// VerifyOtpInput defines the data required to complete a two-factor login.
type VerifyOtpInput struct {
	Email string
	Otp   string
}

// RefreshInput carries the raw refresh token presented by a client.
type RefreshInput struct {
	RefreshToken string
}

// LogoutInput carries the refresh token whose session should end.
type LogoutInput struct {
	RefreshToken string
}

// --- Output DTOs ---

// LoginOutput returns the result of a login attempt. When RequiresOtp is set
// the tokens are empty and the caller must complete the OTP step.
type LoginOutput struct {
	User         *entity.User
	AccessToken  string
	RefreshToken string
	RequiresOtp  bool
}

// RefreshOutput returns the rotated token pair.
type RefreshOutput struct {
	User         *entity.User
	AccessToken  string
	RefreshToken string
}

// AuthUsecase defines the interface for authentication business operations.
// This is the contract that the delivery layer (API handlers) will depend on.
type AuthUsecase interface {
	// Login verifies credentials for accounts whose role is in allowedRoles.
	// Accounts with two-factor enabled get an emailed code instead of tokens.
	Login(ctx context.Context, input LoginInput, allowedRoles entity.Roles) (*LoginOutput, error)

	// VerifyOtp consumes the pending login code and issues a session.
	VerifyOtp(ctx context.Context, input VerifyOtpInput) (*LoginOutput, error)

	// Refresh rotates a valid refresh token into a fresh token pair.
	Refresh(ctx context.Context, input RefreshInput) (*RefreshOutput, error)

	// Logout ends the session behind the given refresh token. Unknown tokens
	// are ignored so logout stays idempotent.
	Logout(ctx context.Context, input LogoutInput) error
}
