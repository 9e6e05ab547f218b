package service

import "context"

// Mailer defines the interface for the out-of-band email collaborator.
// The auth core only needs plain transactional messages; templating and
// branding live with the implementation.
type Mailer interface {
	// SendOtpCode delivers a second-factor login code.
	SendOtpCode(ctx context.Context, to, code string) error

	// SendPasswordReset delivers a password-reset token.
	SendPasswordReset(ctx context.Context, to, token string) error

	// SendEmailChangeConfirmation delivers an email-change confirmation token
	// to the pending address.
	SendEmailChangeConfirmation(ctx context.Context, to, token string) error
}
