// Package mail implements the Mailer domain service over plain SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"praxis/config"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/service"

	"github.com/pkg/errors"
)

// sendMailFunc matches smtp.SendMail; swapped out in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpMailer struct {
	cfg      *config.SMTPConfig
	otpTTL   string
	sendMail sendMailFunc
}

// NewSMTPMailer is the constructor for the SMTP-backed mailer.
func NewSMTPMailer(cfg *config.Config) (service.Mailer, error) {
	if cfg.SMTP == nil || cfg.SMTP.Host == "" {
		return nil, errors.New("smtp config must be provided")
	}

	return &smtpMailer{
		cfg:      cfg.SMTP,
		otpTTL:   fmt.Sprintf("%d minutes", int(cfg.Auth.OtpTTL.Minutes())),
		sendMail: smtp.SendMail,
	}, nil
}

// SendOtpCode delivers a second-factor login code.
func (m *smtpMailer) SendOtpCode(ctx context.Context, to, code string) error {
	subject := fmt.Sprintf("%s - Your Login Verification Code", m.cfg.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Use the verification code below to finish signing in to %s:\n\n"+
			"Login Code: %s\n\n"+
			"This code will expire in %s. If you did not try to sign in, please change your password.\n\n"+
			"Best regards,\nThe %s Team",
		m.cfg.AppName, code, m.otpTTL, m.cfg.AppName)

	return m.send(ctx, to, subject, body)
}

// SendPasswordReset delivers a password-reset token.
func (m *smtpMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	subject := fmt.Sprintf("%s - Password Reset Request", m.cfg.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"We received a request to reset your %s password. Use the token below to set a new one:\n\n"+
			"Reset Token: %s\n\n"+
			"If you did not request a reset, you can safely ignore this email.\n\n"+
			"Best regards,\nThe %s Team",
		m.cfg.AppName, token, m.cfg.AppName)

	return m.send(ctx, to, subject, body)
}

// SendEmailChangeConfirmation delivers an email-change confirmation token
// to the pending address.
func (m *smtpMailer) SendEmailChangeConfirmation(ctx context.Context, to, token string) error {
	subject := fmt.Sprintf("%s - Confirm Your New Email Address", m.cfg.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"A request was made to use this address for a %s account. Confirm the change with the token below:\n\n"+
			"Confirmation Token: %s\n\n"+
			"If you did not request this change, you can safely ignore this email.\n\n"+
			"Best regards,\nThe %s Team",
		m.cfg.AppName, token, m.cfg.AppName)

	return m.send(ctx, to, subject, body)
}

// send handles the actual SMTP handshake and delivery.
func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "mail send aborted")
	}

	smtpAddr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	// Headers per RFC 822; the blank entry separates headers from the body.
	headers := []string{
		fmt.Sprintf("From: %s", m.cfg.User),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}
	message := strings.Join(headers, "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	if err := m.sendMail(smtpAddr, auth, m.cfg.User, []string{to}, []byte(message)); err != nil {
		return domainerrors.ErrMailDeliveryFailed.WrapMessage(err.Error())
	}

	return nil
}
