// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, authorized user session.
// It is used to obtain a new Access Token after the old one expires, without
// requiring credentials. Only a SHA-256 hash of the signed token is stored, so
// a database leak never exposes usable tokens.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this specific refresh token record.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	TokenHash string    // SHA-256 hash of the raw refresh token for secure comparison in the database.
	ExpiresAt time.Time // The exact time when this refresh token will expire and become invalid.
	CreatedAt time.Time // Timestamp of when this session was created (i.e., when the user logged in).
}

// ChallengePurpose distinguishes the one-time challenges the auth flow issues.
type ChallengePurpose string

const (
	// ChallengeOTP is the emailed second-factor code issued after a
	// successful primary credential check.
	ChallengeOTP ChallengePurpose = "otp"
	// ChallengePasswordReset is the opaque token emailed for password resets.
	ChallengePasswordReset ChallengePurpose = "password_reset"
	// ChallengeEmailChange is the opaque token emailed to confirm an email
	// change (also used for initial address verification after signup).
	ChallengeEmailChange ChallengePurpose = "email_change"
)

// Challenge is an ephemeral one-time secret keyed by principal and purpose.
// Each principal has at most one live challenge per purpose; issuing a new one
// supersedes any prior unconsumed challenge.
type Challenge struct {
	UserID    uuid.UUID        `json:"userId"`
	Purpose   ChallengePurpose `json:"purpose"`
	Code      string           `json:"code"`            // The one-time code or opaque token the user must present.
	Email     string           `json:"email,omitempty"` // Pending email address, only set for email-change challenges.
	IssuedAt  time.Time        `json:"issuedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// Expired reports whether the challenge is past its expiry at the given time.
func (ch *Challenge) Expired(now time.Time) bool {
	return !ch.ExpiresAt.After(now)
}
