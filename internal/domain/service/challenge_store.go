package service

import (
	"context"
	"errors"

	"praxis/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrChallengeNotFound is returned when no live challenge exists for the
// principal and purpose, either because none was issued or it already expired.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeStore defines the interface for ephemeral one-time challenges
// (OTP codes, password-reset tokens, email-change tokens).
// Each (user, purpose) pair holds at most one live challenge; Issue overwrites
// any prior unconsumed one (last write wins), and Invalidate enforces single use.
type ChallengeStore interface {
	// Issue stores the challenge under its (user, purpose) slot with a TTL
	// derived from the challenge's expiry, superseding any previous challenge.
	Issue(ctx context.Context, challenge *entity.Challenge) error

	// Get retrieves the live challenge for a user and purpose.
	// Returns ErrChallengeNotFound if none exists.
	Get(ctx context.Context, userID uuid.UUID, purpose entity.ChallengePurpose) (*entity.Challenge, error)

	// Invalidate removes the challenge for a user and purpose. Removing an
	// absent challenge is not an error.
	Invalidate(ctx context.Context, userID uuid.UUID, purpose entity.ChallengePurpose) error
}
