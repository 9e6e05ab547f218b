// Package challenge implements the one-time challenge store on Redis.
// Each (user, purpose) pair maps to a single key, so issuing a new challenge
// atomically supersedes the previous one and the TTL enforces expiry.
package challenge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"praxis/internal/domain/entity"
	"praxis/internal/domain/service"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore is the constructor for the Redis-backed challenge store.
func NewRedisStore(client *redis.Client) service.ChallengeStore {
	return &redisStore{client: client}
}

// Issue stores the challenge under its (user, purpose) key. SET overwrites any
// previous value, which gives last-write-wins semantics for repeated requests.
func (s *redisStore) Issue(ctx context.Context, ch *entity.Challenge) error {
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}

	payload, err := json.Marshal(ch)
	if err != nil {
		return errors.Wrap(err, "marshal challenge")
	}

	if err := s.client.Set(ctx, key(ch.UserID, ch.Purpose), payload, ttl).Err(); err != nil {
		return errors.Wrap(err, "store challenge")
	}

	return nil
}

// Get retrieves the live challenge for a user and purpose.
func (s *redisStore) Get(ctx context.Context, userID uuid.UUID, purpose entity.ChallengePurpose) (*entity.Challenge, error) {
	payload, err := s.client.Get(ctx, key(userID, purpose)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, service.ErrChallengeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load challenge")
	}

	ch := &entity.Challenge{}
	if err := json.Unmarshal(payload, ch); err != nil {
		return nil, errors.Wrap(err, "unmarshal challenge")
	}

	return ch, nil
}

// Invalidate removes the challenge for a user and purpose.
// DEL on a missing key is a no-op, which keeps invalidation idempotent.
func (s *redisStore) Invalidate(ctx context.Context, userID uuid.UUID, purpose entity.ChallengePurpose) error {
	if err := s.client.Del(ctx, key(userID, purpose)).Err(); err != nil {
		return errors.Wrap(err, "invalidate challenge")
	}

	return nil
}

func key(userID uuid.UUID, purpose entity.ChallengePurpose) string {
	return "challenge:" + string(purpose) + ":" + userID.String()
}
