package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vocaid/identity/pkg/auth"
	"github.com/vocaid/identity/pkg/domain"
)

// Key layout:
//
//	vocaid:phone:challenge:{userID}        JSON challenge, code TTL
//	vocaid:phone:attempts:{userID}         failed verify counter, code TTL
//	vocaid:phone:sends:{userID}:{date}     daily send counter, expires next midnight
const (
	phoneChallenge = "phone:challenge"
	phoneAttempts  = "phone:attempts"
	phoneSends     = "phone:sends"
)

// PhoneCodeStore keeps phone verification challenges in Redis. It
// implements auth.ChallengeStore.
type PhoneCodeStore struct {
	rdb *redis.Client
}

// NewPhoneCodeStore creates a new phone code store.
func NewPhoneCodeStore(rdb *redis.Client) *PhoneCodeStore {
	return &PhoneCodeStore{rdb: rdb}
}

// SaveChallenge stores the pending challenge, replacing any previous one.
func (s *PhoneCodeStore) SaveChallenge(ctx context.Context, userID uuid.UUID, ch *auth.PhoneChallenge, ttl time.Duration) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal phone challenge: %w", err)
	}
	return s.rdb.Set(ctx, key(phoneChallenge, userID.String()), data, ttl).Err()
}

// GetChallenge returns the pending challenge, or ErrPhoneCodeExpired when
// none exists.
func (s *PhoneCodeStore) GetChallenge(ctx context.Context, userID uuid.UUID) (*auth.PhoneChallenge, error) {
	data, err := s.rdb.Get(ctx, key(phoneChallenge, userID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrPhoneCodeExpired
	}
	if err != nil {
		return nil, fmt.Errorf("get phone challenge: %w", err)
	}

	ch := &auth.PhoneChallenge{}
	if err := json.Unmarshal(data, ch); err != nil {
		return nil, fmt.Errorf("unmarshal phone challenge: %w", err)
	}
	return ch, nil
}

// DeleteChallenge removes the pending challenge and its attempt counter.
func (s *PhoneCodeStore) DeleteChallenge(ctx context.Context, userID uuid.UUID) error {
	return s.rdb.Del(ctx,
		key(phoneChallenge, userID.String()),
		key(phoneAttempts, userID.String()),
	).Err()
}

// IncrSendCount increments today's send counter and returns the new value.
// The first increment of the day sets the key to expire at next midnight UTC.
func (s *PhoneCodeStore) IncrSendCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	k := key(phoneSends, userID.String(), now.Format("2006-01-02"))

	count, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("incr phone send count: %w", err)
	}
	if count == 1 {
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		s.rdb.Expire(ctx, k, midnight.Sub(now))
	}
	return count, nil
}

// IncrAttempts increments the failed-verify counter and returns the new
// value. The counter lives as long as the challenge it guards.
func (s *PhoneCodeStore) IncrAttempts(ctx context.Context, userID uuid.UUID, ttl time.Duration) (int64, error) {
	k := key(phoneAttempts, userID.String())

	count, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("incr phone attempts: %w", err)
	}
	if count == 1 {
		s.rdb.Expire(ctx, k, ttl)
	}
	return count, nil
}
