package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"admin-service/internal/client"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

const (
	challengePrefix = "admin_otp:"
	attemptPrefix   = "admin_otp_attempts:"
	exhaustedPrefix = "admin_otp_exhausted:"
	cooldownPrefix  = "admin_otp_cooldown:"

	// Keys outlive the logical expiry so an expired challenge is still
	// distinguishable from one that never existed.
	ttlGrace = 5 * time.Minute
)

// ErrChallengeNotFound is returned when no challenge record exists for
// the email, whether none was issued or the key has been purged.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeCache stores in-flight OTP challenges in Redis. A challenge,
// its attempt counter, and its exhaustion lock are three keys sharing the
// email suffix; Put replaces all of them in one transaction.
type ChallengeCache struct {
	client *client.RedisClient
}

func NewChallengeCache(client *client.RedisClient) *ChallengeCache {
	return &ChallengeCache{client: client}
}

// Put stores a fresh challenge, clearing any previous attempt counter and
// exhaustion lock for the email. The three writes land atomically so a
// concurrent verify never sees a new challenge with stale attempts.
func (c *ChallengeCache) Put(ctx context.Context, challenge *models.OTPChallenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	ttl := time.Until(challenge.ExpiresAt) + ttlGrace

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, challengePrefix+challenge.Email, payload, ttl)
	pipe.Del(ctx, attemptPrefix+challenge.Email)
	pipe.Del(ctx, exhaustedPrefix+challenge.Email)
	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to store challenge",
			zap.String("email", challenge.Email),
			zap.Error(err))
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	util.Debug("Challenge stored",
		zap.String("email", challenge.Email),
		zap.Time("expires_at", challenge.ExpiresAt))

	return nil
}

func (c *ChallengeCache) Get(ctx context.Context, email string) (*models.OTPChallenge, error) {
	raw, err := c.client.Get(ctx, challengePrefix+email)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, ErrChallengeNotFound
		}
		util.Error("Failed to get challenge",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	challenge := &models.OTPChallenge{}
	if err := json.Unmarshal([]byte(raw), challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return challenge, nil
}

// Delete removes the challenge and its counters after consumption.
func (c *ChallengeCache) Delete(ctx context.Context, email string) error {
	if err := c.client.Del(ctx,
		challengePrefix+email,
		attemptPrefix+email,
		exhaustedPrefix+email); err != nil {
		util.Error("Failed to delete challenge",
			zap.String("email", email),
			zap.Error(err))
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the failed-attempt counter atomically and
// returns the new count. Concurrent failures each get a distinct count.
func (c *ChallengeCache) IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int, error) {
	count, err := c.client.IncrWithExpire(ctx, attemptPrefix+email, ttl+ttlGrace)
	if err != nil {
		util.Error("Failed to increment challenge attempts",
			zap.String("email", email),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment challenge attempts: %w", err)
	}
	return int(count), nil
}

// MarkExhausted locks the email until the current challenge would have
// expired. While the lock holds, even the correct code is rejected.
func (c *ChallengeCache) MarkExhausted(ctx context.Context, email string, ttl time.Duration) error {
	if err := c.client.Set(ctx, exhaustedPrefix+email, "1", ttl); err != nil {
		util.Error("Failed to set exhaustion lock",
			zap.String("email", email),
			zap.Error(err))
		return fmt.Errorf("failed to set exhaustion lock: %w", err)
	}
	return nil
}

func (c *ChallengeCache) IsExhausted(ctx context.Context, email string) (bool, error) {
	exists, err := c.client.Exists(ctx, exhaustedPrefix+email)
	if err != nil {
		util.Error("Failed to check exhaustion lock",
			zap.String("email", email),
			zap.Error(err))
		return false, fmt.Errorf("failed to check exhaustion lock: %w", err)
	}
	return exists, nil
}

// AcquireCooldown takes the resend cooldown lock for the email. It
// returns false when a code was sent within the cooldown window.
func (c *ChallengeCache) AcquireCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, cooldownPrefix+email, "1", ttl)
	if err != nil {
		util.Error("Failed to acquire cooldown lock",
			zap.String("email", email),
			zap.Error(err))
		return false, fmt.Errorf("failed to acquire cooldown lock: %w", err)
	}
	return ok, nil
}
