package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptPrefix = "login:fallos:"

// LoginAttemptRepository counts failed logins per username in Redis. Each
// counter expires LockoutWindow after the first failure of a streak.
type LoginAttemptRepository struct {
	client *redis.Client
	window time.Duration
}

// NewLoginAttemptRepository creates a counter store over client.
func NewLoginAttemptRepository(client *redis.Client, window time.Duration) *LoginAttemptRepository {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginAttemptRepository{client: client, window: window}
}

func (r *LoginAttemptRepository) key(username string) string {
	return loginAttemptPrefix + username
}

// Failures returns the current failure count for username.
func (r *LoginAttemptRepository) Failures(ctx context.Context, username string) (int, error) {
	n, err := r.client.Get(ctx, r.key(username)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read login failures: %w", err)
	}
	return n, nil
}

// RegisterFailure increments the counter and returns the new value.
func (r *LoginAttemptRepository) RegisterFailure(ctx context.Context, username string) (int, error) {
	key := r.key(username)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("register login failure: %w", err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return int(n), fmt.Errorf("expire login failures: %w", err)
		}
	}
	return int(n), nil
}

// Reset clears the counter after a successful login.
func (r *LoginAttemptRepository) Reset(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, r.key(username)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}
