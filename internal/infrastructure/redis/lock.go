package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Locker is a SETNX based mutual exclusion shared by every service instance.
// Each acquisition stores its own token, and only the holder of that token
// can release the key.
type Locker struct {
	client  RedisClient
	ttl     time.Duration
	retries int
	backoff time.Duration
}

func NewLocker(client RedisClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{client: client, ttl: ttl, retries: 5, backoff: 100 * time.Millisecond}
}

// WithRetry overrides how often and how long Acquire waits for a held lock.
func (l *Locker) WithRetry(retries int, backoff time.Duration) *Locker {
	l.retries = retries
	l.backoff = backoff
	return l
}

// WithTTL returns a copy of l whose locks expire after ttl.
func (l *Locker) WithTTL(ttl time.Duration) *Locker {
	cp := *l
	if ttl > 0 {
		cp.ttl = ttl
	}
	return &cp
}

// TryAcquire makes a single attempt. The returned token is needed to release.
func (l *Locker) TryAcquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Acquire waits for key with a linear backoff. It returns false when the lock
// is still held after the last attempt.
func (l *Locker) Acquire(ctx context.Context, key string) (string, bool, error) {
	for i := 0; ; i++ {
		token, ok, err := l.TryAcquire(ctx, key)
		if err != nil || ok {
			return token, ok, err
		}
		if i >= l.retries {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(l.backoff * time.Duration(i+1)):
		}
	}
}

// Release deletes key if it still carries token. A lock that expired and was
// taken by someone else is left alone.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	ok, err := l.client.DelIfEqual(ctx, key, token)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("lock expired before release", "key", key, "ttl", l.ttl)
	}
	return nil
}
