package conversion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/redis"
	"github.com/shopspring/decimal"
)

// CachedProvider keeps recent quotes in Redis so reloading the checkout page
// does not spend provider credits.
type CachedProvider struct {
	next  Provider
	redis redis.RedisClient
	ttl   time.Duration
}

func NewCachedProvider(next Provider, redisClient redis.RedisClient, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, redis: redisClient, ttl: ttl}
}

func quoteKey(amount decimal.Decimal, from, to string) string {
	return fmt.Sprintf("conversion:%s:%s:%s", strings.ToUpper(from), strings.ToUpper(to), amount.String())
}

func (c *CachedProvider) PriceConversion(ctx context.Context, amount decimal.Decimal, amountCurrency, convertCurrency string) (*Quote, error) {
	key := quoteKey(amount, amountCurrency, convertCurrency)

	cached, err := c.redis.Get(ctx, key)
	switch {
	case err == nil:
		var q Quote
		if err := json.Unmarshal([]byte(cached), &q); err == nil {
			slog.Info("conversion quote fetched from Redis", "key", key, "price", q.Price.String())
			return &q, nil
		}
		slog.Error("failed to unmarshal cached quote", "key", key)
	case !stderrors.Is(err, redis.ErrKeyNotFound):
		slog.Error("failed to read cached quote", "key", key, "error", err)
	}

	q, err := c.next.PriceConversion(ctx, amount, amountCurrency, convertCurrency)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(q); err == nil {
		if err := c.redis.Set(ctx, key, string(b), c.ttl); err != nil {
			slog.Error("failed to cache quote", "key", key, "error", err)
		}
	}
	return q, nil
}
