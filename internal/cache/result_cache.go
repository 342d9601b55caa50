package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stitts-dev/wager-engine/internal/engine"
	"github.com/stitts-dev/wager-engine/pkg/logger"
)

// ErrMiss is returned when no cached result exists for a key.
var ErrMiss = errors.New("cache miss")

// ResultCache stores optimization results keyed by a digest of the request.
// Identical pools with identical parameters short-circuit to the cached run;
// any change to a leg's odds or probability changes the digest.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// RequestKey builds the deterministic cache key for a run request. The pool
// is digested in its submitted order; callers that want order-insensitive
// hits should sort before submitting.
func RequestKey(pool []engine.Wager, profile string, bankroll float64) (string, error) {
	payload, err := json.Marshal(struct {
		Pool     []engine.Wager `json:"pool"`
		Profile  string         `json:"profile"`
		Bankroll float64        `json:"bankroll"`
	}{pool, profile, bankroll})
	if err != nil {
		return "", fmt.Errorf("failed to digest request: %w", err)
	}

	sum := sha256.Sum256(payload)
	return fmt.Sprintf("optimization:%s:%s", profile, hex.EncodeToString(sum[:16])), nil
}

func (c *ResultCache) Get(ctx context.Context, key string) (*engine.Result, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	var result engine.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &result, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, result *engine.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}

func (c *ResultCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached results: %w", err)
	}
	return nil
}

// SetWithRetry retries transient cache writes with linear backoff. A result
// that never lands in the cache is only a recompute, so the last error is
// logged rather than surfaced to the request path by most callers.
func (c *ResultCache) SetWithRetry(ctx context.Context, key string, result *engine.Result, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = c.Set(ctx, key, result); err == nil {
			return nil
		}
		logger.WithService("result-cache").Warnf("Cache set failed (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Millisecond * 100 * time.Duration(i+1))
	}
	return err
}
