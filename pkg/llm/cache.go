package llm

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/health-consult-server/internal/domain"
)

// AnalysisCache caches structured analysis payloads in Redis, keyed by a
// hash of the analyzed text. Conversations are often re-analyzed with the
// same transcript (N-th message trigger plus a manual request), and the
// delegated call is by far the slowest step.
type AnalysisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

type cachedPayload struct {
	Payload  *AnalysisPayload `json:"payload"`
	Provider string           `json:"provider"`
	CachedAt time.Time        `json:"cached_at"`
}

// NewAnalysisCache creates a Redis-backed analysis cache and verifies
// connectivity.
func NewAnalysisCache(config domain.CacheConfig) (*AnalysisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	return &AnalysisCache{redis: client, defaultTTL: ttl}, nil
}

// Get retrieves a cached payload for the given text and task. The second
// return value reports a cache hit.
func (c *AnalysisCache) Get(ctx context.Context, text, task string) (*AnalysisPayload, bool, error) {
	data, err := c.redis.Get(ctx, c.key(text, task)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading analysis cache: %w", err)
	}

	var cached cachedPayload
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupt entries are treated as misses, not failures.
		return nil, false, nil
	}
	return cached.Payload, true, nil
}

// Set stores a payload for the given text and task.
func (c *AnalysisCache) Set(ctx context.Context, text, task, provider string, payload *AnalysisPayload) error {
	data, err := json.Marshal(cachedPayload{
		Payload:  payload,
		Provider: provider,
		CachedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding analysis cache entry: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(text, task), data, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("writing analysis cache: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (c *AnalysisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *AnalysisCache) Close() error {
	return c.redis.Close()
}

func (c *AnalysisCache) key(text, task string) string {
	sum := sha256.Sum256([]byte(task + "\x00" + text))
	return fmt.Sprintf("analysis:%s:%x", task, sum[:16])
}
