// Package cache provides a Redis-backed cache for the country summary.
//
// Entries are keyed by the reference date and a generation number. Every
// traveler write bumps the generation, so entries computed before the write
// are never read again and simply expire with their TTL.
//
// Callers resolve the key with Key before reading the store and pass the
// same key to Set. A summary computed while a write commits is then stored
// under the generation that write retired.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/travelwatch/internal/domain"
)

const (
	keyPrefix     = "travelwatch:summary:"
	generationKey = keyPrefix + "gen"
)

// Connect opens and pings a Redis client for url (redis://host:port/db).
// Returns nil, nil if url is empty (Redis not configured).
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache.Connect: parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache.Connect: redis ping failed: %w", err)
	}
	return client, nil
}

// SummaryCache stores computed country summaries in Redis.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache constructs a SummaryCache. The client lifecycle is managed
// by the caller. A non-positive ttl stores entries without expiry.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if ttl < 0 {
		ttl = 0
	}
	return &SummaryCache{client: client, ttl: ttl}
}

// Key resolves the entry key for the given reference date under the current
// generation.
func (c *SummaryCache) Key(ctx context.Context, today time.Time) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		return "", fmt.Errorf("cache.SummaryCache.Key: read generation: %w", err)
	}
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + domain.Day(today).Format(domain.DateLayout), nil
}

// Get returns the summary stored under key.
// The second return value is false on a miss.
func (c *SummaryCache) Get(ctx context.Context, key string) ([]domain.CountrySummary, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache.SummaryCache.Get: %w", err)
	}

	var summaries []domain.CountrySummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, false, fmt.Errorf("cache.SummaryCache.Get: decode: %w", err)
	}
	if summaries == nil {
		summaries = []domain.CountrySummary{}
	}
	return summaries, true, nil
}

// Set stores summaries under a key obtained from Key. The generation is not
// re-read.
func (c *SummaryCache) Set(ctx context.Context, key string, summaries []domain.CountrySummary) error {
	if summaries == nil {
		summaries = []domain.CountrySummary{}
	}
	raw, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("cache.SummaryCache.Set: encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.SummaryCache.Set: %w", err)
	}
	return nil
}

// Invalidate makes every previously stored summary unreachable.
func (c *SummaryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("cache.SummaryCache.Invalidate: %w", err)
	}
	return nil
}
