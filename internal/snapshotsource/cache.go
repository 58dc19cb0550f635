package snapshotsource

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coinpulse/internal/domain"
)

// CachedSource wraps a Source with a Redis read-through cache. Cache
// failures degrade to the underlying source rather than failing the run.
type CachedSource struct {
	inner  Source
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedSource builds the caching wrapper.
func NewCachedSource(inner Source, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSource{inner: inner, client: client, ttl: ttl, logger: logger}
}

var _ Source = (*CachedSource)(nil)

// GetCurrent serves the snapshot map from cache when present, otherwise
// fetches from the inner source and stores the result.
func (s *CachedSource) GetCurrent(ctx context.Context, universe []string) (map[string]domain.Snapshot, error) {
	key := cacheKey(universe)

	if payload, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var cached map[string]domain.Snapshot
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding malformed cache entry")
		_ = s.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		s.logger.Warn().Err(err).Msg("cache read failed, falling back to provider")
	}

	current, err := s.inner.GetCurrent(ctx, universe)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(current); err == nil {
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
	}
	return current, nil
}

// cacheKey is stable under universe reordering.
func cacheKey(universe []string) string {
	coins := make([]string, len(universe))
	copy(coins, universe)
	sort.Strings(coins)
	return "coinpulse:snapshots:" + strings.Join(coins, ",")
}
