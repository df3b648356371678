package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
)

// cacheAside returns the value cached under key, or loads, caches and
// returns it. A nil cache always loads. Cache failures never fail the call.
func cacheAside[T any](
	ctx context.Context,
	cache domain.CacheRepository,
	logger *log.Logger,
	key string,
	ttl time.Duration,
	load func() (T, error),
) (T, error) {
	if cache != nil {
		if raw, err := cache.Get(ctx, key); err == nil {
			var cached T
			if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) && json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
			logger.Warn("dropping unusable cache entry", "key", key)
			_ = cache.Delete(ctx, key)
		}
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	if cache != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			logger.Warn("cannot encode cache entry", "key", key, "err", err)
			return value, nil
		}
		if err := cache.Set(ctx, key, raw, ttl); err != nil {
			logger.Warn("cache write failed", "key", key, "err", err)
		}
	}
	return value, nil
}

// clampInt replaces zero with def and bounds the result to [lo, hi]
func clampInt(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	return min(max(v, lo), hi)
}
