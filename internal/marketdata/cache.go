package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trogers1052/virfolio/internal/models"
)

const (
	DefaultHistoryTTL = 5 * time.Minute
	DefaultInfoTTL    = 24 * time.Hour

	keyPrefix = "virfolio:"
)

// CachedProvider is a read-through Redis cache in front of another Provider.
// Redis errors are logged and the wrapped provider is used instead.
type CachedProvider struct {
	next       Provider
	rdb        redis.Cmdable
	historyTTL time.Duration
	infoTTL    time.Duration
	log        zerolog.Logger
}

// NewCachedProvider wraps next with a Redis cache
func NewCachedProvider(next Provider, rdb redis.Cmdable, historyTTL, infoTTL time.Duration, log zerolog.Logger) *CachedProvider {
	if historyTTL <= 0 {
		historyTTL = DefaultHistoryTTL
	}
	if infoTTL <= 0 {
		infoTTL = DefaultInfoTTL
	}
	return &CachedProvider{
		next:       next,
		rdb:        rdb,
		historyTTL: historyTTL,
		infoTTL:    infoTTL,
		log:        log.With().Str("component", "price_cache").Logger(),
	}
}

func historyKey(symbol, period string) string {
	return keyPrefix + "history:" + symbol + ":" + period
}

func infoKey(symbol string) string {
	return keyPrefix + "info:" + symbol
}

// History returns cached bars when present, otherwise fetches and caches them.
// Empty results are not cached.
func (c *CachedProvider) History(ctx context.Context, symbol, period string) ([]models.PriceDataDaily, error) {
	key := historyKey(symbol, period)

	var bars []models.PriceDataDaily
	if c.load(ctx, key, &bars) {
		return bars, nil
	}

	bars, err := c.next.History(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.store(ctx, key, bars, c.historyTTL)
	}
	return bars, nil
}

// Info returns the cached metadata bag when present, otherwise fetches and caches it.
func (c *CachedProvider) Info(ctx context.Context, symbol string) (*Quote, error) {
	key := infoKey(symbol)

	var q Quote
	if c.load(ctx, key, &q) {
		return &q, nil
	}

	quote, err := c.next.Info(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if quote != nil {
		c.store(ctx, key, quote, c.infoTTL)
	}
	return quote, nil
}

func (c *CachedProvider) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding malformed cache entry")
		return false
	}
	return true
}

func (c *CachedProvider) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache entry")
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
