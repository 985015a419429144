package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/pkg/googlemaps"
)

// GeocodeCache memoizes geocoding lookups by normalized address.
type GeocodeCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewGeocodeCache creates a new GeocodeCache.
func NewGeocodeCache(redis *RedisClient, ttl time.Duration) *GeocodeCache {
	return &GeocodeCache{redis: redis, ttl: ttl}
}

// NormalizeAddress lowercases and collapses whitespace so trivially different
// spellings of the same address share a cache entry.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// key returns geocode:{sha256(normalized address)}.
func (c *GeocodeCache) key(address string) string {
	sum := sha256.Sum256([]byte(NormalizeAddress(address)))
	return "geocode:" + hex.EncodeToString(sum[:])
}

// Get returns the cached result for address, or ErrMiss.
func (c *GeocodeCache) Get(ctx context.Context, address string) (*googlemaps.GeocodeResult, error) {
	raw, err := c.redis.Get(ctx, c.key(address))
	if err != nil {
		return nil, err
	}

	var res googlemaps.GeocodeResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		log.Warn().Err(err).Str("key", c.key(address)).Msg("Dropping unreadable geocode cache entry")
		if err := c.redis.Delete(ctx, c.key(address)); err != nil {
			return nil, fmt.Errorf("failed to drop geocode cache entry: %w", err)
		}
		return nil, ErrMiss
	}
	return &res, nil
}

// Set stores a result for address with the configured TTL.
func (c *GeocodeCache) Set(ctx context.Context, address string, res *googlemaps.GeocodeResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal geocode result: %w", err)
	}
	return c.redis.Set(ctx, c.key(address), string(data), c.ttl)
}
