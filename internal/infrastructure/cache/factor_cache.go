// Package cache keeps resolved emission factor sets in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ghg-footprint-backend/internal/application/footprint"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "factors:"
	defaultTTL    = 6 * time.Hour
)

// FactorCache stores factor sets under a generation number. Invalidate bumps
// the generation, so every set cached before a factor write becomes
// unreachable and expires on its own.
type FactorCache struct {
	Rdb    *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewFactorCache(rdb *redis.Client, ttl time.Duration) *FactorCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &FactorCache{Rdb: rdb, TTL: ttl, Prefix: defaultPrefix}
}

func (c *FactorCache) genKey() string {
	return c.Prefix + "gen"
}

func (c *FactorCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.Rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *FactorCache) setKey(gen int64, countryCode *string, year int) string {
	country := "global"
	if countryCode != nil {
		country = *countryCode
	}
	return fmt.Sprintf("%sset:%d:%s:%d", c.Prefix, gen, country, year)
}

func (c *FactorCache) Get(ctx context.Context, countryCode *string, year int) (*footprint.FactorSet, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.Rdb.Get(ctx, c.setKey(gen, countryCode, year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var set footprint.FactorSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, false, fmt.Errorf("decode cached factor set: %w", err)
	}
	return &set, true, nil
}

func (c *FactorCache) Set(ctx context.Context, countryCode *string, year int, set *footprint.FactorSet) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return c.Rdb.Set(ctx, c.setKey(gen, countryCode, year), raw, c.TTL).Err()
}

func (c *FactorCache) Invalidate(ctx context.Context) error {
	return c.Rdb.Incr(ctx, c.genKey()).Err()
}
