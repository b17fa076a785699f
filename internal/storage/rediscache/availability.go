// Package rediscache holds the advisory availability projection. It backs
// listing search only; the booking path always recomputes capacity under
// the listing lock, so a stale entry can never oversell.
package rediscache

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	availabilityKeyPrefix = "availability:listing:"
	defaultTTL            = 30 * time.Second
)

type AvailabilityCache struct {
	client *redis.Client
	logger *log.Logger
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, logger *log.Logger) *AvailabilityCache {
	if logger == nil {
		logger = log.Default()
	}
	return &AvailabilityCache{
		client: client,
		logger: logger,
		ttl:    defaultTTL,
	}
}

func (c *AvailabilityCache) key(listingID string) string {
	return availabilityKeyPrefix + listingID
}

// GetAvailableSqft returns the cached projection for a listing. Any redis
// failure reads as a miss so search degrades to the resolver.
func (c *AvailabilityCache) GetAvailableSqft(ctx context.Context, listingID string) (int, bool) {
	raw, err := c.client.Get(ctx, c.key(listingID)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.logger.Printf("WARN: availability cache get: %v", err)
		return 0, false
	}
	sqft, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return sqft, true
}

func (c *AvailabilityCache) SetAvailableSqft(ctx context.Context, listingID string, sqft int) {
	if err := c.client.Set(ctx, c.key(listingID), strconv.Itoa(sqft), c.ttl).Err(); err != nil {
		c.logger.Printf("WARN: availability cache set: %v", err)
	}
}
