package businessflow

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/amirphl/country-gdp-service/utils"
	"github.com/redis/go-redis/v9"
)

// SummaryImageCache keeps the latest summary PNG in Redis; a nil client disables it
type SummaryImageCache struct {
	rc  *redis.Client
	key string
	ttl time.Duration
}

func NewSummaryImageCache(rc *redis.Client, prefix string, ttl time.Duration) *SummaryImageCache {
	return &SummaryImageCache{
		rc:  rc,
		key: prefix + utils.SummaryImageCacheKey,
		ttl: ttl,
	}
}

// Get returns the cached image, or nil on a miss or when caching is disabled
func (c *SummaryImageCache) Get(ctx context.Context) []byte {
	if c == nil || c.rc == nil {
		return nil
	}
	bs, err := c.rc.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("summary image cache get failed request_id=%s: %v", utils.RequestIDFromContext(ctx), err)
		}
		return nil
	}
	return bs
}

// Set stores data; failures are logged because the file on disk stays authoritative
func (c *SummaryImageCache) Set(ctx context.Context, data []byte) {
	if c == nil || c.rc == nil || len(data) == 0 {
		return
	}
	if err := c.rc.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		log.Printf("summary image cache set failed request_id=%s: %v", utils.RequestIDFromContext(ctx), err)
	}
}
