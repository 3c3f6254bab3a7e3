package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightsmile/dental-portal/internal/booking"
	"github.com/brightsmile/dental-portal/pkg/logging"
)

// AvailabilityCache caches availability responses per (date, service) key.
// Entries are short-lived and invalidated per date whenever a booking write
// touches that day. Cache failures degrade to the database; they are logged,
// never surfaced.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *AvailabilityCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func availabilityKey(date time.Time, serviceCode string) string {
	return fmt.Sprintf("avail:%s:%s", date.Format("2006-01-02"), serviceCode)
}

func (c *AvailabilityCache) GetSlots(ctx context.Context, date time.Time, serviceCode string) ([]booking.Slot, bool) {
	raw, err := c.client.Get(ctx, availabilityKey(date, serviceCode)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("availability cache read failed", "error", err)
		}
		return nil, false
	}

	var slots []booking.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Warn("availability cache entry corrupt", "error", err)
		return nil, false
	}

	return slots, true
}

func (c *AvailabilityCache) SetSlots(ctx context.Context, date time.Time, serviceCode string, slots []booking.Slot) {
	raw, err := json.Marshal(slots)
	if err != nil {
		c.logger.Warn("availability cache marshal failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, availabilityKey(date, serviceCode), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("availability cache write failed", "error", err)
	}
}

// InvalidateDate drops every cached service response for the day. Bookings
// for one doctor affect availability of every service that doctor offers,
// so the whole date goes.
func (c *AvailabilityCache) InvalidateDate(ctx context.Context, date time.Time) {
	pattern := fmt.Sprintf("avail:%s:*", date.Format("2006-01-02"))

	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Warn("availability cache invalidation scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("availability cache invalidation failed", "error", err)
	}
}
