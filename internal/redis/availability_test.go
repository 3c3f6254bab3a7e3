package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/dental-portal/internal/booking"
)

func newTestCache(t *testing.T) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewAvailabilityCache(client, 30*time.Second, nil), mr
}

func sampleSlots(t *testing.T) []booking.Slot {
	t.Helper()

	at, err := booking.ParseTimeOfDay("09:30")
	require.NoError(t, err)

	return []booking.Slot{{
		Time:            at,
		DoctorID:        uuid.New(),
		DoctorName:      "Dr. Adams",
		Specialization:  "General Dentistry",
		DurationMinutes: 45,
	}}
}

func TestAvailabilityCache_Roundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	_, ok := cache.GetSlots(ctx, date, "CLEANING")
	assert.False(t, ok)

	slots := sampleSlots(t)
	cache.SetSlots(ctx, date, "CLEANING", slots)

	got, ok := cache.GetSlots(ctx, date, "CLEANING")
	require.True(t, ok)
	assert.Equal(t, slots, got)

	// Other dates and services stay cold.
	_, ok = cache.GetSlots(ctx, date.AddDate(0, 0, 1), "CLEANING")
	assert.False(t, ok)
	_, ok = cache.GetSlots(ctx, date, "WHITENING")
	assert.False(t, ok)
}

func TestAvailabilityCache_EmptyResultIsCacheable(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	date := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)

	cache.SetSlots(ctx, date, "CLEANING", []booking.Slot{})

	got, ok := cache.GetSlots(ctx, date, "CLEANING")
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestAvailabilityCache_EntryExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	cache.SetSlots(ctx, date, "CLEANING", sampleSlots(t))
	mr.FastForward(31 * time.Second)

	_, ok := cache.GetSlots(ctx, date, "CLEANING")
	assert.False(t, ok)
}

func TestAvailabilityCache_InvalidateDate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	other := date.AddDate(0, 0, 1)

	cache.SetSlots(ctx, date, "CLEANING", sampleSlots(t))
	cache.SetSlots(ctx, date, "WHITENING", sampleSlots(t))
	cache.SetSlots(ctx, other, "CLEANING", sampleSlots(t))

	cache.InvalidateDate(ctx, date)

	// Every service entry for the invalidated date is gone.
	_, ok := cache.GetSlots(ctx, date, "CLEANING")
	assert.False(t, ok)
	_, ok = cache.GetSlots(ctx, date, "WHITENING")
	assert.False(t, ok)

	// Neighboring dates survive.
	_, ok = cache.GetSlots(ctx, other, "CLEANING")
	assert.True(t, ok)
}

func TestAvailabilityCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	require.NoError(t, mr.Set("avail:2026-09-07:CLEANING", "not json"))

	_, ok := cache.GetSlots(ctx, date, "CLEANING")
	assert.False(t, ok)
}

func TestAvailabilityCache_RedisDownDegradesToMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mr.Close()

	_, ok := cache.GetSlots(ctx, date, "CLEANING")
	assert.False(t, ok)

	// Writes and invalidations are best-effort and must not panic.
	cache.SetSlots(ctx, date, "CLEANING", sampleSlots(t))
	cache.InvalidateDate(ctx, date)
}
