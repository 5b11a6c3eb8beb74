// internal/cache/cache_test.go
package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(start time.Time) (*Cache, *time.Time) {
	now := start
	c := New()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(time.Now())

	c.Set("k", "value", time.Hour)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestGetMissing(t *testing.T) {
	c, _ := newTestCache(time.Now())

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestEntryExpires(t *testing.T) {
	c, now := newTestCache(time.Now())

	c.Set("k", 42, time.Hour)

	*now = now.Add(59 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	*now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire after its TTL")
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c, now := newTestCache(time.Now())

	c.Set("k", 42, 0)

	*now = now.Add(1000 * time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestOverwriteResetsTTL(t *testing.T) {
	c, now := newTestCache(time.Now())

	c.Set("k", "old", time.Minute)
	*now = now.Add(50 * time.Second)
	c.Set("k", "new", time.Minute)

	*now = now.Add(30 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(time.Now())

	c.Set("k", "value", time.Hour)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(time.Now())

	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)

	removed := c.Clear()
	assert.Equal(t, 2, removed)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCleanupExpired(t *testing.T) {
	c, now := newTestCache(time.Now())

	c.Set("fresh", 1, time.Hour)
	c.Set("stale", 2, time.Minute)
	c.Set("pinned", 3, 0)

	*now = now.Add(30 * time.Minute)
	removed := c.CleanupExpired()
	assert.Equal(t, 1, removed)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("pinned")
	assert.True(t, ok)
}

func TestSnapshot(t *testing.T) {
	c, now := newTestCache(time.Now())

	c.Set("fresh", 1, time.Hour)
	c.Set("stale", 2, time.Minute)

	*now = now.Add(30 * time.Minute)
	stats := c.Snapshot()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Expired)
}
