package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()

	c.Set("alert:1", "payload", time.Minute)

	value, found := c.Get("alert:1")
	assert.True(t, found)
	assert.Equal(t, "payload", value)

	_, found = c.Get("alert:missing")
	assert.False(t, found)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()

	c.Set("ephemeral", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("ephemeral")
	assert.False(t, found)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()

	c.Set("key", "value", time.Minute)
	c.Delete("key")

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestMemoryCache_EvictsAtCapacity(t *testing.T) {
	c := NewMemoryCache(3)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key%d", i), i, time.Minute)
	}
	// Touch key1 and key2 so key0 is the coldest
	c.Get("key1")
	c.Get("key2")

	c.Set("key3", 3, time.Minute)

	_, found := c.Get("key0")
	assert.False(t, found)

	stats := c.GetStats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()

	c.Set("hit", 1, time.Minute)
	c.Get("hit")
	c.Get("hit")
	c.Get("miss")

	stats := c.GetStats()
	require.Equal(t, int64(2), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(10)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()

	assert.Equal(t, 0, c.GetStats().Size)
}

func TestMemoryCache_SetExistingKeyDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(2)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("a", 3, time.Minute) // overwrite, no eviction needed

	value, found := c.Get("b")
	assert.True(t, found)
	assert.Equal(t, 2, value)

	value, _ = c.Get("a")
	assert.Equal(t, 3, value)
	assert.Equal(t, int64(0), c.GetStats().Evictions)
}
