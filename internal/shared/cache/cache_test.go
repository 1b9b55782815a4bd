package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string, int](time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestCacheExpiration(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, string](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("short", "x", time.Second)
	c.Set("long", "y")

	now = now.Add(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, "y", v)
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 1, c.Len())
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[int, string](time.Minute)
	c.Set(1, "one")
	c.Set(2, "two")

	c.Delete(1)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Set(n%5, n)
			c.Get(n % 5)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
