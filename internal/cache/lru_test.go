package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", 3)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUExpiry(t *testing.T) {
	c := New[string, string](4, 10*time.Millisecond)
	c.Set("k", "v")

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestLRUSetRefreshesExisting(t *testing.T) {
	c := New[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLRUDeleteFunc(t *testing.T) {
	c := New[string, int](8, time.Minute)
	c.Set("p1/a.ts", 1)
	c.Set("p1/b.ts", 2)
	c.Set("p2/a.ts", 3)

	c.DeleteFunc(func(k string, _ int) bool { return strings.HasPrefix(k, "p1/") })

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("p2/a.ts")
	assert.True(t, ok)
}

func TestLRUClearAndDelete(t *testing.T) {
	c := New[int, int](4, time.Minute)
	c.Set(1, 1)
	c.Set(2, 2)

	c.Delete(1)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(2)
	assert.False(t, ok)
}

func TestLRUMinimumCapacity(t *testing.T) {
	c := New[string, int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 1, c.Len())
}
