package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("alice|dashboard", 1)
	c.Set("alice|budget|2024-03", 2)
	c.Set("bob|dashboard", 3)

	assert.Equal(t, 2, c.DeletePrefix("alice|"))
	_, ok := c.Get("bob|dashboard")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Size())
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register(c)
	clock.t = clock.t.Add(time.Hour)

	assert.Equal(t, 2, m.Sweep())
	assert.Zero(t, c.Size())

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManagerRestartAfterStop(t *testing.T) {
	m := NewManager(nil)
	for range 3 {
		m.StartCleanup(time.Millisecond)
		m.StartCleanup(time.Millisecond)
		assert.NotPanics(t, m.Stop)
	}
	assert.NotPanics(t, m.Stop)
}
