package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := NewSimpleCache[string, string]()
	c.Set("user_name", "ann", 0)

	v, ok := c.Get("user_name")
	require.True(t, ok)
	require.Equal(t, "ann", v)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := NewSimpleCache[string, int]()

	base := time.Now()
	now = func() time.Time { return base }
	defer func() { now = time.Now }()

	c.Set("k", 1, time.Minute)
	_, ok := c.Get("k")
	require.True(t, ok)

	now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestDeleteAndClear(t *testing.T) {
	c := NewSimpleCache[string, int]()
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Delete("a")
	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestPurgeExpired(t *testing.T) {
	c := NewSimpleCache[string, int]()

	base := time.Now()
	now = func() time.Time { return base }
	defer func() { now = time.Now }()

	c.Set("stale", 1, time.Second)
	c.Set("fresh", 2, time.Hour)

	now = func() time.Time { return base.Add(time.Minute) }
	c.PurgeExpired()

	_, ok := c.Get("stale")
	require.False(t, ok)
	_, ok = c.Get("fresh")
	require.True(t, ok)
}
