package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetWithinTTL(t *testing.T) {
	c := New(5 * time.Minute)

	c.Set("k", "payload")

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "payload", got)
	require.Equal(t, 1, c.Size())
}

func TestGetAfterExpiryPurgesEntry(t *testing.T) {
	c := New(5 * time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("k", "payload")

	current = current.Add(5*time.Minute + time.Second)

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Size(), "expired entry should be purged by the lookup")
}

func TestGetMissingKey(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("nope")
	require.False(t, ok)
}

func TestSetResetsTTL(t *testing.T) {
	c := New(time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("k", "old")

	current = current.Add(45 * time.Second)
	c.Set("k", "new")

	current = current.Add(30 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", got)
}

func TestClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	require.Equal(t, 2, c.Size())

	c.Clear()
	require.Equal(t, 0, c.Size())

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestKeyFingerprints(t *testing.T) {
	base := Key("https://example.com/watch?v=abc", "", "")

	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, base, Key("https://example.com/watch?v=abc", "", ""))
	})

	t.Run("variant discriminator changes the key", func(t *testing.T) {
		withVariant := Key("https://example.com/watch?v=abc", "", "formats")
		require.NotEqual(t, base, withVariant)
	})

	t.Run("cookie material changes the key", func(t *testing.T) {
		withCookies := Key("https://example.com/watch?v=abc", "SESSION=1", "")
		require.NotEqual(t, base, withCookies)
	})

	t.Run("different urls never collide on variant", func(t *testing.T) {
		require.NotEqual(t,
			Key("https://example.com/a", "", "formats"),
			Key("https://example.com/b", "", "formats"),
		)
	})
}
