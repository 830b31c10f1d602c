package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowUpToLimit(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("client-a"), "call %d within the limit should pass", i+1)
	}

	require.False(t, l.Allow("client-a"), "call above the limit should be rejected")
}

func TestWindowExpiryReadmits(t *testing.T) {
	l := New(2, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	require.True(t, l.Allow("client-a"))
	require.True(t, l.Allow("client-a"))
	require.False(t, l.Allow("client-a"))

	current = current.Add(time.Minute + time.Second)

	require.True(t, l.Allow("client-a"), "a fresh window should admit again")
}

func TestRejectionIsNotRecorded(t *testing.T) {
	l := New(1, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	require.True(t, l.Allow("client-a"))

	// Hammering while rejected must not extend the penalty.
	for i := 0; i < 5; i++ {
		current = current.Add(time.Second)
		require.False(t, l.Allow("client-a"))
	}

	current = current.Add(time.Minute)
	require.True(t, l.Allow("client-a"))
}

func TestClientsAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	require.True(t, l.Allow("client-a"))
	require.True(t, l.Allow("client-b"))
	require.False(t, l.Allow("client-a"))
	require.False(t, l.Allow("client-b"))

	require.Equal(t, 2, l.ClientCount())
}

func TestAnonymousCallersShareTheDefaultBucket(t *testing.T) {
	l := New(2, time.Minute)

	require.True(t, l.Allow(""))
	require.True(t, l.Allow(DefaultClientID))
	require.False(t, l.Allow(""), "anonymous callers share one window")

	require.Equal(t, 1, l.ClientCount())
}
