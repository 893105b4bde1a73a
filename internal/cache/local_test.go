package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	release, ok, err := l.TryLock(ctx, "full", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "full", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "held")

	_, ok, _ = l.TryLock(ctx, "matches", time.Hour)
	assert.True(t, ok, "locks are independent")

	release()
	release2, ok, _ := l.TryLock(ctx, "full", time.Hour)
	require.True(t, ok)

	// expiry frees a lock whose holder never released it
	now = now.Add(2 * time.Hour)
	_, ok, _ = l.TryLock(ctx, "full", time.Hour)
	assert.True(t, ok)

	// the stale holder cannot release the new holder's lock
	release2()
	_, ok, _ = l.TryLock(ctx, "full", time.Hour)
	assert.False(t, ok)
}

func TestLocalCursorAndYields(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	n, err := l.Advance(ctx, "news:GB1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	n, _ = l.Advance(ctx, "news:GB1", 5)
	assert.Equal(t, int64(10), n)

	_, ok, err := l.LastYield(ctx, "GB1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.RecordYield(ctx, "GB1", 10))
	got, ok, _ := l.LastYield(ctx, "GB1")
	assert.True(t, ok)
	assert.Equal(t, 10, got)

	all, _ := l.Yields(ctx)
	assert.Equal(t, map[string]int{"GB1": 10}, all)
}
