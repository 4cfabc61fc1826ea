package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "index:")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte("<html>feed</html>")
	require.NoError(t, m.Set(ctx, "index:", value, DefaultTTL))
	value[0] = 'X' // кэш хранит свою копию

	got, ok, err := m.Get(ctx, "index:")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<html>feed</html>", string(got))
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "index:", []byte("page"), 20*time.Second))

	now = now.Add(19 * time.Second)
	_, ok, _ := m.Get(ctx, "index:")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = m.Get(ctx, "index:")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Invalidate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "index:", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "index:page=2", []byte("2"), time.Minute))
	require.NoError(t, m.Invalidate(ctx))

	for _, key := range []string{"index:", "index:page=2"} {
		_, ok, err := m.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestMemory_ZeroTTLIsNotStored(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set(context.Background(), "index:", []byte("1"), 0))
	assert.Equal(t, 0, m.Len())
}

func TestMemory_SetSweepsExpired(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for _, key := range []string{"index:page=1", "index:page=2", "index:page=3"} {
		require.NoError(t, m.Set(ctx, key, []byte("page"), 20*time.Second))
	}
	assert.Equal(t, 3, m.Len())

	// Истекшие записи удаляются при следующей записи, без Get по их ключам
	now = now.Add(21 * time.Second)
	require.NoError(t, m.Set(ctx, "index:page=1", []byte("fresh"), 20*time.Second))
	assert.Equal(t, 1, m.Len())
}
