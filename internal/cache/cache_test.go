package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_PutGet(t *testing.T) {
	c, err := NewFileCache(t.TempDir(), time.Minute)
	require.NoError(t, err)

	key := Key("1", "oee", "normal")
	_, err = c.Get(key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Put(key, []byte("png-bytes")))

	data, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestFileCache_Expiry(t *testing.T) {
	c, err := NewFileCache(t.TempDir(), time.Minute)
	require.NoError(t, err)

	key := Key("1", "status")
	require.NoError(t, c.Put(key, []byte("x")))

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = c.Get(key)
	assert.ErrorIs(t, err, ErrMiss)

	removed, err := c.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestKey_TenantSeparation(t *testing.T) {
	assert.NotEqual(t, Key("1", "status"), Key("2", "status"))
	assert.Equal(t, Key("1", "status"), Key("1", "status"))
	assert.Len(t, Key("1"), 64)
}

// Требует запущенный Redis: REDIS_TEST_ADDR=localhost:6379
func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	r, err := NewRedisCache(ctx, addr, "", 15)
	require.NoError(t, err)
	defer r.Close()

	key := SessionKeyPrefix + "integration"
	require.NoError(t, r.SetWithTTL(ctx, key, map[string]int{"a": 1}, time.Minute))

	var got map[string]int
	require.NoError(t, r.Get(ctx, key, &got))
	assert.Equal(t, 1, got["a"])

	require.NoError(t, r.Delete(ctx, key))
	assert.ErrorIs(t, r.Get(ctx, key, &got), ErrMiss)

	n, err := r.IncrementCounter(ctx, "stats:integration")
	require.NoError(t, err)
	assert.Positive(t, n)
	require.NoError(t, r.Delete(ctx, "stats:integration"))
}
