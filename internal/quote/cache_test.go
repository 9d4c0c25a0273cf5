package quote

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-screener/internal/store"
)

func TestCache_GetSet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	key := MakeKey("finnhub", "AAPL", "D")
	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Set(key, []byte(`{"s":"ok"}`)))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.JSONEq(t, `{"s":"ok"}`, string(got))
}

func TestCache_NilIsAlwaysMissing(t *testing.T) {
	c, err := NewCache("", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, c)

	assert.NoError(t, c.Set("k", []byte("v")))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.NoError(t, c.CleanupExpired())
}

func TestCache_CleanupExpired(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Set("old", []byte("1")))
	require.NoError(t, c.Set("fresh", []byte("2")))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.path("old"), past, past))

	require.NoError(t, c.CleanupExpired())

	_, err = os.Stat(c.path("old"))
	assert.True(t, os.IsNotExist(err))
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCleanupCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "quotes")
	cfg := store.Default()
	cfg.Quote.CacheDir = dir
	cfg.Quote.CacheTTL = time.Minute

	c, err := NewCache(dir, time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.Set("old", []byte("1")))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.path("old"), past, past))

	require.NoError(t, CleanupCache(cfg))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	cfg.Quote.CacheDir = ""
	assert.NoError(t, CleanupCache(cfg))
}
