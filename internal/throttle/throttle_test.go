package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SpacesSameKey(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx, "finnhub"))
	}

	// first dispatch is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRegistry_KeysIndependent(t *testing.T) {
	r := NewRegistry(time.Second)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, r.Wait(ctx, "a"))
	require.NoError(t, r.Wait(ctx, "b"))
	require.NoError(t, r.Wait(ctx, "c"))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRegistry_Disabled(t *testing.T) {
	r := NewRegistry(0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, r.Wait(context.Background(), "x"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRegistry_ContextCancelled(t *testing.T) {
	r := NewRegistry(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, r.Wait(ctx, "slow"))
	cancel()
	assert.Error(t, r.Wait(ctx, "slow"))
}

func TestRegistry_SetInterval(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.SetInterval("fast", 0)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Wait(context.Background(), "fast"))
	}
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "www.reddit.com", HostKey("https://www.reddit.com/r/stocks/.json"))
	assert.Equal(t, "127.0.0.1", HostKey("http://127.0.0.1:8080/x"))
	assert.Equal(t, "FINNHUB", HostKey("FINNHUB"))
}
