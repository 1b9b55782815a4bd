package resilience

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiterNilIsNoop(t *testing.T) {
	var rl *RateLimiter
	assert.NoError(t, rl.Wait(context.Background()))
}

func TestRateLimiterBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.Equal(t, 1.0, rl.Limit())

	require.NoError(t, rl.Wait(context.Background()))
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.Error(t, err)
}

func TestRateLimiterLogsLongWaits(t *testing.T) {
	previous := logging.Logger
	defer func() {
		logging.Logger = previous
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}()

	var buf bytes.Buffer
	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	require.NoError(t, logging.InitWithWriter(cfg, "test", &buf))

	rl := NewRateLimiter(5, 1)
	require.NoError(t, rl.Wait(context.Background()))
	assert.Empty(t, buf.String())

	require.NoError(t, rl.Wait(context.Background()))
	assert.Contains(t, buf.String(), `"component":"ratelimiter"`)
	assert.Contains(t, buf.String(), "Provider call delayed by rate limiter")
}
