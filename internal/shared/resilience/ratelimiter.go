package resilience

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

// DefaultAzureRPS matches the per-subscription read budget the provider
// tolerates before it starts returning 429s.
const DefaultAzureRPS = 12

// RateLimiter throttles outbound provider calls. It is safe for concurrent
// use and shared by every request of a process.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps calls per second with the
// given burst. A non-positive rps disables throttling.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a call may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}

	start := time.Now()
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if waited := time.Since(start); waited > 100*time.Millisecond {
		logger := logging.WithComponent("ratelimiter")
		logger.Debug().
			Dur("waited", waited).
			Msg("Provider call delayed by rate limiter")
	}
	return nil
}

// Limit returns the configured calls per second.
func (rl *RateLimiter) Limit() float64 {
	if rl == nil {
		return float64(rate.Inf)
	}
	return float64(rl.limiter.Limit())
}
