package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

// ErrTransient marks an error as safe to retry.
var ErrTransient = errors.New("transient provider error")

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	Jitter          bool
	RetryableErrors func(error) bool

	// Sleep waits for d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait, after a transient failure.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy returns the provider retry policy: five attempts,
// one second doubling to a sixty second cap, no jitter.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     5,
		InitialDelay:    1 * time.Second,
		MaxDelay:        60 * time.Second,
		Multiplier:      2.0,
		Jitter:          false,
		RetryableErrors: IsTransient,
	}
}

// Execute runs fn until it succeeds, fails permanently, or attempts run out.
// On exhaustion the last error is returned as-is.
func (p *RetryPolicy) Execute(ctx context.Context, fn func(context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.RetryableErrors
	if retryable == nil {
		retryable = IsTransient
	}

	logger := logging.WithComponent("retry")

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !retryable(err) {
			logger.Debug().Err(err).Msg("Error is not retryable")
			return err
		}

		if attempt >= maxAttempts {
			logger.Error().Err(err).Int("attempts", attempt).Msg("Max retries exhausted")
			break
		}

		delay := p.Delay(attempt)

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("next_attempt", attempt+1).
			Str("delay", delay.String()).
			Msg("Operation failed, retrying")

		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// Delay returns the wait after the given failed attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1))

	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		delay = delay + rand.Float64()*0.3*delay
		if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
		}
	}

	return time.Duration(delay)
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient reports whether a provider error is expected to clear on retry:
// throttling, gateway and availability statuses, and network timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransient) {
		return true
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
