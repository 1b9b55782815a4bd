// Package app wires configuration into a ready recommendation service.
package app

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/catherinevee/mdcagent/internal/credentials"
	"github.com/catherinevee/mdcagent/internal/providers"
	"github.com/catherinevee/mdcagent/internal/services"
	"github.com/catherinevee/mdcagent/internal/shared/config"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
	"github.com/catherinevee/mdcagent/internal/shared/metrics"
	"github.com/catherinevee/mdcagent/internal/shared/resilience"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// RetryPolicy returns the provider retry policy described by cfg.
func RetryPolicy(cfg config.ProviderConfig) *resilience.RetryPolicy {
	policy := resilience.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 {
		policy.InitialDelay = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		policy.MaxDelay = cfg.MaxBackoff
	}
	return policy
}

// NewService builds the record source selected by cfg and the service
// around it. collector may be nil.
func NewService(cfg *config.Config, collector *metrics.Collector) (*services.RecommendationService, error) {
	var cred azcore.TokenCredential
	if cfg.Provider.Kind == config.ProviderAzure {
		c, err := credentials.NewAzureCredential(cfg.Azure)
		if err != nil {
			return nil, fmt.Errorf("failed to create credential: %w", err)
		}
		cred = c

		described := credentials.Describe(cfg.Azure)
		logger := logging.WithComponent("app")
		logger.Info().
			Str("method", string(described.Method)).
			Interface("details", described.Details).
			Msg("Azure credential configured")
	}

	source, err := providers.NewRecordSource(cfg, cred)
	if err != nil {
		return nil, err
	}

	svc := services.NewRecommendationService(source, services.Options{
		DefaultSubscriptionID: cfg.Azure.SubscriptionID,
		Retry:                 RetryPolicy(cfg.Provider),
		Limiter:               resilience.NewRateLimiter(cfg.Provider.RequestsPerSecond, cfg.Provider.Burst),
		Metrics:               collector,
		CallTimeout:           cfg.Provider.CallTimeout,
		Verbose:               cfg.Debug,
	})

	logger := logging.WithComponent("app")
	logger.Info().
		Str("provider", source.Name()).
		Bool("default_subscription", cfg.Azure.SubscriptionID != "").
		Float64("requests_per_second", cfg.Provider.RequestsPerSecond).
		Int("max_attempts", cfg.Provider.MaxAttempts).
		Msg("Recommendation service ready")

	return svc, nil
}
