// Package services runs the recommendation pipeline on top of a record
// source: validate, fetch with retries, filter, parse, paginate and
// size-check.
package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/catherinevee/mdcagent/internal/filtering"
	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/providers"
	"github.com/catherinevee/mdcagent/internal/recommendations"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
	"github.com/catherinevee/mdcagent/internal/shared/metrics"
	"github.com/catherinevee/mdcagent/internal/shared/resilience"
	"github.com/catherinevee/mdcagent/internal/validation"
)

// Provider operation names used in logs and metrics.
const (
	OperationList = "list_assessments"
	OperationGet  = "get_assessment"
)

// Options configures a RecommendationService. Zero values fall back to the
// defaults noted on each field.
type Options struct {
	// DefaultSubscriptionID is used when a request names no subscription.
	DefaultSubscriptionID string
	// Retry defaults to resilience.DefaultRetryPolicy.
	Retry *resilience.RetryPolicy
	// Limiter is optional. Nil disables outbound throttling.
	Limiter *resilience.RateLimiter
	// Metrics is optional.
	Metrics *metrics.Collector
	// SizeGuard defaults to validation.NewSizeGuard.
	SizeGuard validation.SizeGuard
	// CallTimeout bounds each provider attempt. Zero means no bound.
	CallTimeout time.Duration
	// Verbose adds diagnostic details to unclassified errors.
	Verbose bool
}

// ListResult is one page of recommendations plus its encoded form.
type ListResult struct {
	Response models.RecommendationListResponse
	Body     []byte
}

// GetResult is one recommendation plus its encoded form.
type GetResult struct {
	Recommendation models.Recommendation
	Body           []byte
}

// RecommendationService serves normalized recommendations. It holds no
// per-request state and is safe for concurrent use.
type RecommendationService struct {
	source       providers.RecordSource
	defaultSubID string
	retry        *resilience.RetryPolicy
	limiter      *resilience.RateLimiter
	metrics      *metrics.Collector
	sizeGuard    validation.SizeGuard
	callTimeout  time.Duration
	verbose      atomic.Bool
}

// NewRecommendationService creates a service over source.
func NewRecommendationService(source providers.RecordSource, opts Options) *RecommendationService {
	policy := resilience.DefaultRetryPolicy()
	if opts.Retry != nil {
		copied := *opts.Retry
		policy = &copied
	}

	collector := opts.Metrics
	previous := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		collector.IncRetries()
		if previous != nil {
			previous(attempt, delay, err)
		}
	}

	guard := opts.SizeGuard
	if guard.Max <= 0 {
		guard = validation.NewSizeGuard()
	}

	s := &RecommendationService{
		source:       source,
		defaultSubID: opts.DefaultSubscriptionID,
		retry:        policy,
		limiter:      opts.Limiter,
		metrics:      collector,
		sizeGuard:    guard,
		callTimeout:  opts.CallTimeout,
	}
	s.verbose.Store(opts.Verbose)
	return s
}

// SetVerbose toggles diagnostic error details. Used on config reload.
func (s *RecommendationService) SetVerbose(verbose bool) {
	s.verbose.Store(verbose)
}

// List returns the page of recommendations selected by q. Every error is an
// *errors.AppError.
func (s *RecommendationService) List(ctx context.Context, q models.ListQuery) (*ListResult, error) {
	if err := validation.ValidateQuery(q); err != nil {
		return nil, s.fail(ctx, "list", err)
	}

	subscriptionID, err := s.resolveSubscription(q.SubscriptionID)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}

	logger := logging.FromContext(ctx)
	if logging.DebugEnabled() && q.AssignmentStatus != "" && q.AssignmentStatus != string(models.AssignmentStatusAll) {
		logger.Debug().
			Str("assignment_status", q.AssignmentStatus).
			Msg("Assignment status filter accepted but not applied")
	}

	var records []models.Record
	err = s.callProvider(ctx, OperationList, func(ctx context.Context) error {
		var callErr error
		records, callErr = s.source.ListRecords(ctx, providers.SubscriptionScope(subscriptionID))
		return callErr
	})
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}

	filtered := filtering.FromQuery(q).Apply(records)
	s.metrics.ObserveFiltered(len(filtered))

	parsed := recommendations.ParseAll(filtered, subscriptionID)
	response := models.RecommendationListResponse{
		Recommendations: recommendations.Paginate(parsed, q.Limit, q.Offset),
		TotalCount:      len(parsed),
		Limit:           q.Limit,
		Offset:          q.Offset,
	}

	body, err := s.sizeGuard.Check(response)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	s.metrics.ObserveResponseSize(len(body))

	logger.Info().
		Str("subscription_id", subscriptionID).
		Int("fetched", len(records)).
		Int("filtered", len(filtered)).
		Int("returned", len(response.Recommendations)).
		Int("size_bytes", len(body)).
		Msg("Listed recommendations")

	return &ListResult{Response: response, Body: body}, nil
}

// Get returns one recommendation by assessment name.
func (s *RecommendationService) Get(ctx context.Context, subscriptionID, id string) (*GetResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, s.fail(ctx, "get", apperrors.NewValidationError("recommendation_id", "recommendation_id is required"))
	}
	if subscriptionID != "" && !models.IsSubscriptionID(subscriptionID) {
		err := apperrors.NewValidationError("subscription_id", "subscription_id must be a subscription id in 8-4-4-4-12 hex form").
			WithDetails("provided_value", subscriptionID)
		return nil, s.fail(ctx, "get", err)
	}

	subscriptionID, err := s.resolveSubscription(subscriptionID)
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}

	var record models.Record
	err = s.callProvider(ctx, OperationGet, func(ctx context.Context) error {
		var callErr error
		record, callErr = s.source.GetRecord(ctx, providers.SubscriptionScope(subscriptionID), id)
		return callErr
	})
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}

	rec := recommendations.Parse(record, subscriptionID)
	body, err := s.sizeGuard.Check(rec)
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	s.metrics.ObserveResponseSize(len(body))

	return &GetResult{Recommendation: rec, Body: body}, nil
}

func (s *RecommendationService) resolveSubscription(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if s.defaultSubID != "" {
		return s.defaultSubID, nil
	}
	return "", apperrors.NewValidationError("subscription_id",
		"subscription_id is required when no default subscription is configured")
}

// callProvider runs fn under the retry policy. Each attempt waits for the
// rate limiter and is bounded by the call timeout.
func (s *RecommendationService) callProvider(ctx context.Context, operation string, fn func(context.Context) error) error {
	return s.retry.Execute(ctx, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx := ctx
		if s.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
			defer cancel()
		}

		start := time.Now()
		err := fn(callCtx)
		s.metrics.ObserveProviderCall(operation, outcome(err), time.Since(start))
		return err
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case resilience.IsTransient(err):
		return metrics.OutcomeTransient
	default:
		return metrics.OutcomeError
	}
}

// fail classifies err and logs it once.
func (s *RecommendationService) fail(ctx context.Context, action string, err error) *apperrors.AppError {
	appErr := apperrors.Classifier{Verbose: s.verbose.Load()}.Classify(err)

	logger := logging.FromContext(ctx).With().Str("source", s.source.Name()).Logger()
	event := logger.Warn()
	if appErr.Status >= 500 && !errors.Is(err, context.Canceled) {
		event = logger.Error()
	}
	event.
		Err(err).
		Str("action", action).
		Str("error_code", string(appErr.Kind)).
		Int("status", appErr.Status).
		Msg("Recommendation request failed")

	return appErr
}
