package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/mdcagent/internal/models"
	mockprovider "github.com/catherinevee/mdcagent/internal/providers/mock"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
	"github.com/catherinevee/mdcagent/internal/shared/metrics"
	"github.com/catherinevee/mdcagent/internal/shared/resilience"
	"github.com/catherinevee/mdcagent/internal/validation"
)

const testSub = "12345678-1234-1234-1234-123456789012"

func noWaitPolicy() *resilience.RetryPolicy {
	p := resilience.DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func newTestService(source *mockprovider.Provider, collector *metrics.Collector) *RecommendationService {
	return NewRecommendationService(source, Options{
		DefaultSubscriptionID: testSub,
		Retry:                 noWaitPolicy(),
		Metrics:               collector,
	})
}

func record(n int, severity, status, group, resourceType string) models.Record {
	name := fmt.Sprintf("assessment-%02d", n)
	return models.Record{
		ID:          fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Security/assessments/%s", testSub, name),
		Name:        name,
		DisplayName: fmt.Sprintf("Recommendation %d", n),
		Severity:    severity,
		Status:      models.RecordStatus{Code: status},
		ResourceDetails: models.ResourceDetails{
			ID: fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/res-%d", testSub, group, resourceType, n),
		},
	}
}

func query(mutate func(q *models.ListQuery)) models.ListQuery {
	q := models.NewListQuery()
	if mutate != nil {
		mutate(&q)
	}
	return q
}

func requireAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *AppError, got %T", err)
	return appErr
}

func TestList_ReturnsAllRecords(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	source.SetRecords([]models.Record{
		record(1, "High", "Unhealthy", "rg-a", "Microsoft.Compute/virtualMachines"),
		record(2, "Low", "Healthy", "rg-b", "Microsoft.Storage/storageAccounts"),
	})
	svc := newTestService(source, nil)

	result, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)

	resp := result.Response
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, models.SeverityHigh, resp.Recommendations[0].Severity)
	assert.Equal(t, "Recommendation 1", resp.Recommendations[0].Title)
	assert.Equal(t, testSub, resp.Recommendations[0].SubscriptionID)
	require.NotNil(t, resp.Recommendations[1].ResourceGroup)
	assert.Equal(t, "rg-b", *resp.Recommendations[1].ResourceGroup)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Body, &decoded))
	assert.Contains(t, decoded, "total_count")
	assert.Equal(t, 1, source.ListCallCount())
}

func TestList_FiltersBySeverity(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	source.SetRecords([]models.Record{
		record(1, "High", "Unhealthy", "rg-a", "Microsoft.Compute/virtualMachines"),
		record(2, "Low", "Unhealthy", "rg-a", "Microsoft.Compute/virtualMachines"),
		record(3, "High", "Healthy", "rg-b", "Microsoft.Sql/servers"),
	})
	svc := newTestService(source, nil)

	result, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.Severity = []string{"High"}
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Response.TotalCount)
	for _, rec := range result.Response.Recommendations {
		assert.Equal(t, models.SeverityHigh, rec.Severity)
	}
}

func TestList_SeverityFilterUsesRawSeverity(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	source.SetRecords([]models.Record{
		record(1, "Medium", "Unhealthy", "rg-a", "Microsoft.Compute/virtualMachines"),
		record(2, "", "Unhealthy", "rg-a", "Microsoft.Web/sites"),
		record(3, "high", "Unhealthy", "rg-a", "Microsoft.Sql/servers"),
	})
	svc := newTestService(source, nil)

	all, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)
	require.Len(t, all.Response.Recommendations, 3)
	assert.Equal(t, models.SeverityMedium, all.Response.Recommendations[1].Severity)
	assert.Equal(t, models.SeverityHigh, all.Response.Recommendations[2].Severity)

	medium, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.Severity = []string{"Medium"}
	}))
	require.NoError(t, err)
	require.Equal(t, 1, medium.Response.TotalCount)
	assert.Equal(t, "Recommendation 1", medium.Response.Recommendations[0].Title)

	high, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.Severity = []string{"High"}
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, high.Response.TotalCount)
	assert.Empty(t, high.Response.Recommendations)
}

func TestList_CombinesFilters(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	source.SetRecords([]models.Record{
		record(1, "High", "Unhealthy", "rg-prod", "Microsoft.Compute/virtualMachines"),
		record(2, "High", "Healthy", "rg-prod", "Microsoft.Compute/virtualMachines"),
		record(3, "High", "Unhealthy", "rg-dev", "Microsoft.Compute/virtualMachines"),
		record(4, "Medium", "Unhealthy", "rg-prod", "Microsoft.Storage/storageAccounts"),
	})
	svc := newTestService(source, nil)

	result, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.Severity = []string{"High", "Medium"}
		q.ResourceGroup = "rg-prod"
		q.ResourceType = "virtualmachines"
		q.AssessmentStatus = []string{"Unhealthy"}
	}))
	require.NoError(t, err)

	require.Equal(t, 1, result.Response.TotalCount)
	assert.Equal(t, "Recommendation 1", result.Response.Recommendations[0].Title)
}

func TestList_Paginates(t *testing.T) {
	records := make([]models.Record, 0, 25)
	for i := 1; i <= 25; i++ {
		records = append(records, record(i, "Medium", "Unhealthy", "rg", "Microsoft.Web/sites"))
	}
	source := mockprovider.NewProvider(testSub)
	source.SetRecords(records)
	svc := newTestService(source, nil)

	result, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.Limit = 10
		q.Offset = 10
	}))
	require.NoError(t, err)

	resp := result.Response
	assert.Equal(t, 25, resp.TotalCount)
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 10, resp.Offset)
	require.Len(t, resp.Recommendations, 10)
	assert.Equal(t, "Recommendation 11", resp.Recommendations[0].Title)
	assert.Equal(t, "Recommendation 20", resp.Recommendations[9].Title)
}

func TestList_PermissionDenied(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	source.FailList(mockprovider.ResponseError(http.StatusForbidden, "AuthorizationFailed"))
	svc := newTestService(source, nil)

	_, err := svc.List(context.Background(), query(nil))

	appErr := requireAppError(t, err)
	assert.Equal(t, apperrors.KindPermissionDenied, appErr.Kind)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, 1, source.ListCallCount(), "permission errors are not retried")
}

func TestList_InvalidSeverityDoesNotCallProvider(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	svc := newTestService(source, nil)

	_, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.Severity = []string{"Urgent"}
	}))

	appErr := requireAppError(t, err)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "severity", appErr.Details["parameter"])
	assert.Equal(t, []string{"Urgent"}, appErr.Details["provided_value"])
	assert.Equal(t, models.ValidSeverities, appErr.Details["valid_values"])
	assert.Zero(t, source.ListCallCount())
}

func TestList_EmptyListing(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	source.SetRecords(nil)
	svc := newTestService(source, nil)

	result, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)

	assert.Zero(t, result.Response.TotalCount)
	assert.Empty(t, result.Response.Recommendations)
	assert.Contains(t, string(result.Body), `"recommendations":[]`)
}

func TestList_RangeViolations(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(q *models.ListQuery)
		parameter string
	}{
		{"limit zero", func(q *models.ListQuery) { q.Limit = 0 }, "limit"},
		{"limit too large", func(q *models.ListQuery) { q.Limit = 1001 }, "limit"},
		{"negative offset", func(q *models.ListQuery) { q.Offset = -1 }, "offset"},
		{"bad subscription", func(q *models.ListQuery) { q.SubscriptionID = "not-a-guid" }, "subscription_id"},
		{"bad assignment status", func(q *models.ListQuery) { q.AssignmentStatus = "pending" }, "assignment_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := mockprovider.NewProvider(testSub)
			svc := newTestService(source, nil)

			_, err := svc.List(context.Background(), query(tt.mutate))

			appErr := requireAppError(t, err)
			assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
			assert.Equal(t, tt.parameter, appErr.Details["parameter"])
			assert.Zero(t, source.ListCallCount())
		})
	}
}

func TestList_AssignmentStatusNotEnforced(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	svc := newTestService(source, nil)

	all, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)
	assigned, err := svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.AssignmentStatus = "assigned"
	}))
	require.NoError(t, err)

	assert.Equal(t, all.Response.TotalCount, assigned.Response.TotalCount)
}

func TestList_RequiresSubscription(t *testing.T) {
	other := "abcdefab-cdef-abcd-efab-cdefabcdefab"
	source := &scriptedSource{}
	source.On("ListRecords", mock.Anything, "/subscriptions/"+other).Return([]models.Record{}, nil).Once()
	svc := NewRecommendationService(source, Options{Retry: noWaitPolicy()})

	_, err := svc.List(context.Background(), query(nil))
	appErr := requireAppError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "subscription_id", appErr.Details["parameter"])

	_, err = svc.List(context.Background(), query(func(q *models.ListQuery) {
		q.SubscriptionID = other
	}))
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestList_RetriesTransientFailures(t *testing.T) {
	collector := metrics.NewCollector()
	source := mockprovider.NewProvider(testSub)
	source.FailList(
		mockprovider.ResponseError(http.StatusServiceUnavailable, "ServiceUnavailable"),
		mockprovider.ResponseError(http.StatusTooManyRequests, "TooManyRequests"),
	)
	svc := newTestService(source, collector)

	result, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, result.Response.Recommendations)
	assert.Equal(t, 3, source.ListCallCount())

	expected := `
# HELP mdcagent_provider_retries_total Total provider call retries after transient failures
# TYPE mdcagent_provider_retries_total counter
mdcagent_provider_retries_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"mdcagent_provider_retries_total"))
}

func TestList_RateLimitExhausted(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	throttled := make([]error, 5)
	for i := range throttled {
		throttled[i] = mockprovider.ResponseErrorWithHeader(http.StatusTooManyRequests, "TooManyRequests",
			http.Header{"Retry-After": []string{"30"}})
	}
	source.FailList(throttled...)
	svc := newTestService(source, nil)

	_, err := svc.List(context.Background(), query(nil))

	appErr := requireAppError(t, err)
	assert.Equal(t, apperrors.KindRateLimitExceeded, appErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	assert.Equal(t, 5, source.ListCallCount())
}

func TestList_ResponseTooLarge(t *testing.T) {
	records := make([]models.Record, 0, 50)
	for i := 0; i < 50; i++ {
		r := record(i, "High", "Unhealthy", "rg", "Microsoft.Web/sites")
		r.Status.Description = strings.Repeat("x", 1024)
		records = append(records, r)
	}
	source := mockprovider.NewProvider(testSub)
	source.SetRecords(records)
	svc := NewRecommendationService(source, Options{
		DefaultSubscriptionID: testSub,
		Retry:                 noWaitPolicy(),
		SizeGuard:             validation.SizeGuard{Max: 8 * 1024},
	})

	_, err := svc.List(context.Background(), query(nil))

	appErr := requireAppError(t, err)
	assert.Equal(t, apperrors.KindResponseTooLarge, appErr.Kind)
	assert.Equal(t, 8*1024, appErr.Details["max_size_bytes"])
}

func TestGet(t *testing.T) {
	source := mockprovider.NewProvider(testSub)
	svc := newTestService(source, nil)

	result, err := svc.Get(context.Background(), "", "d57a4221-a804-52ca-3dea-768284f06bb7")
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, result.Recommendation.Severity)
	assert.Equal(t, []string{"CIS", "PCI-DSS"}, result.Recommendation.ComplianceStandards)
	assert.Contains(t, string(result.Body), `"recommendation_id"`)
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name         string
		subscription string
		id           string
		kind         apperrors.Kind
		status       int
	}{
		{"missing id", "", " ", apperrors.KindValidation, http.StatusUnprocessableEntity},
		{"bad subscription", "nope", "abc", apperrors.KindValidation, http.StatusUnprocessableEntity},
		{"not found", testSub, "missing", apperrors.KindResourceNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(mockprovider.NewProvider(testSub), nil)

			_, err := svc.Get(context.Background(), tt.subscription, tt.id)

			appErr := requireAppError(t, err)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, tt.status, appErr.Status)
		})
	}
}

// scriptedSource is a testify mock RecordSource.
type scriptedSource struct {
	mock.Mock
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) ListRecords(ctx context.Context, scope string) ([]models.Record, error) {
	args := s.Called(ctx, scope)
	records, _ := args.Get(0).([]models.Record)
	return records, args.Error(1)
}

func (s *scriptedSource) GetRecord(ctx context.Context, scope, name string) (models.Record, error) {
	args := s.Called(ctx, scope, name)
	rec, _ := args.Get(0).(models.Record)
	return rec, args.Error(1)
}

func TestList_UsesSubscriptionScope(t *testing.T) {
	source := &scriptedSource{}
	source.On("ListRecords", mock.Anything, "/subscriptions/"+testSub).
		Return([]models.Record{record(1, "High", "Unhealthy", "rg", "Microsoft.Web/sites")}, nil).
		Once()

	svc := NewRecommendationService(source, Options{DefaultSubscriptionID: testSub, Retry: noWaitPolicy()})
	result, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Response.TotalCount)

	source.AssertExpectations(t)
}

func TestList_CallTimeoutAppliesPerAttempt(t *testing.T) {
	source := &scriptedSource{}
	source.On("ListRecords", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		}).
		Return([]models.Record{}, nil)

	svc := NewRecommendationService(source, Options{
		DefaultSubscriptionID: testSub,
		Retry:                 noWaitPolicy(),
		CallTimeout:           time.Minute,
	})
	_, err := svc.List(context.Background(), query(nil))
	require.NoError(t, err)
	source.AssertNumberOfCalls(t, "ListRecords", 1)
}

func TestSetVerbose(t *testing.T) {
	source := &scriptedSource{}
	source.On("ListRecords", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("boom"))

	svc := NewRecommendationService(source, Options{DefaultSubscriptionID: testSub, Retry: noWaitPolicy()})

	_, err := svc.List(context.Background(), query(nil))
	assert.NotContains(t, requireAppError(t, err).Details, "error_type")

	svc.SetVerbose(true)
	_, err = svc.List(context.Background(), query(nil))
	assert.Equal(t, "*errors.errorString", requireAppError(t, err).Details["error_type"])
}
