package mock

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/mdcagent/internal/models"
)

const sub = "12345678-1234-1234-1234-123456789012"

func TestProvider_Name(t *testing.T) {
	assert.Equal(t, "mock", NewProvider(sub).Name())
}

func TestProvider_ListRecords(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider(sub)

	records, err := provider.ListRecords(ctx, "/subscriptions/"+sub)
	require.NoError(t, err)
	assert.Len(t, records, 6)
	assert.Equal(t, 1, provider.ListCallCount())

	for _, r := range records {
		assert.Contains(t, r.ID, "/subscriptions/"+sub+"/")
	}

	records[0].Name = "mutated"
	again, err := provider.ListRecords(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Name)
}

func TestProvider_DefaultSubscription(t *testing.T) {
	records, err := NewProvider("").ListRecords(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, records[0].ID, DefaultSubscriptionID)
}

func TestProvider_QueuedErrors(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider(sub)

	first := ResponseError(http.StatusServiceUnavailable, "ServiceUnavailable")
	second := errors.New("second")
	provider.FailList(first, second)

	_, err := provider.ListRecords(ctx, "")
	assert.Equal(t, first, err)
	_, err = provider.ListRecords(ctx, "")
	assert.Equal(t, second, err)
	_, err = provider.ListRecords(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, 3, provider.ListCallCount())
}

func TestProvider_GetRecord(t *testing.T) {
	ctx := context.Background()
	provider := NewProvider(sub)

	record, err := provider.GetRecord(ctx, "", "D57A4221-A804-52CA-3DEA-768284F06BB7")
	require.NoError(t, err)
	assert.Equal(t, "Enable disk encryption on virtual machines", record.DisplayName)

	_, err = provider.GetRecord(ctx, "", "missing")
	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)
	assert.Equal(t, "AssessmentNotFound", respErr.ErrorCode)

	provider.FailGet(ResponseError(http.StatusForbidden, "AuthorizationFailed"))
	_, err = provider.GetRecord(ctx, "", "d57a4221-a804-52ca-3dea-768284f06bb7")
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusForbidden, respErr.StatusCode)
	assert.Equal(t, 3, provider.GetCallCount())
}

func TestProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider(sub).ListRecords(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_SetRecords(t *testing.T) {
	provider := NewProvider(sub)
	provider.SetRecords([]models.Record{})

	records, err := provider.ListRecords(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestResponseErrorWithHeader(t *testing.T) {
	err := ResponseErrorWithHeader(http.StatusTooManyRequests, "TooManyRequests", http.Header{"Retry-After": []string{"30"}})

	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusTooManyRequests, respErr.StatusCode)
	assert.Equal(t, "30", respErr.RawResponse.Header.Get("Retry-After"))
}
