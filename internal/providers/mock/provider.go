// Package mock serves deterministic assessment fixtures for local runs and
// tests, with scriptable provider failures.
package mock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/catherinevee/mdcagent/internal/models"
)

// DefaultSubscriptionID is used when the provider is created without one.
const DefaultSubscriptionID = "00000000-0000-0000-0000-000000000000"

// Provider is an in-memory RecordSource
type Provider struct {
	mu             sync.Mutex
	subscriptionID string
	records        []models.Record
	listErrors     []error
	getErrors      []error
	listCallCount  int
	getCallCount   int
}

// NewProvider creates a provider loaded with Fixtures for subscriptionID.
func NewProvider(subscriptionID string) *Provider {
	if subscriptionID == "" {
		subscriptionID = DefaultSubscriptionID
	}
	return &Provider{
		subscriptionID: subscriptionID,
		records:        Fixtures(subscriptionID),
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "mock"
}

// ListRecords returns a copy of the stored records. Queued errors are
// returned first, one per call.
func (p *Provider) ListRecords(ctx context.Context, scope string) ([]models.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listCallCount++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.listErrors) > 0 {
		err := p.listErrors[0]
		p.listErrors = p.listErrors[1:]
		return nil, err
	}

	out := make([]models.Record, len(p.records))
	copy(out, p.records)
	return out, nil
}

// GetRecord returns the record named name, or a provider 404.
func (p *Provider) GetRecord(ctx context.Context, scope, name string) (models.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.getCallCount++

	if err := ctx.Err(); err != nil {
		return models.Record{}, err
	}
	if len(p.getErrors) > 0 {
		err := p.getErrors[0]
		p.getErrors = p.getErrors[1:]
		return models.Record{}, err
	}

	for _, record := range p.records {
		if strings.EqualFold(record.Name, name) {
			return record, nil
		}
	}
	return models.Record{}, ResponseError(http.StatusNotFound, "AssessmentNotFound")
}

// SetRecords replaces the stored records
func (p *Provider) SetRecords(records []models.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = records
}

// FailList queues errors returned by the next ListRecords calls, in order.
func (p *Provider) FailList(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listErrors = append(p.listErrors, errs...)
}

// FailGet queues errors returned by the next GetRecord calls, in order.
func (p *Provider) FailGet(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getErrors = append(p.getErrors, errs...)
}

// ListCallCount returns how many times ListRecords was called
func (p *Provider) ListCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listCallCount
}

// GetCallCount returns how many times GetRecord was called
func (p *Provider) GetCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getCallCount
}

// ResponseError builds the error the Azure SDK returns for a failed call,
// so mock failures classify exactly like real ones.
func ResponseError(status int, code string) error {
	return ResponseErrorWithHeader(status, code, nil)
}

// ResponseErrorWithHeader is ResponseError with extra response headers,
// such as Retry-After.
func ResponseErrorWithHeader(status int, code string, header http.Header) error {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	if code != "" {
		header.Set("x-ms-error-code", code)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://management.azure.com/providers/Microsoft.Security/assessments", nil)
	body := fmt.Sprintf(`{"error":{"code":%q,"message":"mock %s"}}`, code, http.StatusText(status))

	return runtime.NewResponseError(&http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	})
}
