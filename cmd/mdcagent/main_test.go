package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/mdcagent/internal/cli"
	"github.com/catherinevee/mdcagent/internal/models"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
)

func mockEnv(t *testing.T) {
	t.Setenv("MDC_PROVIDER", "mock")
	t.Setenv("AZURE_SUBSCRIPTION_ID", "12345678-1234-1234-1234-123456789012")
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"delete"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "delete"`)
}

func TestRun_ListJSON(t *testing.T) {
	mockEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"list", "-json", "-severity", "High,Critical", "-limit", "2"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var resp models.RecommendationListResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalCount)
	assert.Len(t, resp.Recommendations, 2)
}

func TestRun_ListTable(t *testing.T) {
	mockEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"list", "-no-color", "-resource-group", "rg-data"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Showing 1-2 of 2")
}

func TestRun_ListInvalidSeverity(t *testing.T) {
	mockEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"list", "-json", "-severity", "Urgent"}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
}

func TestRun_Get(t *testing.T) {
	mockEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"get", "-no-color", "a8c6a4ad-d51e-88fe-2979-d3ee3c864f8b"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "SQL servers should have auditing enabled")

	stdout.Reset()
	assert.Equal(t, 1, run([]string{"get", "-json", "missing"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "RESOURCE_NOT_FOUND")

	assert.Equal(t, 2, run([]string{"get"}, &stdout, &stderr))
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestReportError_WriteFailureGoesToStderr(t *testing.T) {
	var stderr bytes.Buffer
	formatter := cli.NewOutputFormatter(brokenPipe{}, cli.FormatJSON)

	code := reportError(formatter, &stderr, apperrors.NewInternalError(nil))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "INTERNAL_ERROR")
	assert.Contains(t, stderr.String(), "broken pipe")
}
