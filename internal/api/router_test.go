package api_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dom/task-manager/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := ts.Do(t, http.MethodGet, "/health", "", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewUserBuilder().Signup(t, ts)

	resp := ts.Do(t, http.MethodGet, "/tasks", "", nil)
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)

	assert.Equal(t, float64(1), promtest.ToFloat64(ts.Metrics.AuthFailures.WithLabelValues("token_missing")))
	assert.Equal(t, float64(1), promtest.ToFloat64(ts.Metrics.RefreshTokensIssued))

	resp = ts.Do(t, http.MethodGet, "/metrics", "", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "taskmanager_http_requests_total"))
	assert.True(t, strings.Contains(text, `status="401"`))
	assert.True(t, strings.Contains(text, "taskmanager_refresh_tokens_issued_total 1"))
	assert.True(t, strings.Contains(text, `taskmanager_auth_failures_total{reason="token_missing"} 1`))
}

func TestCORSPreflight(t *testing.T) {
	ts := testutil.NewTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL("/tasks"), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestUnknownRoute(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := ts.Do(t, http.MethodGet, "/nowhere", "", nil)
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
}
