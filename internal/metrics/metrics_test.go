package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAttempt(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveAttempt(auth.MethodPassword, auth.OutcomeSuccess)
	m.ObserveAttempt(auth.MethodPassword, auth.KindInvalidCredentials)
	m.ObserveAttempt(auth.MethodPassword, auth.KindInvalidCredentials)
	m.ObserveProviderSwitch()

	body := scrape(t, m)
	assert.Contains(t, body, `auth_attempts_total{method="password",outcome="success"} 1`)
	assert.Contains(t, body, `auth_attempts_total{method="password",outcome="invalid_credentials"} 2`)
	assert.Contains(t, body, "auth_provider_switch_total 1")
}

func TestHandlerExposesCounters(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.ObserveAttempt(auth.MethodFederated, auth.KindDenied)

	assert.Contains(t, scrape(t, m), `auth_attempts_total{method="federated",outcome="denied"} 1`)
}

func scrape(t *testing.T, m *AuthMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNewToleratesDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.NoError(t, err)
}
