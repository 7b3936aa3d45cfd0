// Package metrics exposes Prometheus counters for authentication attempts.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopadmin/apiserver/internal/auth"
)

// AuthMetrics counts attempts by method and outcome. It implements auth.Observer.
type AuthMetrics struct {
	attempts       *prometheus.CounterVec
	providerSwitch prometheus.Counter
	gatherer       prometheus.Gatherer
}

// New registers the auth collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &AuthMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		providerSwitch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_provider_switch_total",
			Help: "Federated sign-ins through a provider other than the owning one.",
		}),
		gatherer: reg,
	}

	for _, collector := range []prometheus.Collector{m.attempts, m.providerSwitch} {
		if err := register(reg, collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAttempt implements auth.Observer.
func (m *AuthMetrics) ObserveAttempt(method string, outcome auth.Kind) {
	m.attempts.WithLabelValues(method, string(outcome)).Inc()
}

// ObserveProviderSwitch implements auth.SwitchObserver.
func (m *AuthMetrics) ObserveProviderSwitch() {
	m.providerSwitch.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *AuthMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func register(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}
