// Package metrics, uygulamanın Prometheus metriklerini tek bir registry
// altında toplar ve /metrics handler'ını sağlar.
//
// Global DefaultRegisterer kullanılmaz; testler kendi Metrics instance'ını
// oluşturabilir. Tüm kayıt metodları nil receiver'da no-op'tur.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth middleware karar etiketleri.
const (
	OutcomeValid         = "valid"
	OutcomeRenewed       = "renewed"
	OutcomeMissing       = "missing"
	OutcomeInvalid       = "invalid"
	OutcomeRefreshFailed = "refresh_failed"
)

// Metrics, uygulama metrikleri.
type Metrics struct {
	registry *prometheus.Registry

	authDecisions   *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	wsConnections   prometheus.Gauge
	loginRateLimits prometheus.Counter
}

// New, yeni bir registry ve metrikleri oluşturur.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tms_auth_decisions_total",
			Help: "Auth middleware decisions by outcome.",
		}, []string{"outcome"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tms_token_refreshes_total",
			Help: "Refresh token exchanges on the refresh endpoint by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tms_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tms_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tms_ws_connections",
			Help: "Open WebSocket connections.",
		}),
		loginRateLimits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tms_login_rate_limited_total",
			Help: "Login attempts rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(m.authDecisions, m.tokenRefreshes, m.httpRequests, m.httpDuration, m.wsConnections, m.loginRateLimits)
	return m
}

// Registry, alttaki registry'yi döner.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler, /metrics endpoint'i.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AuthDecision(outcome string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) LoginRateLimited() {
	if m == nil {
		return
	}
	m.loginRateLimits.Inc()
}

// WSConnected, açık bağlantı sayısını delta kadar değiştirir (+1 / -1).
func (m *Metrics) WSConnected(delta int) {
	if m == nil {
		return
	}
	m.wsConnections.Add(float64(delta))
}

// ObserveHTTP, tamamlanan bir isteği kaydeder.
// route, ServeMux pattern'idir; eşleşmeyen istekler "unmatched" olarak sayılır.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
