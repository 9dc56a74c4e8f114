package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection. All recording
// methods are safe on a nil collector so callers may run without metrics.
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Model invocation metrics
	aiRequestsTotal   *prometheus.CounterVec
	aiRequestDuration *prometheus.HistogramVec
	fallbacksTotal    *prometheus.CounterVec

	// Pipeline metrics
	generationsTotal   *prometheus.CounterVec
	mealsWritten       prometheus.Histogram
	lowConfidenceTotal prometheus.Counter
	quotaRejections    *prometheus.CounterVec
}

// NewMetricsCollector registers the service metrics on a private registry
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 240},
			},
			[]string{"method", "route"},
		),

		aiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total number of model invocations by outcome",
			},
			[]string{"provider", "model", "outcome"},
		),
		aiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "Model invocation duration in seconds",
				Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120},
			},
			[]string{"provider", "model"},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_plan_fallback_attempts_total",
				Help: "Fallback model attempts after a primary failure",
			},
			[]string{"reason"},
		),

		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_plan_generations_total",
				Help: "Meal plan generation requests by result code",
			},
			[]string{"code"},
		),
		mealsWritten: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meal_plan_meals_written",
				Help:    "Meals persisted per generated plan",
				Buckets: []float64{5, 10, 15, 21, 28, 35, 42},
			},
		),
		lowConfidenceTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meal_plan_low_confidence_total",
				Help: "Plans persisted with fewer meals than expected",
			},
		),
		quotaRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_plan_quota_rejections_total",
				Help: "Requests rejected by the quota ledger",
			},
			[]string{"reason"},
		),
	}
}

// HTTPMiddleware records request count and latency per chi route pattern
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// AIRequest records one model invocation
func (m *MetricsCollector) AIRequest(provider, model, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.aiRequestsTotal.WithLabelValues(provider, model, outcome).Inc()
	m.aiRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// FallbackAttempt records a switch from the primary to the fallback model
func (m *MetricsCollector) FallbackAttempt(reason string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}

// GenerationResult records the final code of one generation request
func (m *MetricsCollector) GenerationResult(code string) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(code).Inc()
}

// PlanPersisted records a written plan
func (m *MetricsCollector) PlanPersisted(meals int, lowConfidence bool) {
	if m == nil {
		return
	}
	m.mealsWritten.Observe(float64(meals))
	if lowConfidence {
		m.lowConfidenceTotal.Inc()
	}
}

// QuotaRejected records a quota pre-check rejection
func (m *MetricsCollector) QuotaRejected(reason string) {
	if m == nil {
		return
	}
	m.quotaRejections.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry for tests
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
