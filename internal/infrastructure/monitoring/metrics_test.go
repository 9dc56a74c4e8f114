package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestMetricsCollector_Pipeline(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	m.AIRequest("openai", "gpt-4o-mini", "success", 2*time.Second)
	m.AIRequest("openai", "gpt-4o-mini", "timeout", time.Minute)
	m.FallbackAttempt("AI_TIMEOUT")
	m.GenerationResult("SUCCESS")
	m.GenerationResult("SUCCESS")
	m.PlanPersisted(21, false)
	m.PlanPersisted(12, true)
	m.QuotaRejected("credits")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequestsTotal.WithLabelValues("openai", "gpt-4o-mini", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("AI_TIMEOUT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues("SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lowConfidenceTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quotaRejections.WithLabelValues("credits")))

	count, err := testutil.GatherAndCount(m.Registry(), "meal_plan_meals_written")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsCollector_NilIsNoop(t *testing.T) {
	var m *MetricsCollector

	assert.NotPanics(t, func() {
		m.AIRequest("ollama", "llama3.1:8b", "success", time.Second)
		m.FallbackAttempt("AI_SERVICE_ERROR")
		m.GenerationResult("UNKNOWN_ERROR")
		m.PlanPersisted(21, false)
		m.QuotaRejected("daily_cap")
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.HTTPMiddleware(next))
}

func TestMetricsCollector_HTTPMiddlewareUsesRoutePattern(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())
	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plans/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plans/2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/plans/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/ok", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/plans/{id}"`))
}

func TestTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))

	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	ctx, span := provider.Tracer("test").Start(context.Background(), "generate")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	assert.Len(t, TraceIDFromContext(ctx), 32)
}
