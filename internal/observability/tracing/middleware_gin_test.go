package tracing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/horecaalert/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testRunRoute = "/api/cron/search-alerts"

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	router := gin.New()
	router.Use(GinMiddleware(WithRunRoute(testRunRoute, "cron")))
	router.GET(testRunRoute, func(c *gin.Context) {
		c.String(http.StatusOK, correlation.ExtractCorrelationID(c.Request.Context()))
	})
	router.GET("/api/search-alerts/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return router, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareNamesSpanAfterRoute(t *testing.T) {
	router, recorder := newTracedRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search-alerts/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/search-alerts/:id", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "/api/search-alerts/:id", attrs["http.route"].AsString())
	assert.Equal(t, int64(http.StatusNoContent), attrs["http.status_code"].AsInt64())
	_, tagged := attrs["alertrun.trigger"]
	assert.False(t, tagged)
	assert.Empty(t, rec.Header().Get(correlation.HeaderName))
}

func TestGinMiddlewareTagsRunRoute(t *testing.T) {
	router, recorder := newTracedRouter(t)

	req := httptest.NewRequest(http.MethodGet, testRunRoute, nil)
	req.Header.Set(correlation.HeaderName, "run-from-scheduler")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-from-scheduler", rec.Body.String())
	assert.Equal(t, "run-from-scheduler", rec.Header().Get(correlation.HeaderName))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "cron", attrs["alertrun.trigger"].AsString())
	assert.Equal(t, "run-from-scheduler", attrs["alertrun.run_id"].AsString())
}

func TestGinMiddlewareGeneratesRunID(t *testing.T) {
	router, recorder := newTracedRouter(t)

	for _, header := range []string{"", "has space", strings.Repeat("x", maxRunIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, testRunRoute, nil)
		if header != "" {
			req.Header.Set(correlation.HeaderName, header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		runID := rec.Header().Get(correlation.HeaderName)
		require.NotEmpty(t, runID)
		assert.NotEqual(t, header, runID)
		assert.Equal(t, runID, rec.Body.String())
	}

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	for _, span := range spans {
		assert.NotEmpty(t, spanAttrs(span)["alertrun.run_id"].AsString())
	}
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	router, recorder := newTracedRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /boom", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	assert.Equal(t, "GET "+unmatchedRoute, spans[1].Name())
}
