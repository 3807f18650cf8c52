package tracing

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/horecaalert/internal/observability/context"
	"github.com/smallbiznis/horecaalert/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	unmatchedRoute = "unmatched"
	maxRunIDLength = 64
)

// GinOption configures GinMiddleware.
type GinOption func(*ginOptions)

type ginOptions struct {
	runRoutes map[string]string
}

// WithRunRoute marks route as one that starts a matching run. Requests on it
// carry a run id, taken from the X-Correlation-ID header or generated, which
// is set on the span and echoed back in the response header.
func WithRunRoute(route, trigger string) GinOption {
	return func(o *ginOptions) {
		o.runRoutes[route] = trigger
	}
}

// GinMiddleware instruments inbound HTTP requests with one server span per
// request, named after the matched route.
func GinMiddleware(opts ...GinOption) gin.HandlerFunc {
	o := ginOptions{runRoutes: map[string]string{}}
	for _, opt := range opts {
		opt(&o)
	}
	tracer := otel.Tracer("horecaalert/http")

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := strings.ToUpper(c.Request.Method)

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		if trigger, ok := o.runRoutes[route]; ok {
			ctx = correlation.ContextWithCorrelationID(ctx, runIDFromHeader(c.GetHeader(correlation.HeaderName)))
			var runID string
			ctx, runID = correlation.EnsureCorrelationID(ctx)
			c.Header(correlation.HeaderName, runID)
			span.SetAttributes(
				attribute.String("alertrun.trigger", trigger),
				attribute.String("alertrun.run_id", runID),
			)
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)
		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// runIDFromHeader accepts a caller-supplied run id only when it is short and
// printable; anything else gets a generated id.
func runIDFromHeader(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > maxRunIDLength {
		return ""
	}
	for _, r := range value {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return ""
		}
	}
	return value
}
