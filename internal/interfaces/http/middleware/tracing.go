package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// Options are passed through to otelgin, e.g. a test TracerProvider.
	Options []otelgin.Option
}

// Tracing starts a server span per request via otelgin. Span names are the
// method and route template, e.g. "POST /api/v1/sales/:id/payments".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName, cfg.Options...)
}

// SpanAttributes tags the current span with the request and owner IDs and
// marks 4xx/5xx responses as errors. It must run after OwnerAuth.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if ownerID := c.GetString(OwnerIDKey); ownerID != "" {
			span.SetAttributes(attribute.String("owner_id", ownerID))
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("error.code", c.Errors.Last().Error()))
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
