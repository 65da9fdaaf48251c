package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "settlement", "apply_payment",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, "SALE"),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "settlement.apply_payment", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "SALE", attrMap(spans[0].Attributes())[telemetry.SpanAttrDocumentType])
}

func TestSetAttributesAndEvents(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, "6000.00",
		telemetry.SpanAttrStatus, "PARTIALLY_PAID",
		42, "ignored",
	)
	telemetry.AddEvent(span, "revenue_recognized", telemetry.SpanAttrIncomeID, "abc")
	span.End()

	recorded := sr.Ended()[0]
	attrs := attrMap(recorded.Attributes())
	assert.Equal(t, "6000.00", attrs[telemetry.SpanAttrAmount])
	assert.Equal(t, "PARTIALLY_PAID", attrs[telemetry.SpanAttrStatus])
	require.Len(t, recorded.Events(), 1)
	assert.Equal(t, "revenue_recognized", recorded.Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	recorded := sr.Ended()[0]
	assert.Equal(t, codes.Error, recorded.Status().Code)
	assert.Equal(t, "boom", recorded.Status().Description)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}
