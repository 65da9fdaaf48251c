package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome labels for settlement attempts
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// SettlementMetrics counts payments and refunds, the money they moved and
// how long the atomic commit took.
type SettlementMetrics struct {
	logger            *zap.Logger
	settlementTotal   *Counter
	amountTotal       *FloatCounter
	duration          *Histogram
	revenueRecognized *Counter
	idempotentReplays *Counter
}

// NewSettlementMetrics registers the settlement instruments on meter.
func NewSettlementMetrics(meter metric.Meter, logger *zap.Logger) (*SettlementMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SettlementMetrics{logger: logger}
	var err error

	if m.settlementTotal, err = NewCounter(meter,
		"bookkeeper_settlement_total",
		"Payment and refund attempts by document type, kind and outcome",
		"{attempt}",
	); err != nil {
		return nil, err
	}
	if m.amountTotal, err = NewFloatCounter(meter,
		"bookkeeper_settlement_amount_total",
		"Money moved by committed payments and refunds",
		"{currency}",
	); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "bookkeeper_settlement_duration_seconds",
		Description: "Latency of a settlement commit",
		Unit:        "s",
		Boundaries:  SettlementDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.revenueRecognized, err = NewCounter(meter,
		"bookkeeper_revenue_recognized_total",
		"Workmanship income records created from quotation payments",
		"{income}",
	); err != nil {
		return nil, err
	}
	if m.idempotentReplays, err = NewCounter(meter,
		"bookkeeper_idempotent_replay_total",
		"Requests rejected because their Idempotency-Key was already used",
		"{request}",
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAttempt records one settlement attempt. errorCode is empty on success.
func (m *SettlementMetrics) RecordAttempt(ctx context.Context, docType, kind, outcome, errorCode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrDocumentType.String(docType),
		AttrEntryKind.String(kind),
		AttrOutcome.String(outcome),
	}
	if errorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(errorCode))
	}
	m.settlementTotal.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, elapsed, AttrDocumentType.String(docType), AttrEntryKind.String(kind))
}

// RecordAmount adds a committed amount
func (m *SettlementMetrics) RecordAmount(ctx context.Context, docType, kind string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	f, _ := amount.Float64()
	m.amountTotal.Add(ctx, f, AttrDocumentType.String(docType), AttrEntryKind.String(kind))
}

// RecordRevenueRecognized counts a created income record
func (m *SettlementMetrics) RecordRevenueRecognized(ctx context.Context) {
	if m == nil {
		return
	}
	m.revenueRecognized.Inc(ctx)
}

// RecordIdempotentReplay counts a duplicate Idempotency-Key
func (m *SettlementMetrics) RecordIdempotentReplay(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.idempotentReplays.Inc(ctx, AttrRoute.String(route))
}
