package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2026, 10, 15, 14, 30, 5, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newSettlementDoc(t *testing.T, ownerID uuid.UUID, docType settlement.DocumentType, total string) *settlement.Document {
	t.Helper()
	doc, err := settlement.NewDocument(settlement.NewDocumentParams{
		OwnerID:     ownerID,
		Type:        docType,
		Number:      docType.NumberPrefix() + "-TEST",
		TotalAmount: dec(total),
	})
	require.NoError(t, err)
	return doc
}

func newWorkmanshipQuotation(t *testing.T, ownerID uuid.UUID) *settlement.Document {
	t.Helper()
	doc, err := settlement.NewDocument(settlement.NewDocumentParams{
		OwnerID: ownerID,
		Type:    settlement.TypeQuotation,
		Number:  "QUO-TEST",
		Lines: settlement.Lines{
			Items:       []settlement.LineItem{settlement.NewLineItem("Tiles", dec("10"), dec("500"))},
			Workmanship: dec("5000"),
			IncludesVAT: true,
		},
	})
	require.NoError(t, err)
	return doc
}

func newTestSettlementService(writer settlement.LedgerWriter, publisher shared.EventPublisher) *SettlementService {
	return NewSettlementService(writer, settlement.NewEngineWithClock(func() time.Time { return testNow }), publisher, nil, zap.NewNop())
}

func publishedTypes(t *testing.T, publisher *MockEventPublisher) []string {
	t.Helper()
	var types []string
	for _, call := range publisher.Calls {
		for _, e := range call.Arguments.Get(1).([]shared.DomainEvent) {
			types = append(types, e.EventType())
		}
	}
	return types
}

func TestSettlementService_ApplyPayment_SaleLifecycle(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	sale := newSettlementDoc(t, ownerID, settlement.TypeSale, "10000")
	writer := newMemoryLedgerWriter(sale)
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	svc := newTestSettlementService(writer, publisher)

	result, err := svc.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, PaymentCommand{
		Amount:        dec("6000"),
		PaymentMethod: "BANK_TRANSFER",
		Reference:     " TRX-1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_PAID", result.Document.Status)
	assert.True(t, result.Document.Balance.Equal(dec("4000")))
	assert.Equal(t, "INCOME", result.Payment.Category)
	assert.Equal(t, "PAYMENT", result.Payment.Kind)
	assert.Equal(t, sale.ID, result.Payment.DocumentID)
	assert.Equal(t, "TRX-1", result.Payment.Reference)
	assert.Equal(t, testNow, result.Payment.PaymentDate)
	assert.Nil(t, result.Income)

	result, err = svc.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, PaymentCommand{Amount: dec("4000"), PaymentMethod: "CASH"})
	require.NoError(t, err)
	assert.Equal(t, "PAID", result.Document.Status)
	assert.True(t, result.Document.Balance.IsZero())
	assert.Len(t, result.Document.Payments, 2)

	_, err = svc.ApplyPayment(ctx, ownerID, settlement.TypeSale, sale.ID, PaymentCommand{Amount: dec("1"), PaymentMethod: "CASH"})
	assert.Equal(t, settlement.CodeAlreadyFullyPaid, shared.CodeOf(err))
	assert.True(t, shared.IsKind(err, shared.KindBusinessRule))

	assert.Equal(t, []string{settlement.EventTypePaymentApplied, settlement.EventTypePaymentApplied}, publishedTypes(t, publisher))
}

func TestSettlementService_RejectsNilOwnerBeforeStorage(t *testing.T) {
	writer := new(MockLedgerWriter)
	svc := newTestSettlementService(writer, nil)

	_, err := svc.ApplyPayment(context.Background(), uuid.Nil, settlement.TypeSale, uuid.New(), PaymentCommand{Amount: dec("1"), PaymentMethod: "CASH"})
	assert.True(t, shared.IsKind(err, shared.KindUnauthorized))

	_, err = svc.ApplyRefund(context.Background(), uuid.Nil, settlement.TypeSale, uuid.New(), RefundCommand{RefundAmount: dec("1"), RefundReason: "x"})
	assert.True(t, shared.IsKind(err, shared.KindUnauthorized))

	writer.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_WrongRouteTypeIsNotFound(t *testing.T) {
	ownerID := uuid.New()
	sale := newSettlementDoc(t, ownerID, settlement.TypeSale, "100")
	writer := newMemoryLedgerWriter(sale)
	svc := newTestSettlementService(writer, nil)

	_, err := svc.ApplyPayment(context.Background(), ownerID, settlement.TypePurchase, sale.ID, PaymentCommand{Amount: dec("10"), PaymentMethod: "CASH"})
	assert.Equal(t, settlement.CodeDocumentNotFound, shared.CodeOf(err))
	assert.True(t, sale.AmountPaid.IsZero())

	_, err = svc.ApplyPayment(context.Background(), uuid.New(), settlement.TypeSale, sale.ID, PaymentCommand{Amount: dec("10"), PaymentMethod: "CASH"})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	_, err = svc.ApplyPayment(context.Background(), ownerID, settlement.DocumentType("EXPENSE"), sale.ID, PaymentCommand{Amount: dec("10"), PaymentMethod: "CASH"})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
	assert.Equal(t, 2, writer.commits)
}

func TestSettlementService_QuotationRevenueOnce(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	quote := newWorkmanshipQuotation(t, ownerID)
	require.True(t, quote.TotalAmount.Equal(dec("10000")))
	writer := newMemoryLedgerWriter(quote)
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	svc := newTestSettlementService(writer, publisher)

	first, err := svc.ApplyPayment(ctx, ownerID, settlement.TypeQuotation, quote.ID, PaymentCommand{Amount: dec("3000"), PaymentMethod: "CASH"})
	require.NoError(t, err)
	require.NotNil(t, first.Income)
	assert.True(t, first.Income.GrossAmount.Equal(dec("5000")))
	assert.True(t, first.Income.VATAmount.Equal(dec("348.84")))
	assert.Equal(t, quote.ID, first.Income.SourceID)

	second, err := svc.ApplyPayment(ctx, ownerID, settlement.TypeQuotation, quote.ID, PaymentCommand{Amount: dec("7000"), PaymentMethod: "CASH"})
	require.NoError(t, err)
	assert.Nil(t, second.Income)
	assert.Equal(t, "PAID", second.Document.Status)

	assert.Len(t, writer.incomes, 1)
	assert.Equal(t, []string{
		settlement.EventTypePaymentApplied,
		settlement.EventTypeRevenueRecognized,
		settlement.EventTypePaymentApplied,
	}, publishedTypes(t, publisher))
}

func TestSettlementService_ApplyRefund_Purchase(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	purchase := newSettlementDoc(t, ownerID, settlement.TypePurchase, "5000")
	writer := newMemoryLedgerWriter(purchase)
	svc := newTestSettlementService(writer, nil)

	_, err := svc.ApplyPayment(ctx, ownerID, settlement.TypePurchase, purchase.ID, PaymentCommand{Amount: dec("5000"), PaymentMethod: "CASH"})
	require.NoError(t, err)

	result, err := svc.ApplyRefund(ctx, ownerID, settlement.TypePurchase, purchase.ID, RefundCommand{
		RefundAmount: dec("5000"),
		RefundReason: "Goods returned",
	})
	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", result.Document.Status)
	assert.True(t, result.Document.AmountPaid.IsZero())
	assert.True(t, result.Document.RefundAmount.Equal(dec("5000")))
	assert.Equal(t, "REFUND", result.Payment.Kind)
	assert.Equal(t, "INCOME", result.Payment.Category)
	assert.Equal(t, "CASH", result.Payment.PaymentMethod)
	assert.Equal(t, "Goods returned", result.Payment.Reason)

	_, err = svc.ApplyRefund(ctx, ownerID, settlement.TypePurchase, purchase.ID, RefundCommand{RefundAmount: dec("1"), RefundReason: "again"})
	assert.Equal(t, settlement.CodeNothingToRefund, shared.CodeOf(err))
}

func TestSettlementService_InfrastructureFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	writer := new(MockLedgerWriter)
	timeout := settlement.ErrTransactionTimeout(context.DeadlineExceeded)
	writer.On("Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, timeout)

	svc := NewSettlementService(writer, nil, nil, nil, zap.New(core))
	_, err := svc.ApplyPayment(context.Background(), uuid.New(), settlement.TypeSale, uuid.New(), PaymentCommand{Amount: dec("1"), PaymentMethod: "CASH"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, settlement.CodeTransactionTimeout, shared.CodeOf(err))

	failures := logs.FilterMessage("Settlement failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.WarnLevel, failures[0].Level)
	assert.Equal(t, settlement.CodeTransactionTimeout, failures[0].ContextMap()["code"])
}

func TestSettlementService_PublishFailureDoesNotFailCommit(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ownerID := uuid.New()
	sale := newSettlementDoc(t, ownerID, settlement.TypeSale, "100")
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus closed"))

	svc := NewSettlementService(newMemoryLedgerWriter(sale), nil, publisher, nil, zap.New(core))
	result, err := svc.ApplyPayment(context.Background(), ownerID, settlement.TypeSale, sale.ID, PaymentCommand{Amount: dec("100"), PaymentMethod: "POS"})

	require.NoError(t, err)
	assert.Equal(t, "PAID", result.Document.Status)
	assert.Equal(t, 1, logs.FilterMessage("Failed to publish domain events").Len())
	assert.Empty(t, sale.GetDomainEvents())
}

func TestSettlementService_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := telemetry.NewSettlementMetrics(provider.Meter("test"), nil)
	require.NoError(t, err)

	ownerID := uuid.New()
	sale := newSettlementDoc(t, ownerID, settlement.TypeSale, "100")
	svc := NewSettlementService(newMemoryLedgerWriter(sale), nil, nil, metrics, nil)

	_, err = svc.ApplyPayment(context.Background(), ownerID, settlement.TypeSale, sale.ID, PaymentCommand{Amount: dec("60"), PaymentMethod: "CASH"})
	require.NoError(t, err)
	_, err = svc.ApplyPayment(context.Background(), ownerID, settlement.TypeSale, sale.ID, PaymentCommand{Amount: dec("60"), PaymentMethod: "CASH"})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "bookkeeper_settlement_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				outcome, _ := dp.Attributes.Value(telemetry.AttrOutcome)
				outcomes[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{telemetry.OutcomeSuccess: 1, telemetry.OutcomeRejected: 1}, outcomes)
}
