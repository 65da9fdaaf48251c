package settlement

import (
	"context"
	"fmt"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/bookkeeper/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ActivityLogHandler writes one structured log line per settlement event.
// It is the audit trail operators search when reconciling a ledger.
type ActivityLogHandler struct {
	logger   *zap.Logger
	currency valueobject.Currency
}

// NewActivityLogHandler creates a new ActivityLogHandler
func NewActivityLogHandler(log *zap.Logger, currency valueobject.Currency) *ActivityLogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &ActivityLogHandler{logger: log.Named("activity"), currency: currency}
}

// EventTypes returns the settlement events this handler records
func (h *ActivityLogHandler) EventTypes() []string {
	return []string{
		settlement.EventTypeDocumentCreated,
		settlement.EventTypeQuotationIssued,
		settlement.EventTypePaymentApplied,
		settlement.EventTypeRefundApplied,
		settlement.EventTypeRevenueRecognized,
		settlement.EventTypeInvoiceConverted,
	}
}

// Handle logs the event
func (h *ActivityLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("owner_id", event.OwnerID().String()),
	}

	var summary string
	switch e := event.(type) {
	case *settlement.DocumentCreatedEvent:
		summary = fmt.Sprintf("%s %s created for %s", e.DocumentType, e.Number, h.format(e.TotalAmount))
		fields = append(fields, zap.String("status", string(e.Status)))
	case *settlement.QuotationIssuedEvent:
		summary = fmt.Sprintf("Quotation %s issued for %s", e.Number, h.format(e.TotalAmount))
	case *settlement.PaymentAppliedEvent:
		summary = fmt.Sprintf("%s received on %s, balance %s",
			h.format(e.Amount), e.DocumentType, h.format(e.NewBalance))
		fields = append(fields,
			zap.String("entry_id", e.EntryID.String()),
			zap.String("category", string(e.Category)),
			zap.String("method", string(e.Method)),
			zap.String("status", string(e.NewStatus)),
		)
	case *settlement.RefundAppliedEvent:
		summary = fmt.Sprintf("%s refunded on %s", h.format(e.Amount), e.DocumentType)
		fields = append(fields,
			zap.String("entry_id", e.EntryID.String()),
			zap.String("category", string(e.Category)),
			zap.String("reason", e.Reason),
			zap.String("status", string(e.NewStatus)),
		)
	case *settlement.RevenueRecognizedEvent:
		summary = fmt.Sprintf("Revenue of %s recognized, VAT %s",
			h.format(e.GrossAmount), h.format(e.VATAmount))
		fields = append(fields,
			zap.String("source_type", string(e.SourceType)),
			zap.String("source_id", e.SourceID.String()),
		)
	case *settlement.InvoiceConvertedEvent:
		summary = fmt.Sprintf("Invoice %s converted to sale %s", e.InvoiceNumber, e.SaleNumber)
		fields = append(fields, zap.String("sale_id", e.SaleID.String()))
	default:
		summary = event.EventType()
	}

	logger.WithLogger(ctx, h.logger).Info(summary, fields...)
	return nil
}

func (h *ActivityLogHandler) format(amount decimal.Decimal) string {
	return valueobject.FormatAmount(amount, h.currency)
}

var _ shared.EventHandler = (*ActivityLogHandler)(nil)
