package settlement

import (
	"context"
	"time"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	operationApplyPayment = "apply_payment"
	operationApplyRefund  = "apply_refund"
)

// SettlementService records payments and refunds against monetary documents.
// All state changes go through the LedgerWriter in one atomic commit.
type SettlementService struct {
	writer    settlement.LedgerWriter
	engine    *settlement.Engine
	publisher shared.EventPublisher
	metrics   *telemetry.SettlementMetrics
	logger    *zap.Logger
}

// NewSettlementService creates a new SettlementService. publisher and
// metrics may be nil.
func NewSettlementService(
	writer settlement.LedgerWriter,
	engine *settlement.Engine,
	publisher shared.EventPublisher,
	metrics *telemetry.SettlementMetrics,
	logger *zap.Logger,
) *SettlementService {
	if engine == nil {
		engine = settlement.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		writer:    writer,
		engine:    engine,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// ApplyPayment records a payment on the document identified by docType and id
func (s *SettlementService) ApplyPayment(
	ctx context.Context,
	ownerID uuid.UUID,
	docType settlement.DocumentType,
	documentID uuid.UUID,
	cmd PaymentCommand,
) (*SettlementResult, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	instruction := cmd.toInstruction()
	return s.settle(ctx, operationApplyPayment, ownerID, docType, documentID, settlement.EntryPayment, cmd.Amount,
		func(doc *settlement.Document) (*settlement.Plan, error) {
			return s.engine.ApplyPayment(doc, instruction)
		})
}

// ApplyRefund records a refund on the document identified by docType and id
func (s *SettlementService) ApplyRefund(
	ctx context.Context,
	ownerID uuid.UUID,
	docType settlement.DocumentType,
	documentID uuid.UUID,
	cmd RefundCommand,
) (*SettlementResult, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	instruction := cmd.toInstruction()
	return s.settle(ctx, operationApplyRefund, ownerID, docType, documentID, settlement.EntryRefund, cmd.RefundAmount,
		func(doc *settlement.Document) (*settlement.Plan, error) {
			return s.engine.ApplyRefund(doc, instruction)
		})
}

func (s *SettlementService) settle(
	ctx context.Context,
	operation string,
	ownerID uuid.UUID,
	docType settlement.DocumentType,
	documentID uuid.UUID,
	kind settlement.EntryKind,
	amount decimal.Decimal,
	compute settlement.MutateFunc,
) (*SettlementResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", operation)
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOwnerID, ownerID.String(),
		telemetry.SpanAttrDocumentID, documentID.String(),
		telemetry.SpanAttrDocumentType, docType.String(),
		telemetry.SpanAttrEntryKind, string(kind),
		telemetry.SpanAttrAmount, amount.StringFixed(2),
	)

	if !docType.IsValid() {
		err := settlement.ErrDocumentNotFound("")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		committed *settlement.CommitResult
		commitErr error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementLabels(operation, docType.String()), func(c context.Context) {
		committed, commitErr = s.writer.Commit(c, ownerID, documentID, func(doc *settlement.Document) (*settlement.Plan, error) {
			// A document reached through the wrong route is treated as absent.
			if doc.Type != docType {
				return nil, settlement.ErrDocumentNotFound(docType)
			}
			return compute(doc)
		})
	})

	elapsed := time.Since(start)
	if commitErr != nil {
		telemetry.RecordError(span, commitErr)
		s.recordFailure(ctx, docType, kind, documentID, commitErr, elapsed)
		return nil, commitErr
	}

	doc := committed.Document
	events := doc.GetDomainEvents()
	if committed.Income != nil {
		events = append(events, settlement.NewRevenueRecognizedEvent(committed.Income))
		telemetry.AddEvent(span, "revenue_recognized",
			telemetry.SpanAttrIncomeID, committed.Income.ID.String(),
			telemetry.SpanAttrAmount, committed.Income.GrossAmount.StringFixed(2),
		)
		s.metrics.RecordRevenueRecognized(ctx)
	}
	publishEvents(ctx, s.publisher, s.logger, events)
	doc.ClearDomainEvents()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, committed.Entry.ID.String(),
		telemetry.SpanAttrStatus, doc.Status.String(),
	)
	telemetry.SetOK(span)
	s.metrics.RecordAttempt(ctx, docType.String(), string(kind), telemetry.OutcomeSuccess, "", elapsed)
	s.metrics.RecordAmount(ctx, docType.String(), string(kind), committed.Entry.Amount)

	s.logger.Info("Settlement recorded",
		zap.String("owner_id", ownerID.String()),
		zap.String("document_id", documentID.String()),
		zap.String("document_type", docType.String()),
		zap.String("kind", string(kind)),
		zap.String("amount", committed.Entry.Amount.StringFixed(2)),
		zap.String("status", doc.Status.String()),
		zap.Bool("revenue_recognized", committed.Income != nil),
	)

	return &SettlementResult{
		Payment:  ToLedgerEntryResponse(committed.Entry),
		Document: ToDocumentResponse(doc),
		Income:   ToIncomeResponse(committed.Income),
	}, nil
}

func (s *SettlementService) recordFailure(
	ctx context.Context,
	docType settlement.DocumentType,
	kind settlement.EntryKind,
	documentID uuid.UUID,
	err error,
	elapsed time.Duration,
) {
	code := shared.CodeOf(err)
	fields := []zap.Field{
		zap.String("document_id", documentID.String()),
		zap.String("document_type", docType.String()),
		zap.String("kind", string(kind)),
		zap.String("code", code),
		zap.Error(err),
	}
	switch shared.KindOf(err) {
	case shared.KindInfrastructure, shared.KindConflict:
		s.metrics.RecordAttempt(ctx, docType.String(), string(kind), telemetry.OutcomeError, code, elapsed)
		s.logger.Warn("Settlement failed", fields...)
	default:
		s.metrics.RecordAttempt(ctx, docType.String(), string(kind), telemetry.OutcomeRejected, code, elapsed)
		s.logger.Debug("Settlement rejected", fields...)
	}
}

// publishEvents hands events to the bus after a commit. Failures are logged;
// the commit already happened.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Error("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.String("first_event_type", events[0].EventType()),
			zap.Error(err),
		)
	}
}
