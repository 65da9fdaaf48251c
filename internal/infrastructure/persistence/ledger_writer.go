package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTransactionTimeout bounds one settlement commit
const DefaultTransactionTimeout = 15 * time.Second

// GormLedgerWriter commits settlement plans. Each commit re-reads the
// document under FOR UPDATE, reruns the engine on that state, inserts the
// entry, updates the document with a version check and recognizes revenue,
// all in one transaction.
type GormLedgerWriter struct {
	db      *gorm.DB
	timeout time.Duration
	logger  *zap.Logger
}

// NewGormLedgerWriter creates a new GormLedgerWriter
func NewGormLedgerWriter(db *gorm.DB, timeout time.Duration, logger *zap.Logger) *GormLedgerWriter {
	if timeout <= 0 {
		timeout = DefaultTransactionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormLedgerWriter{db: db, timeout: timeout, logger: logger}
}

// Commit runs mutate against the locked document and persists its plan
func (w *GormLedgerWriter) Commit(ctx context.Context, ownerID, documentID uuid.UUID, mutate settlement.MutateFunc) (*settlement.CommitResult, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var result *settlement.CommitResult
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := loadDocument(tx, ownerID, documentID, true)
		if err != nil {
			return err
		}

		plan, err := mutate(doc)
		if err != nil {
			return err
		}
		if err := plan.Apply(doc); err != nil {
			return err
		}
		if err := plan.Entry.Validate(); err != nil {
			return err
		}

		if err := tx.Create(models.LedgerEntryModelFromDomain(plan.Entry)).Error; err != nil {
			return err
		}

		model := models.DocumentModelFromDomain(doc)
		updated := tx.Model(model).
			Where("owner_id = ? AND version = ?", ownerID, plan.ExpectedVersion).
			Select("amount_paid", "balance", "refund_amount", "status", "version", "updated_at").
			Updates(model)
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		result = &settlement.CommitResult{Document: doc, Entry: plan.Entry}

		if plan.Revenue != nil {
			exists, err := incomeExists(tx, plan.Revenue.SourceType, plan.Revenue.SourceID)
			if err != nil {
				return err
			}
			if !exists {
				if err := tx.Create(models.IncomeModelFromDomain(plan.Revenue)).Error; err != nil {
					return err
				}
				result.Income = plan.Revenue
			}
		}
		return nil
	})
	if err != nil {
		return nil, w.translate(ctx, documentID, err)
	}
	return result, nil
}

// translate keeps domain errors as they are and classifies everything else
// as an infrastructure failure.
func (w *GormLedgerWriter) translate(ctx context.Context, documentID uuid.UUID, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		w.logger.Warn("Settlement transaction timed out",
			zap.String("document_id", documentID.String()),
			zap.Duration("timeout", w.timeout),
			zap.Error(err),
		)
		return settlement.ErrTransactionTimeout(err)
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}

	w.logger.Error("Settlement transaction failed",
		zap.String("document_id", documentID.String()),
		zap.Error(err),
	)
	return settlement.ErrStorage(err)
}

// Ensure GormLedgerWriter implements LedgerWriter
var _ settlement.LedgerWriter = (*GormLedgerWriter)(nil)
