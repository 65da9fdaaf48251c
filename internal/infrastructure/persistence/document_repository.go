package persistence

import (
	"context"
	"errors"

	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByIDForOwner loads a document and its ledger entries, newest first
func (r *GormDocumentRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*settlement.Document, error) {
	return loadDocument(r.db.WithContext(ctx), ownerID, id, false)
}

// ExistsByNumber reports whether an owner already uses number
func (r *GormDocumentRepository) ExistsByNumber(ctx context.Context, ownerID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Scopes(OwnerScope(ownerID)).
		Where("number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new document. A number already used by the owner
// surfaces as numbering.ErrNumberTaken.
func (r *GormDocumentRepository) Create(ctx context.Context, doc *settlement.Document) error {
	return numberTaken(r.db, r.db.WithContext(ctx).Create(models.DocumentModelFromDomain(doc)).Error)
}

// CreateWithCustomer inserts customer, when given, and the document that
// references it in one transaction
func (r *GormDocumentRepository) CreateWithCustomer(ctx context.Context, doc *settlement.Document, customer *partner.Customer) error {
	if customer == nil {
		return r.Create(ctx, doc)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.CustomerModelFromDomain(customer)).Error; err != nil {
			return err
		}
		return numberTaken(tx, tx.Create(models.DocumentModelFromDomain(doc)).Error)
	})
}

// SaveWithLock writes lines, totals and status with a version check. The
// domain model has already incremented its version.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *settlement.Document) error {
	model := models.DocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("owner_id = ? AND version = ?", doc.OwnerID, doc.Version-1).
		Select("lines", "total_amount", "balance", "status", "version", "updated_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// loadDocument reads one owner's document and its entries. forUpdate takes
// a row lock and must only be used inside a transaction.
func loadDocument(db *gorm.DB, ownerID, id uuid.UUID, forUpdate bool) (*settlement.Document, error) {
	query := db.Scopes(OwnerScope(ownerID)).Where("id = ?", id)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.DocumentModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrDocumentNotFound("")
		}
		return nil, err
	}
	doc := model.ToDomain()

	entries, err := findEntries(db, ownerID, doc.Type.PayableType(), doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Payments = entries
	return doc, nil
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ settlement.DocumentRepository = (*GormDocumentRepository)(nil)
