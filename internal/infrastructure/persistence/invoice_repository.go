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
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForOwner finds an invoice draft within an owner's book
func (r *GormInvoiceRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*settlement.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrInvoiceNotFound()
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByNumber reports whether an owner already uses an invoice number
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, ownerID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(OwnerScope(ownerID)).
		Where("number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new invoice draft. A number already used by the owner
// surfaces as numbering.ErrNumberTaken.
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *settlement.Invoice) error {
	return numberTaken(r.db, r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error)
}

// CreateWithCustomer inserts customer, when given, and the invoice that
// references it in one transaction
func (r *GormInvoiceRepository) CreateWithCustomer(ctx context.Context, inv *settlement.Invoice, customer *partner.Customer) error {
	if customer == nil {
		return r.Create(ctx, inv)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.CustomerModelFromDomain(customer)).Error; err != nil {
			return err
		}
		return numberTaken(tx, tx.Create(models.InvoiceModelFromDomain(inv)).Error)
	})
}

// ConvertToSale marks the invoice converted and inserts the sale in one
// transaction. A concurrent conversion loses on the version check.
func (r *GormInvoiceRepository) ConvertToSale(ctx context.Context, inv *settlement.Invoice, sale *settlement.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.InvoiceModelFromDomain(inv)
		result := tx.Model(model).
			Where("owner_id = ? AND version = ? AND status = ?", inv.OwnerID, inv.Version-1, settlement.InvoiceStatusDraft).
			Select("status", "converted_sale_id", "version", "updated_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return numberTaken(tx, tx.Create(models.DocumentModelFromDomain(sale)).Error)
	})
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ settlement.InvoiceRepository = (*GormInvoiceRepository)(nil)
