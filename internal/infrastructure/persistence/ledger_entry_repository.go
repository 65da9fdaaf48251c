package persistence

import (
	"context"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository reads ledger entries. Inserts happen only in
// GormLedgerWriter.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// FindByDocument returns the entries of one payable, newest first
func (r *GormLedgerEntryRepository) FindByDocument(ctx context.Context, ownerID uuid.UUID, payableType settlement.PayableType, documentID uuid.UUID) ([]settlement.LedgerEntry, error) {
	return findEntries(r.db.WithContext(ctx), ownerID, payableType, documentID)
}

func findEntries(db *gorm.DB, ownerID uuid.UUID, payableType settlement.PayableType, documentID uuid.UUID) ([]settlement.LedgerEntry, error) {
	column := models.PayableColumn(payableType)
	if column == "" {
		return nil, shared.NewValidationError("Invalid payable type")
	}

	var entryModels []models.LedgerEntryModel
	if err := db.Scopes(OwnerScope(ownerID)).
		Where(column+" = ?", documentID).
		Order("payment_date DESC, created_at DESC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}

	entries := make([]settlement.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries, nil
}

// Ensure GormLedgerEntryRepository implements LedgerEntryRepository
var _ settlement.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
