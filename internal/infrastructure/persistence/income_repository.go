package persistence

import (
	"context"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIncomeRepository reads recognized income
type GormIncomeRepository struct {
	db *gorm.DB
}

// NewGormIncomeRepository creates a new GormIncomeRepository
func NewGormIncomeRepository(db *gorm.DB) *GormIncomeRepository {
	return &GormIncomeRepository{db: db}
}

// ExistsBySource reports whether income was already recognized for a source
func (r *GormIncomeRepository) ExistsBySource(ctx context.Context, sourceType settlement.IncomeSourceType, sourceID uuid.UUID) (bool, error) {
	return incomeExists(r.db.WithContext(ctx), sourceType, sourceID)
}

// FindBySource lists an owner's income records for a source
func (r *GormIncomeRepository) FindBySource(ctx context.Context, ownerID uuid.UUID, sourceType settlement.IncomeSourceType, sourceID uuid.UUID) ([]settlement.Income, error) {
	var incomeModels []models.IncomeModel
	if err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC").
		Find(&incomeModels).Error; err != nil {
		return nil, err
	}

	incomes := make([]settlement.Income, len(incomeModels))
	for i := range incomeModels {
		incomes[i] = *incomeModels[i].ToDomain()
	}
	return incomes, nil
}

func incomeExists(db *gorm.DB, sourceType settlement.IncomeSourceType, sourceID uuid.UUID) (bool, error) {
	var count int64
	if err := db.Model(&models.IncomeModel{}).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormIncomeRepository implements IncomeRepository
var _ settlement.IncomeRepository = (*GormIncomeRepository)(nil)
