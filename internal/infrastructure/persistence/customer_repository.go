package persistence

import (
	"context"
	"errors"

	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByIDForOwner finds a customer by ID within an owner's book
func (r *GormCustomerRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOwnerNameRole returns customers sharing (owner, name, role), oldest first
func (r *GormCustomerRepository) FindByOwnerNameRole(ctx context.Context, ownerID uuid.UUID, name string, role partner.Role) ([]partner.Customer, error) {
	var customerModels []models.CustomerModel
	if err := r.db.WithContext(ctx).
		Scopes(OwnerScope(ownerID)).
		Where("name = ? AND role = ?", name, role).
		Order("created_at ASC").
		Find(&customerModels).Error; err != nil {
		return nil, err
	}

	customers := make([]partner.Customer, len(customerModels))
	for i, model := range customerModels {
		customers[i] = *model.ToDomain()
	}
	return customers, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
