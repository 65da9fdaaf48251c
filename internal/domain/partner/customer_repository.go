package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByIDForOwner finds a customer by ID within an owner's book.
	// Returns a NOT_FOUND DomainError when absent or owned by someone else.
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*Customer, error)

	// FindByOwnerNameRole returns every customer sharing the dedup key prefix
	// (owner, name, role), oldest first
	FindByOwnerNameRole(ctx context.Context, ownerID uuid.UUID, name string, role Role) ([]Customer, error)

	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error
}
