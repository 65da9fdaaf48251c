package partner

import (
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeCustomer names the customer aggregate in events
const AggregateTypeCustomer = "Customer"

// EventTypeCustomerCreated is raised when a resolver or CRUD flow adds a customer
const EventTypeCustomerCreated = "CustomerCreated"

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, c.ID, c.OwnerID),
		CustomerID:      c.ID,
		Name:            c.Name,
		Role:            c.Role,
	}
}
