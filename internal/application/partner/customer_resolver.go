package partner

import (
	"context"
	"strings"

	"github.com/bookkeeper/backend/internal/domain/partner"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerInput is the counterparty as submitted on a document
type CustomerInput struct {
	ID    *uuid.UUID
	Name  string
	Email string
	Phone string
}

// Resolution is the customer binding a document should carry
type Resolution struct {
	CustomerID *uuid.UUID
	Name       string
	Email      string
	Phone      string
	// Created is true when a new customer row was inserted
	Created bool
	// NewCustomer is the customer Prepare decided to create. The caller
	// stores it together with the document that references it.
	NewCustomer *partner.Customer
}

// CustomerResolver turns customer input into a bound customer or text
type CustomerResolver struct {
	customerRepo partner.CustomerRepository
	logger       *zap.Logger
}

// NewCustomerResolver creates a new CustomerResolver
func NewCustomerResolver(customerRepo partner.CustomerRepository, logger *zap.Logger) *CustomerResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerResolver{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// Resolve binds an existing customer by id, reuses or creates one when
// addAsNew is set, or falls back to denormalized text. A new customer is
// saved straight away.
func (r *CustomerResolver) Resolve(ctx context.Context, ownerID uuid.UUID, role partner.Role, input CustomerInput, addAsNew bool) (*Resolution, error) {
	res, err := r.Prepare(ctx, ownerID, role, input, addAsNew)
	if err != nil {
		return nil, err
	}
	if res.NewCustomer == nil {
		return res, nil
	}
	if err := r.customerRepo.Save(ctx, res.NewCustomer); err != nil {
		return nil, err
	}
	r.logger.Info("customer created from document",
		zap.String("owner_id", ownerID.String()),
		zap.String("customer_id", res.NewCustomer.ID.String()),
		zap.String("role", string(role)),
	)
	res.Created = true
	return res, nil
}

// Prepare makes the same decision as Resolve but leaves a new customer
// unsaved in Resolution.NewCustomer, so it can be inserted in the same
// transaction as the document.
func (r *CustomerResolver) Prepare(ctx context.Context, ownerID uuid.UUID, role partner.Role, input CustomerInput, addAsNew bool) (*Resolution, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}

	if input.ID != nil && *input.ID != uuid.Nil {
		customer, err := r.customerRepo.FindByIDForOwner(ctx, ownerID, *input.ID)
		if err != nil {
			return nil, err
		}
		return bound(customer, false), nil
	}

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	text := &Resolution{Name: name, Email: email, Phone: phone}

	if !addAsNew {
		return text, nil
	}
	if name == "" {
		// Existing clients rely on this being accepted without a customer row.
		r.logger.Warn("customer_resolver.add_as_new_without_name",
			zap.String("owner_id", ownerID.String()),
			zap.Bool("has_email", email != ""),
			zap.Bool("has_phone", phone != ""),
		)
		return text, nil
	}

	candidates, err := r.customerRepo.FindByOwnerNameRole(ctx, ownerID, name, role)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].IsDuplicateOf(email, phone) {
			r.logger.Debug("reusing existing customer",
				zap.String("owner_id", ownerID.String()),
				zap.String("customer_id", candidates[i].ID.String()),
			)
			return bound(&candidates[i], false), nil
		}
	}

	customer, err := partner.NewCustomer(ownerID, name, email, phone, role)
	if err != nil {
		return nil, err
	}
	res := bound(customer, false)
	res.NewCustomer = customer
	return res, nil
}

func bound(c *partner.Customer, created bool) *Resolution {
	id := c.ID
	return &Resolution{
		CustomerID: &id,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Created:    created,
	}
}
