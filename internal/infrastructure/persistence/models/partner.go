package models

import (
	"github.com/bookkeeper/backend/internal/domain/partner"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	OwnedAggregateModel
	Name  string       `gorm:"type:varchar(200);not null"`
	Email string       `gorm:"type:varchar(200)"`
	Phone string       `gorm:"type:varchar(50)"`
	Role  partner.Role `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		Name:               m.Name,
		Email:              m.Email,
		Phone:              m.Phone,
		Role:               m.Role,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.FromDomainOwnedAggregateRoot(c.OwnedAggregateRoot)
	m.Name = c.Name
	m.Email = c.Email
	m.Phone = c.Phone
	m.Role = c.Role
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}
