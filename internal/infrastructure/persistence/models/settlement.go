package models

import (
	"time"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterpartyColumns holds the denormalized customer fields shared by
// documents and invoices.
type CounterpartyColumns struct {
	CustomerID    *uuid.UUID `gorm:"type:uuid;index"`
	CustomerName  string     `gorm:"type:varchar(200)"`
	CustomerEmail string     `gorm:"type:varchar(200)"`
	CustomerPhone string     `gorm:"type:varchar(50)"`
}

func counterpartyFromDomain(c settlement.CustomerRef) CounterpartyColumns {
	return CounterpartyColumns{
		CustomerID:    c.CustomerID,
		CustomerName:  c.Name,
		CustomerEmail: c.Email,
		CustomerPhone: c.Phone,
	}
}

func (c CounterpartyColumns) toDomain() settlement.CustomerRef {
	return settlement.CustomerRef{
		CustomerID: c.CustomerID,
		Name:       c.CustomerName,
		Email:      c.CustomerEmail,
		Phone:      c.CustomerPhone,
	}
}

// DocumentModel is the persistence model for sales, purchases and quotations.
// One table with a type column; settlement columns are written only by the
// ledger writer.
type DocumentModel struct {
	OwnedAggregateModel
	Type     settlement.DocumentType `gorm:"type:varchar(20);not null;index"`
	Number   string                  `gorm:"type:varchar(64);not null;index"`
	Currency string                  `gorm:"type:varchar(3);not null"`
	CounterpartyColumns
	Lines           settlement.Lines  `gorm:"type:jsonb;serializer:json"`
	TotalAmount     decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	AmountPaid      decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Balance         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	RefundAmount    decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Status          settlement.Status `gorm:"type:varchar(30);not null;index"`
	IssueDate       time.Time         `gorm:"not null"`
	DueDate         *time.Time
	Notes           string     `gorm:"type:text"`
	SourceInvoiceID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document. Payments are
// loaded separately.
func (m *DocumentModel) ToDomain() *settlement.Document {
	return &settlement.Document{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		Type:               m.Type,
		Number:             m.Number,
		Currency:           valueobject.Currency(m.Currency),
		Customer:           m.CounterpartyColumns.toDomain(),
		Lines:              m.Lines,
		TotalAmount:        m.TotalAmount,
		AmountPaid:         m.AmountPaid,
		Balance:            m.Balance,
		RefundAmount:       m.RefundAmount,
		Status:             m.Status,
		IssueDate:          m.IssueDate,
		DueDate:            m.DueDate,
		Notes:              m.Notes,
		SourceInvoiceID:    m.SourceInvoiceID,
	}
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *settlement.Document) {
	m.FromDomainOwnedAggregateRoot(d.OwnedAggregateRoot)
	m.Type = d.Type
	m.Number = d.Number
	m.Currency = string(d.Currency)
	m.CounterpartyColumns = counterpartyFromDomain(d.Customer)
	m.Lines = d.Lines
	m.TotalAmount = d.TotalAmount
	m.AmountPaid = d.AmountPaid
	m.Balance = d.Balance
	m.RefundAmount = d.RefundAmount
	m.Status = d.Status
	m.IssueDate = d.IssueDate
	m.DueDate = d.DueDate
	m.Notes = d.Notes
	m.SourceInvoiceID = d.SourceInvoiceID
}

// DocumentModelFromDomain creates a new persistence model from a domain Document
func DocumentModelFromDomain(d *settlement.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// LedgerEntryModel is the persistence model for an immutable ledger entry.
// Exactly one of the payable columns is set.
type LedgerEntryModel struct {
	ID          uuid.UUID                `gorm:"type:uuid;primary_key"`
	OwnerID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	Kind        settlement.EntryKind     `gorm:"type:varchar(20);not null"`
	Category    settlement.Category      `gorm:"type:varchar(20);not null"`
	PayableType settlement.PayableType   `gorm:"type:varchar(20);not null"`
	SaleID      *uuid.UUID               `gorm:"type:uuid;index"`
	PurchaseID  *uuid.UUID               `gorm:"type:uuid;index"`
	QuotationID *uuid.UUID               `gorm:"type:uuid;index"`
	ExpenseID   *uuid.UUID               `gorm:"type:uuid;index"`
	Amount      decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	PaymentDate time.Time                `gorm:"not null"`
	Method      settlement.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference   string                   `gorm:"type:varchar(100)"`
	Notes       string                   `gorm:"type:text"`
	Reason      string                   `gorm:"type:text"`
	CreatedAt   time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() settlement.LedgerEntry {
	return settlement.LedgerEntry{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Kind:        m.Kind,
		Category:    m.Category,
		PayableType: m.PayableType,
		SaleID:      m.SaleID,
		PurchaseID:  m.PurchaseID,
		QuotationID: m.QuotationID,
		ExpenseID:   m.ExpenseID,
		Amount:      m.Amount,
		PaymentDate: m.PaymentDate,
		Method:      m.Method,
		Reference:   m.Reference,
		Notes:       m.Notes,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a new persistence model from a domain LedgerEntry
func LedgerEntryModelFromDomain(e *settlement.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Kind:        e.Kind,
		Category:    e.Category,
		PayableType: e.PayableType,
		SaleID:      e.SaleID,
		PurchaseID:  e.PurchaseID,
		QuotationID: e.QuotationID,
		ExpenseID:   e.ExpenseID,
		Amount:      e.Amount,
		PaymentDate: e.PaymentDate,
		Method:      e.Method,
		Reference:   e.Reference,
		Notes:       e.Notes,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt,
	}
}

// PayableColumn returns the ledger_entries column holding the link for t
func PayableColumn(t settlement.PayableType) string {
	switch t {
	case settlement.PayableSale:
		return "sale_id"
	case settlement.PayablePurchase:
		return "purchase_id"
	case settlement.PayableQuotation:
		return "quotation_id"
	case settlement.PayableExpense:
		return "expense_id"
	}
	return ""
}

// IncomeModel is the persistence model for recognized revenue.
// (source_type, source_id) is unique.
type IncomeModel struct {
	OwnedAggregateModel
	SourceType    settlement.IncomeSourceType `gorm:"type:varchar(40);not null;uniqueIndex:idx_incomes_source,priority:1"`
	SourceID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_incomes_source,priority:2"`
	Description   string                      `gorm:"type:varchar(255)"`
	GrossAmount   decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	TaxableAmount decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	VATAmount     decimal.Decimal             `gorm:"column:vat_amount;type:decimal(18,2);not null"`
	IncomeDate    time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IncomeModel) TableName() string {
	return "incomes"
}

// ToDomain converts the persistence model to a domain Income
func (m *IncomeModel) ToDomain() *settlement.Income {
	return &settlement.Income{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		SourceType:         m.SourceType,
		SourceID:           m.SourceID,
		Description:        m.Description,
		GrossAmount:        m.GrossAmount,
		TaxableAmount:      m.TaxableAmount,
		VATAmount:          m.VATAmount,
		IncomeDate:         m.IncomeDate,
	}
}

// IncomeModelFromDomain creates a new persistence model from a domain Income
func IncomeModelFromDomain(i *settlement.Income) *IncomeModel {
	m := &IncomeModel{
		SourceType:    i.SourceType,
		SourceID:      i.SourceID,
		Description:   i.Description,
		GrossAmount:   i.GrossAmount,
		TaxableAmount: i.TaxableAmount,
		VATAmount:     i.VATAmount,
		IncomeDate:    i.IncomeDate,
	}
	m.FromDomainOwnedAggregateRoot(i.OwnedAggregateRoot)
	return m
}

// InvoiceModel is the persistence model for an invoice draft
type InvoiceModel struct {
	OwnedAggregateModel
	Number   string `gorm:"type:varchar(64);not null;index"`
	Currency string `gorm:"type:varchar(3);not null"`
	CounterpartyColumns
	Lines           settlement.Lines `gorm:"type:jsonb;serializer:json"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	IssueDate       time.Time        `gorm:"not null"`
	DueDate         *time.Time
	Notes           string                   `gorm:"type:text"`
	Status          settlement.InvoiceStatus `gorm:"type:varchar(20);not null"`
	ConvertedSaleID *uuid.UUID               `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *settlement.Invoice {
	return &settlement.Invoice{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		Number:             m.Number,
		Currency:           valueobject.Currency(m.Currency),
		Customer:           m.CounterpartyColumns.toDomain(),
		Lines:              m.Lines,
		TotalAmount:        m.TotalAmount,
		IssueDate:          m.IssueDate,
		DueDate:            m.DueDate,
		Notes:              m.Notes,
		Status:             m.Status,
		ConvertedSaleID:    m.ConvertedSaleID,
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(i *settlement.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:              i.Number,
		Currency:            string(i.Currency),
		CounterpartyColumns: counterpartyFromDomain(i.Customer),
		Lines:               i.Lines,
		TotalAmount:         i.TotalAmount,
		IssueDate:           i.IssueDate,
		DueDate:             i.DueDate,
		Notes:               i.Notes,
		Status:              i.Status,
		ConvertedSaleID:     i.ConvertedSaleID,
	}
	m.FromDomainOwnedAggregateRoot(i.OwnedAggregateRoot)
	return m
}

// AllModels lists every model for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&CustomerModel{},
		&DocumentModel{},
		&LedgerEntryModel{},
		&IncomeModel{},
		&InvoiceModel{},
	}
}
