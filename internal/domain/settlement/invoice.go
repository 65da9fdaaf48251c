package settlement

import (
	"strings"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks whether an invoice draft has become a sale
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusConverted InvoiceStatus = "CONVERTED"
)

// Invoice is a pre-settlement draft. It carries no payment fields; money is
// only recorded against the Sale it converts into.
type Invoice struct {
	shared.OwnedAggregateRoot
	Number          string
	Currency        valueobject.Currency
	Customer        CustomerRef
	Lines           Lines
	TotalAmount     decimal.Decimal
	IssueDate       time.Time
	DueDate         *time.Time
	Notes           string
	Status          InvoiceStatus
	ConvertedSaleID *uuid.UUID
}

// NewInvoiceParams carries everything needed to create an invoice draft
type NewInvoiceParams struct {
	OwnerID     uuid.UUID
	Number      string
	Currency    valueobject.Currency
	Customer    CustomerRef
	Lines       Lines
	TotalAmount decimal.Decimal
	IssueDate   time.Time
	DueDate     *time.Time
	Notes       string
}

// NewInvoice creates an invoice draft
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if p.OwnerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	if strings.TrimSpace(p.Number) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number is required")
	}
	total, err := resolveTotal(p.Lines, p.TotalAmount)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(p.OwnerID),
		Number:             p.Number,
		Currency:           p.Currency,
		Customer:           p.Customer,
		Lines:              p.Lines,
		TotalAmount:        total,
		IssueDate:          p.IssueDate,
		DueDate:            p.DueDate,
		Notes:              p.Notes,
		Status:             InvoiceStatusDraft,
	}
	if inv.Currency == "" {
		inv.Currency = valueobject.DefaultCurrency
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = inv.CreatedAt
	}
	return inv, nil
}

// Renumber gives an invoice that has not been stored yet a new number
func (i *Invoice) Renumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Invoice number is required")
	}
	i.Number = number
	return nil
}

// RenumberSale changes the number of the sale produced by ConvertToSale
// before it is stored, keeping the conversion event in step.
func (i *Invoice) RenumberSale(sale *Document, number string) error {
	if !i.IsConverted() || i.ConvertedSaleID == nil || *i.ConvertedSaleID != sale.ID {
		return shared.NewDomainError(shared.CodeInvalidState, "Sale was not produced from this invoice")
	}
	if err := sale.Renumber(number); err != nil {
		return err
	}
	i.ClearDomainEvents()
	i.AddDomainEvent(NewInvoiceConvertedEvent(i, sale))
	return nil
}

// IsConverted reports whether a sale was already produced from this invoice
func (i *Invoice) IsConverted() bool {
	return i.Status == InvoiceStatusConverted
}

// ConvertToSale produces an UNPAID sale carrying the invoice's customer and
// totals and marks the invoice converted.
func (i *Invoice) ConvertToSale(saleNumber string) (*Document, error) {
	if i.IsConverted() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Invoice has already been converted to a sale")
	}
	sale, err := NewDocument(NewDocumentParams{
		OwnerID:     i.OwnerID,
		Type:        TypeSale,
		Number:      saleNumber,
		Currency:    i.Currency,
		Customer:    i.Customer,
		Lines:       i.Lines,
		TotalAmount: i.TotalAmount,
		IssueDate:   i.IssueDate,
		DueDate:     i.DueDate,
		Notes:       i.Notes,
	})
	if err != nil {
		return nil, err
	}
	invoiceID := i.ID
	sale.SourceInvoiceID = &invoiceID

	saleID := sale.ID
	i.ConvertedSaleID = &saleID
	i.Status = InvoiceStatusConverted
	i.IncrementVersion()
	i.Touch()
	i.AddDomainEvent(NewInvoiceConvertedEvent(i, sale))
	return sale, nil
}
