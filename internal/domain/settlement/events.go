package settlement

import (
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeDocument = "Document"
	AggregateTypeInvoice  = "Invoice"
	AggregateTypeIncome   = "Income"
)

// Event type constants
const (
	EventTypeDocumentCreated   = "DocumentCreated"
	EventTypeQuotationIssued   = "QuotationIssued"
	EventTypePaymentApplied    = "PaymentApplied"
	EventTypeRefundApplied     = "RefundApplied"
	EventTypeRevenueRecognized = "RevenueRecognized"
	EventTypeInvoiceConverted  = "InvoiceConverted"
)

// DocumentCreatedEvent is published when a sale, purchase or quotation is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentType DocumentType    `json:"document_type"`
	Number       string          `json:"number"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       Status          `json:"status"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, d.ID, d.OwnerID),
		DocumentType:    d.Type,
		Number:          d.Number,
		TotalAmount:     d.TotalAmount,
		Status:          d.Status,
	}
}

// QuotationIssuedEvent is published when a draft quotation becomes payable
type QuotationIssuedEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewQuotationIssuedEvent creates a new QuotationIssuedEvent
func NewQuotationIssuedEvent(d *Document) *QuotationIssuedEvent {
	return &QuotationIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuotationIssued, AggregateTypeDocument, d.ID, d.OwnerID),
		Number:          d.Number,
		TotalAmount:     d.TotalAmount,
	}
}

// PaymentAppliedEvent is published after a payment commits
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	DocumentType  DocumentType    `json:"document_type"`
	EntryID       uuid.UUID       `json:"entry_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      Category        `json:"category"`
	Method        PaymentMethod   `json:"method"`
	NewAmountPaid decimal.Decimal `json:"new_amount_paid"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	NewStatus     Status          `json:"new_status"`
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(d *Document, e *LedgerEntry) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypeDocument, d.ID, d.OwnerID),
		DocumentType:    d.Type,
		EntryID:         e.ID,
		Amount:          e.Amount,
		Category:        e.Category,
		Method:          e.Method,
		NewAmountPaid:   d.AmountPaid,
		NewBalance:      d.Balance,
		NewStatus:       d.Status,
	}
}

// RefundAppliedEvent is published after a refund commits
type RefundAppliedEvent struct {
	shared.BaseDomainEvent
	DocumentType    DocumentType    `json:"document_type"`
	EntryID         uuid.UUID       `json:"entry_id"`
	Amount          decimal.Decimal `json:"amount"`
	Category        Category        `json:"category"`
	Reason          string          `json:"reason,omitempty"`
	NewAmountPaid   decimal.Decimal `json:"new_amount_paid"`
	NewRefundAmount decimal.Decimal `json:"new_refund_amount"`
	NewStatus       Status          `json:"new_status"`
}

// NewRefundAppliedEvent creates a new RefundAppliedEvent
func NewRefundAppliedEvent(d *Document, e *LedgerEntry) *RefundAppliedEvent {
	return &RefundAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundApplied, AggregateTypeDocument, d.ID, d.OwnerID),
		DocumentType:    d.Type,
		EntryID:         e.ID,
		Amount:          e.Amount,
		Category:        e.Category,
		Reason:          e.Reason,
		NewAmountPaid:   d.AmountPaid,
		NewRefundAmount: d.RefundAmount,
		NewStatus:       d.Status,
	}
}

// RevenueRecognizedEvent is published when workmanship income was created
type RevenueRecognizedEvent struct {
	shared.BaseDomainEvent
	IncomeID    uuid.UUID        `json:"income_id"`
	SourceType  IncomeSourceType `json:"source_type"`
	SourceID    uuid.UUID        `json:"source_id"`
	GrossAmount decimal.Decimal  `json:"gross_amount"`
	VATAmount   decimal.Decimal  `json:"vat_amount"`
}

// NewRevenueRecognizedEvent creates a new RevenueRecognizedEvent
func NewRevenueRecognizedEvent(i *Income) *RevenueRecognizedEvent {
	return &RevenueRecognizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRevenueRecognized, AggregateTypeIncome, i.ID, i.OwnerID),
		IncomeID:        i.ID,
		SourceType:      i.SourceType,
		SourceID:        i.SourceID,
		GrossAmount:     i.GrossAmount,
		VATAmount:       i.VATAmount,
	}
}

// InvoiceConvertedEvent is published when an invoice draft becomes a sale
type InvoiceConvertedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	SaleID        uuid.UUID `json:"sale_id"`
	SaleNumber    string    `json:"sale_number"`
}

// NewInvoiceConvertedEvent creates a new InvoiceConvertedEvent
func NewInvoiceConvertedEvent(inv *Invoice, sale *Document) *InvoiceConvertedEvent {
	return &InvoiceConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceConverted, AggregateTypeInvoice, inv.ID, inv.OwnerID),
		InvoiceNumber:   inv.Number,
		SaleID:          sale.ID,
		SaleNumber:      sale.Number,
	}
}
