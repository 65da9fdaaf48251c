package settlement

import (
	"sort"
	"strings"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerRef is the counterparty on a document: either a bound customer or
// denormalized text.
type CustomerRef struct {
	CustomerID *uuid.UUID
	Name       string
	Email      string
	Phone      string
}

// IsBound reports whether a customer row is linked
func (c CustomerRef) IsBound() bool {
	return c.CustomerID != nil && *c.CustomerID != uuid.Nil
}

// Document is a Sale, Purchase or Quotation carrying settlement totals.
// Only Plan.Apply writes AmountPaid, Balance, RefundAmount and Status.
type Document struct {
	shared.OwnedAggregateRoot
	Type            DocumentType
	Number          string
	Currency        valueobject.Currency
	Customer        CustomerRef
	Lines           Lines
	TotalAmount     decimal.Decimal
	AmountPaid      decimal.Decimal
	Balance         decimal.Decimal
	RefundAmount    decimal.Decimal
	Status          Status
	IssueDate       time.Time
	DueDate         *time.Time
	Notes           string
	SourceInvoiceID *uuid.UUID
	Payments        []LedgerEntry
}

// NewDocumentParams carries everything needed to create a document
type NewDocumentParams struct {
	OwnerID     uuid.UUID
	Type        DocumentType
	Number      string
	Currency    valueobject.Currency
	Customer    CustomerRef
	Lines       Lines
	TotalAmount decimal.Decimal
	IssueDate   time.Time
	DueDate     *time.Time
	Notes       string
	// Draft keeps a quotation unissued. Ignored for other types.
	Draft bool
}

// NewDocument creates a document with nothing paid
func NewDocument(p NewDocumentParams) (*Document, error) {
	if p.OwnerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	if !p.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be SALE, PURCHASE or QUOTATION")
	}
	if strings.TrimSpace(p.Number) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Document number is required")
	}
	total, err := resolveTotal(p.Lines, p.TotalAmount)
	if err != nil {
		return nil, err
	}
	if p.DueDate != nil && !p.IssueDate.IsZero() && p.DueDate.Before(p.IssueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the issue date")
	}

	doc := &Document{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(p.OwnerID),
		Type:               p.Type,
		Number:             p.Number,
		Currency:           p.Currency,
		Customer:           p.Customer,
		Lines:              p.Lines,
		TotalAmount:        total,
		AmountPaid:         decimal.Zero,
		Balance:            total,
		RefundAmount:       decimal.Zero,
		Status:             StatusUnpaid,
		IssueDate:          p.IssueDate,
		DueDate:            p.DueDate,
		Notes:              p.Notes,
	}
	if doc.Currency == "" {
		doc.Currency = valueobject.DefaultCurrency
	}
	if doc.IssueDate.IsZero() {
		doc.IssueDate = doc.CreatedAt
	}
	if p.Draft && p.Type == TypeQuotation {
		doc.Status = StatusDraft
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))
	return doc, nil
}

// Renumber gives a document that has not been stored yet a new number.
// The pending creation event is rebuilt so it carries the stored number.
func (d *Document) Renumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Document number is required")
	}
	d.Number = number
	d.ClearDomainEvents()
	d.AddDomainEvent(NewDocumentCreatedEvent(d))
	return nil
}

// Policy returns the settlement policy for the document's type
func (d *Document) Policy() Policy {
	return MustPolicyFor(d.Type)
}

// IsDraft reports whether the document has not been issued yet
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft
}

// Issue moves a draft quotation to UNPAID
func (d *Document) Issue() error {
	if !d.IsDraft() {
		return shared.NewDomainError(shared.CodeInvalidState, "Only a draft quotation can be issued")
	}
	d.Status = DeriveStatus(d.Policy(), d.TotalAmount, d.AmountPaid, d.RefundAmount)
	d.IncrementVersion()
	d.Touch()
	d.AddDomainEvent(NewQuotationIssuedEvent(d))
	return nil
}

// ReplaceLines edits a quotation's priced content before any money moved
func (d *Document) ReplaceLines(lines Lines) error {
	if d.Type != TypeQuotation {
		return shared.NewDomainError(shared.CodeInvalidState, "Only quotations can be edited after creation")
	}
	if !d.AmountPaid.IsZero() || !d.RefundAmount.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidState, "Quotation items cannot change once a payment was recorded")
	}
	if lines.IsEmpty() {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Quotation must keep at least one priced line")
	}
	total, err := resolveTotal(lines, decimal.Zero)
	if err != nil {
		return err
	}
	d.Lines = lines
	d.TotalAmount = total
	d.Balance = total
	if !d.IsDraft() {
		d.Status = DeriveStatus(d.Policy(), d.TotalAmount, d.AmountPaid, d.RefundAmount)
	}
	d.IncrementVersion()
	d.Touch()
	return nil
}

// PaymentsNewestFirst returns ledger entries ordered for display
func (d *Document) PaymentsNewestFirst() []LedgerEntry {
	out := make([]LedgerEntry, len(d.Payments))
	copy(out, d.Payments)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PaymentDate.After(out[j].PaymentDate)
	})
	return out
}

// CheckInvariants verifies the numeric invariants that must hold after every
// settlement operation.
func (d *Document) CheckInvariants() error {
	policy := d.Policy()
	switch {
	case d.AmountPaid.IsNegative() || valueobject.GreaterThan(d.AmountPaid, d.TotalAmount):
		return shared.NewDomainError(shared.CodeInvalidState, "amount paid is outside [0, total]")
	case !valueobject.Equal(d.Balance, d.TotalAmount.Sub(d.AmountPaid)):
		return shared.NewDomainError(shared.CodeInvalidState, "balance does not equal total minus amount paid")
	case d.RefundAmount.IsNegative() || valueobject.GreaterThan(d.RefundAmount, policy.RefundableBase(d.AmountPaid, d.RefundAmount)):
		return shared.NewDomainError(shared.CodeInvalidState, "refund amount exceeds money received")
	case !d.IsDraft() && d.Status != DeriveStatus(policy, d.TotalAmount, d.AmountPaid, d.RefundAmount):
		return shared.NewDomainError(shared.CodeInvalidState, "status does not match totals")
	}
	return nil
}
