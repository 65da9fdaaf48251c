package settlement

import (
	"time"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Settlement commands ====================

// PaymentCommand records money received on a sale or quotation, or paid out
// on a purchase
type PaymentCommand struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,max=20"`
	Reference     string          `json:"reference" binding:"max=100"`
	Notes         string          `json:"notes" binding:"max=500"`
	PaymentDate   *time.Time      `json:"paymentDate"`
}

func (c PaymentCommand) toInstruction() settlement.PaymentInstruction {
	return settlement.PaymentInstruction{
		Amount:    c.Amount,
		Method:    settlement.PaymentMethod(c.PaymentMethod),
		Reference: c.Reference,
		Notes:     c.Notes,
		Date:      c.PaymentDate,
	}
}

// RefundCommand returns money on a document
type RefundCommand struct {
	RefundAmount  decimal.Decimal `json:"refundAmount"`
	RefundReason  string          `json:"refundReason" binding:"required,max=500"`
	PaymentMethod string          `json:"paymentMethod" binding:"max=20"` // defaults to CASH
	Reference     string          `json:"reference" binding:"max=100"`
	RefundDate    *time.Time      `json:"refundDate"`
}

func (c RefundCommand) toInstruction() settlement.RefundInstruction {
	return settlement.RefundInstruction{
		Amount:    c.RefundAmount,
		Reason:    c.RefundReason,
		Method:    settlement.PaymentMethod(c.PaymentMethod),
		Reference: c.Reference,
		Date:      c.RefundDate,
	}
}

// ==================== Document commands ====================

// LineItemInput is one priced row. Total is optional; when sent it must
// match quantity × unit price.
type LineItemInput struct {
	Description string           `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Total       *decimal.Decimal `json:"total"`
}

func (in LineItemInput) toDomain() settlement.LineItem {
	if in.Total == nil {
		return settlement.NewLineItem(in.Description, in.Quantity, in.UnitPrice)
	}
	return settlement.LineItem{
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Total:       *in.Total,
	}
}

// LinesInput is the priced content of a document
type LinesInput struct {
	Items       []LineItemInput `json:"items" binding:"dive"`
	Materials   []LineItemInput `json:"materials" binding:"dive"`
	OtherCosts  []LineItemInput `json:"otherCosts" binding:"dive"`
	Workmanship decimal.Decimal `json:"workmanship"`
	IncludesVAT bool            `json:"includesVat"`
}

// ToDomain converts the input rows to domain line items
func (in LinesInput) ToDomain() settlement.Lines {
	convert := func(rows []LineItemInput) []settlement.LineItem {
		if len(rows) == 0 {
			return nil
		}
		out := make([]settlement.LineItem, len(rows))
		for i, r := range rows {
			out[i] = r.toDomain()
		}
		return out
	}
	return settlement.Lines{
		Items:       convert(in.Items),
		Materials:   convert(in.Materials),
		OtherCosts:  convert(in.OtherCosts),
		Workmanship: in.Workmanship,
		IncludesVAT: in.IncludesVAT,
	}
}

// CustomerFields identifies the counterparty on a document
type CustomerFields struct {
	CustomerID       *uuid.UUID `json:"customerId"`
	CustomerName     string     `json:"customerName" binding:"max=200"`
	CustomerEmail    string     `json:"customerEmail" binding:"omitempty,email,max=200"`
	CustomerPhone    string     `json:"customerPhone" binding:"max=50"`
	AddAsNewCustomer bool       `json:"addAsNewCustomer"`
}

// CreateDocumentCommand creates a sale, purchase or quotation
type CreateDocumentCommand struct {
	CustomerFields
	LinesInput
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	IssueDate   *time.Time      `json:"issueDate"`
	DueDate     *time.Time      `json:"dueDate"`
	Notes       string          `json:"notes" binding:"max=2000"`
	// Issue creates a quotation ready for payment instead of a draft
	Issue bool `json:"issue"`
}

// CreateInvoiceCommand creates an invoice draft
type CreateInvoiceCommand struct {
	CustomerFields
	LinesInput
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	IssueDate   *time.Time      `json:"issueDate"`
	DueDate     *time.Time      `json:"dueDate"`
	Notes       string          `json:"notes" binding:"max=2000"`
}

// ==================== Responses ====================

// LedgerEntryResponse is one payment or refund
type LedgerEntryResponse struct {
	ID            uuid.UUID       `json:"id"`
	Kind          string          `json:"kind"`
	Category      string          `json:"category"`
	PayableType   string          `json:"payableType"`
	DocumentID    uuid.UUID       `json:"documentId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod"`
	Reference     string          `json:"reference,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// DocumentResponse is a monetary document with its ledger
type DocumentResponse struct {
	ID              uuid.UUID             `json:"id"`
	Type            string                `json:"type"`
	Number          string                `json:"number"`
	Currency        string                `json:"currency"`
	CustomerID      *uuid.UUID            `json:"customerId,omitempty"`
	CustomerName    string                `json:"customerName,omitempty"`
	CustomerEmail   string                `json:"customerEmail,omitempty"`
	CustomerPhone   string                `json:"customerPhone,omitempty"`
	Lines           settlement.Lines      `json:"lines"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	AmountPaid      decimal.Decimal       `json:"amountPaid"`
	Balance         decimal.Decimal       `json:"balance"`
	RefundAmount    decimal.Decimal       `json:"refundAmount"`
	Status          string                `json:"status"`
	IssueDate       time.Time             `json:"issueDate"`
	DueDate         *time.Time            `json:"dueDate,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	SourceInvoiceID *uuid.UUID            `json:"sourceInvoiceId,omitempty"`
	Payments        []LedgerEntryResponse `json:"payments"`
	Version         int                   `json:"version"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// IncomeResponse is recognized revenue
type IncomeResponse struct {
	ID            uuid.UUID       `json:"id"`
	SourceType    string          `json:"sourceType"`
	SourceID      uuid.UUID       `json:"sourceId"`
	Description   string          `json:"description"`
	GrossAmount   decimal.Decimal `json:"grossAmount"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	VATAmount     decimal.Decimal `json:"vatAmount"`
	IncomeDate    time.Time       `json:"incomeDate"`
}

// SettlementResult is returned by payment and refund commands
type SettlementResult struct {
	Payment  LedgerEntryResponse `json:"payment"`
	Document DocumentResponse    `json:"document"`
	Income   *IncomeResponse     `json:"income,omitempty"`
}

// InvoiceResponse is an invoice draft
type InvoiceResponse struct {
	ID              uuid.UUID        `json:"id"`
	Number          string           `json:"number"`
	Currency        string           `json:"currency"`
	CustomerID      *uuid.UUID       `json:"customerId,omitempty"`
	CustomerName    string           `json:"customerName,omitempty"`
	CustomerEmail   string           `json:"customerEmail,omitempty"`
	CustomerPhone   string           `json:"customerPhone,omitempty"`
	Lines           settlement.Lines `json:"lines"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	IssueDate       time.Time        `json:"issueDate"`
	DueDate         *time.Time       `json:"dueDate,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Status          string           `json:"status"`
	ConvertedSaleID *uuid.UUID       `json:"convertedSaleId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// ConversionResult is returned when an invoice becomes a sale
type ConversionResult struct {
	Invoice InvoiceResponse  `json:"invoice"`
	Sale    DocumentResponse `json:"sale"`
}

// ToLedgerEntryResponse converts a domain entry
func ToLedgerEntryResponse(e *settlement.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID,
		Kind:          string(e.Kind),
		Category:      string(e.Category),
		PayableType:   string(e.PayableType),
		DocumentID:    e.DocumentID(),
		Amount:        valueobject.Round2(e.Amount),
		PaymentDate:   e.PaymentDate,
		PaymentMethod: e.Method.String(),
		Reference:     e.Reference,
		Notes:         e.Notes,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts entries preserving order
func ToLedgerEntryResponses(entries []settlement.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

// ToDocumentResponse converts a domain document; payments are newest first
func ToDocumentResponse(d *settlement.Document) DocumentResponse {
	return DocumentResponse{
		ID:              d.ID,
		Type:            d.Type.String(),
		Number:          d.Number,
		Currency:        string(d.Currency),
		CustomerID:      d.Customer.CustomerID,
		CustomerName:    d.Customer.Name,
		CustomerEmail:   d.Customer.Email,
		CustomerPhone:   d.Customer.Phone,
		Lines:           d.Lines,
		TotalAmount:     valueobject.Round2(d.TotalAmount),
		AmountPaid:      valueobject.Round2(d.AmountPaid),
		Balance:         valueobject.Round2(d.Balance),
		RefundAmount:    valueobject.Round2(d.RefundAmount),
		Status:          d.Status.String(),
		IssueDate:       d.IssueDate,
		DueDate:         d.DueDate,
		Notes:           d.Notes,
		SourceInvoiceID: d.SourceInvoiceID,
		Payments:        ToLedgerEntryResponses(d.PaymentsNewestFirst()),
		Version:         d.GetVersion(),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ToIncomeResponse converts recognized income
func ToIncomeResponse(i *settlement.Income) *IncomeResponse {
	if i == nil {
		return nil
	}
	return &IncomeResponse{
		ID:            i.ID,
		SourceType:    string(i.SourceType),
		SourceID:      i.SourceID,
		Description:   i.Description,
		GrossAmount:   i.GrossAmount,
		TaxableAmount: i.TaxableAmount,
		VATAmount:     i.VATAmount,
		IncomeDate:    i.IncomeDate,
	}
}

// ToInvoiceResponse converts an invoice draft
func ToInvoiceResponse(i *settlement.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:              i.ID,
		Number:          i.Number,
		Currency:        string(i.Currency),
		CustomerID:      i.Customer.CustomerID,
		CustomerName:    i.Customer.Name,
		CustomerEmail:   i.Customer.Email,
		CustomerPhone:   i.Customer.Phone,
		Lines:           i.Lines,
		TotalAmount:     valueobject.Round2(i.TotalAmount),
		IssueDate:       i.IssueDate,
		DueDate:         i.DueDate,
		Notes:           i.Notes,
		Status:          string(i.Status),
		ConvertedSaleID: i.ConvertedSaleID,
		CreatedAt:       i.CreatedAt,
	}
}
