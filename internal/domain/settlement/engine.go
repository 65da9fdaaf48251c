package settlement

import (
	"strings"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentInstruction is a validated request to record money against a document
type PaymentInstruction struct {
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
	Notes     string
	Date      *time.Time
}

// RefundInstruction is a validated request to return money on a document
type RefundInstruction struct {
	Amount    decimal.Decimal
	Reason    string
	Method    PaymentMethod
	Reference string
	Date      *time.Time
}

// Plan is the engine's computed mutation. Nothing is written until the
// ledger writer applies and persists it.
type Plan struct {
	Kind            EntryKind
	DocumentID      uuid.UUID
	ExpectedVersion int

	PrevAmountPaid  decimal.Decimal
	NewAmountPaid   decimal.Decimal
	NewBalance      decimal.Decimal
	NewRefundAmount decimal.Decimal
	NewStatus       Status

	Entry *LedgerEntry
	// Revenue is set when this commit must create the workmanship income,
	// provided none exists yet for the quotation.
	Revenue *Income
}

// FirstPayment reports whether the plan moves AmountPaid off zero
func (p *Plan) FirstPayment() bool {
	return p.Kind == EntryPayment && p.PrevAmountPaid.IsZero() && p.NewAmountPaid.IsPositive()
}

// Apply writes the planned totals onto doc. The document must be the same
// row, at the same version, that the plan was computed from.
func (p *Plan) Apply(doc *Document) error {
	if doc.ID != p.DocumentID || doc.GetVersion() != p.ExpectedVersion {
		return shared.ErrConcurrencyConflict
	}
	doc.AmountPaid = p.NewAmountPaid
	doc.Balance = p.NewBalance
	doc.RefundAmount = p.NewRefundAmount
	doc.Status = p.NewStatus
	doc.Payments = append([]LedgerEntry{*p.Entry}, doc.Payments...)
	doc.IncrementVersion()
	doc.Touch()

	switch p.Kind {
	case EntryPayment:
		doc.AddDomainEvent(NewPaymentAppliedEvent(doc, p.Entry))
	case EntryRefund:
		doc.AddDomainEvent(NewRefundAppliedEvent(doc, p.Entry))
	}
	return doc.CheckInvariants()
}

// Engine is the settlement state machine shared by every document type
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine using the wall clock for default dates
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock creates an Engine with an injected clock
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

func (e *Engine) dateOrNow(d *time.Time) time.Time {
	if d != nil && !d.IsZero() {
		return d.UTC()
	}
	return e.now().UTC()
}

// ApplyPayment computes the effect of receiving (or paying out) amount
func (e *Engine) ApplyPayment(doc *Document, in PaymentInstruction) (*Plan, error) {
	if doc.IsDraft() {
		return nil, errDraft()
	}
	if !valueobject.HasCurrencyPrecision(in.Amount) {
		return nil, shared.NewValidationError("Payment amount must have at most two decimal places")
	}
	amount := in.Amount
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be greater than zero")
	}
	if !in.Method.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method")
	}

	policy := doc.Policy()
	if policy.ForbidsPaymentWhenRefunded && doc.RefundAmount.IsPositive() {
		return nil, ErrPaymentAfterRefund(doc.Type)
	}
	balance := valueobject.Sub(doc.TotalAmount, doc.AmountPaid)
	if !balance.IsPositive() {
		return nil, ErrAlreadyFullyPaid()
	}
	if valueobject.GreaterThan(amount, balance) {
		return nil, ErrExceedsBalance(amount, balance, doc.Currency)
	}

	newPaid := valueobject.Add(doc.AmountPaid, amount)
	date := e.dateOrNow(in.Date)

	entry := newLedgerEntry(doc, EntryPayment, policy.PaymentCategory, amount, in.Method, date)
	entry.Reference = strings.TrimSpace(in.Reference)
	entry.Notes = strings.TrimSpace(in.Notes)

	plan := &Plan{
		Kind:            EntryPayment,
		DocumentID:      doc.ID,
		ExpectedVersion: doc.GetVersion(),
		PrevAmountPaid:  valueobject.Round2(doc.AmountPaid),
		NewAmountPaid:   newPaid,
		NewBalance:      valueobject.Sub(doc.TotalAmount, newPaid),
		NewRefundAmount: valueobject.Round2(doc.RefundAmount),
		NewStatus:       DeriveStatus(policy, doc.TotalAmount, newPaid, doc.RefundAmount),
		Entry:           entry,
	}
	if plan.FirstPayment() {
		plan.Revenue = RecognizeQuotationRevenue(doc, date)
	}
	return plan, nil
}

// ApplyRefund computes the effect of returning amount
func (e *Engine) ApplyRefund(doc *Document, in RefundInstruction) (*Plan, error) {
	if doc.IsDraft() {
		return nil, errDraft()
	}
	if !doc.AmountPaid.IsPositive() {
		return nil, ErrNothingToRefund()
	}
	if !valueobject.HasCurrencyPrecision(in.Amount) {
		return nil, shared.NewValidationError("Refund amount must have at most two decimal places")
	}
	amount := in.Amount
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Refund amount must be greater than zero")
	}
	method := in.Method
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method")
	}
	if valueobject.GreaterThan(amount, doc.AmountPaid) {
		return nil, ErrExceedsAmountPaid(amount, doc.AmountPaid, doc.Currency)
	}

	policy := doc.Policy()
	base := policy.RefundableBase(doc.AmountPaid, doc.RefundAmount)
	if valueobject.GreaterThan(valueobject.Add(doc.RefundAmount, amount), base) {
		return nil, ErrExceedsCumulativeRefundable(amount, valueobject.Sub(base, doc.RefundAmount), doc.Currency)
	}

	newRefund := valueobject.Add(doc.RefundAmount, amount)
	newPaid := valueobject.Round2(doc.AmountPaid)
	if policy.RefundDecrementsAmountPaid {
		newPaid = valueobject.Sub(doc.AmountPaid, amount)
	}

	entry := newLedgerEntry(doc, EntryRefund, policy.RefundCategory(), amount, method, e.dateOrNow(in.Date))
	entry.Reference = strings.TrimSpace(in.Reference)
	entry.Reason = strings.TrimSpace(in.Reason)

	return &Plan{
		Kind:            EntryRefund,
		DocumentID:      doc.ID,
		ExpectedVersion: doc.GetVersion(),
		PrevAmountPaid:  valueobject.Round2(doc.AmountPaid),
		NewAmountPaid:   newPaid,
		NewBalance:      valueobject.Sub(doc.TotalAmount, newPaid),
		NewRefundAmount: newRefund,
		NewStatus:       DeriveStatus(policy, doc.TotalAmount, newPaid, newRefund),
		Entry:           entry,
	}, nil
}
