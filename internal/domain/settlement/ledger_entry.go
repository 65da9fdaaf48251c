package settlement

import (
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the cash direction of a ledger entry
type Category string

const (
	CategoryIncome  Category = "INCOME"
	CategoryExpense Category = "EXPENSE"
)

// IsValid checks if the category is known
func (c Category) IsValid() bool {
	return c == CategoryIncome || c == CategoryExpense
}

// Inverse flips the direction; used for refunds
func (c Category) Inverse() Category {
	if c == CategoryIncome {
		return CategoryExpense
	}
	return CategoryIncome
}

// EntryKind tells payments and refunds apart
type EntryKind string

const (
	EntryPayment EntryKind = "PAYMENT"
	EntryRefund  EntryKind = "REFUND"
)

// PayableType names which foreign key on the entry is populated
type PayableType string

const (
	PayableSale      PayableType = "SALE"
	PayablePurchase  PayableType = "PURCHASE"
	PayableQuotation PayableType = "QUOTATION"
	PayableExpense   PayableType = "EXPENSE"
)

// IsValid checks if the payable type is known
func (p PayableType) IsValid() bool {
	switch p {
	case PayableSale, PayablePurchase, PayableQuotation, PayableExpense:
		return true
	}
	return false
}

// PaymentMethod represents how money moved
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodPOS          PaymentMethod = "POS"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodMobileMoney, PaymentMethodCheque, PaymentMethodPOS, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// LedgerEntry records one movement of money against exactly one payable.
// Entries are immutable: corrections are new entries.
type LedgerEntry struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Kind        EntryKind
	Category    Category
	PayableType PayableType
	SaleID      *uuid.UUID
	PurchaseID  *uuid.UUID
	QuotationID *uuid.UUID
	ExpenseID   *uuid.UUID
	Amount      decimal.Decimal
	PaymentDate time.Time
	Method      PaymentMethod
	Reference   string
	Notes       string
	Reason      string
	CreatedAt   time.Time
}

func newLedgerEntry(doc *Document, kind EntryKind, category Category, amount decimal.Decimal, method PaymentMethod, date time.Time) *LedgerEntry {
	id := doc.ID
	e := &LedgerEntry{
		ID:          uuid.New(),
		OwnerID:     doc.OwnerID,
		Kind:        kind,
		Category:    category,
		PayableType: doc.Type.PayableType(),
		Amount:      valueobject.Round2(amount),
		PaymentDate: date,
		Method:      method,
		CreatedAt:   time.Now().UTC(),
	}
	switch e.PayableType {
	case PayableSale:
		e.SaleID = &id
	case PayablePurchase:
		e.PurchaseID = &id
	case PayableQuotation:
		e.QuotationID = &id
	}
	return e
}

// DocumentID returns the populated foreign key
func (e *LedgerEntry) DocumentID() uuid.UUID {
	for _, id := range []*uuid.UUID{e.SaleID, e.PurchaseID, e.QuotationID, e.ExpenseID} {
		if id != nil {
			return *id
		}
	}
	return uuid.Nil
}

// Validate checks the exactly-one-link rule and basic fields
func (e *LedgerEntry) Validate() error {
	if !valueobject.IsPositive(e.Amount) {
		return shared.NewValidationError("Ledger entry amount must be positive")
	}
	if !e.Category.IsValid() {
		return shared.NewValidationError("Ledger entry category must be INCOME or EXPENSE")
	}
	if !e.Method.IsValid() {
		return shared.NewValidationError("Invalid payment method")
	}
	if !e.PayableType.IsValid() {
		return shared.NewValidationError("Invalid payable type")
	}

	links := map[PayableType]*uuid.UUID{
		PayableSale:      e.SaleID,
		PayablePurchase:  e.PurchaseID,
		PayableQuotation: e.QuotationID,
		PayableExpense:   e.ExpenseID,
	}
	populated := 0
	for pt, id := range links {
		if id == nil {
			continue
		}
		populated++
		if pt != e.PayableType {
			return shared.NewValidationError("Ledger entry link does not match its payable type")
		}
	}
	if populated != 1 {
		return shared.NewValidationError("Ledger entry must reference exactly one payable")
	}
	return nil
}
