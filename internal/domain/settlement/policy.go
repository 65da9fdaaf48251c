package settlement

import (
	"fmt"

	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Policy captures the per-type differences in settlement arithmetic.
// Everything else about payments and refunds is shared.
type Policy struct {
	// RefundDecrementsAmountPaid moves refunded money back out of AmountPaid.
	// When false only RefundAmount grows and Balance is untouched.
	RefundDecrementsAmountPaid bool
	// ForbidsPaymentWhenRefunded rejects new payments once any refund exists.
	ForbidsPaymentWhenRefunded bool
	// PaymentCategory is the ledger category of money received or paid out.
	PaymentCategory Category
}

var policies = map[DocumentType]Policy{
	TypeSale: {
		RefundDecrementsAmountPaid: false,
		ForbidsPaymentWhenRefunded: true,
		PaymentCategory:            CategoryIncome,
	},
	TypePurchase: {
		RefundDecrementsAmountPaid: true,
		ForbidsPaymentWhenRefunded: true,
		PaymentCategory:            CategoryExpense,
	},
	TypeQuotation: {
		RefundDecrementsAmountPaid: true,
		ForbidsPaymentWhenRefunded: false,
		PaymentCategory:            CategoryIncome,
	},
}

// PolicyFor returns the settlement policy of a document type
func PolicyFor(t DocumentType) (Policy, error) {
	p, ok := policies[t]
	if !ok {
		return Policy{}, fmt.Errorf("no settlement policy for document type %q", t)
	}
	return p, nil
}

// MustPolicyFor is PolicyFor for types already validated by the caller
func MustPolicyFor(t DocumentType) Policy {
	p, err := PolicyFor(t)
	if err != nil {
		panic(err)
	}
	return p
}

// RefundCategory is the inverse of PaymentCategory
func (p Policy) RefundCategory() Category {
	return p.PaymentCategory.Inverse()
}

// RefundableBase is the total money received so far. Refunds can never
// exceed it. For decrementing types refunded money has already left
// AmountPaid, so it is added back.
func (p Policy) RefundableBase(amountPaid, refundAmount decimal.Decimal) decimal.Decimal {
	if p.RefundDecrementsAmountPaid {
		return valueobject.Add(amountPaid, refundAmount)
	}
	return valueobject.Round2(amountPaid)
}
