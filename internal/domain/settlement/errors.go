package settlement

import (
	"fmt"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Settlement error codes
const (
	CodeExceedsBalance              = "EXCEEDS_BALANCE"
	CodeAlreadyFullyPaid            = "ALREADY_FULLY_PAID"
	CodePaymentAfterRefund          = "PAYMENT_AFTER_REFUND"
	CodeNothingToRefund             = "NOTHING_TO_REFUND"
	CodeExceedsAmountPaid           = "EXCEEDS_AMOUNT_PAID"
	CodeExceedsCumulativeRefundable = "EXCEEDS_CUMULATIVE_REFUNDABLE"
	CodeDocumentNotFound            = "DOCUMENT_NOT_FOUND"
	CodeInvoiceNotFound             = "INVOICE_NOT_FOUND"
	CodeTransactionTimeout          = "TRANSACTION_TIMEOUT"
	CodeStorageFailure              = "STORAGE_FAILURE"
)

func ErrExceedsBalance(amount, balance decimal.Decimal, cur valueobject.Currency) *shared.DomainError {
	return shared.NewBusinessRuleError(CodeExceedsBalance, fmt.Sprintf(
		"Payment of %s exceeds the outstanding balance of %s",
		valueobject.FormatAmount(amount, cur), valueobject.FormatAmount(balance, cur)))
}

func ErrAlreadyFullyPaid() *shared.DomainError {
	return shared.NewBusinessRuleError(CodeAlreadyFullyPaid, "Document is already fully paid")
}

func ErrPaymentAfterRefund(t DocumentType) *shared.DomainError {
	return shared.NewBusinessRuleError(CodePaymentAfterRefund, fmt.Sprintf(
		"A refunded %s cannot accept new payments; create a new document instead", t))
}

func ErrNothingToRefund() *shared.DomainError {
	return shared.NewBusinessRuleError(CodeNothingToRefund, "Nothing has been paid on this document, so nothing can be refunded")
}

func ErrExceedsAmountPaid(amount, paid decimal.Decimal, cur valueobject.Currency) *shared.DomainError {
	return shared.NewBusinessRuleError(CodeExceedsAmountPaid, fmt.Sprintf(
		"Refund of %s exceeds the amount paid of %s",
		valueobject.FormatAmount(amount, cur), valueobject.FormatAmount(paid, cur)))
}

func ErrExceedsCumulativeRefundable(amount, remaining decimal.Decimal, cur valueobject.Currency) *shared.DomainError {
	return shared.NewBusinessRuleError(CodeExceedsCumulativeRefundable, fmt.Sprintf(
		"Refund of %s exceeds the remaining refundable amount of %s",
		valueobject.FormatAmount(amount, cur), valueobject.FormatAmount(remaining, cur)))
}

// ErrDocumentNotFound covers both a missing document and one owned by another account
func ErrDocumentNotFound(t DocumentType) *shared.DomainError {
	name := "Document"
	if t != "" {
		name = t.String()
	}
	return shared.NewDomainErrorWithKind(shared.KindNotFound, CodeDocumentNotFound, fmt.Sprintf("%s not found", name))
}

func ErrInvoiceNotFound() *shared.DomainError {
	return shared.NewDomainErrorWithKind(shared.KindNotFound, CodeInvoiceNotFound, "Invoice not found")
}

// ErrTransactionTimeout is returned when the atomic commit exceeds its budget
func ErrTransactionTimeout(cause error) *shared.DomainError {
	return shared.NewInfrastructureError(CodeTransactionTimeout, "Settlement transaction timed out; retry the whole operation", cause)
}

// ErrStorage wraps any other persistence failure
func ErrStorage(cause error) *shared.DomainError {
	return shared.NewInfrastructureError(CodeStorageFailure, "Settlement could not be saved; retry the whole operation", cause)
}

func errDraft() *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidState, "Document is still a draft and cannot be settled")
}
