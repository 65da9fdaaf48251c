package settlement

import (
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status is the settlement state of a document. It is always derived from
// the document's totals and never accepted from a client.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusUnpaid            Status = "UNPAID"
	StatusPartiallyPaid     Status = "PARTIALLY_PAID"
	StatusPaid              Status = "PAID"
	StatusPartiallyRefunded Status = "PARTIALLY_REFUNDED"
	StatusRefunded          Status = "REFUNDED"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusUnpaid, StatusPartiallyPaid, StatusPaid,
		StatusPartiallyRefunded, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsRefundState reports whether any refund has been recorded
func (s Status) IsRefundState() bool {
	return s == StatusRefunded || s == StatusPartiallyRefunded
}

// DeriveStatus computes the status from (total, paid, refund) under policy.
// Refund states take precedence; otherwise PAID beats PARTIALLY_PAID beats UNPAID.
func DeriveStatus(policy Policy, total, paid, refund decimal.Decimal) Status {
	if valueobject.IsPositive(refund) {
		if valueobject.GreaterThanOrEqual(refund, policy.RefundableBase(paid, refund)) {
			return StatusRefunded
		}
		return StatusPartiallyRefunded
	}
	if valueobject.IsPositive(paid) && valueobject.GreaterThanOrEqual(paid, total) {
		return StatusPaid
	}
	if valueobject.IsPositive(paid) {
		return StatusPartiallyPaid
	}
	return StatusUnpaid
}
