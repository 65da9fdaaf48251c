package settlement

import (
	"fmt"
	"time"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomeSourceType tags where an income record came from
type IncomeSourceType string

const (
	// IncomeSourceQuotationPayment is workmanship recognized on a quotation's first payment
	IncomeSourceQuotationPayment IncomeSourceType = "QUOTATION_PAYMENT"
)

// Income is recognized revenue. (SourceType, SourceID) is unique.
type Income struct {
	shared.OwnedAggregateRoot
	SourceType    IncomeSourceType
	SourceID      uuid.UUID
	Description   string
	GrossAmount   decimal.Decimal
	TaxableAmount decimal.Decimal
	VATAmount     decimal.Decimal
	IncomeDate    time.Time
}

// RecognizeQuotationRevenue builds the workmanship income for a quotation's
// first payment. It returns nil when the document is not a quotation or has
// no workmanship. Whether one already exists is checked by the ledger writer
// inside the same transaction.
func RecognizeQuotationRevenue(doc *Document, paymentDate time.Time) *Income {
	if doc.Type != TypeQuotation || !valueobject.IsPositive(doc.Lines.Workmanship) {
		return nil
	}
	workmanship := valueobject.Round2(doc.Lines.Workmanship)
	vat := decimal.Zero
	if doc.Lines.IncludesVAT {
		vat = valueobject.VATPortion(workmanship)
	}
	return &Income{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(doc.OwnerID),
		SourceType:         IncomeSourceQuotationPayment,
		SourceID:           doc.ID,
		Description:        fmt.Sprintf("Workmanship for %s", doc.Number),
		GrossAmount:        workmanship,
		TaxableAmount:      workmanship,
		VATAmount:          vat,
		IncomeDate:         paymentDate,
	}
}
