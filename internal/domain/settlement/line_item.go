package settlement

import (
	"fmt"
	"strings"

	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LineItem is one priced row on a document
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// NewLineItem builds a line item with its total computed
func NewLineItem(description string, quantity, unitPrice decimal.Decimal) LineItem {
	price := valueobject.Round2(unitPrice)
	return LineItem{
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   price,
		Total:       valueobject.Round2(quantity.Mul(price)),
	}
}

// Validate checks required fields and that Total = round2(Quantity × UnitPrice)
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item description is required")
	}
	if !li.Quantity.IsPositive() {
		return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("Quantity of %q must be positive", li.Description))
	}
	if li.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("Unit price of %q cannot be negative", li.Description))
	}
	expected := valueobject.Round2(li.Quantity.Mul(li.UnitPrice))
	if !valueobject.Equal(li.Total, expected) {
		return shared.NewDomainError("INVALID_LINE_TOTAL",
			fmt.Sprintf("Total of %q is %s, expected %s", li.Description, li.Total.StringFixed(2), expected.StringFixed(2)))
	}
	return nil
}

// Lines is the priced content of a quotation, sale, purchase or invoice
type Lines struct {
	Items       []LineItem      `json:"items"`
	Materials   []LineItem      `json:"materials"`
	OtherCosts  []LineItem      `json:"otherCosts"`
	Workmanship decimal.Decimal `json:"workmanship"`
	IncludesVAT bool            `json:"includesVat"`
}

// IsEmpty reports whether no priced content was supplied
func (l Lines) IsEmpty() bool {
	return len(l.Items) == 0 && len(l.Materials) == 0 && len(l.OtherCosts) == 0 && l.Workmanship.IsZero()
}

// Validate validates every row and the workmanship amount
func (l Lines) Validate() error {
	for _, group := range [][]LineItem{l.Items, l.Materials, l.OtherCosts} {
		for _, li := range group {
			if err := li.Validate(); err != nil {
				return err
			}
		}
	}
	if l.Workmanship.IsNegative() {
		return shared.NewDomainError("INVALID_WORKMANSHIP", "Workmanship cannot be negative")
	}
	return nil
}

// Total sums every row plus workmanship
func (l Lines) Total() decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(l.Items)+len(l.Materials)+len(l.OtherCosts)+1)
	for _, group := range [][]LineItem{l.Items, l.Materials, l.OtherCosts} {
		for _, li := range group {
			amounts = append(amounts, li.Total)
		}
	}
	amounts = append(amounts, l.Workmanship)
	return valueobject.Sum(amounts...)
}

// resolveTotal validates lines and reconciles them with a declared total.
// Without lines the declared total stands on its own.
func resolveTotal(lines Lines, declared decimal.Decimal) (decimal.Decimal, error) {
	if err := lines.Validate(); err != nil {
		return decimal.Zero, err
	}
	if lines.IsEmpty() {
		if valueobject.IsNegative(declared) {
			return decimal.Zero, shared.NewDomainError("INVALID_TOTAL", "Total amount cannot be negative")
		}
		return valueobject.Round2(declared), nil
	}
	computed := lines.Total()
	if !declared.IsZero() && !valueobject.Equal(declared, computed) {
		return decimal.Zero, shared.NewDomainError("INVALID_TOTAL",
			fmt.Sprintf("Total amount %s does not match line items %s", valueobject.Round2(declared).StringFixed(2), computed.StringFixed(2)))
	}
	return computed, nil
}
