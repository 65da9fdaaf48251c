package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Precision is the number of decimal places every stored amount carries
const Precision int32 = 2

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	NGN Currency = "NGN" // Nigerian Naira (default)
	USD Currency = "USD"
	GBP Currency = "GBP"
	EUR Currency = "EUR"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = NGN

// VATRate is the value-added tax rate applied to VAT-inclusive amounts
var VATRate = decimal.RequireFromString("0.075")

// ErrInvalidAmount is returned by ParseAmount for unparseable input
var ErrInvalidAmount = errors.New("invalid amount")

// Round2 rounds d to currency precision, half away from zero
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// HasCurrencyPrecision reports whether d carries no digits beyond Precision
func HasCurrencyPrecision(d decimal.Decimal) bool {
	return d.Equal(Round2(d))
}

// ParseAmount parses a decimal string and rounds it to currency precision
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Round2(d), nil
}

// FromFloat converts a float to a rounded amount
func FromFloat(f float64) decimal.Decimal {
	return Round2(decimal.NewFromFloat(f))
}

// IsPositive reports whether d > 0 at currency precision
func IsPositive(d decimal.Decimal) bool {
	return Round2(d).IsPositive()
}

// IsZero reports whether d rounds to zero
func IsZero(d decimal.Decimal) bool {
	return Round2(d).IsZero()
}

// IsNegative reports whether d < 0 at currency precision
func IsNegative(d decimal.Decimal) bool {
	return Round2(d).IsNegative()
}

// Equal compares two amounts at currency precision
func Equal(a, b decimal.Decimal) bool {
	return Round2(a).Equal(Round2(b))
}

// GreaterThan reports a > b at currency precision
func GreaterThan(a, b decimal.Decimal) bool {
	return Round2(a).GreaterThan(Round2(b))
}

// GreaterThanOrEqual reports a >= b at currency precision
func GreaterThanOrEqual(a, b decimal.Decimal) bool {
	return Round2(a).GreaterThanOrEqual(Round2(b))
}

// LessThan reports a < b at currency precision
func LessThan(a, b decimal.Decimal) bool {
	return Round2(a).LessThan(Round2(b))
}

// Add returns round2(a + b)
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Add(b))
}

// Sub returns round2(a - b)
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Sub(b))
}

// Min returns the smaller amount
func Min(a, b decimal.Decimal) decimal.Decimal {
	if LessThan(a, b) {
		return Round2(a)
	}
	return Round2(b)
}

// Sum adds amounts and rounds the result
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round2(total)
}

// VATPortion extracts the VAT component from a VAT-inclusive gross amount:
// gross × rate / (1 + rate).
func VATPortion(gross decimal.Decimal) decimal.Decimal {
	return Round2(gross.Mul(VATRate).Div(decimal.NewFromInt(1).Add(VATRate)))
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders d for human-readable messages, e.g. "NGN 10,000.01"
func FormatAmount(d decimal.Decimal, cur Currency) string {
	if cur == "" {
		cur = DefaultCurrency
	}
	unit, err := currency.ParseISO(string(cur))
	if err != nil {
		return fmt.Sprintf("%s %s", cur, Round2(d).StringFixed(Precision))
	}
	f, _ := Round2(d).Float64()
	return printer.Sprintf("%v", currency.ISO(unit.Amount(f)))
}
