package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// centsExp is the number of fractional digits money amounts are rounded to.
const centsExp = 2

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(centsExp), m.Currency.String())
}

// roundCents rounds half away from zero to two decimal places.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centsExp)
}
