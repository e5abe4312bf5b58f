package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code every ledger amount is expressed in.
const Currency = money.EUR

// FormatAmount renders a ledger amount in euros, rounded to cents.
func FormatAmount(amount decimal.Decimal) string {
	m := money.New(amount.Shift(2).Round(0).IntPart(), Currency)
	return m.Display()
}

// FormatSigned renders an amount with an explicit sign for income, colored
// by direction.
func FormatSigned(amount decimal.Decimal) string {
	text := FormatAmount(amount)
	if amount.IsPositive() {
		text = "+" + text
	}
	return AmountStyle(amount.IsNegative()).Render(text)
}
