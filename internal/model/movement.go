package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the means used to settle a movement.
type PaymentMethod string

const (
	// MethodCheck is a bank check, the default for recurring bills.
	MethodCheck PaymentMethod = "TALÓN"
	// MethodDebitCard is a debit card payment.
	MethodDebitCard PaymentMethod = "TARJETA-DÉBITO"
	// MethodCreditCard is used for debt posted on the card account.
	MethodCreditCard PaymentMethod = "TARJETA-CRÉDITO"
	// MethodIncome marks salary and other income.
	MethodIncome PaymentMethod = "INGRESO"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCheck, MethodDebitCard, MethodCreditCard, MethodIncome:
		return true
	}
	return false
}

// Movement is a single signed ledger entry tied to one account and one product.
type Movement struct {
	CreatedAt time.Time
	// Override is the IMPORTE-PARTICULAR annotation used for transfers and refunds.
	Override       *decimal.Decimal
	Amount         decimal.Decimal
	ID             string
	AccountID      string
	ProductID      string
	Concept        string
	Merchant       string
	Method         PaymentMethod
	SizeClass      SizeClass
	Frequency      Frequency
	ElapsedPeriods int
	SameWeek       bool
}

// SignedAmount is the amount the movement contributes to its account balance.
func (m *Movement) SignedAmount() decimal.Decimal {
	if m.Override == nil {
		return m.Amount
	}
	return m.Amount.Add(*m.Override)
}

// Periodic reports whether the movement belongs to a recurring concept.
func (m *Movement) Periodic() bool {
	return m.Frequency != ""
}

// StatementLine is a movement with the account balance right after it.
type StatementLine struct {
	Movement
	RunningBalance decimal.Decimal
}
