package model

import "github.com/shopspring/decimal"

// AccountType identifies one of the four canonical account slots.
type AccountType string

const (
	// AccountCurrent is the everyday account every movement flows through.
	AccountCurrent AccountType = "CORRIENTE"
	// AccountCard holds the credit card debt.
	AccountCard AccountType = "TARJETA"
	// AccountRetirement receives retirement plan contributions.
	AccountRetirement AccountType = "JUBILACIÓN"
	// AccountSavings receives savings plan contributions.
	AccountSavings AccountType = "AHORRO"
)

// AccountTypes lists the account slots in display order.
var AccountTypes = []AccountType{AccountCurrent, AccountCard, AccountRetirement, AccountSavings}

// Valid reports whether t is one of the canonical account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountCurrent, AccountCard, AccountRetirement, AccountSavings:
		return true
	}
	return false
}

// Account is the in-memory projection of an account and its movements.
type Account struct {
	// CachedBalance is the stored SALDO value, nil when never written.
	CachedBalance *decimal.Decimal
	ID            string
	CharacterID   string
	Number        string
	Type          AccountType
	MovementIDs   []string
	Movements     []Movement
}

// Balance is the sum of the signed amounts of the account's movements.
func (a *Account) Balance() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Movements {
		total = total.Add(a.Movements[i].SignedAmount())
	}
	return total
}
