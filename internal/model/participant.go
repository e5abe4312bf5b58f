package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Role is the kind of participant.
type Role string

const (
	// RoleStudent participants control a character.
	RoleStudent Role = "ESTUDIANTE"
	// RoleMerchant participants run a shop.
	RoleMerchant Role = "COMERCIANTE"
)

// Participant is a person taking part in the simulation.
type Participant struct {
	ID          string
	Name        string
	Surname1    string
	Surname2    string
	Role        Role
	CharacterID string
}

// FullName renders the name the way participants are searched for.
func (p *Participant) FullName() string {
	return FullName(p.Name, p.Surname1, p.Surname2)
}

// FullName formats "SURNAME1 SURNAME2, NAME".
func FullName(name, surname1, surname2 string) string {
	return fmt.Sprintf("%s %s, %s", surname1, surname2, name)
}

// Profession holds the economic data of an occupation.
type Profession struct {
	Salary         decimal.Decimal
	SpouseSalary   decimal.Decimal
	CardDebt       decimal.Decimal
	MinCardPayment decimal.Decimal
	ID             string
	Name           string
	Dependents     int
}

// Character is the simulated household a participant controls.
type Character struct {
	Profession    Profession
	ID            string
	Occupation    string
	Title         string
	ParticipantID string
	AccountIDs    []string
	Reference     int
}

// MonthlyIncome is the household salary credited every month.
func (c *Character) MonthlyIncome() decimal.Decimal {
	return c.Profession.Salary.Add(c.Profession.SpouseSalary)
}
