package model

import "github.com/shopspring/decimal"

// SizeClass categorizes a product by the weekly quota it consumes.
type SizeClass string

const (
	// SizeLarge products may be bought twice a week.
	SizeLarge SizeClass = "GRANDE"
	// SizeMedium products may be bought four times a week.
	SizeMedium SizeClass = "MEDIANA"
	// SizeSmall products may be bought eight times a week.
	SizeSmall SizeClass = "PEQUEÑA"
)

// SizeClasses lists the size classes from largest to smallest.
var SizeClasses = []SizeClass{SizeLarge, SizeMedium, SizeSmall}

// Frequency is the recurrence of a periodic product.
type Frequency string

const (
	// FrequencyWeekly recurs every simulated week.
	FrequencyWeekly Frequency = "SEMANAL"
	// FrequencyMonthly recurs every simulated month.
	FrequencyMonthly Frequency = "MENSUAL"
)

// Product is a catalog entry offered by a merchant.
type Product struct {
	Price            decimal.Decimal
	ExtraMonthlyCost decimal.Decimal
	ID               string
	Name             string
	Key              string
	MerchantID       string
	SizeClass        SizeClass
	Frequency        Frequency
	Periodic         bool
}

// DisplayPrice is the price shown to participants, including monthly extras.
func (p *Product) DisplayPrice() decimal.Decimal {
	return p.Price.Add(p.ExtraMonthlyCost)
}

// Merchant offers products and publishes the rules of its shop.
type Merchant struct {
	ID         string
	Name       string
	Rules      string
	ProductIDs []string
}
