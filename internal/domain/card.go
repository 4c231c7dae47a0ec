package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// billingCycleDays is used to wrap a closing day that falls before the
// first of the month into the previous month.
const billingCycleDays = 30

// CreditCard is a card whose AvailableLimit is the remaining credit.
// Spending decrements it, reversals increment it; it is never a total.
type CreditCard struct {
	ID             string          `json:"id"`
	Owner          string          `json:"owner"`
	Issuer         string          `json:"issuer"`
	Brand          string          `json:"brand"`
	AvailableLimit decimal.Decimal `json:"available_limit"`
	DueDay         int             `json:"due_day"`
	ClosingOffset  int             `json:"closing_offset"`
	ClosingDay     int             `json:"closing_day"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Seq            int64           `json:"seq"`
}

// ClosingDayFor returns the statement closing day for a due day and the
// number of days the statement closes before it.
//
// A card due on the 5th that closes 10 days earlier closes on the 25th.
func ClosingDayFor(dueDay, offset int) int {
	day := dueDay - offset
	for day < 1 {
		day += billingCycleDays
	}
	return day
}

// DeriveClosingDay recomputes ClosingDay from DueDay and ClosingOffset.
func (c *CreditCard) DeriveClosingDay() {
	c.ClosingDay = ClosingDayFor(c.DueDay, c.ClosingOffset)
}

// Clone returns a copy of the card.
func (c *CreditCard) Clone() *CreditCard {
	cp := *c
	return &cp
}
