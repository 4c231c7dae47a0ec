// Package insights summarises a ledger and asks a language model for
// observations about it.
package insights

import (
	"sort"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultMonths is the summary window used when none is given.
const DefaultMonths = 3

// Summary is a point-in-time digest of one owner's ledger.
type Summary struct {
	Owner       string    `json:"owner"`
	GeneratedAt time.Time `json:"generated_at"`
	Months      int       `json:"months"`
	From        time.Time `json:"from"`

	TotalBalance    decimal.Decimal `json:"total_balance"`
	AvailableCredit decimal.Decimal `json:"available_credit"`

	// Window totals. Spending includes CreditSpending.
	Income         decimal.Decimal `json:"income"`
	Spending       decimal.Decimal `json:"spending"`
	CreditSpending decimal.Decimal `json:"credit_spending"`
	Transactions   int             `json:"transactions"`

	Categories []CategorySpend `json:"categories"`
	Goals      []GoalProgress  `json:"goals"`
	Cards      []CardLimit     `json:"cards"`
}

// CategorySpend is the window spending in one category.
type CategorySpend struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// GoalProgress reports how far a goal is from its target.
type GoalProgress struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Target    decimal.Decimal `json:"target"`
	Current   decimal.Decimal `json:"current"`
	Remaining decimal.Decimal `json:"remaining"`
	Progress  decimal.Decimal `json:"progress"`
	Deadline  *time.Time      `json:"deadline,omitempty"`
}

// CardLimit is a card's remaining credit.
type CardLimit struct {
	ID             string          `json:"id"`
	Issuer         string          `json:"issuer"`
	Brand          string          `json:"brand"`
	AvailableLimit decimal.Decimal `json:"available_limit"`
	ClosingDay     int             `json:"closing_day"`
	DueDay         int             `json:"due_day"`
}

// WindowStart returns the first day of the month months-1 months before now.
func WindowStart(now time.Time, months int) time.Time {
	if months < 1 {
		months = 1
	}
	y, m, _ := now.UTC().Date()
	return time.Date(y, m-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)
}

// Summarize digests l over the last months calendar months, the current
// one included. Transactions dated after now are ignored.
func Summarize(l *domain.Ledger, now time.Time, months int) *Summary {
	if months < 1 {
		months = DefaultMonths
	}
	from := WindowStart(now, months)
	until := domain.DateOnly(now)

	s := &Summary{
		Owner:           l.Owner,
		GeneratedAt:     now.UTC(),
		Months:          months,
		From:            from,
		TotalBalance:    decimal.Zero,
		AvailableCredit: decimal.Zero,
		Income:          decimal.Zero,
		Spending:        decimal.Zero,
		CreditSpending:  decimal.Zero,
		Categories:      []CategorySpend{},
		Goals:           []GoalProgress{},
		Cards:           []CardLimit{},
	}

	for _, a := range l.Accounts() {
		s.TotalBalance = s.TotalBalance.Add(a.Balance)
	}
	for _, c := range l.Cards() {
		s.AvailableCredit = s.AvailableCredit.Add(c.AvailableLimit)
		s.Cards = append(s.Cards, CardLimit{
			ID:             c.ID,
			Issuer:         c.Issuer,
			Brand:          c.Brand,
			AvailableLimit: c.AvailableLimit,
			ClosingDay:     c.ClosingDay,
			DueDay:         c.DueDay,
		})
	}
	for _, g := range l.Goals() {
		s.Goals = append(s.Goals, GoalProgress{
			ID:        g.ID,
			Name:      g.Name,
			Target:    g.TargetAmount,
			Current:   g.CurrentAmount,
			Remaining: g.Remaining(),
			Progress:  g.Progress(),
			Deadline:  g.Deadline,
		})
	}

	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range l.Transactions() {
		if tx.Date.Before(from) || tx.Date.After(until) {
			continue
		}
		s.Transactions++
		switch tx.Type {
		case domain.Receive:
			s.Income = s.Income.Add(tx.Amount)
		case domain.Credit:
			s.CreditSpending = s.CreditSpending.Add(tx.Amount)
			fallthrough
		case domain.Debit:
			s.Spending = s.Spending.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
		}
	}

	for cat, amount := range byCategory {
		s.Categories = append(s.Categories, CategorySpend{Category: cat, Amount: amount})
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if c := s.Categories[i].Amount.Cmp(s.Categories[j].Amount); c != 0 {
			return c > 0
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	return s
}
