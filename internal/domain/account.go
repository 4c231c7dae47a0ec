package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind is the kind of a bank account.
type AccountKind string

const (
	AccountChecking AccountKind = "checking"
	AccountSavings  AccountKind = "savings"
	AccountPayment  AccountKind = "payment"
	AccountBusiness AccountKind = "business"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountChecking, AccountSavings, AccountPayment, AccountBusiness:
		return true
	}
	return false
}

// Account is a bank account whose balance moves with DEBIT and RECEIVE
// transactions.
type Account struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	Institution string          `json:"institution"`
	Kind        AccountKind     `json:"kind"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Seq is the per-owner insertion sequence used to keep creation order.
	Seq int64 `json:"seq"`
}

// Clone returns a copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
