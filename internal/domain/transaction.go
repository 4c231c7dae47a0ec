package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of money movement a transaction records.
type TransactionType string

const (
	// Debit takes money out of an account.
	Debit TransactionType = "DEBIT"
	// Credit spends on a credit card.
	Credit TransactionType = "CREDIT"
	// Receive puts money into an account.
	Receive TransactionType = "RECEIVE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case Debit, Credit, Receive:
		return true
	}
	return false
}

// UsesAccount reports whether transactions of this type reference an
// account (as opposed to a credit card).
func (t TransactionType) UsesAccount() bool {
	return t == Debit || t == Receive
}

// Installment links a transaction to the purchase it was split from.
type Installment struct {
	// Number is the 1-based position of this installment.
	Number int `json:"number"`

	// Total is the number of installments in the purchase.
	Total int `json:"total"`

	// PurchaseID is shared by every installment of the same purchase.
	PurchaseID string `json:"purchase_id"`
}

// Transaction is one ledger entry. Exactly one of AccountID and CardID is
// set: AccountID for DEBIT and RECEIVE, CardID for CREDIT.
type Transaction struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	AccountID   string          `json:"account_id,omitempty"`
	CardID      string          `json:"card_id,omitempty"`

	// GoalID is the goal credited by a savings RECEIVE, recorded at
	// creation so the contribution can be reversed exactly.
	GoalID string `json:"goal_id,omitempty"`

	Installment *Installment `json:"installment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Seq       int64     `json:"seq"`
}

// PurchaseID returns the installment purchase id, or "" for single
// transactions.
func (t *Transaction) PurchaseID() string {
	if t.Installment == nil {
		return ""
	}
	return t.Installment.PurchaseID
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Installment != nil {
		inst := *t.Installment
		c.Installment = &inst
	}
	return &c
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
