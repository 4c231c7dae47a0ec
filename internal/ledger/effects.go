package ledger

import (
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// effects applies a transaction's signed delta to the account, card or
// goal it references, and reverses it.
type effects struct {
	catalog *CategoryCatalog
	log     zerolog.Logger
}

// contributesToGoal reports whether tx is a savings RECEIVE.
func (e effects) contributesToGoal(tx *domain.Transaction) bool {
	return tx.Type == domain.Receive && e.catalog.IsSavings(tx.Category)
}

// apply resolves every target first and only then mutates, so a missing
// reference leaves the ledger untouched.
//
// For a savings RECEIVE without a goal id the pool rule picks the first
// goal below its target and records it on tx.
func (e effects) apply(l *domain.Ledger, tx *domain.Transaction, now time.Time) error {
	switch tx.Type {
	case domain.Debit:
		acct, ok := l.Account(tx.AccountID)
		if !ok {
			return notFound(domain.KindAccount, tx.AccountID)
		}
		acct.Balance = acct.Balance.Sub(tx.Amount)
		acct.UpdatedAt = now
		l.PutAccount(acct)

	case domain.Receive:
		acct, ok := l.Account(tx.AccountID)
		if !ok {
			return notFound(domain.KindAccount, tx.AccountID)
		}

		var goal *domain.Goal
		if e.contributesToGoal(tx) {
			if tx.GoalID != "" {
				g, ok := l.Goal(tx.GoalID)
				if !ok {
					return notFound(domain.KindGoal, tx.GoalID)
				}
				goal = g
			} else {
				goal = poolGoal(l)
			}
		}

		acct.Balance = acct.Balance.Add(tx.Amount)
		acct.UpdatedAt = now
		l.PutAccount(acct)

		if goal != nil {
			goal.CurrentAmount = goal.CurrentAmount.Add(tx.Amount)
			goal.UpdatedAt = now
			l.PutGoal(goal)
			tx.GoalID = goal.ID
		}

	case domain.Credit:
		card, ok := l.Card(tx.CardID)
		if !ok {
			return notFound(domain.KindCard, tx.CardID)
		}
		card.AvailableLimit = card.AvailableLimit.Sub(tx.Amount)
		card.UpdatedAt = now
		l.PutCard(card)
	}

	return nil
}

// reverse undoes apply. Targets deleted since the transaction was
// recorded are skipped: there is nothing left to restore.
func (e effects) reverse(l *domain.Ledger, tx *domain.Transaction, now time.Time) {
	switch tx.Type {
	case domain.Debit:
		if acct, ok := l.Account(tx.AccountID); ok {
			acct.Balance = acct.Balance.Add(tx.Amount)
			acct.UpdatedAt = now
			l.PutAccount(acct)
		} else {
			e.missingTarget(tx, domain.KindAccount, tx.AccountID)
		}

	case domain.Receive:
		if acct, ok := l.Account(tx.AccountID); ok {
			acct.Balance = acct.Balance.Sub(tx.Amount)
			acct.UpdatedAt = now
			l.PutAccount(acct)
		} else {
			e.missingTarget(tx, domain.KindAccount, tx.AccountID)
		}

		if tx.GoalID == "" {
			return
		}
		goal, ok := l.Goal(tx.GoalID)
		if !ok {
			e.missingTarget(tx, domain.KindGoal, tx.GoalID)
			return
		}
		goal.CurrentAmount = goal.CurrentAmount.Sub(tx.Amount)
		if goal.CurrentAmount.IsNegative() {
			goal.CurrentAmount = decimal.Zero
		}
		goal.UpdatedAt = now
		l.PutGoal(goal)

	case domain.Credit:
		if card, ok := l.Card(tx.CardID); ok {
			card.AvailableLimit = card.AvailableLimit.Add(tx.Amount)
			card.UpdatedAt = now
			l.PutCard(card)
		} else {
			e.missingTarget(tx, domain.KindCard, tx.CardID)
		}
	}
}

func (e effects) missingTarget(tx *domain.Transaction, kind domain.EntityKind, id string) {
	e.log.Warn().
		Str("owner", tx.Owner).
		Str("transaction_id", tx.ID).
		Str("target_kind", string(kind)).
		Str("target_id", id).
		Msg("Reversal target no longer exists, skipping")
}

// poolGoal returns the first goal, in creation order, that has not reached
// its target.
func poolGoal(l *domain.Ledger) *domain.Goal {
	for _, g := range l.Goals() {
		if g.CurrentAmount.LessThan(g.TargetAmount) {
			return g
		}
	}
	return nil
}
