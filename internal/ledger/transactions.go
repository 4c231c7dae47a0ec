package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionInput holds the fields of a new transaction. Installments
// of 2 or more splits a CREDIT purchase; 0 and 1 record a single
// transaction.
type TransactionInput struct {
	Type         domain.TransactionType `json:"type"`
	Date         time.Time              `json:"date"`
	Description  string                 `json:"description"`
	Amount       decimal.Decimal        `json:"amount"`
	Category     string                 `json:"category"`
	AccountID    string                 `json:"account_id,omitempty"`
	CardID       string                 `json:"card_id,omitempty"`
	GoalID       string                 `json:"goal_id,omitempty"`
	Installments int                    `json:"installments,omitempty"`
}

// TransactionPatch holds the transaction fields to change. Nil fields
// keep the stored value.
type TransactionPatch struct {
	Type        *domain.TransactionType `json:"type,omitempty"`
	Date        *time.Time              `json:"date,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Amount      *decimal.Decimal        `json:"amount,omitempty"`
	Category    *string                 `json:"category,omitempty"`
	AccountID   *string                 `json:"account_id,omitempty"`
	CardID      *string                 `json:"card_id,omitempty"`
	GoalID      *string                 `json:"goal_id,omitempty"`
}

// validateTransaction checks the fields of a transaction before any
// effect is applied.
func (s *Service) validateTransaction(tx *domain.Transaction) error {
	if !tx.Type.Valid() {
		return invalid(ErrInvalidInput, "type", "unknown transaction type %q", tx.Type)
	}
	if tx.Date.IsZero() {
		return invalid(ErrInvalidInput, "date", "is required")
	}
	if strings.TrimSpace(tx.Description) == "" {
		return invalid(ErrInvalidInput, "description", "is required")
	}
	if !tx.Amount.IsPositive() {
		return invalid(ErrInvalidAmount, "amount", "must be positive, got %s", tx.Amount)
	}
	if !isCents(tx.Amount) {
		return invalid(ErrInvalidAmount, "amount", "%s has more than two decimal places", tx.Amount)
	}
	if err := s.catalog.ValidateCategory(tx.Category); err != nil {
		return err
	}

	if tx.Type.UsesAccount() {
		if tx.AccountID == "" {
			return invalid(ErrInvalidReference, "account_id", "is required for %s transactions", tx.Type)
		}
		if tx.CardID != "" {
			return invalid(ErrInvalidReference, "card_id", "must be empty for %s transactions", tx.Type)
		}
	} else {
		if tx.CardID == "" {
			return invalid(ErrInvalidReference, "card_id", "is required for %s transactions", tx.Type)
		}
		if tx.AccountID != "" {
			return invalid(ErrInvalidReference, "account_id", "must be empty for %s transactions", tx.Type)
		}
	}

	if tx.GoalID != "" && !s.fx.contributesToGoal(tx) {
		return invalid(ErrInvalidReference, "goal_id", "only savings RECEIVE transactions can reference a goal")
	}
	return nil
}

// CreateTransaction records a transaction and applies its effect. A CREDIT
// input with Installments >= 2 is expanded into one record per month; the
// card's available limit drops by the full amount once. Records are
// returned in the order they were created.
func (s *Service) CreateTransaction(ctx context.Context, owner string, in TransactionInput) ([]*domain.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	now := s.now()
	tmpl := &domain.Transaction{
		ID:          s.newID(),
		Type:        in.Type,
		Date:        domain.DateOnly(in.Date),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		AccountID:   in.AccountID,
		CardID:      in.CardID,
		GoalID:      in.GoalID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.validateTransaction(tmpl); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	records := []*domain.Transaction{tmpl}
	if in.Installments != 0 && in.Installments != 1 {
		if tmpl.Type != domain.Credit {
			return nil, fmt.Errorf("CreateTransaction: %w",
				invalid(ErrInvalidInput, "installments", "only CREDIT purchases can be split, got %s", tmpl.Type))
		}
		if in.Installments < MinInstallments || in.Installments > MaxInstallments {
			return nil, fmt.Errorf("CreateTransaction: %w",
				invalid(ErrInvalidInput, "installments", "must be between %d and %d, got %d", MinInstallments, MaxInstallments, in.Installments))
		}
		expanded, err := expandInstallments(tmpl, in.Installments, s.newID(), s.newID)
		if err != nil {
			return nil, fmt.Errorf("CreateTransaction: %w", err)
		}
		records = expanded
	}

	var out []*domain.Transaction
	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		out = out[:0]
		// The whole purchase hits the card once, so the template carries
		// the effect even when it is not stored itself.
		effect := tmpl.Clone()
		if err := s.fx.apply(l, effect, now); err != nil {
			return err
		}
		for _, rec := range records {
			tx := rec.Clone()
			tx.GoalID = effect.GoalID
			l.PutTransaction(tx)
			out = append(out, tx.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	s.log.Info().
		Str("owner", owner).
		Str("type", string(tmpl.Type)).
		Str("amount", tmpl.Amount.StringFixed(2)).
		Int("records", len(out)).
		Msg("Transaction created")
	return out, nil
}

// UpdateTransaction edits a transaction. The old record's effect is
// reversed and the merged record's effect applied in one step; the record
// keeps its id and position. The final state equals deleting the record
// and creating the merged one with the same id.
//
// Changing the type clears the reference the new type does not use. The
// goal reference is kept while the record stays a savings RECEIVE and is
// dropped otherwise.
func (s *Service) UpdateTransaction(ctx context.Context, owner, id string, patch TransactionPatch) (*domain.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	var out *domain.Transaction
	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		old, ok := l.Transaction(id)
		if !ok {
			return notFound(domain.KindTransaction, id)
		}

		merged := old.Clone()
		if patch.Type != nil && *patch.Type != old.Type {
			if old.Installment != nil {
				return invalid(ErrInvalidInput, "type", "cannot change the type of installment %d/%d", old.Installment.Number, old.Installment.Total)
			}
			merged.Type = *patch.Type
			if merged.Type.UsesAccount() != old.Type.UsesAccount() {
				merged.AccountID, merged.CardID = "", ""
			}
		}
		if patch.Date != nil {
			merged.Date = domain.DateOnly(*patch.Date)
		}
		if patch.Description != nil {
			merged.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Amount != nil {
			merged.Amount = *patch.Amount
		}
		if patch.Category != nil {
			merged.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.AccountID != nil {
			merged.AccountID = *patch.AccountID
		}
		if patch.CardID != nil {
			merged.CardID = *patch.CardID
		}
		if patch.GoalID != nil {
			merged.GoalID = *patch.GoalID
		} else if !s.fx.contributesToGoal(merged) || !l.Exists(domain.KindGoal, merged.GoalID) {
			merged.GoalID = ""
		}

		if err := s.validateTransaction(merged); err != nil {
			return err
		}

		now := s.now()
		s.fx.reverse(l, old, now)
		if err := s.fx.apply(l, merged, now); err != nil {
			return err
		}
		merged.UpdatedAt = now
		l.PutTransaction(merged)
		out = merged.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	s.log.Info().
		Str("owner", owner).
		Str("transaction_id", id).
		Msg("Transaction updated")
	return out, nil
}

// DeleteTransaction reverses a transaction's effect and removes it. For an
// installment only that record's amount is restored.
func (s *Service) DeleteTransaction(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		tx, ok := l.Transaction(id)
		if !ok {
			return notFound(domain.KindTransaction, id)
		}
		s.fx.reverse(l, tx, s.now())
		l.RemoveTransaction(id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	s.log.Info().
		Str("owner", owner).
		Str("transaction_id", id).
		Msg("Transaction deleted")
	return nil
}

// GetTransaction returns one transaction.
func (s *Service) GetTransaction(ctx context.Context, owner, id string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		tx, ok := l.Transaction(id)
		if !ok {
			return notFound(domain.KindTransaction, id)
		}
		out = tx.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return out, nil
}

// ListTransactions returns the page of transactions matching filter, most
// recent first, and the number of matches before paging.
func (s *Service) ListTransactions(ctx context.Context, owner string, filter TransactionFilter) ([]*domain.Transaction, int, error) {
	var (
		out   []*domain.Transaction
		total int
	)
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		matched := filter.Apply(l.Transactions())
		total = len(matched)
		for _, tx := range filter.Page(matched) {
			out = append(out, tx.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	return out, total, nil
}
