package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountInput holds the fields of a new account.
type AccountInput struct {
	Institution string             `json:"institution"`
	Kind        domain.AccountKind `json:"kind"`
	Balance     decimal.Decimal    `json:"balance"`
}

// AccountPatch holds the account fields to change. Nil fields are kept.
type AccountPatch struct {
	Institution *string             `json:"institution,omitempty"`
	Kind        *domain.AccountKind `json:"kind,omitempty"`
	Balance     *decimal.Decimal    `json:"balance,omitempty"`
}

func validateAccount(a *domain.Account) error {
	if strings.TrimSpace(a.Institution) == "" {
		return invalid(ErrInvalidInput, "institution", "is required")
	}
	if !a.Kind.Valid() {
		return invalid(ErrInvalidInput, "kind", "unknown account kind %q", a.Kind)
	}
	if !isCents(a.Balance) {
		return invalid(ErrInvalidAmount, "balance", "%s has more than two decimal places", a.Balance)
	}
	return nil
}

// CreateAccount adds an account to the owner's ledger.
func (s *Service) CreateAccount(ctx context.Context, owner string, in AccountInput) (*domain.Account, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	now := s.now()
	acct := &domain.Account{
		ID:          s.newID(),
		Institution: strings.TrimSpace(in.Institution),
		Kind:        in.Kind,
		Balance:     in.Balance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateAccount(acct); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		l.PutAccount(acct)
		acct = acct.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return acct, nil
}

// UpdateAccount edits an account. A balance set here is a direct user
// correction and does not touch any transaction.
func (s *Service) UpdateAccount(ctx context.Context, owner, id string, patch AccountPatch) (*domain.Account, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}

	var out *domain.Account
	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		cur, ok := l.Account(id)
		if !ok {
			return notFound(domain.KindAccount, id)
		}
		acct := cur.Clone()
		if patch.Institution != nil {
			acct.Institution = strings.TrimSpace(*patch.Institution)
		}
		if patch.Kind != nil {
			acct.Kind = *patch.Kind
		}
		if patch.Balance != nil {
			acct.Balance = *patch.Balance
		}
		if err := validateAccount(acct); err != nil {
			return err
		}
		acct.UpdatedAt = s.now()
		l.PutAccount(acct)
		out = acct.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}
	return out, nil
}

// DeleteAccount removes an account. Transactions that reference it are
// kept; reversing them later skips the missing account.
func (s *Service) DeleteAccount(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		if !l.RemoveAccount(id) {
			return notFound(domain.KindAccount, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, owner, id string) (*domain.Account, error) {
	var out *domain.Account
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		acct, ok := l.Account(id)
		if !ok {
			return notFound(domain.KindAccount, id)
		}
		out = acct.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return out, nil
}

// ListAccounts returns the owner's accounts in creation order.
func (s *Service) ListAccounts(ctx context.Context, owner string) ([]*domain.Account, error) {
	var out []*domain.Account
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		for _, a := range l.Accounts() {
			out = append(out, a.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return out, nil
}

// isCents reports whether d has at most two decimal places.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
