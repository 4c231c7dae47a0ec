package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

func purchaseRecords(l *domain.Ledger, purchaseID string) []*domain.Transaction {
	var out []*domain.Transaction
	for _, tx := range l.Transactions() {
		if purchaseID != "" && tx.PurchaseID() == purchaseID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Installment.Number < out[j].Installment.Number
	})
	return out
}

// ListPurchase returns the installments of a purchase ordered by number.
func (s *Service) ListPurchase(ctx context.Context, owner, purchaseID string) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		records := purchaseRecords(l, purchaseID)
		if len(records) == 0 {
			return fmt.Errorf("purchase %q: %w", purchaseID, ErrNotFound)
		}
		for _, tx := range records {
			out = append(out, tx.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListPurchase: %w", err)
	}
	return out, nil
}

// DeletePurchase removes every remaining installment of a purchase,
// restoring each record's amount to the card.
func (s *Service) DeletePurchase(ctx context.Context, owner, purchaseID string) (int, error) {
	if err := requireOwner(owner); err != nil {
		return 0, fmt.Errorf("DeletePurchase: %w", err)
	}

	var removed int
	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		records := purchaseRecords(l, purchaseID)
		if len(records) == 0 {
			return fmt.Errorf("purchase %q: %w", purchaseID, ErrNotFound)
		}
		now := s.now()
		for _, tx := range records {
			s.fx.reverse(l, tx, now)
			l.RemoveTransaction(tx.ID)
		}
		removed = len(records)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("DeletePurchase: %w", err)
	}

	s.log.Info().
		Str("owner", owner).
		Str("purchase_id", purchaseID).
		Int("removed", removed).
		Msg("Purchase deleted")
	return removed, nil
}
