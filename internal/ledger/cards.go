package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxClosingOffset is the largest number of days a statement may close
// before the due day.
const MaxClosingOffset = 30

// CardInput holds the fields of a new credit card.
type CardInput struct {
	Issuer         string          `json:"issuer"`
	Brand          string          `json:"brand"`
	AvailableLimit decimal.Decimal `json:"available_limit"`
	DueDay         int             `json:"due_day"`
	ClosingOffset  int             `json:"closing_offset"`
}

// CardPatch holds the card fields to change. Nil fields are kept.
type CardPatch struct {
	Issuer         *string          `json:"issuer,omitempty"`
	Brand          *string          `json:"brand,omitempty"`
	AvailableLimit *decimal.Decimal `json:"available_limit,omitempty"`
	DueDay         *int             `json:"due_day,omitempty"`
	ClosingOffset  *int             `json:"closing_offset,omitempty"`
}

func validateCard(c *domain.CreditCard) error {
	if strings.TrimSpace(c.Issuer) == "" {
		return invalid(ErrInvalidInput, "issuer", "is required")
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return invalid(ErrInvalidInput, "due_day", "must be between 1 and 31, got %d", c.DueDay)
	}
	if c.ClosingOffset < 0 || c.ClosingOffset > MaxClosingOffset {
		return invalid(ErrInvalidInput, "closing_offset", "must be between 0 and %d, got %d", MaxClosingOffset, c.ClosingOffset)
	}
	if !isCents(c.AvailableLimit) {
		return invalid(ErrInvalidAmount, "available_limit", "%s has more than two decimal places", c.AvailableLimit)
	}
	return nil
}

// CreateCard adds a credit card to the owner's ledger.
func (s *Service) CreateCard(ctx context.Context, owner string, in CardInput) (*domain.CreditCard, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("CreateCard: %w", err)
	}

	now := s.now()
	card := &domain.CreditCard{
		ID:             s.newID(),
		Issuer:         strings.TrimSpace(in.Issuer),
		Brand:          strings.TrimSpace(in.Brand),
		AvailableLimit: in.AvailableLimit,
		DueDay:         in.DueDay,
		ClosingOffset:  in.ClosingOffset,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validateCard(card); err != nil {
		return nil, fmt.Errorf("CreateCard: %w", err)
	}
	card.DeriveClosingDay()

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		l.PutCard(card)
		card = card.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CreateCard: %w", err)
	}
	return card, nil
}

// UpdateCard edits a credit card. Setting AvailableLimit is a direct user
// correction; the closing day is derived again from the due day and offset.
func (s *Service) UpdateCard(ctx context.Context, owner, id string, patch CardPatch) (*domain.CreditCard, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("UpdateCard: %w", err)
	}

	var out *domain.CreditCard
	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		cur, ok := l.Card(id)
		if !ok {
			return notFound(domain.KindCard, id)
		}
		card := cur.Clone()
		if patch.Issuer != nil {
			card.Issuer = strings.TrimSpace(*patch.Issuer)
		}
		if patch.Brand != nil {
			card.Brand = strings.TrimSpace(*patch.Brand)
		}
		if patch.AvailableLimit != nil {
			card.AvailableLimit = *patch.AvailableLimit
		}
		if patch.DueDay != nil {
			card.DueDay = *patch.DueDay
		}
		if patch.ClosingOffset != nil {
			card.ClosingOffset = *patch.ClosingOffset
		}
		if err := validateCard(card); err != nil {
			return err
		}
		card.DeriveClosingDay()
		card.UpdatedAt = s.now()
		l.PutCard(card)
		out = card.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateCard: %w", err)
	}
	return out, nil
}

// DeleteCard removes a credit card.
func (s *Service) DeleteCard(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return fmt.Errorf("DeleteCard: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		if !l.RemoveCard(id) {
			return notFound(domain.KindCard, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteCard: %w", err)
	}
	return nil
}

// GetCard returns one credit card.
func (s *Service) GetCard(ctx context.Context, owner, id string) (*domain.CreditCard, error) {
	var out *domain.CreditCard
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		card, ok := l.Card(id)
		if !ok {
			return notFound(domain.KindCard, id)
		}
		out = card.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("GetCard: %w", err)
	}
	return out, nil
}

// ListCards returns the owner's credit cards in creation order.
func (s *Service) ListCards(ctx context.Context, owner string) ([]*domain.CreditCard, error) {
	var out []*domain.CreditCard
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		for _, c := range l.Cards() {
			out = append(out, c.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListCards: %w", err)
	}
	return out, nil
}
