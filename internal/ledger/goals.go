package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// GoalInput holds the fields of a new savings goal.
type GoalInput struct {
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Icon          string          `json:"icon,omitempty"`
}

// GoalPatch holds the goal fields to change. Nil fields are kept;
// ClearDeadline removes the deadline.
type GoalPatch struct {
	Name          *string          `json:"name,omitempty"`
	TargetAmount  *decimal.Decimal `json:"target_amount,omitempty"`
	CurrentAmount *decimal.Decimal `json:"current_amount,omitempty"`
	Deadline      *time.Time       `json:"deadline,omitempty"`
	ClearDeadline bool             `json:"clear_deadline,omitempty"`
	Icon          *string          `json:"icon,omitempty"`
}

func validateGoal(g *domain.Goal) error {
	if strings.TrimSpace(g.Name) == "" {
		return invalid(ErrInvalidInput, "name", "is required")
	}
	if g.TargetAmount.IsNegative() || !isCents(g.TargetAmount) {
		return invalid(ErrInvalidAmount, "target_amount", "must be a non-negative amount with at most two decimals, got %s", g.TargetAmount)
	}
	if g.CurrentAmount.IsNegative() || !isCents(g.CurrentAmount) {
		return invalid(ErrInvalidAmount, "current_amount", "must be a non-negative amount with at most two decimals, got %s", g.CurrentAmount)
	}
	return nil
}

// CreateGoal adds a savings goal. Goals are considered by the savings pool
// in creation order.
func (s *Service) CreateGoal(ctx context.Context, owner string, in GoalInput) (*domain.Goal, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}

	now := s.now()
	goal := &domain.Goal{
		ID:            s.newID(),
		Name:          strings.TrimSpace(in.Name),
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Icon:          in.Icon,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Deadline != nil {
		d := domain.DateOnly(*in.Deadline)
		goal.Deadline = &d
	}
	if err := validateGoal(goal); err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		l.PutGoal(goal)
		goal = goal.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}
	return goal, nil
}

// UpdateGoal edits a goal.
func (s *Service) UpdateGoal(ctx context.Context, owner, id string, patch GoalPatch) (*domain.Goal, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("UpdateGoal: %w", err)
	}

	var out *domain.Goal
	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		cur, ok := l.Goal(id)
		if !ok {
			return notFound(domain.KindGoal, id)
		}
		goal := cur.Clone()
		if patch.Name != nil {
			goal.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.TargetAmount != nil {
			goal.TargetAmount = *patch.TargetAmount
		}
		if patch.CurrentAmount != nil {
			goal.CurrentAmount = *patch.CurrentAmount
		}
		switch {
		case patch.ClearDeadline:
			goal.Deadline = nil
		case patch.Deadline != nil:
			d := domain.DateOnly(*patch.Deadline)
			goal.Deadline = &d
		}
		if patch.Icon != nil {
			goal.Icon = *patch.Icon
		}
		if err := validateGoal(goal); err != nil {
			return err
		}
		goal.UpdatedAt = s.now()
		l.PutGoal(goal)
		out = goal.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateGoal: %w", err)
	}
	return out, nil
}

// DeleteGoal removes a goal. Contributions recorded against it are not
// reversed.
func (s *Service) DeleteGoal(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		if !l.RemoveGoal(id) {
			return notFound(domain.KindGoal, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	return nil
}

// GetGoal returns one goal.
func (s *Service) GetGoal(ctx context.Context, owner, id string) (*domain.Goal, error) {
	var out *domain.Goal
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		goal, ok := l.Goal(id)
		if !ok {
			return notFound(domain.KindGoal, id)
		}
		out = goal.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("GetGoal: %w", err)
	}
	return out, nil
}

// ListGoals returns the owner's goals in creation order.
func (s *Service) ListGoals(ctx context.Context, owner string) ([]*domain.Goal, error) {
	var out []*domain.Goal
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		for _, g := range l.Goals() {
			out = append(out, g.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListGoals: %w", err)
	}
	return out, nil
}
