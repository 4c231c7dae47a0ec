package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the transaction lifecycle manager. Every mutating operation
// runs inside one Store.Update, so it either fully applies or leaves the
// ledger untouched.
type Service struct {
	store   Store
	catalog *CategoryCatalog
	fx      effects
	log     zerolog.Logger

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the id generator used for new records.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a ledger service on top of store.
func NewService(store Store, rules Rules, log zerolog.Logger, opts ...Option) *Service {
	catalog := NewCategoryCatalog(rules)
	s := &Service{
		store:   store,
		catalog: catalog,
		fx:      effects{catalog: catalog, log: log},
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the category catalog the service validates against.
func (s *Service) Catalog() *CategoryCatalog {
	return s.catalog
}

// Owners lists the owners with a persisted ledger.
func (s *Service) Owners(ctx context.Context) ([]string, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("Owners: %w", err)
	}
	return owners, nil
}

// Snapshot returns a detached copy of the owner's ledger.
func (s *Service) Snapshot(ctx context.Context, owner string) (*domain.Ledger, error) {
	if err := requireOwner(owner); err != nil {
		return nil, fmt.Errorf("Snapshot: %w", err)
	}

	var snap *domain.Ledger
	err := s.store.View(ctx, owner, func(l *domain.Ledger) error {
		snap = l.Clone()
		snap.ResetChanges()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Snapshot: %w", err)
	}
	return snap, nil
}

// ReplaceLedger atomically replaces everything the owner has with the
// records in src. Records keep their ids, timestamps and order; balances
// are taken as-is since they already include every transaction's effect.
func (s *Service) ReplaceLedger(ctx context.Context, owner string, src *domain.Ledger) error {
	if err := requireOwner(owner); err != nil {
		return fmt.Errorf("ReplaceLedger: %w", err)
	}
	if err := validateSnapshot(src); err != nil {
		return fmt.Errorf("ReplaceLedger: %w", err)
	}

	err := s.store.Update(ctx, owner, func(l *domain.Ledger) error {
		l.Clear()
		for _, a := range src.Accounts() {
			l.PutAccount(a.Clone())
		}
		for _, c := range src.Cards() {
			l.PutCard(c.Clone())
		}
		for _, g := range src.Goals() {
			l.PutGoal(g.Clone())
		}
		txs := src.Transactions()
		for i := len(txs) - 1; i >= 0; i-- {
			l.PutTransaction(txs[i].Clone())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ReplaceLedger: %w", err)
	}

	s.log.Info().
		Str("owner", owner).
		Int("accounts", len(src.Accounts())).
		Int("cards", len(src.Cards())).
		Int("goals", len(src.Goals())).
		Int("transactions", len(src.Transactions())).
		Msg("Ledger replaced")
	return nil
}

func validateSnapshot(src *domain.Ledger) error {
	if src == nil {
		return invalid(ErrInvalidInput, "ledger", "is required")
	}
	for _, a := range src.Accounts() {
		if a.ID == "" {
			return invalid(ErrInvalidInput, "accounts", "record without id")
		}
	}
	for _, c := range src.Cards() {
		if c.ID == "" {
			return invalid(ErrInvalidInput, "cards", "record without id")
		}
	}
	for _, g := range src.Goals() {
		if g.ID == "" {
			return invalid(ErrInvalidInput, "goals", "record without id")
		}
	}
	for _, t := range src.Transactions() {
		if t.ID == "" {
			return invalid(ErrInvalidInput, "transactions", "record without id")
		}
		if !t.Type.Valid() {
			return invalid(ErrInvalidInput, "transactions", "record %q has unknown type %q", t.ID, t.Type)
		}
	}
	return nil
}

func requireOwner(owner string) error {
	if owner == "" {
		return invalid(ErrInvalidInput, "owner", "is required")
	}
	return nil
}
