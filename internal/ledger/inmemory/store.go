package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// Store is an in-memory implementation of ledger.Store.
// It is safe for concurrent use. Data is lost on restart - for persistence,
// use the bbolt or Postgres store.
type Store struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.Ledger
	closed  bool
}

// NewStore creates a new in-memory ledger store.
func NewStore() *Store {
	return &Store{
		ledgers: make(map[string]*domain.Ledger),
	}
}

// View implements the ledger.Store interface.
// fn receives a copy, so changes it makes are discarded.
func (s *Store) View(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	l := s.load(owner)
	s.mu.RUnlock()

	return fn(l)
}

// Update implements the ledger.Store interface.
// fn works on a copy that replaces the stored ledger only if fn succeeds.
func (s *Store) Update(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	l := s.load(owner)
	if err := fn(l); err != nil {
		return err
	}
	if !l.HasChanges() {
		return nil
	}

	l.ResetChanges()
	l.Version++
	s.ledgers[owner] = l
	return nil
}

// Owners implements the ledger.Store interface.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]string, 0, len(s.ledgers))
	for owner := range s.ledgers {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

// Close implements the ledger.Store interface.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// load returns a copy of the owner's ledger. Callers hold s.mu.
func (s *Store) load(owner string) *domain.Ledger {
	if l, ok := s.ledgers[owner]; ok {
		return l.Clone()
	}
	return domain.EmptyLedger(owner)
}

// Ensure Store implements the ledger.Store interface.
var _ ledger.Store = (*Store)(nil)
