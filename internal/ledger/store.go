package ledger

import (
	"context"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Store persists ledgers, one per owner.
//
// Update must be atomic: the changes recorded on the ledger are persisted
// only when fn returns nil, and concurrent updates for the same owner are
// serialised.
type Store interface {
	// View loads the owner's ledger for reading. Changes made by fn are
	// discarded.
	View(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error

	// Update loads the owner's ledger, runs fn and commits its changes.
	Update(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error

	// Owners lists the owners that have a persisted ledger.
	Owners(ctx context.Context) ([]string, error)

	// Close releases the store's resources.
	Close() error
}
