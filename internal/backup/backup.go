// Package backup writes owner ledger snapshots to object storage and
// restores them.
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerService is the part of ledger.Service a Backuper needs.
type LedgerService interface {
	Snapshot(ctx context.Context, owner string) (*domain.Ledger, error)
	ReplaceLedger(ctx context.Context, owner string, src *domain.Ledger) error
}

// Result describes a finished backup.
type Result struct {
	Owner        string    `json:"owner"`
	URI          string    `json:"uri"`
	Version      int64     `json:"version"`
	Transactions int       `json:"transactions"`
	TakenAt      time.Time `json:"taken_at"`
}

// Backuper snapshots ledgers into a bucket.
type Backuper struct {
	ledgers LedgerService
	objects ObjectStore
	bucket  string
	log     zerolog.Logger
	now     func() time.Time
}

// NewBackuper creates a Backuper writing to bucket.
func NewBackuper(ledgers LedgerService, objects ObjectStore, bucket string, log zerolog.Logger) *Backuper {
	return &Backuper{
		ledgers: ledgers,
		objects: objects,
		bucket:  bucket,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ObjectName returns backups/<owner>/<YYYY/MM/DD>/<id>.json.
func ObjectName(owner string, at time.Time, id string) string {
	return fmt.Sprintf("backups/%s/%s/%s.json", owner, at.UTC().Format("2006/01/02"), id)
}

// Backup uploads a snapshot of the owner's ledger.
func (b *Backuper) Backup(ctx context.Context, owner string) (*Result, error) {
	l, err := b.ledgers.Snapshot(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("Backup: %w", err)
	}

	takenAt := b.now()
	data, err := Encode(NewSnapshot(l, takenAt))
	if err != nil {
		return nil, fmt.Errorf("Backup: %w", err)
	}

	object := ObjectName(owner, takenAt, uuid.NewString())
	if err := b.objects.Put(ctx, b.bucket, object, data); err != nil {
		return nil, fmt.Errorf("Backup: %w", err)
	}

	res := &Result{
		Owner:        owner,
		URI:          fmt.Sprintf("gs://%s/%s", b.bucket, object),
		Version:      l.Version,
		Transactions: len(l.Transactions()),
		TakenAt:      takenAt,
	}
	b.log.Info().
		Str("owner", owner).
		Str("uri", res.URI).
		Int64("version", res.Version).
		Msg("Ledger backed up")
	return res, nil
}

// Restore replaces the owner's ledger with the snapshot at uri. The
// snapshot may belong to a different owner; its records are re-owned.
func (b *Backuper) Restore(ctx context.Context, owner, uri string) (*Snapshot, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Restore: %w", err)
	}

	data, err := b.objects.Get(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Restore: %w", err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("Restore: %w", err)
	}

	if err := b.ledgers.ReplaceLedger(ctx, owner, snap.Ledger()); err != nil {
		return nil, fmt.Errorf("Restore: %w", err)
	}

	b.log.Info().
		Str("owner", owner).
		Str("source_owner", snap.Owner).
		Str("uri", uri).
		Int("transactions", len(snap.Transactions)).
		Msg("Ledger restored")
	return snap, nil
}
