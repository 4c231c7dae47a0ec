package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// SchemaVersion is the snapshot document version written by Encode.
const SchemaVersion = 1

// Snapshot is the JSON document stored for one backup.
type Snapshot struct {
	SchemaVersion int                   `json:"schema_version"`
	Owner         string                `json:"owner"`
	Version       int64                 `json:"version"`
	TakenAt       time.Time             `json:"taken_at"`
	Accounts      []*domain.Account     `json:"accounts"`
	Cards         []*domain.CreditCard  `json:"cards"`
	Goals         []*domain.Goal        `json:"goals"`
	Transactions  []*domain.Transaction `json:"transactions"`
}

// NewSnapshot captures l.
func NewSnapshot(l *domain.Ledger, takenAt time.Time) *Snapshot {
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		Owner:         l.Owner,
		Version:       l.Version,
		TakenAt:       takenAt.UTC(),
		Accounts:      nonNil(l.Accounts()),
		Cards:         nonNil(l.Cards()),
		Goals:         nonNil(l.Goals()),
		Transactions:  nonNil(l.Transactions()),
	}
}

// Ledger rebuilds the ledger the snapshot was taken from.
func (s *Snapshot) Ledger() *domain.Ledger {
	return domain.NewLedger(s.Owner, s.Version, s.Accounts, s.Cards, s.Goals, s.Transactions)
}

// Encode serialises a snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot and rejects schema versions this build cannot
// read.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported schema version %d (want %d)", s.SchemaVersion, SchemaVersion)
	}
	return &s, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
