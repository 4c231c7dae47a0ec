// Package boltdb stores ledgers in a single local bbolt file.
//
// Layout:
//
//	meta/schema_version           -> decimal string
//	ledgers/<owner>/version       -> big-endian uint64
//	ledgers/<owner>/<kind>/<id>   -> JSON record
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	BucketMeta    = "meta"
	BucketLedgers = "ledgers"
)

var (
	keySchemaVersion = []byte("schema_version")
	keyVersion       = []byte("version")
)

// Store is a ledger.Store backed by bbolt. bbolt allows one writer at a
// time, which serialises updates for every owner.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		v, err = schemaVersion(tx)
		return err
	})
	return v, err
}

// View implements the ledger.Store interface.
func (s *Store) View(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		l, err := loadLedger(tx, owner)
		if err != nil {
			return err
		}
		return fn(l)
	})
}

// Update implements the ledger.Store interface. The ledger is loaded,
// changed and written back inside one bbolt transaction.
func (s *Store) Update(ctx context.Context, owner string, fn func(l *domain.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		l, err := loadLedger(tx, owner)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		if !l.HasChanges() {
			return nil
		}
		return saveChanges(tx, l)
	})
}

// Owners implements the ledger.Store interface. bbolt iterates keys in
// byte order, so owners come back sorted.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(BucketLedgers))
		if root == nil {
			return fmt.Errorf("bucket %s not found", BucketLedgers)
		}
		return root.ForEachBucket(func(k []byte) error {
			owners = append(owners, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("Owners: %w", err)
	}
	return owners, nil
}

func loadLedger(tx *bolt.Tx, owner string) (*domain.Ledger, error) {
	root := tx.Bucket([]byte(BucketLedgers))
	if root == nil {
		return nil, fmt.Errorf("bucket %s not found", BucketLedgers)
	}
	ob := root.Bucket([]byte(owner))
	if ob == nil {
		return domain.EmptyLedger(owner), nil
	}

	var version int64
	if v := ob.Get(keyVersion); v != nil {
		version = int64(binary.BigEndian.Uint64(v))
	}

	var (
		accounts     []*domain.Account
		cards        []*domain.CreditCard
		goals        []*domain.Goal
		transactions []*domain.Transaction
	)
	if err := decodeAll(ob, domain.KindAccount, func() interface{} {
		a := &domain.Account{}
		accounts = append(accounts, a)
		return a
	}); err != nil {
		return nil, err
	}
	if err := decodeAll(ob, domain.KindCard, func() interface{} {
		c := &domain.CreditCard{}
		cards = append(cards, c)
		return c
	}); err != nil {
		return nil, err
	}
	if err := decodeAll(ob, domain.KindGoal, func() interface{} {
		g := &domain.Goal{}
		goals = append(goals, g)
		return g
	}); err != nil {
		return nil, err
	}
	if err := decodeAll(ob, domain.KindTransaction, func() interface{} {
		t := &domain.Transaction{}
		transactions = append(transactions, t)
		return t
	}); err != nil {
		return nil, err
	}

	return domain.NewLedger(owner, version, accounts, cards, goals, transactions), nil
}

// decodeAll unmarshals every record of one kind into values produced by
// next.
func decodeAll(ob *bolt.Bucket, kind domain.EntityKind, next func() interface{}) error {
	b := ob.Bucket([]byte(kind))
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		if err := json.Unmarshal(v, next()); err != nil {
			return fmt.Errorf("failed to unmarshal %s %s: %w", kind, k, err)
		}
		return nil
	})
}

func saveChanges(tx *bolt.Tx, l *domain.Ledger) error {
	root := tx.Bucket([]byte(BucketLedgers))
	if root == nil {
		return fmt.Errorf("bucket %s not found", BucketLedgers)
	}
	ob, err := root.CreateBucketIfNotExists([]byte(l.Owner))
	if err != nil {
		return fmt.Errorf("failed to create ledger bucket: %w", err)
	}

	for _, ch := range l.Changes() {
		b, err := ob.CreateBucketIfNotExists([]byte(ch.Kind))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", ch.Kind, err)
		}
		if ch.Deleted {
			if err := b.Delete([]byte(ch.ID)); err != nil {
				return err
			}
			continue
		}

		value, err := recordFor(l, ch)
		if err != nil {
			return err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", ch.Kind, ch.ID, err)
		}
		if err := b.Put([]byte(ch.ID), data); err != nil {
			return err
		}
	}

	l.Version++
	l.ResetChanges()
	return ob.Put(keyVersion, itob(l.Version))
}

func recordFor(l *domain.Ledger, ch domain.Change) (interface{}, error) {
	var (
		v  interface{}
		ok bool
	)
	switch ch.Kind {
	case domain.KindAccount:
		v, ok = l.Account(ch.ID)
	case domain.KindCard:
		v, ok = l.Card(ch.ID)
	case domain.KindGoal:
		v, ok = l.Goal(ch.ID)
	case domain.KindTransaction:
		v, ok = l.Transaction(ch.ID)
	}
	if !ok {
		return nil, fmt.Errorf("changed %s %s missing from ledger", ch.Kind, ch.ID)
	}
	return v, nil
}

// itob converts an int64 to a byte slice for use as a bbolt value.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// Ensure Store implements the ledger.Store interface.
var _ ledger.Store = (*Store)(nil)
