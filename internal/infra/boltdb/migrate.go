package boltdb

import (
	"fmt"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

// migration upgrades the database by one schema version.
type migration struct {
	version     int
	description string
	apply       func(tx *bolt.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "create meta and ledgers buckets",
		apply: func(tx *bolt.Tx) error {
			for _, name := range []string{BucketMeta, BucketLedgers} {
				if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", name, err)
				}
			}
			return nil
		},
	},
}

// LatestSchemaVersion is the schema version Migrate brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies every pending migration in one transaction and returns
// the versions it applied. A database from a newer release is rejected.
func Migrate(db *bolt.DB) ([]int, error) {
	var applied []int
	err := db.Update(func(tx *bolt.Tx) error {
		current, err := schemaVersion(tx)
		if err != nil {
			return err
		}
		if current > LatestSchemaVersion() {
			return fmt.Errorf("database schema version %d is newer than supported version %d", current, LatestSchemaVersion())
		}

		for _, m := range migrations {
			if m.version <= current {
				continue
			}
			if err := m.apply(tx); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
			}
			applied = append(applied, m.version)
			current = m.version
		}

		if len(applied) == 0 {
			return nil
		}
		meta := tx.Bucket([]byte(BucketMeta))
		return meta.Put(keySchemaVersion, []byte(strconv.Itoa(current)))
	})
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	return applied, nil
}

// schemaVersion reads the recorded schema version; a fresh database is
// version 0.
func schemaVersion(tx *bolt.Tx) (int, error) {
	meta := tx.Bucket([]byte(BucketMeta))
	if meta == nil {
		return 0, nil
	}
	raw := meta.Get(keySchemaVersion)
	if raw == nil {
		return 0, nil
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", raw, err)
	}
	return v, nil
}
