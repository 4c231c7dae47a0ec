//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledger/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and returns its connection string.
func setupTestDB(t *testing.T) string {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	return connStr
}

func TestStore_Integration(t *testing.T) {
	dsn := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	applied, err := ApplyMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql"}, applied)

	applied, err = ApplyMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, applied)

	storetest.Run(t, func(t *testing.T) ledger.Store {
		_, err := pool.Exec(ctx, `TRUNCATE ledger_owners CASCADE`)
		require.NoError(t, err)
		return &noCloseStore{New(pool)}
	})
}

// noCloseStore keeps the shared pool open between subtests.
type noCloseStore struct {
	*Store
}

func (s *noCloseStore) Close() error { return nil }
