package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/infra/boltdb"
	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledger/inmemory"
)

// OpenStore opens the ledger store selected by cfg.Driver. Bolt and
// Postgres stores are migrated on open.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (ledger.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return inmemory.NewStore(), nil
	case config.DriverBolt:
		store, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown store driver %q", cfg.Driver)
	}
}
