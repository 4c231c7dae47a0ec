package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/boltdb"
	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// targetBigQuery migrates the analytics export dataset rather than a
// ledger store.
const targetBigQuery = "bigquery"

var (
	envFile   = flag.String("env", "", "Path to a .env file (default: ./.env if present)")
	target    = flag.String("target", "", "What to migrate: bolt, postgres or bigquery (default: LEDGER_STORE)")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name recorded with BigQuery migrations")
)

func main() {
	flag.Parse()

	bootLog := logger.New()

	cfg, err := config.Load(*envFile)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, err := logger.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid log settings")
	}

	which := *target
	if which == "" {
		which = cfg.Store.Driver
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	applied, err := run(ctx, which, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("target", which).Msg("Migration failed")
	}

	if len(applied) == 0 {
		log.Info().Str("target", which).Msg("No new migrations to apply. Database is up to date.")
		return
	}
	log.Info().Str("target", which).Strs("applied", applied).Msgf("Successfully applied %d migration(s)", len(applied))
}

// run migrates target and returns the names of the migrations applied.
func run(ctx context.Context, target string, cfg *config.Config, log zerolog.Logger) ([]string, error) {
	switch target {
	case config.DriverBolt:
		return migrateBolt(cfg.Store.BoltPath)
	case config.DriverPostgres:
		return migratePostgres(ctx, cfg.Store.PostgresDSN)
	case targetBigQuery:
		return migrateBigQuery(ctx, cfg, log)
	case config.DriverMemory:
		return nil, fmt.Errorf("the memory store has no schema")
	default:
		return nil, fmt.Errorf("unknown migration target %q", target)
	}
}

func migrateBolt(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("LEDGER_BOLT_PATH is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	versions, err := boltdb.Migrate(db)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, "v"+strconv.Itoa(v))
	}
	return names, nil
}

func migratePostgres(ctx context.Context, dsn string) ([]string, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return postgres.ApplyMigrations(ctx, pool)
}

func migrateBigQuery(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]string, error) {
	if err := cfg.Validate("export"); err != nil {
		return nil, err
	}
	migrator, err := bigquery.NewMigrator(ctx, cfg.GCP.ProjectID, cfg.GCP.Dataset, *appliedBy, log)
	if err != nil {
		return nil, err
	}
	defer migrator.Close()

	migrations, err := migrator.Apply(ctx)
	names := make([]string, 0, len(migrations))
	for _, m := range migrations {
		names = append(names, m.Filename)
	}
	return names, err
}
