// Package app wires configuration, storage and the ledger services into
// the objects the binaries run.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/backup"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/insights"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/notionsync"
	"github.com/rs/zerolog"
)

// App holds the services built from a Config. Backups, Exporter and
// Notion are nil when their settings are absent.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Store    ledger.Store
	Ledger   *ledger.Service
	Insights *insights.Service
	Backups  *backup.Backuper
	Exporter *bigquery.Exporter
	Notion   *notionsync.Syncer

	closers []func() error
}

// New opens the store and builds every service cfg has settings for.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Store:   store,
		Ledger:  ledger.NewService(store, cfg.Rules.LedgerRules(), log),
		closers: []func() error{store.Close},
	}

	var generator insights.Generator
	if gen, err := insights.NewGeminiGenerator(ctx, cfg.Gemini.Model); err != nil {
		log.Warn().Err(err).Msg("Insights disabled: Gemini client unavailable")
	} else {
		generator = gen
	}
	a.Insights = insights.NewService(a.Ledger, generator, log)

	if cfg.GCP.BackupBucket != "" {
		objects, err := backup.NewGCSObjectStore(ctx)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, objects.Close)
		a.Backups = backup.NewBackuper(a.Ledger, objects, cfg.GCP.BackupBucket, log)
	}

	if cfg.GCP.ProjectID != "" {
		exporter, err := bigquery.NewExporter(ctx, cfg.GCP.ProjectID, cfg.GCP.Dataset, log)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.closers = append(a.closers, exporter.Close)
		a.Exporter = exporter
	}

	if cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "" {
		client := notionsync.NewNotionClient(cfg.Notion.Token)
		a.Notion = notionsync.NewSyncer(a.Ledger, client, cfg.Notion.DatabaseID, log)
	}

	log.Info().
		Str("store", cfg.Store.Driver).
		Bool("backups", a.Backups != nil).
		Bool("export", a.Exporter != nil).
		Bool("notion", a.Notion != nil).
		Bool("insights", generator != nil).
		Msg("Application initialised")
	return a, nil
}

// Runner returns a job runner over the configured services.
func (a *App) Runner() *Runner {
	r := &Runner{Ledgers: a.Ledger, Log: a.Log}
	if a.Backups != nil {
		r.Backups = a.Backups
	}
	if a.Exporter != nil {
		r.Exporter = a.Exporter
	}
	if a.Notion != nil {
		r.Notion = a.Notion
	}
	return r
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
