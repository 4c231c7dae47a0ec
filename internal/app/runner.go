package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/backup"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/notionsync"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned for jobs whose service has no settings.
var ErrNotConfigured = errors.New("service not configured")

// BackupService uploads ledger snapshots.
type BackupService interface {
	Backup(ctx context.Context, owner string) (*backup.Result, error)
}

// LedgerExporter writes ledger snapshots to the analytics warehouse.
type LedgerExporter interface {
	ExportLedger(ctx context.Context, l *domain.Ledger) (*bigquery.ExportRow, error)
}

// NotionSyncer mirrors an owner's transactions.
type NotionSyncer interface {
	SyncOwner(ctx context.Context, owner string, dryRun bool) (*notionsync.Result, error)
}

// SnapshotSource loads owner ledgers.
type SnapshotSource interface {
	Snapshot(ctx context.Context, owner string) (*domain.Ledger, error)
}

// Runner executes ledger jobs. Nil services make their jobs fail with
// ErrNotConfigured.
type Runner struct {
	Ledgers  SnapshotSource
	Backups  BackupService
	Exporter LedgerExporter
	Notion   NotionSyncer
	Log      zerolog.Logger
}

// Handle is a jobs.JobHandler.
func (r *Runner) Handle(ctx context.Context, job *jobs.LedgerJob) error {
	var (
		result interface{}
		err    error
	)

	switch job.Type {
	case jobs.JobTypeBackupLedger:
		if r.Backups == nil {
			return fmt.Errorf("%s: backups: %w", job.Type, ErrNotConfigured)
		}
		result, err = r.Backups.Backup(ctx, job.Owner)
	case jobs.JobTypeExportLedger:
		if r.Exporter == nil {
			return fmt.Errorf("%s: export: %w", job.Type, ErrNotConfigured)
		}
		var l *domain.Ledger
		if l, err = r.Ledgers.Snapshot(ctx, job.Owner); err == nil {
			result, err = r.Exporter.ExportLedger(ctx, l)
		}
	case jobs.JobTypeSyncNotion:
		if r.Notion == nil {
			return fmt.Errorf("%s: notion: %w", job.Type, ErrNotConfigured)
		}
		result, err = r.Notion.SyncOwner(ctx, job.Owner, job.DryRun)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", job.Type, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%s: encode result: %w", job.Type, err)
	}
	job.Result = data
	return nil
}
