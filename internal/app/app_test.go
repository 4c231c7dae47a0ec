package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/backup"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/notionsync"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenStore(ctx, config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	bolt, err := OpenStore(ctx, config.StoreConfig{Driver: config.DriverBolt, BoltPath: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	require.NoError(t, bolt.Update(ctx, "alice", func(l *domain.Ledger) error {
		l.PutAccount(&domain.Account{ID: "a1", Kind: domain.AccountChecking})
		return nil
	}))
	owners, err := bolt.Owners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, owners)
	require.NoError(t, bolt.Close())

	_, err = OpenStore(ctx, config.StoreConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "unknown store driver")
}

type fakeBackups struct{ err error }

func (f fakeBackups) Backup(ctx context.Context, owner string) (*backup.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &backup.Result{Owner: owner, URI: "gs://bucket/backups/" + owner + "/x.json"}, nil
}

type fakeExporter struct{ seen *domain.Ledger }

func (f *fakeExporter) ExportLedger(ctx context.Context, l *domain.Ledger) (*bigquery.ExportRow, error) {
	f.seen = l
	return &bigquery.ExportRow{ExportID: "exp-1", UserID: l.Owner}, nil
}

type fakeNotion struct{ dryRun bool }

func (f *fakeNotion) SyncOwner(ctx context.Context, owner string, dryRun bool) (*notionsync.Result, error) {
	f.dryRun = dryRun
	return &notionsync.Result{Owner: owner, Created: 2, DryRun: dryRun}, nil
}

type fakeLedgers struct{}

func (fakeLedgers) Snapshot(ctx context.Context, owner string) (*domain.Ledger, error) {
	return domain.EmptyLedger(owner), nil
}

func TestRunner_Handle(t *testing.T) {
	exporter := &fakeExporter{}
	notion := &fakeNotion{}
	r := &Runner{Ledgers: fakeLedgers{}, Backups: fakeBackups{}, Exporter: exporter, Notion: notion, Log: zerolog.Nop()}
	ctx := context.Background()

	job := &jobs.LedgerJob{Type: jobs.JobTypeBackupLedger, Owner: "alice"}
	require.NoError(t, r.Handle(ctx, job))
	assert.JSONEq(t, `{"owner":"alice","uri":"gs://bucket/backups/alice/x.json","version":0,"transactions":0,"taken_at":"0001-01-01T00:00:00Z"}`, string(job.Result))

	job = &jobs.LedgerJob{Type: jobs.JobTypeExportLedger, Owner: "bob"}
	require.NoError(t, r.Handle(ctx, job))
	require.NotNil(t, exporter.seen)
	assert.Equal(t, "bob", exporter.seen.Owner)
	assert.Contains(t, string(job.Result), `"export_id":"exp-1"`)

	job = &jobs.LedgerJob{Type: jobs.JobTypeSyncNotion, Owner: "alice", DryRun: true}
	require.NoError(t, r.Handle(ctx, job))
	assert.True(t, notion.dryRun)
	assert.Contains(t, string(job.Result), `"created":2`)
}

func TestRunner_Errors(t *testing.T) {
	ctx := context.Background()

	empty := &Runner{Ledgers: fakeLedgers{}, Log: zerolog.Nop()}
	for _, jt := range []jobs.JobType{jobs.JobTypeBackupLedger, jobs.JobTypeExportLedger, jobs.JobTypeSyncNotion} {
		err := empty.Handle(ctx, &jobs.LedgerJob{Type: jt, Owner: "alice"})
		assert.ErrorIs(t, err, ErrNotConfigured, string(jt))
	}

	failing := &Runner{Backups: fakeBackups{err: errors.New("bucket missing")}, Log: zerolog.Nop()}
	job := &jobs.LedgerJob{Type: jobs.JobTypeBackupLedger, Owner: "alice"}
	assert.ErrorContains(t, failing.Handle(ctx, job), "bucket missing")
	assert.Nil(t, job.Result)

	assert.Error(t, empty.Handle(ctx, &jobs.LedgerJob{Type: "reindex", Owner: "alice"}))
}

type staticOwners []string

func (s staticOwners) Owners(ctx context.Context) ([]string, error) { return s, nil }

type recordingPublisher struct {
	mu        sync.Mutex
	published []*jobs.LedgerJob
}

func (p *recordingPublisher) Publish(ctx context.Context, job *jobs.LedgerJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, job)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestScheduler_EnqueueAll(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewScheduler(staticOwners{"alice", "bob"}, pub, zerolog.Nop())

	n, err := s.EnqueueAll(context.Background(), jobs.JobTypeBackupLedger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.published, 2)
	assert.Equal(t, "alice", pub.published[0].Owner)
	assert.Equal(t, jobs.JobTypeBackupLedger, pub.published[1].Type)
}

func TestScheduler_Run(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewScheduler(staticOwners{"alice"}, pub, zerolog.Nop(),
		Schedule{Type: jobs.JobTypeBackupLedger, Interval: 10 * time.Millisecond},
		Schedule{Type: jobs.JobTypeSyncNotion},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// One immediate run plus at least one tick.
	require.Eventually(t, func() bool { return pub.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, job := range pub.published {
		assert.Equal(t, jobs.JobTypeBackupLedger, job.Type)
	}
}

func TestScheduler_RunWithoutSchedules(t *testing.T) {
	s := NewScheduler(staticOwners{"alice"}, &recordingPublisher{}, zerolog.Nop(), Schedule{Type: jobs.JobTypeExportLedger})
	assert.Error(t, s.Run(context.Background()))
}

func TestNewQueue_RunsJobs(t *testing.T) {
	queue, store := NewQueue(config.JobsConfig{Workers: 1, QueueSize: 4, MaxRetries: 0}, zerolog.Nop())
	t.Cleanup(func() { _ = queue.Close() })

	runner := &Runner{Ledgers: fakeLedgers{}, Backups: fakeBackups{}, Log: zerolog.Nop()}
	require.NoError(t, queue.Start(context.Background(), runner.Handle))

	job := &jobs.LedgerJob{Type: jobs.JobTypeBackupLedger, Owner: "alice"}
	require.NoError(t, queue.Publish(context.Background(), job))

	require.Eventually(t, func() bool {
		got, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}
