package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.LedgerJob{
		JobID:     "job-1",
		Type:      jobs.JobTypeBackupLedger,
		Owner:     "alice",
		Status:    jobs.JobStatusPending,
		CreatedAt: time.Now(),
	}

	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Owner != "alice" || got.Type != jobs.JobTypeBackupLedger {
		t.Errorf("unexpected job: %+v", got)
	}

	// Stored copies are detached from the caller's value.
	got.Owner = "mallory"
	again, _ := store.GetJob(ctx, "job-1")
	if again.Owner != "alice" {
		t.Errorf("expected stored job to be unchanged, got owner %q", again.Owner)
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	if err := NewStore().SaveJob(context.Background(), &jobs.LedgerJob{}); err == nil {
		t.Error("expected error for job without ID")
	}
}

func TestStore_GetMissing(t *testing.T) {
	_, err := NewStore().GetJob(context.Background(), "nope")
	if !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []*jobs.LedgerJob{
		{JobID: "a", Owner: "alice", Type: jobs.JobTypeBackupLedger, Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", Owner: "alice", Type: jobs.JobTypeExportLedger, Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", Owner: "bob", Type: jobs.JobTypeBackupLedger, Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
		{JobID: "d", Owner: "alice", Type: jobs.JobTypeBackupLedger, Status: jobs.JobStatusPending, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, job := range seed {
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all newest first", filter: jobs.JobFilter{}, want: []string{"d", "c", "b", "a"}},
		{name: "owner", filter: jobs.JobFilter{Owner: "alice"}, want: []string{"d", "b", "a"}},
		{name: "type", filter: jobs.JobFilter{Type: jobs.JobTypeBackupLedger}, want: []string{"d", "c", "a"}},
		{name: "status", filter: jobs.JobFilter{Status: jobs.JobStatusCompleted}, want: []string{"c", "a"}},
		{name: "limit", filter: jobs.JobFilter{Limit: 2}, want: []string{"d", "c"}},
		{name: "offset", filter: jobs.JobFilter{Offset: 3}, want: []string{"a"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs failed: %v", err)
			}
			ids := []string{}
			for _, job := range got {
				ids = append(ids, job.JobID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ids)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, ids)
				}
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_ = store.SaveJob(ctx, &jobs.LedgerJob{JobID: "job-1", Status: jobs.JobStatusRunning})

	if err := store.UpdateJobStatus(ctx, "job-1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	got, _ := store.GetJob(ctx, "job-1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("unexpected job: %+v", got)
	}

	if err := store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}
