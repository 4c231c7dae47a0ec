package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/rs/zerolog"
)

// OwnerLister lists the owners with a ledger.
type OwnerLister interface {
	Owners(ctx context.Context) ([]string, error)
}

// Schedule is one periodic job type. A zero Interval disables it.
type Schedule struct {
	Type     jobs.JobType
	Interval time.Duration
}

// Scheduler periodically publishes one job per owner for each schedule.
type Scheduler struct {
	owners    OwnerLister
	publisher jobs.Publisher
	schedules []Schedule
	log       zerolog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(owners OwnerLister, publisher jobs.Publisher, log zerolog.Logger, schedules ...Schedule) *Scheduler {
	return &Scheduler{owners: owners, publisher: publisher, schedules: schedules, log: log}
}

// EnqueueAll publishes a jobType job for every owner and returns how many
// were published.
func (s *Scheduler) EnqueueAll(ctx context.Context, jobType jobs.JobType) (int, error) {
	owners, err := s.owners.Owners(ctx)
	if err != nil {
		return 0, fmt.Errorf("EnqueueAll: %w", err)
	}

	published := 0
	for _, owner := range owners {
		if err := s.publisher.Publish(ctx, &jobs.LedgerJob{Type: jobType, Owner: owner}); err != nil {
			return published, fmt.Errorf("EnqueueAll: publish %s for %s: %w", jobType, owner, err)
		}
		published++
	}

	s.log.Info().Str("job_type", string(jobType)).Int("owners", published).Msg("Scheduled jobs")
	return published, nil
}

// Run enqueues every enabled schedule once, then again on each tick,
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tickers := make(map[jobs.JobType]*time.Ticker)
	for _, sch := range s.schedules {
		if sch.Interval <= 0 {
			continue
		}
		tickers[sch.Type] = time.NewTicker(sch.Interval)
		s.tick(ctx, sch.Type)
	}
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if len(tickers) == 0 {
		return fmt.Errorf("Run: no schedule enabled")
	}

	fired := make(chan jobs.JobType)
	for jobType, t := range tickers {
		go func(jobType jobs.JobType, t *time.Ticker) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					select {
					case fired <- jobType:
					case <-ctx.Done():
						return
					}
				}
			}
		}(jobType, t)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case jobType := <-fired:
			s.tick(ctx, jobType)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, jobType jobs.JobType) {
	if _, err := s.EnqueueAll(ctx, jobType); err != nil {
		s.log.Error().Err(err).Str("job_type", string(jobType)).Msg("Failed to schedule jobs")
	}
}
