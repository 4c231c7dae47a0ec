package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNoGenerator is returned by Generate when no model client is configured.
var ErrNoGenerator = errors.New("no insight generator configured")

// SnapshotSource loads owner ledgers; ledger.Service implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context, owner string) (*domain.Ledger, error)
}

// Report is a summary plus the insights generated from it.
type Report struct {
	Summary  *Summary  `json:"summary"`
	Insights []Insight `json:"insights"`
}

// Service builds summaries and insight reports.
type Service struct {
	ledgers   SnapshotSource
	generator Generator
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates an insights service. generator may be nil, in which
// case Generate fails and Summary still works.
func NewService(ledgers SnapshotSource, generator Generator, log zerolog.Logger) *Service {
	return &Service{
		ledgers:   ledgers,
		generator: generator,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Summary digests the owner's ledger over the last months months.
func (s *Service) Summary(ctx context.Context, owner string, months int) (*Summary, error) {
	l, err := s.ledgers.Snapshot(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}
	return Summarize(l, s.now(), months), nil
}

// Generate summarises the owner's ledger and asks the generator about it.
func (s *Service) Generate(ctx context.Context, owner string, months int) (*Report, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("Generate: %w", ErrNoGenerator)
	}

	summary, err := s.Summary(ctx, owner, months)
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	start := time.Now()
	insights, err := s.generator.Generate(ctx, summary)
	if err != nil {
		s.log.Error().Err(err).Str("owner", owner).Msg("Insight generation failed")
		return nil, fmt.Errorf("Generate: %w", err)
	}

	s.log.Info().
		Str("owner", owner).
		Int("insights", len(insights)).
		Dur("duration", time.Since(start)).
		Msg("Insights generated")
	return &Report{Summary: summary, Insights: insights}, nil
}
