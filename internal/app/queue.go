package app

import (
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/rs/zerolog"
)

// NewQueue builds the in-process job queue and its status store from cfg.
func NewQueue(cfg config.JobsConfig, log zerolog.Logger) (*inmemory.Queue, *inmemory.Store) {
	qcfg := inmemory.DefaultQueueConfig()
	qcfg.Workers = cfg.Workers
	qcfg.BufferSize = cfg.QueueSize
	qcfg.MaxRetries = cfg.MaxRetries

	store := inmemory.NewStore()
	return inmemory.NewQueue(qcfg, store, log.With().Str("component", "jobs").Logger()), store
}
