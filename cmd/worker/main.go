package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

func main() {
	envFile := flag.String("env", "", "Path to a .env file (default: ./.env if present)")
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

	var features []string
	if cfg.Worker.BackupInterval > 0 {
		features = append(features, "backup")
	}
	if cfg.Worker.ExportInterval > 0 {
		features = append(features, "export")
	}
	if cfg.Worker.NotionInterval > 0 {
		features = append(features, "notion")
	}
	if err := cfg.Validate(features...); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer application.Close()

	// Jobs are produced and consumed in this process.
	jobQueue, _ := app.NewQueue(cfg.Jobs, log)
	if err := jobQueue.Start(ctx, application.Runner().Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	scheduler := app.NewScheduler(application.Ledger, jobQueue, log,
		app.Schedule{Type: jobs.JobTypeBackupLedger, Interval: cfg.Worker.BackupInterval},
		app.Schedule{Type: jobs.JobTypeExportLedger, Interval: cfg.Worker.ExportInterval},
		app.Schedule{Type: jobs.JobTypeSyncNotion, Interval: cfg.Worker.NotionInterval},
	)

	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	log.Info().
		Dur("backup_interval", cfg.Worker.BackupInterval).
		Dur("export_interval", cfg.Worker.ExportInterval).
		Dur("notion_interval", cfg.Worker.NotionInterval).
		Msg("Worker service started")

	// Wait for interrupt signal or a scheduler failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("Scheduler stopped")
		}
	}

	log.Info().Msg("Shutting down worker service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
