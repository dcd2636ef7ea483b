package main

import (
	"context"
	"errors"
	"os"
	"time"

	"paycalc/internal/cli"
	"paycalc/internal/config"
	"paycalc/internal/log"
	"paycalc/internal/services"
	"paycalc/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := log.New(log.DefaultConfig())

	cfg, err := cli.LoadConfig()
	if err != nil {
		boot.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		boot.Error("Failed to set up logging", log.FieldError, err)
		os.Exit(1)
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting paycalc-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("paycalc-worker shutdown complete")
}

// sessionOptions leaves the worker's own tracker events unpublished: the
// worker consumes the queue and already exports after its own writes.
var sessionOptions = cli.SessionOptions{NoPublish: true}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	s, err := cli.OpenSession(ctx, cfg, logger, sessionOptions)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if s.Backend.Exporter == nil {
		return errors.New("GOOGLE_SPREADSHEET_ID is not set; nothing to export to")
	}
	uid := s.Tracker.Snapshot().User.UID

	periods := services.NewPeriodRepository(s.Backend.Store, logger)
	w := worker.NewExportWorker(periods, s.Backend.Exporter, logger).WithConcurrency(cfg.ExportConcurrency)

	// Catch up on changes made while the worker was down.
	logger.Info("Running startup export", log.FieldOperation, log.OpStartup)
	if n, err := w.ExportAll(ctx, uid); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	} else {
		logger.Info("Startup export complete", log.FieldCount, n)
	}

	done := make(chan error, 1)
	if s.Backend.Events != nil {
		go func() { done <- s.Backend.Events.Consume(ctx, w.HandleStateChange) }()
	} else {
		logger.Info("AMQP disabled - relying on periodic export only")
	}

	var tick <-chan time.Time
	if cfg.ExportInterval > 0 {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		tick = ticker.C
		logger.Info("Periodic export configured", "interval", cfg.ExportInterval)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				logger.Warn("Shutdown timeout reached")
			}
			return nil
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case now := <-tick:
			periodicExport(ctx, s, w, uid, logger)
			logger.Info("Periodic export complete", "next_check", now.Add(cfg.ExportInterval).Format(time.TimeOnly))
		}
	}
}

// periodicExport copies new master data into stored periods, then rewrites
// every tab.
func periodicExport(ctx context.Context, s *cli.Session, w *worker.ExportWorker, uid string, logger *log.Logger) {
	if err := s.Tracker.Reload(ctx); err != nil {
		logger.Error("Reload failed", log.FieldError, err)
		return
	}
	if res, err := s.Tracker.SyncPeriods(ctx); err != nil {
		logger.Error("Period sync failed", log.FieldError, err)
	} else if res.AccountsCreated+res.ExpensesCreated > 0 {
		logger.Info("Periods synced",
			"accounts_created", res.AccountsCreated,
			"expenses_created", res.ExpensesCreated)
	}
	if _, err := w.ExportAll(ctx, uid); err != nil {
		logger.Error("Periodic export failed", log.FieldError, err)
	}
}
