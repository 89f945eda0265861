package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/araujoluizagh/fda-radiology-bot/internal/config"
	"github.com/araujoluizagh/fda-radiology-bot/internal/job"
	"github.com/araujoluizagh/fda-radiology-bot/internal/openfda"
	"github.com/araujoluizagh/fda-radiology-bot/internal/storage/sqlite"
	"github.com/araujoluizagh/fda-radiology-bot/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := openfda.NewClient(
		cfg.Fetch.BaseURL,
		cfg.Fetch.AdvisoryCommittee,
		cfg.Fetch.UserAgent,
		cfg.Fetch.RequestTimeout(),
		log,
	)

	ledger, closeLedger := openLedger(cfg, log)
	defer closeLedger()

	if _, err := job.NewRunner(client, ledger, log).Run(ctx, cfg); err != nil {
		log.Error("Export run failed", logger.Error(err))
		return 1
	}
	return 0
}

// openLedger opens the run ledger when enabled. A ledger that cannot be
// opened is logged and skipped so the CSV is still written.
func openLedger(cfg *config.Config, log *logger.Logger) (job.Ledger, func()) {
	noop := func() {}
	if !cfg.Ledger.Enabled {
		return nil, noop
	}

	db, err := sqlite.Open(cfg.Ledger.Path)
	if err != nil {
		log.Warn("Failed to open ledger, continuing without it",
			logger.String("path", cfg.Ledger.Path), logger.Error(err))
		return nil, noop
	}

	l, err := sqlite.NewLedger(db, log)
	if err != nil {
		log.Warn("Failed to initialize ledger, continuing without it",
			logger.String("path", cfg.Ledger.Path), logger.Error(err))
		db.Close()
		return nil, noop
	}
	return l, func() { db.Close() }
}
