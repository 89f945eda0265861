// Package job runs one export: fetch a window of clearances, write the CSV
// and, when enabled, record the run in the ledger.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/araujoluizagh/fda-radiology-bot/internal/config"
	"github.com/araujoluizagh/fda-radiology-bot/internal/export"
	"github.com/araujoluizagh/fda-radiology-bot/internal/openfda"
	"github.com/araujoluizagh/fda-radiology-bot/internal/storage/sqlite"
	"github.com/araujoluizagh/fda-radiology-bot/pkg/logger"
)

// Fetcher returns a window of clearances. Implementations absorb upstream
// failures and report them through FetchResult.Outcome.
type Fetcher interface {
	FetchClearances(ctx context.Context, daysBack, maxRecords int) *openfda.FetchResult
}

// Ledger records finished runs
type Ledger interface {
	RecordRun(run *sqlite.RunRecord, rows []sqlite.RunClearance) error
}

// Report summarises a finished run
type Report struct {
	RunID       string
	Fetch       *openfda.FetchResult
	OutputPath  string
	OutputBytes int64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Runner wires a fetcher to the CSV writer
type Runner struct {
	fetcher Fetcher
	ledger  Ledger
	now     func() time.Time
	logger  *logger.Logger
}

// NewRunner creates a runner. ledger may be nil.
func NewRunner(fetcher Fetcher, ledger Ledger, log *logger.Logger) *Runner {
	return &Runner{
		fetcher: fetcher,
		ledger:  ledger,
		now:     time.Now,
		logger:  log.Named("export-job"),
	}
}

// Run performs one export. Upstream failures still produce a header-only
// CSV and a nil error; only writing the CSV (or the ledger, if enabled) can
// fail the run.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	report := &Report{
		RunID:      uuid.NewString(),
		OutputPath: cfg.Output.CSVPath,
		StartedAt:  r.now(),
	}
	log := r.logger.WithRunID(report.RunID)

	log.Info("Starting export run",
		logger.String("committee", cfg.Fetch.AdvisoryCommittee),
		logger.Int("days_back", cfg.Fetch.DaysBack),
		logger.Int("max_records", cfg.Fetch.MaxRecords),
	)

	report.Fetch = r.fetcher.FetchClearances(ctx, cfg.Fetch.DaysBack, cfg.Fetch.MaxRecords)
	if report.Fetch == nil {
		log.Error("Fetcher returned no result, continuing with no records")
		report.Fetch = &openfda.FetchResult{
			Records: []openfda.ClearanceRecord{},
			Outcome: openfda.OutcomeFailed,
		}
	}

	n, err := export.WriteFile(cfg.Output.CSVPath, report.Fetch.Records)
	if err != nil {
		log.Error("Failed to write CSV", logger.String("path", cfg.Output.CSVPath), logger.Error(err))
		return report, fmt.Errorf("failed to write %s: %w", cfg.Output.CSVPath, err)
	}
	report.OutputBytes = n
	report.FinishedAt = r.now()

	log.Info("CSV saved",
		logger.String("path", cfg.Output.CSVPath),
		logger.Int("rows", len(report.Fetch.Records)),
		logger.String("size", humanize.Bytes(uint64(n))),
		logger.String("outcome", string(report.Fetch.Outcome)),
	)

	if report.Fetch.Outcome == openfda.OutcomeFailed {
		log.Warn("Upstream fetch failed; CSV contains only the header",
			logger.Error(report.Fetch.Err))
	}

	if r.ledger != nil {
		if err := r.ledger.RecordRun(runRecord(report, cfg), runClearances(report)); err != nil {
			log.Error("Failed to record run in ledger", logger.Error(err))
			return report, fmt.Errorf("failed to record run: %w", err)
		}
	}

	return report, nil
}

func runRecord(report *Report, cfg *config.Config) *sqlite.RunRecord {
	res := report.Fetch
	rec := &sqlite.RunRecord{
		ID:            report.RunID,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
		Committee:     cfg.Fetch.AdvisoryCommittee,
		WindowStart:   res.Window.StartString(),
		WindowEnd:     res.Window.EndString(),
		Search:        res.Search,
		Outcome:       string(res.Outcome),
		RecordCount:   len(res.Records),
		UpstreamTotal: res.Total,
		OutputPath:    report.OutputPath,
		OutputBytes:   report.OutputBytes,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
		var fe *openfda.FetchError
		if errors.As(res.Err, &fe) {
			rec.Failure = fe.Kind
		}
	}
	return rec
}

func runClearances(report *Report) []sqlite.RunClearance {
	out := make([]sqlite.RunClearance, 0, len(report.Fetch.Records))
	for i, r := range report.Fetch.Records {
		out = append(out, sqlite.RunClearance{
			RunID:             report.RunID,
			Position:          i,
			KNumber:           r.KNumber,
			Applicant:         r.Applicant,
			DeviceName:        r.DeviceName,
			DecisionDate:      r.DecisionDate,
			AdvisoryCommittee: r.AdvisoryCommittee,
			DecisionCode:      r.DecisionCode,
		})
	}
	return out
}
