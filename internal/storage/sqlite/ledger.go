package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/araujoluizagh/fda-radiology-bot/pkg/logger"
)

// Open opens (creating if needed) the SQLite database at path
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// single writer; the job is sequential anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}
	return db, nil
}

// Ledger keeps a history of export runs and the rows each one wrote
type Ledger struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewLedger creates the ledger tables if missing
func NewLedger(db *sql.DB, log *logger.Logger) (*Ledger, error) {
	l := &Ledger{
		db:     db,
		logger: log.Named("sqlite-ledger"),
	}
	if err := l.initDB(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initDB() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			committee TEXT NOT NULL,
			window_start TEXT NOT NULL,
			window_end TEXT NOT NULL,
			search TEXT NOT NULL,
			outcome TEXT NOT NULL,
			failure TEXT,
			error TEXT,
			record_count INTEGER NOT NULL,
			upstream_total INTEGER NOT NULL DEFAULT 0,
			output_path TEXT NOT NULL,
			output_bytes INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = l.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_clearances (
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			k_number TEXT,
			applicant TEXT,
			device_name TEXT,
			decision_date TEXT,
			advisory_committee TEXT,
			decision_code TEXT,
			PRIMARY KEY (run_id, position),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create run_clearances table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_run_clearances_k_number ON run_clearances(k_number)`,
	}
	for _, indexSQL := range indexes {
		if _, err := l.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create ledger index: %w", err)
		}
	}
	return nil
}

// RecordRun stores a run and its rows in one transaction
func (l *Ledger) RecordRun(run *RunRecord, rows []RunClearance) (err error) {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		`INSERT INTO runs
		(id, started_at, finished_at, committee, window_start, window_end, search, outcome,
		 failure, error, record_count, upstream_total, output_path, output_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Committee,
		run.WindowStart,
		run.WindowEnd,
		run.Search,
		run.Outcome,
		nullString(run.Failure),
		nullString(run.Error),
		run.RecordCount,
		run.UpstreamTotal,
		run.OutputPath,
		run.OutputBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_clearances
		(run_id, position, k_number, applicant, device_name, decision_date, advisory_committee, decision_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare clearance insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err = stmt.Exec(run.ID, i, r.KNumber, r.Applicant, r.DeviceName,
			r.DecisionDate, r.AdvisoryCommittee, r.DecisionCode); err != nil {
			return fmt.Errorf("failed to insert clearance %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	l.logger.Debug("Recorded run",
		logger.String("run_id", run.ID),
		logger.String("outcome", run.Outcome),
		logger.Int("rows", len(rows)),
	)
	return nil
}

const runColumns = `id, started_at, finished_at, committee, window_start, window_end, search, outcome,
	failure, error, record_count, upstream_total, output_path, output_bytes`

// recentRuns returns the newest runs first
func (l *Ledger) recentRuns(limit int) ([]*RunRecord, error) {
	rows, err := l.db.Query(
		`SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	return l.scanRunRows(rows)
}

// GetRunsByOutcome returns the newest runs with the given outcome
func (l *Ledger) GetRunsByOutcome(outcome string, limit int) ([]*RunRecord, error) {
	rows, err := l.db.Query(
		`SELECT `+runColumns+`
		FROM runs
		WHERE outcome = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`,
		outcome, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs by outcome: %w", err)
	}
	defer rows.Close()

	return l.scanRunRows(rows)
}

// GetRunClearances returns the rows a run exported, in file order
func (l *Ledger) GetRunClearances(runID string) ([]RunClearance, error) {
	rows, err := l.db.Query(
		`SELECT run_id, position, k_number, applicant, device_name, decision_date, advisory_committee, decision_code
		FROM run_clearances
		WHERE run_id = ?
		ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run clearances: %w", err)
	}
	defer rows.Close()

	var out []RunClearance
	for rows.Next() {
		var c RunClearance
		var kNumber, applicant, deviceName, decisionDate, committee, decisionCode sql.NullString
		if err := rows.Scan(&c.RunID, &c.Position, &kNumber, &applicant, &deviceName,
			&decisionDate, &committee, &decisionCode); err != nil {
			return nil, fmt.Errorf("failed to scan run clearance: %w", err)
		}
		c.KNumber = kNumber.String
		c.Applicant = applicant.String
		c.DeviceName = deviceName.String
		c.DecisionDate = decisionDate.String
		c.AdvisoryCommittee = committee.String
		c.DecisionCode = decisionCode.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run clearances: %w", err)
	}
	return out, nil
}

func (l *Ledger) scanRunRows(rows *sql.Rows) ([]*RunRecord, error) {
	var records []*RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt, finishedAt string
		var failure, errText sql.NullString

		if err := rows.Scan(
			&r.ID,
			&startedAt,
			&finishedAt,
			&r.Committee,
			&r.WindowStart,
			&r.WindowEnd,
			&r.Search,
			&r.Outcome,
			&failure,
			&errText,
			&r.RecordCount,
			&r.UpstreamTotal,
			&r.OutputPath,
			&r.OutputBytes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var err error
		r.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		r.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}

		r.Failure = failure.String
		r.Error = errText.String
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
