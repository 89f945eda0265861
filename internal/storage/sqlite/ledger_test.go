package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/araujoluizagh/fda-radiology-bot/pkg/logger"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	l, err := NewLedger(db, logger.NewNop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func run(id string, started time.Time, outcome string, count int) *RunRecord {
	return &RunRecord{
		ID:          id,
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
		Committee:   "radiology",
		WindowStart: "20240301",
		WindowEnd:   "20240301",
		Search:      "advisory_committee:radiology AND decision_date:[20240301 TO 20240301]",
		Outcome:     outcome,
		RecordCount: count,
		OutputPath:  "radiology_510k.csv",
		OutputBytes: 78,
	}
}

func TestLedger_RecordAndReadBack(t *testing.T) {
	l := newTestLedger(t)
	started := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)

	r := run("run-1", started, "ok", 2)
	r.UpstreamTotal = 5
	rows := []RunClearance{
		{KNumber: "K2", Applicant: "Beta Medical", DeviceName: `Model A, "Pro"`, DecisionCode: "SESE"},
		{KNumber: "K1", DecisionDate: "2024-03-01"},
	}
	if err := l.RecordRun(r, rows); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := l.recentRuns(10)
	if err != nil {
		t.Fatalf("recentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Outcome != "ok" || got.RecordCount != 2 || got.UpstreamTotal != 5 {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(started.Add(2*time.Second)) {
		t.Errorf("times = %v / %v", got.StartedAt, got.FinishedAt)
	}
	if got.Failure != "" || got.Error != "" {
		t.Errorf("failure fields should be empty: %+v", got)
	}

	stored, err := l.GetRunClearances("run-1")
	if err != nil {
		t.Fatalf("GetRunClearances: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("clearances = %d", len(stored))
	}
	if stored[0].KNumber != "K2" || stored[0].DeviceName != `Model A, "Pro"` || stored[0].Position != 0 {
		t.Errorf("first row = %+v", stored[0])
	}
	if stored[1].KNumber != "K1" || stored[1].Applicant != "" || stored[1].Position != 1 {
		t.Errorf("second row = %+v", stored[1])
	}
}

func TestLedger_FailedRunsAreDistinguishable(t *testing.T) {
	l := newTestLedger(t)
	base := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)

	failed := run("run-failed", base, "failed", 0)
	failed.Failure = "status"
	failed.Error = "unexpected status code: 500"

	for _, r := range []*RunRecord{
		run("run-empty", base.Add(-24*time.Hour), "empty", 0),
		failed,
		run("run-ok", base.Add(24*time.Hour), "ok", 3),
	} {
		if err := l.RecordRun(r, nil); err != nil {
			t.Fatalf("RecordRun %s: %v", r.ID, err)
		}
	}

	recent, err := l.recentRuns(2)
	if err != nil {
		t.Fatalf("recentRuns: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "run-ok" || recent[1].ID != "run-failed" {
		t.Fatalf("recent = %v", ids(recent))
	}

	failedRuns, err := l.GetRunsByOutcome("failed", 10)
	if err != nil {
		t.Fatalf("GetRunsByOutcome: %v", err)
	}
	if len(failedRuns) != 1 || failedRuns[0].Failure != "status" || failedRuns[0].Error == "" {
		t.Fatalf("failed runs = %+v", failedRuns)
	}

	emptyRuns, err := l.GetRunsByOutcome("empty", 10)
	if err != nil {
		t.Fatalf("GetRunsByOutcome: %v", err)
	}
	if len(emptyRuns) != 1 || emptyRuns[0].ID != "run-empty" {
		t.Fatalf("empty runs = %v", ids(emptyRuns))
	}
}

func TestLedger_DuplicateRunIDRollsBack(t *testing.T) {
	l := newTestLedger(t)
	started := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)

	if err := l.RecordRun(run("dup", started, "ok", 1), []RunClearance{{KNumber: "K1"}}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := l.RecordRun(run("dup", started, "ok", 1), []RunClearance{{KNumber: "K2"}}); err == nil {
		t.Fatal("expected primary key violation")
	}

	stored, err := l.GetRunClearances("dup")
	if err != nil {
		t.Fatalf("GetRunClearances: %v", err)
	}
	if len(stored) != 1 || stored[0].KNumber != "K1" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestNewLedger_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if _, err := NewLedger(db, logger.NewNop()); err != nil {
			t.Fatalf("NewLedger #%d: %v", i, err)
		}
		db.Close()
	}
}

func ids(runs []*RunRecord) []string {
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.ID)
	}
	return out
}
