package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/araujoluizagh/fda-radiology-bot/internal/config"
	"github.com/araujoluizagh/fda-radiology-bot/internal/openfdatest"
	"github.com/araujoluizagh/fda-radiology-bot/pkg/logger"
)

func junkLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := os.WriteFile(path, []byte(strings.Repeat("not a database\n", 512)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_BrokenLedgerStillWritesCSV(t *testing.T) {
	srv := openfdatest.NewServer()
	endpoint := srv.Endpoint()
	srv.Close()

	out := filepath.Join(t.TempDir(), "radiology_510k.csv")
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("FDA510K_BASE_URL", endpoint)
	t.Setenv("FDA510K_OUTPUT", out)
	t.Setenv("FDA510K_TIMEOUT_SECONDS", "5")
	t.Setenv("FDA510K_LOG_LEVEL", "error")
	t.Setenv("FDA510K_LEDGER_ENABLED", "true")
	t.Setenv("FDA510K_LEDGER_PATH", junkLedger(t))

	if code := run(); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("csv not written: %v", err)
	}
	want := "k_number,applicant,device_name,decision_date,advisory_committee,decision_code\n"
	if string(data) != want {
		t.Fatalf("csv = %q, want header only", data)
	}
}

func TestOpenLedger(t *testing.T) {
	cfg := config.Default()

	if l, closeFn := openLedger(cfg, logger.NewNop()); l != nil {
		closeFn()
		t.Fatal("disabled ledger should be nil")
	}

	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = junkLedger(t)
	l, closeFn := openLedger(cfg, logger.NewNop())
	closeFn()
	if l != nil {
		t.Fatal("unreadable ledger should be skipped")
	}

	cfg.Ledger.Path = filepath.Join(t.TempDir(), "data", "ledger.db")
	l, closeFn = openLedger(cfg, logger.NewNop())
	defer closeFn()
	if l == nil {
		t.Fatal("expected a working ledger")
	}
}
