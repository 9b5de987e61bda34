package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"PredictionLedger/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
	if cfg.Persistence.BatchSize != 50 {
		t.Errorf("batch size = %d, want 50", cfg.Persistence.BatchSize)
	}
	if cfg.Persistence.FlushTimeout != 10*time.Millisecond {
		t.Errorf("flush timeout = %v, want 10ms", cfg.Persistence.FlushTimeout)
	}
	if cfg.Core.SnapshotInterval != 100_000 {
		t.Errorf("snapshot interval = %d", cfg.Core.SnapshotInterval)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PRED_HTTP_ADDR", ":9090")
	t.Setenv("PRED_POSTGRES_MAX_OPEN_CONNS", "42")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr = %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.Postgres.MaxOpenConns != 42 {
		t.Errorf("max open conns = %d, want 42", cfg.Postgres.MaxOpenConns)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	body := []byte("http:\n  addr: \":7070\"\ncore:\n  snapshot_interval: 500\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("http addr = %q, want :7070", cfg.HTTP.Addr)
	}
	if cfg.Core.SnapshotInterval != 500 {
		t.Errorf("snapshot interval = %d, want 500", cfg.Core.SnapshotInterval)
	}
	// File values must not clobber unrelated defaults.
	if cfg.Persistence.BatchSize != 50 {
		t.Errorf("batch size = %d, want 50", cfg.Persistence.BatchSize)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg.Core.PersistChanSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero persist_chan_size")
	}

	cfg, _ = config.Load("")
	cfg.Postgres.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty postgres.dsn")
	}
}
