package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SyncCallTimeout != 30*time.Second || cfg.SyncConcurrency != 4 || cfg.SyncMaxRetries != 2 {
		t.Fatalf("unexpected sync defaults: %+v", cfg)
	}
	if cfg.SyncFetchTimeout != 5*time.Minute {
		t.Fatalf("SyncFetchTimeout = %s", cfg.SyncFetchTimeout)
	}
	if cfg.Port != "8080" || !cfg.SchedulerEnabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "projectid: from-file\nsync_concurrency: 8\nwave_base_url: http://wave.local\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PROJECTID", "from-env")
	t.Setenv("SYNC_CALL_TIMEOUT", "5s")
	t.Setenv("PLAIDENVIRONMENT", "sandbox")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProjectID != "from-env" {
		t.Fatalf("ProjectID = %q", cfg.ProjectID)
	}
	if cfg.SyncConcurrency != 8 || cfg.WaveBaseURL != "http://wave.local" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.SyncCallTimeout != 5*time.Second {
		t.Fatalf("SyncCallTimeout = %s", cfg.SyncCallTimeout)
	}
	if cfg.PlaidEnvironment != dto.PlaidSandbox {
		t.Fatalf("PlaidEnvironment = %s", cfg.PlaidEnvironment)
	}
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SYNC_CONCURRENCY", "0")
	if _, err := load(""); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestLoadRejectsFetchTimeoutBelowCallTimeout(t *testing.T) {
	t.Setenv("SYNC_FETCH_TIMEOUT", "10s")
	if _, err := load(""); err == nil {
		t.Fatal("expected error for fetch timeout below call timeout")
	}
}

func TestGetPlaidEnvironment(t *testing.T) {
	cases := map[string]dto.PlaidEnvironment{
		"sandbox":     dto.PlaidSandbox,
		"Development": dto.PlaidDevelopment,
		"":            dto.PlaidProduction,
		"production":  dto.PlaidProduction,
	}
	for in, want := range cases {
		if got := getPlaidEnvironment(in); got != want {
			t.Errorf("getPlaidEnvironment(%q) = %s, want %s", in, got, want)
		}
	}
}
