package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

var allEnvKeys = []string{
	"HERMES_CONFIG", "NUM_AGENTS", "DAILY_LIMIT", "DAYS", "STARTING_MONEY",
	"MAX_STARTING_GOODS", "SEED", "WORKERS", "TOP_AGENTS", "LOG_LEVEL",
	"CHECK_INVARIANTS", "JOURNAL_PATH", "HTTP_ADDR", "READ_TIMEOUT",
	"WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hermes.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.NumAgents != 10000 {
		t.Errorf("NumAgents = %d, want 10000", cfg.NumAgents)
	}
	if cfg.DailyLimit != 0.1 {
		t.Errorf("DailyLimit = %v, want 0.1", cfg.DailyLimit)
	}
	if cfg.Days != 1 {
		t.Errorf("Days = %d, want 1", cfg.Days)
	}
	if cfg.StartingMoney != 100 {
		t.Errorf("StartingMoney = %d, want 100", cfg.StartingMoney)
	}
	if cfg.MaxStartingGoods != 10 {
		t.Errorf("MaxStartingGoods = %d, want 10", cfg.MaxStartingGoods)
	}
	if cfg.Seed != 0 {
		t.Errorf("Seed = %d, want 0", cfg.Seed)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.CheckInvariants {
		t.Error("CheckInvariants should default to false")
	}
	if cfg.JournalPath != "" || cfg.HTTPAddr != "" {
		t.Errorf("journal and HTTP should be disabled by default, got %q and %q", cfg.JournalPath, cfg.HTTPAddr)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("NUM_AGENTS", "500")
	t.Setenv("DAILY_LIMIT", "0.25")
	t.Setenv("DAYS", "7")
	t.Setenv("STARTING_MONEY", "1000")
	t.Setenv("MAX_STARTING_GOODS", "3")
	t.Setenv("SEED", "42")
	t.Setenv("WORKERS", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CHECK_INVARIANTS", "true")
	t.Setenv("JOURNAL_PATH", "/tmp/run.db")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.NumAgents != 500 || cfg.DailyLimit != 0.25 || cfg.Days != 7 {
		t.Errorf("unexpected population settings %+v", cfg)
	}
	if cfg.StartingMoney != 1000 || cfg.MaxStartingGoods != 3 || cfg.Seed != 42 || cfg.Workers != 2 {
		t.Errorf("unexpected starting settings %+v", cfg)
	}
	if cfg.LogLevel != "debug" || !cfg.CheckInvariants {
		t.Errorf("unexpected diagnostics settings %+v", cfg)
	}
	if cfg.JournalPath != "/tmp/run.db" || cfg.HTTPAddr != ":8080" || cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("unexpected output settings %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
num_agents: 250
daily_limit: 0.5
days: 3
seed: 9
journal_path: run.db
shutdown_timeout: 2s
`)
	t.Setenv("HERMES_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NumAgents != 250 || cfg.DailyLimit != 0.5 || cfg.Days != 3 || cfg.Seed != 9 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.JournalPath != "run.db" || cfg.ShutdownTimeout != 2*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.StartingMoney != 100 || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HERMES_CONFIG", writeConfigFile(t, "num_agents: 250\ndays: 3\n"))
	t.Setenv("DAYS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NumAgents != 250 {
		t.Errorf("NumAgents = %d, want 250 from file", cfg.NumAgents)
	}
	if cfg.Days != 5 {
		t.Errorf("Days = %d, want 5 from env", cfg.Days)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("HERMES_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
	t.Run("malformed file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("HERMES_CONFIG", writeConfigFile(t, "num_agents: [1, 2"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for malformed config file")
		}
	})
	t.Run("invalid value in file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("HERMES_CONFIG", writeConfigFile(t, "daily_limit: 2\n"))
		if _, err := Load(); err == nil {
			t.Fatal("expected validation error for daily_limit from file")
		}
	})
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"NUM_AGENTS", "not-a-number"},
		{"NUM_AGENTS", "0"},
		{"DAILY_LIMIT", "0"},
		{"DAILY_LIMIT", "1.5"},
		{"DAILY_LIMIT", "-0.1"},
		{"DAILY_LIMIT", "lots"},
		{"DAYS", "0"},
		{"STARTING_MONEY", "-1"},
		{"MAX_STARTING_GOODS", "-3"},
		{"SEED", "-1"},
		{"WORKERS", "0"},
		{"TOP_AGENTS", "-1"},
		{"LOG_LEVEL", "verbose"},
		{"CHECK_INVARIANTS", "maybe"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"READ_TIMEOUT", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
