package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Scheduler.MaxAgents != 4 {
		t.Errorf("MaxAgents = %d, want 4", cfg.Scheduler.MaxAgents)
	}
	if cfg.Scheduler.TickPeriod != 2*time.Second {
		t.Errorf("TickPeriod = %v, want 2s", cfg.Scheduler.TickPeriod)
	}
	if cfg.Runtime.Name != "claude" {
		t.Errorf("Runtime.Name = %q, want claude", cfg.Runtime.Name)
	}
	if cfg.Runtime.MaxBudgetUSD != 2.0 {
		t.Errorf("Runtime.MaxBudgetUSD = %v, want 2.0", cfg.Runtime.MaxBudgetUSD)
	}
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cord.yaml")
	contents := `
scheduler:
  max_agents: 8
  tick_period: 5s
runtime:
  name: claude
  model: opus
  max_budget_usd: 10
driver:
  tui: true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Scheduler.MaxAgents != 8 {
		t.Errorf("MaxAgents = %d, want 8", cfg.Scheduler.MaxAgents)
	}
	if cfg.Scheduler.TickPeriod != 5*time.Second {
		t.Errorf("TickPeriod = %v, want 5s", cfg.Scheduler.TickPeriod)
	}
	if cfg.Runtime.Name != "claude" || cfg.Runtime.Model != "opus" {
		t.Errorf("Runtime = %+v, want claude/opus", cfg.Runtime)
	}
	if cfg.Runtime.MaxBudgetUSD != 10 {
		t.Errorf("MaxBudgetUSD = %v, want 10", cfg.Runtime.MaxBudgetUSD)
	}
	if !cfg.Driver.TUI {
		t.Errorf("Driver.TUI = false, want true")
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverridesRuntime(t *testing.T) {
	t.Setenv("CORD_RUNTIME", "amp")
	t.Setenv("CORD_MODEL", "custom-model")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runtime.Name != "amp" {
		t.Errorf("Runtime.Name = %q, want amp (from CORD_RUNTIME)", cfg.Runtime.Name)
	}
	if cfg.Runtime.Model != "custom-model" {
		t.Errorf("Runtime.Model = %q, want custom-model (from CORD_MODEL)", cfg.Runtime.Model)
	}
}
