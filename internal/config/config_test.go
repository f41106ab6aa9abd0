package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
mediator:
  api_key: abc123
networks:
  unity:
    enabled: true
    api_key: xyz
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mediator.APIKey != "abc123" {
		t.Errorf("mediator.api_key = %q", cfg.Mediator.APIKey)
	}
	if !cfg.Networks["unity"].Enabled {
		t.Errorf("expected unity enabled")
	}
	if cfg.Validation.ThresholdPct != 10 || cfg.Validation.MinRevenueFloor != 25 || cfg.Validation.DateRangeDays != 7 {
		t.Errorf("unexpected defaults: %+v", cfg.Validation)
	}
}

func TestLoadRespectsExplicitValidationValues(t *testing.T) {
	path := writeConfig(t, `
validation:
  threshold_pct: 15
  min_revenue_floor: 50
  date_range_days: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Validation.ThresholdPct != 15 || cfg.Validation.MinRevenueFloor != 50 || cfg.Validation.DateRangeDays != 3 {
		t.Errorf("explicit values overridden: %+v", cfg.Validation)
	}
}

func TestLoadUnknownTopLevelKeyDoesNotFail(t *testing.T) {
	path := writeConfig(t, `
mediator:
  api_key: abc
totally_unknown_section:
  foo: bar
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load should ignore unknown keys, got error: %v", err)
	}
}
