package indexconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	// The repo ships a profile that mirrors the built-in default.
	path := "../../config/escape_index.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("profile file not found")
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.ProfileID != "escape_index_cn" {
		t.Errorf("expected profile_id=escape_index_cn, got %s", cfg.Meta.ProfileID)
	}
	if len(cfg.Factors) != 9 {
		t.Errorf("expected 9 factors, got %d", len(cfg.Factors))
	}
	if cfg.Combine.SignalThreshold != 75 {
		t.Errorf("expected threshold 75, got %g", cfg.Combine.SignalThreshold)
	}
	if len(cfg.Backtest.Peaks) != 3 {
		t.Errorf("expected 3 peaks, got %d", len(cfg.Backtest.Peaks))
	}

	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	t.Logf("profile hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	yaml := "meta:\n  profile_id: x\n  version: \"1\"\n  surprise_field: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(path); err == nil {
		t.Error("expected unknown-field error")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("default profile must validate: %v", err)
	}
	if err := Validate(BacktestProfile()); err != nil {
		t.Errorf("backtest profile must validate: %v", err)
	}
}

func TestBacktestProfileOverrides(t *testing.T) {
	cfg := BacktestProfile()

	if cfg.Combine.SmoothSpan != 3 {
		t.Errorf("expected smooth_span 3, got %d", cfg.Combine.SmoothSpan)
	}
	for _, d := range cfg.Factors {
		switch d.Name {
		case "amplitude_heat_z", "price_accel_z":
			if d.Window != 20 {
				t.Errorf("%s: expected window 20, got %d", d.Name, d.Window)
			}
		}
	}

	// The base profile must stay untouched.
	if Default().Combine.SmoothSpan != 10 {
		t.Error("BacktestProfile mutated the default profile")
	}
}

func TestValidateCatchesBrokenProfiles(t *testing.T) {
	cases := []struct {
		name  string
		mutate func(*Config)
	}{
		{"no profile id", func(c *Config) { c.Meta.ProfileID = "" }},
		{"no hs300", func(c *Config) { c.Data.HS300 = "" }},
		{"bad derive window", func(c *Config) { c.Derive.MAWindow = 0 }},
		{"unknown weight", func(c *Config) { c.Weights["mystery_z"] = 1 }},
		{"bad advance", func(c *Config) { c.Backtest.AdvanceDays = 0 }},
		{"bad peak", func(c *Config) { c.Backtest.Peaks = []string{"not-a-date"} }},
		{"grid unknown factor", func(c *Config) {
			c.Backtest.Grid.Groups[0].Members[0].Factor = "mystery_z"
		}},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
