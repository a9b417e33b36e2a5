package indexconfig

import (
	"fmt"
)

// Validate checks a profile for structural errors. It does not touch
// the filesystem: missing optional data files are a load-time concern
// and degrade gracefully there.
func Validate(cfg *Config) error {
	if cfg.Meta.ProfileID == "" {
		return fmt.Errorf("meta.profile_id is required")
	}

	if cfg.Data.HS300 == "" {
		return fmt.Errorf("data.hs300 is required")
	}
	if cfg.Data.CSIAll == "" {
		return fmt.Errorf("data.csiall is required")
	}

	if cfg.Derive.ReturnWindow < 1 {
		return fmt.Errorf("derive.return_window must be at least 1")
	}
	if cfg.Derive.MAWindow < 1 {
		return fmt.Errorf("derive.ma_window must be at least 1")
	}
	if cfg.Derive.UpWindow < 1 {
		return fmt.Errorf("derive.up_window must be at least 1")
	}

	if len(cfg.Factors) == 0 {
		return fmt.Errorf("factors: at least one factor is required")
	}
	if err := cfg.Factors.Validate(); err != nil {
		return err
	}

	if err := cfg.Combine.Validate(); err != nil {
		return fmt.Errorf("combine: %w", err)
	}

	if err := cfg.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	known := make(map[string]struct{}, len(cfg.Factors))
	for _, d := range cfg.Factors {
		known[d.Name] = struct{}{}
	}
	for name := range cfg.Weights {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("weights: unknown factor %q", name)
		}
	}

	if cfg.Backtest.AdvanceDays < 1 {
		return fmt.Errorf("backtest.advance_days must be at least 1")
	}
	if _, err := cfg.Backtest.PeakDates(); err != nil {
		return fmt.Errorf("backtest.peaks: %w", err)
	}
	if err := cfg.Backtest.Grid.Validate(); err != nil {
		return fmt.Errorf("backtest.grid: %w", err)
	}
	for _, grp := range cfg.Backtest.Grid.Groups {
		for _, m := range grp.Members {
			if _, ok := known[m.Factor]; !ok {
				return fmt.Errorf("backtest.grid: group %s references unknown factor %q", grp.Name, m.Factor)
			}
		}
	}

	return nil
}
