package factors

import "fmt"

// Descriptor defines one factor: the feature column it scores and the
// robust-z window parameters. The composite is parameterized entirely by
// a weight vector plus this registry, so new factors never touch the
// normalizer or combiner.
type Descriptor struct {
	// Name is the z-score column the factor produces.
	Name string `yaml:"name" json:"name"`

	// Source is the feature column the factor scores.
	Source string `yaml:"source" json:"source"`

	// Window is the robust-z lookback.
	Window int `yaml:"window" json:"window"`

	// TrendWindow, when positive, detrends against a long rolling
	// median first.
	TrendWindow int `yaml:"trend_window" json:"trend_window"`

	// MinPeriods overrides the default max(3, window/2) when positive.
	MinPeriods int `yaml:"min_periods" json:"min_periods"`

	// Optional factors degrade to all-missing when their source column
	// is absent; required ones make the run fail with a schema error.
	Optional bool `yaml:"optional" json:"optional"`
}

// Registry is an ordered factor set. Order is part of the contract: it
// fixes iteration order everywhere a deterministic traversal matters.
type Registry []Descriptor

// Names returns the factor names in registry order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, d := range r {
		names[i] = d.Name
	}
	return names
}

// Validate checks descriptor sanity.
func (r Registry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, d := range r {
		if d.Name == "" {
			return fmt.Errorf("factor with empty name")
		}
		if d.Source == "" {
			return fmt.Errorf("factor %s: empty source column", d.Name)
		}
		if d.Window < 2 {
			return fmt.Errorf("factor %s: window must be at least 2, got %d", d.Name, d.Window)
		}
		if d.TrendWindow < 0 || d.MinPeriods < 0 {
			return fmt.Errorf("factor %s: negative window parameter", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("factor %s: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// Default returns the standard nine-factor registry: liquidity and
// turnover heat, amplitude, search interest, margin leverage, price
// acceleration, moving-average spread, up-day ratio and valuation.
func Default() Registry {
	const longTrend = 252 // one trading year of drift removal

	return Registry{
		{Name: "turnover_heat_z", Source: "turnover_log_all", Window: 60, TrendWindow: longTrend},
		{Name: "turnover_rate_heat_z", Source: "hs300_turnover_rate", Window: 60, TrendWindow: longTrend, Optional: true},
		{Name: "amplitude_heat_z", Source: "amplitude_mean", Window: 20},
		{Name: "search_heat_z", Source: "search_volume_log", Window: 60, TrendWindow: longTrend, Optional: true},
		{Name: "margin_heat_z", Source: "margin_total_log", Window: 120, TrendWindow: longTrend, Optional: true},
		{Name: "price_accel_z", Source: "ret_10d", Window: 20},
		{Name: "ma_spread_z", Source: "ma_spread", Window: 60},
		{Name: "up_ratio_z", Source: "up_ratio", Window: 60},
		{Name: "pe_valuation_z", Source: "pe_ttm", Window: 120, TrendWindow: longTrend, Optional: true},
	}
}
