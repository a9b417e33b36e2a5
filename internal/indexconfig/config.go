package indexconfig

import (
	"time"

	"github.com/quantlab/topescape/internal/backtest"
	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/factors"
)

// Config is the full indicator profile: data sources, derivation
// windows, the factor registry, combiner tunables, the default weight
// vector and the backtest/grid settings. Everything the pipeline can
// tune lives here, not in module-level constants.
type Config struct {
	Meta     Meta                 `yaml:"meta" json:"meta"`
	Data     Data                 `yaml:"data" json:"data"`
	Derive   factors.DeriveParams `yaml:"derive" json:"derive"`
	Factors  factors.Registry     `yaml:"factors" json:"factors"`
	Combine  composite.Params     `yaml:"combine" json:"combine"`
	Weights  composite.Weights    `yaml:"weights" json:"weights"`
	Backtest Backtest             `yaml:"backtest" json:"backtest"`
}

// Meta identifies the profile.
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Data points at the source CSV files and output artifacts. HS300 and
// CSIAll are required sources; the rest are optional and degrade to
// missing factors when absent or unreadable.
type Data struct {
	HS300    string `yaml:"hs300" json:"hs300"`
	CSIAll   string `yaml:"csiall" json:"csiall"`
	Shanghai string `yaml:"shanghai" json:"shanghai"`
	Margin   string `yaml:"margin" json:"margin"`
	Search   string `yaml:"search" json:"search"`
	PE       string `yaml:"pe" json:"pe"`

	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// ForwardFill lists the columns forward-filled after alignment
	// (slowly-changing series only).
	ForwardFill []string `yaml:"forward_fill" json:"forward_fill"`
}

// Backtest holds the retrospective evaluation settings.
type Backtest struct {
	// Peaks are the hand-curated historical market tops (YYYY-MM-DD).
	Peaks []string `yaml:"peaks" json:"peaks"`

	// AdvanceDays is the calendar lookback before each peak in which a
	// signal counts as a hit.
	AdvanceDays int `yaml:"advance_days" json:"advance_days"`

	// Grid is the coarse weight search space.
	Grid backtest.Grid `yaml:"grid" json:"grid"`

	// Workers caps search parallelism; zero means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

// PeakDates parses the configured peak dates.
func (b Backtest) PeakDates() ([]time.Time, error) {
	out := make([]time.Time, 0, len(b.Peaks))
	for _, s := range b.Peaks {
		d, err := dataset.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Default returns the standard profile: the nine-factor registry, the
// dimension-weighted default vector (total 10, renormalized per row),
// reporting-grade smoothing, and the three-peak evaluation set.
func Default() *Config {
	return &Config{
		Meta: Meta{ProfileID: "escape_index_cn", Version: "1.0.0"},
		Data: Data{
			HS300:     "data/hs300.csv",
			CSIAll:    "data/csiall.csv",
			Shanghai:  "data/shanghai.csv",
			Margin:    "data/margin.csv",
			Search:    "data/search.csv",
			PE:        "data/pe.csv",
			OutputDir: "out",
			ForwardFill: []string{
				"margin_total", "margin_total_log",
				"search_volume", "search_volume_log",
				"pe_ttm",
			},
		},
		Derive:  factors.DefaultDeriveParams(),
		Factors: factors.Default(),
		Combine: composite.Params{
			LogisticK:       1.2,
			LogisticX0:      0.0,
			SmoothSpan:      10,
			SignalThreshold: 75,
		},
		Weights: composite.Weights{
			// Sentiment dimension
			"search_heat_z": 1.25,
			"margin_heat_z": 1.25,
			// Liquidity dimension
			"turnover_heat_z":      1.25,
			"turnover_rate_heat_z": 1.25,
			"amplitude_heat_z":     1.0,
			// Momentum dimension
			"price_accel_z": 1.0,
			"ma_spread_z":   1.0,
			"up_ratio_z":    1.0,
			// Valuation dimension
			"pe_valuation_z": 2.0,
		},
		Backtest: Backtest{
			Peaks:       []string{"2015-06-12", "2021-02-18", "2024-10-08"},
			AdvanceDays: 7,
			Grid:        backtest.DefaultGrid(0.2),
		},
	}
}

// BacktestProfile returns the sensitivity-oriented variant used for the
// grid search: shorter smoothing and shorter momentum windows, matching
// the evaluation setup the peak set was curated against.
func BacktestProfile() *Config {
	cfg := Default()
	cfg.Meta.ProfileID = "escape_index_cn_backtest"
	cfg.Combine.SmoothSpan = 3
	for i := range cfg.Factors {
		switch cfg.Factors[i].Name {
		case "amplitude_heat_z", "price_accel_z":
			cfg.Factors[i].Window = 20
		}
	}
	return cfg
}
