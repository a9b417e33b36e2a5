package factors

import (
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
)

// DeriveParams holds the windows for the intermediate raw series. These
// are configuration, not constants: the spec exposes every window as a
// tunable.
type DeriveParams struct {
	// ReturnWindow is the trailing compounded-return horizon.
	ReturnWindow int `yaml:"return_window" json:"return_window"`

	// MAWindow is the long moving average for the price spread.
	MAWindow int `yaml:"ma_window" json:"ma_window"`

	// UpWindow is the lookback for the up-day ratio.
	UpWindow int `yaml:"up_window" json:"up_window"`
}

// DefaultDeriveParams returns the standard derivation windows.
func DefaultDeriveParams() DeriveParams {
	return DeriveParams{ReturnWindow: 10, MAWindow: 200, UpWindow: 20}
}

// Derive adds the intermediate feature columns the factor registry
// scores: cross-index means, the trailing compounded return, the
// moving-average spread and the up-day ratio. Source columns that are
// absent contribute nothing; the columns built purely from absent
// sources come out all-missing and degrade downstream.
func Derive(t *dataset.Table, p DeriveParams) error {
	if err := t.Set("turnover_log_all", rowMean(t, "hs300_turnover_log", "csi_turnover_log")); err != nil {
		return err
	}
	if err := t.Set("amplitude_mean", rowMean(t, "hs300_amplitude", "csi_amplitude")); err != nil {
		return err
	}

	retMean := rowMean(t, "hs300_ret", "csi_ret")
	if err := t.Set("ret_mean", retMean); err != nil {
		return err
	}
	if err := t.Set("ret_10d", rolling.Compound(retMean, p.ReturnWindow, 1)); err != nil {
		return err
	}

	closes := t.ColumnOr("hs300_close")
	ma := rolling.Mean(closes, p.MAWindow, 1)
	spread := make([]float64, len(closes))
	for i := range closes {
		if rolling.IsMissing(closes[i]) || rolling.IsMissing(ma[i]) || ma[i] == 0 {
			spread[i] = rolling.Missing()
			continue
		}
		spread[i] = closes[i]/ma[i] - 1
	}
	if err := t.Set("hs300_ma", ma); err != nil {
		return err
	}
	if err := t.Set("ma_spread", spread); err != nil {
		return err
	}

	// Up-day indicator: a missing return counts as a non-up day, so the
	// ratio stays defined through sparse stretches.
	rets := t.ColumnOr("hs300_ret")
	ups := make([]float64, len(rets))
	for i, r := range rets {
		if !rolling.IsMissing(r) && r > 0 {
			ups[i] = 1
		}
	}
	if err := t.Set("up_ratio", rolling.Mean(ups, p.UpWindow, 1)); err != nil {
		return err
	}

	return nil
}

// rowMean averages the named columns per row over the non-missing
// values. Rows where every column is missing stay missing.
func rowMean(t *dataset.Table, names ...string) []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		sum := 0.0
		n := 0
		for _, name := range names {
			v := t.At(name, i)
			if rolling.IsMissing(v) {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			out[i] = rolling.Missing()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}
