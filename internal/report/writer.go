package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/quantlab/topescape/internal/backtest"
	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
)

// preferredColumns is the leading raw-column order of the indicator
// artifact; only those present in the table are written.
var preferredColumns = []string{
	"hs300_close", "pe_ttm", "hs300_ret", "hs300_turnover_log",
	"hs300_amplitude", "hs300_turnover_rate",
	"csi_close", "csi_ret", "csi_turnover_amt", "csi_turnover_log", "csi_amplitude",
	"shanghai_close", "shanghai_ret", "shanghai_amplitude",
	"margin_total", "search_volume",
	"ma_spread", "up_ratio",
}

// WriteIndicatorCSV writes the per-date artifact: raw and derived
// columns, factor z-scores, and the composite columns. Missing values
// are written as empty cells, never as zero.
func WriteIndicatorCSV(path string, t *dataset.Table, factorNames []string, res *composite.Result) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	cols := make([]string, 0, len(preferredColumns)+len(factorNames))
	for _, c := range preferredColumns {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	cols = append(cols, factorNames...)

	header := append([]string{"date"}, cols...)
	header = append(header, "crowding_z", "escape_index_raw", "escape_index_smoothed", "escape_signal", "escape_level")
	if err := w.Write(header); err != nil {
		return err
	}

	dates := t.Dates()
	for i := range dates {
		row := make([]string, 0, len(header))
		row = append(row, dates[i].Format("2006-01-02"))
		for _, c := range cols {
			row = append(row, formatValue(t.At(c, i), 6))
		}
		row = append(row,
			formatValue(res.CrowdingZ[i], 6),
			formatValue(res.Raw[i], 3),
			formatValue(res.Smoothed[i], 2),
			strconv.Itoa(res.Signal[i]),
			res.Level[i],
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteGridCSV writes one row per grid candidate: index, outcome, score
// and the full sub-factor weight split.
func WriteGridCSV(path string, grid backtest.Grid, candidates []backtest.CandidateResult) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	factorNames := grid.FactorNames()
	groupNames := grid.GroupNames()

	header := []string{"idx", "tp", "fp", "total_signal_days", "score"}
	for _, g := range groupNames {
		header = append(header, "w_"+g)
	}
	header = append(header, factorNames...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, c := range candidates {
		row := []string{
			strconv.Itoa(c.Index),
			strconv.Itoa(c.Outcome.TP),
			strconv.Itoa(c.Outcome.FP),
			strconv.Itoa(c.Outcome.TotalSignalDays),
			formatValue(c.Score, 2),
		}
		for i := range groupNames {
			row = append(row, formatValue(c.GroupWeights[i], 6))
		}
		for _, name := range factorNames {
			row = append(row, formatValue(c.Weights[name], 6))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// BestWeights is the best-candidate artifact.
type BestWeights struct {
	Score   float64            `json:"best_score"`
	Index   int                `json:"best_index"`
	TP      int                `json:"tp"`
	FP      int                `json:"fp"`
	Weights composite.Weights  `json:"best_weights"`
	Groups  map[string]float64 `json:"group_weights"`
}

// WriteBestJSON writes the best weight vector and its score.
func WriteBestJSON(path string, grid backtest.Grid, best backtest.CandidateResult) error {
	groups := make(map[string]float64, len(best.GroupWeights))
	for i, name := range grid.GroupNames() {
		groups[name] = best.GroupWeights[i]
	}

	payload := BestWeights{
		Score:   best.Score,
		Index:   best.Index,
		TP:      best.Outcome.TP,
		FP:      best.Outcome.FP,
		Weights: best.Weights,
		Groups:  groups,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

// create opens path for writing, making parent directories as needed.
func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.Create(path)
}

// formatValue renders a float with fixed decimals, empty for missing.
func formatValue(v float64, decimals int) string {
	if rolling.IsMissing(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(round(v, decimals), 'f', -1, 64)
}

// round rounds to the given number of decimal places.
func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
