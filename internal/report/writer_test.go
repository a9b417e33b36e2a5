package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlab/topescape/internal/backtest"
	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
)

func TestWriteIndicatorCSV(t *testing.T) {
	nan := rolling.Missing()
	dates := []time.Time{
		time.Date(2021, 2, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 2, 18, 0, 0, 0, 0, time.UTC),
	}
	tbl := dataset.New(dates)
	require.NoError(t, tbl.Set("hs300_close", []float64{5700, nan}))
	require.NoError(t, tbl.Set("my_factor_z", []float64{1.5, 2.5}))

	res := &composite.Result{
		CrowdingZ: []float64{1.5, nan},
		Raw:       []float64{85.8333, nan},
		Smoothed:  []float64{85.83, nan},
		Signal:    []int{1, 0},
		Level:     []string{composite.LevelExtreme, composite.LevelNA},
	}

	path := filepath.Join(t.TempDir(), "nested", "escape_index.csv")
	require.NoError(t, WriteIndicatorCSV(path, tbl, []string{"my_factor_z"}, res))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	require.Equal(t, "date", header[0])
	require.Contains(t, header, "hs300_close")
	require.Contains(t, header, "my_factor_z")
	require.Equal(t, "escape_level", header[len(header)-1])

	// Missing values serialize as empty cells, not zeros.
	last := rows[2]
	require.Equal(t, "2021-02-18", last[0])
	require.Equal(t, "", last[1]) // hs300_close
	require.Equal(t, "NA", last[len(last)-1])

	// Raw index is rounded to 3 decimals, smoothed to 2.
	first := rows[1]
	require.Equal(t, "85.833", first[len(first)-4])
	require.Equal(t, "85.83", first[len(first)-3])
	require.Equal(t, "1", first[len(first)-2])
}

func TestWriteGridCSVAndBestJSON(t *testing.T) {
	grid := backtest.DefaultGrid(0.5)
	candidates, err := grid.Enumerate()
	require.NoError(t, err)

	results := make([]backtest.CandidateResult, len(candidates))
	for i, c := range candidates {
		results[i] = backtest.CandidateResult{
			Index:        c.Index,
			GroupWeights: c.GroupWeights,
			Weights:      c.Weights,
			Outcome:      backtest.Outcome{TP: 1, FP: i},
			Score:        100 - float64(i),
		}
	}

	dir := t.TempDir()
	gridPath := filepath.Join(dir, "grid_results.csv")
	require.NoError(t, WriteGridCSV(gridPath, grid, results))

	f, err := os.Open(gridPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(results)+1)
	// idx, tp, fp, total, score + 5 group weights + 8 factor weights.
	require.Len(t, rows[0], 18)

	bestPath := filepath.Join(dir, "best_weights.json")
	require.NoError(t, WriteBestJSON(bestPath, grid, results[0]))

	data, err := os.ReadFile(bestPath)
	require.NoError(t, err)

	var best BestWeights
	require.NoError(t, json.Unmarshal(data, &best))
	require.Equal(t, 100.0, best.Score)
	require.Equal(t, 1, best.TP)
	require.Len(t, best.Groups, 5)
}
