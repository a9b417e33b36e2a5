package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlab/topescape/internal/indexconfig"
	"github.com/quantlab/topescape/internal/rolling"
	"github.com/quantlab/topescape/pkg/logger"
)

// writeIndexCSV generates a synthetic index history long enough for the
// 60-day factor windows to warm up, with enough variation that the MAD
// never degenerates to zero.
func writeIndexCSV(t *testing.T, dir, name string, rows int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("日期,收盘,成交额,振幅,换手率\n")
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		closePx := 3000.0 + float64(i)*0.5 + float64(i%7)*4.0
		amt := 2.0e11 * (1.0 + 0.02*float64(i%5))
		ampl := 1.0 + 0.1*float64(i%4)
		rate := 50.0 + float64(i%9) // percent scale on purpose
		fmt.Fprintf(&b, "%s,%.2f,%.0f,%.2f,%.2f\n", date, closePx, amt, ampl, rate)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testProfile(t *testing.T, rows int) *indexconfig.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := indexconfig.Default()
	cfg.Data.HS300 = writeIndexCSV(t, dir, "hs300.csv", rows)
	cfg.Data.CSIAll = writeIndexCSV(t, dir, "csiall.csv", rows)
	cfg.Data.Shanghai = ""
	cfg.Data.Margin = filepath.Join(dir, "does-not-exist.csv") // degrades
	cfg.Data.Search = ""
	cfg.Data.PE = ""
	cfg.Data.OutputDir = dir
	return cfg
}

func TestPipelineRun(t *testing.T) {
	const rows = 150
	cfg := testProfile(t, rows)

	pipe := New(cfg, logger.NewNop())
	tbl, res, err := pipe.Run()
	require.NoError(t, err)

	require.Equal(t, rows, tbl.Len())
	require.Len(t, res.Smoothed, rows)
	require.Len(t, res.Signal, rows)
	require.Len(t, res.Level, rows)

	// Factor columns exist, including the degraded optional ones.
	for _, name := range cfg.Factors.Names() {
		require.True(t, tbl.Has(name), "missing factor column %s", name)
	}

	// Degraded margin factor is all-missing.
	mz, err := tbl.Column("margin_heat_z")
	require.NoError(t, err)
	for i, v := range mz {
		if !rolling.IsMissing(v) {
			t.Fatalf("row %d: margin factor should be missing without its source, got %g", i, v)
		}
	}

	// The warm-up region is emitted, not trimmed, and is missing.
	require.True(t, rolling.IsMissing(res.Smoothed[0]), "first row must be warm-up missing")

	// The back half of the series must be defined and bounded.
	defined := 0
	for i := rows / 2; i < rows; i++ {
		s := res.Smoothed[i]
		if rolling.IsMissing(s) {
			continue
		}
		defined++
		if s < 0 || s > 100 {
			t.Fatalf("row %d: smoothed index out of range: %g", i, s)
		}
		if res.Level[i] == "" {
			t.Fatalf("row %d: level not assigned", i)
		}
	}
	if defined == 0 {
		t.Fatal("expected defined index values after warm-up")
	}

	// Percent turnover rate was normalized to a fraction.
	rate, err := tbl.Column("hs300_turnover_rate")
	require.NoError(t, err)
	for i, v := range rate {
		if rolling.IsMissing(v) {
			continue
		}
		if v > 1.0 {
			t.Fatalf("row %d: turnover rate not normalized: %g", i, v)
		}
	}
}

func TestServiceRefreshAndSnapshot(t *testing.T) {
	cfg := testProfile(t, 120)
	svc := NewService(New(cfg, logger.NewNop()))

	if _, ok := svc.Snapshot(); ok {
		t.Fatal("expected no snapshot before first refresh")
	}

	require.NoError(t, svc.Refresh())

	snap, ok := svc.Snapshot()
	require.True(t, ok)
	require.Equal(t, 120, snap.Table.Len())
	require.False(t, snap.ComputedAt.IsZero())
}
