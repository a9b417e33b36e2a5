package composite

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
)

func zTable(t *testing.T, cols map[string][]float64, n int) *dataset.Table {
	t.Helper()
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	tbl := dataset.New(dates)
	for name, col := range cols {
		require.NoError(t, tbl.Set(name, col))
	}
	return tbl
}

var testParams = Params{LogisticK: 1.2, LogisticX0: 0, SmoothSpan: 1, SignalThreshold: 75}

func TestCombineBoundsAndMidpoint(t *testing.T) {
	tbl := zTable(t, map[string][]float64{
		"a_z": {0, 3, -3},
	}, 3)

	res, err := Combine(tbl, []string{"a_z"}, Weights{"a_z": 1}, testParams)
	require.NoError(t, err)

	// Crowding 0 maps exactly to 50.
	if math.Abs(res.Raw[0]-50) > 1e-9 {
		t.Errorf("expected 50 at zero crowding, got %g", res.Raw[0])
	}
	for i, v := range res.Raw {
		if v <= 0 || v >= 100 {
			t.Errorf("row %d: raw index out of (0,100): %g", i, v)
		}
	}
	if !(res.Raw[1] > res.Raw[0] && res.Raw[0] > res.Raw[2]) {
		t.Error("logistic mapping must be monotone in the crowding score")
	}
}

func TestCombineRenormalizesOverAvailable(t *testing.T) {
	nan := rolling.Missing()
	tbl := zTable(t, map[string][]float64{
		"a_z": {2, 2},
		"b_z": {2, nan},
	}, 2)

	res, err := Combine(tbl, []string{"a_z", "b_z"}, Weights{"a_z": 1, "b_z": 3}, testParams)
	require.NoError(t, err)

	// Both rows see only z=2 factors, so renormalization makes the
	// crowding score identical regardless of which factors are present.
	if math.Abs(res.CrowdingZ[0]-2) > 1e-12 || math.Abs(res.CrowdingZ[1]-2) > 1e-12 {
		t.Errorf("expected crowding 2 on both rows, got %g and %g", res.CrowdingZ[0], res.CrowdingZ[1])
	}
}

func TestCombineAllMissingRow(t *testing.T) {
	nan := rolling.Missing()
	tbl := zTable(t, map[string][]float64{
		"a_z": {nan, 1},
	}, 2)

	res, err := Combine(tbl, []string{"a_z"}, Weights{"a_z": 1}, testParams)
	require.NoError(t, err)

	if !rolling.IsMissing(res.CrowdingZ[0]) || !rolling.IsMissing(res.Raw[0]) {
		t.Error("row with no available factor must be missing, not neutral")
	}
	if !rolling.IsMissing(res.Smoothed[0]) {
		t.Error("smoothed must be missing on a missing raw row")
	}
	if res.Signal[0] != 0 || res.Level[0] != LevelNA {
		t.Errorf("missing row must emit signal 0 and level NA, got %d %q", res.Signal[0], res.Level[0])
	}

	// The gap does not poison the next defined row.
	if rolling.IsMissing(res.Smoothed[1]) {
		t.Error("smoothed must resume after the gap")
	}
}

func TestCombineSignalAndLevels(t *testing.T) {
	// With span 1 the smoothed index equals the raw index, so levels can
	// be driven directly through the crowding score.
	tbl := zTable(t, map[string][]float64{
		"a_z": {3, 1.2, 0.5, -3},
	}, 4)

	res, err := Combine(tbl, []string{"a_z"}, Weights{"a_z": 1}, testParams)
	require.NoError(t, err)

	// z=3, k=1.2: raw = 100/(1+e^-3.6) ~ 97.3 -> extreme, signal.
	if res.Level[0] != LevelExtreme || res.Signal[0] != 1 {
		t.Errorf("expected extreme+signal, got %q signal=%d", res.Level[0], res.Signal[0])
	}
	// z=1.2: raw ~ 80.8 -> strong warning, signal.
	if res.Level[1] != LevelStrong || res.Signal[1] != 1 {
		t.Errorf("expected strong+signal, got %q signal=%d", res.Level[1], res.Signal[1])
	}
	// z=0.5: raw ~ 64.6 -> watch, no signal.
	if res.Level[2] != LevelWatch || res.Signal[2] != 0 {
		t.Errorf("expected watch without signal, got %q signal=%d", res.Level[2], res.Signal[2])
	}
	// z=-3: raw ~ 2.7 -> safe.
	if res.Level[3] != LevelSafe || res.Signal[3] != 0 {
		t.Errorf("expected safe, got %q signal=%d", res.Level[3], res.Signal[3])
	}
}

func TestCombineSmoothing(t *testing.T) {
	tbl := zTable(t, map[string][]float64{
		"a_z": {3, -3, 3, -3, 3, -3},
	}, 6)

	p := testParams
	p.SmoothSpan = 10
	res, err := Combine(tbl, []string{"a_z"}, Weights{"a_z": 1}, p)
	require.NoError(t, err)

	// Smoothing must damp the oscillation of the raw series.
	rawSwing := math.Abs(res.Raw[5] - res.Raw[4])
	smoothSwing := math.Abs(res.Smoothed[5] - res.Smoothed[4])
	if smoothSwing >= rawSwing {
		t.Errorf("smoothed swing %g not damped vs raw %g", smoothSwing, rawSwing)
	}
}

func TestWeightsValidate(t *testing.T) {
	require.Error(t, Weights{"a_z": -1}.Validate())
	require.Error(t, Weights{"a_z": 0}.Validate())
	require.NoError(t, Weights{"a_z": 0, "b_z": 2}.Validate())
}

func TestParamsValidate(t *testing.T) {
	require.Error(t, Params{LogisticK: 0, SmoothSpan: 1, SignalThreshold: 75}.Validate())
	require.Error(t, Params{LogisticK: 1, SmoothSpan: 0, SignalThreshold: 75}.Validate())
	require.Error(t, Params{LogisticK: 1, SmoothSpan: 1, SignalThreshold: 101}.Validate())
	require.NoError(t, testParams.Validate())
}

func TestCombineExtremeCrowdingStaysFinite(t *testing.T) {
	// The logistic exponent is clipped, so even absurd scores yield a
	// finite value inside (0, 100).
	tbl := zTable(t, map[string][]float64{
		"a_z": {1000},
	}, 1)

	res, err := Combine(tbl, []string{"a_z"}, Weights{"a_z": 1}, testParams)
	require.NoError(t, err)
	if math.IsInf(res.Raw[0], 0) || math.IsNaN(res.Raw[0]) || res.Raw[0] > 100 {
		t.Errorf("expected finite raw index, got %g", res.Raw[0])
	}
}
