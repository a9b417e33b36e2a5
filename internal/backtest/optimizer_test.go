package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/pkg/logger"
)

// twoFactorGrid puts all weight on either factor: candidate 0 is all
// "b_z", candidate 1 is all "a_z" (enumeration ascends the first dim).
func twoFactorGrid() Grid {
	return Grid{
		Step: 1.0,
		Groups: []Group{
			{Name: "a", Members: []Member{{Factor: "a_z", Share: 1.0}}},
			{Name: "b", Members: []Member{{Factor: "b_z", Share: 1.0}}},
		},
	}
}

var searchCombine = composite.Params{LogisticK: 1.2, LogisticX0: 0, SmoothSpan: 1, SignalThreshold: 75}

// searchTable builds ten days around a 2021-02-08 peak. Factor a spikes
// inside the hit window, factor b spikes before it.
func searchTable(t *testing.T) *dataset.Table {
	t.Helper()

	dates := make([]time.Time, 10)
	for i := range dates {
		dates[i] = day("2021-02-01").AddDate(0, 0, i)
	}
	tbl := dataset.New(dates)

	a := make([]float64, 10)
	b := make([]float64, 10)
	for i := range a {
		a[i], b[i] = -3, -3
	}
	a[4] = 3 // 2021-02-05, inside [02-03, 02-07]
	b[0] = 3 // 2021-02-01, outside every window

	if err := tbl.Set("a_z", a); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Set("b_z", b); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestSearchFindsHitFactor(t *testing.T) {
	tbl := searchTable(t)

	opt := NewOptimizer(logger.NewNop())
	res, err := opt.Search(context.Background(), tbl, SearchConfig{
		Grid:        twoFactorGrid(),
		Combine:     searchCombine,
		Peaks:       []time.Time{day("2021-02-08")},
		AdvanceDays: 5,
		Workers:     2,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}

	// All weight on b: one false alarm. All weight on a: one hit.
	if got := res.Candidates[0].Outcome; got.TP != 0 || got.FP != 1 {
		t.Errorf("candidate 0: expected (0,1), got (%d,%d)", got.TP, got.FP)
	}
	if got := res.Candidates[1].Outcome; got.TP != 1 || got.FP != 0 {
		t.Errorf("candidate 1: expected (1,0), got (%d,%d)", got.TP, got.FP)
	}

	if res.Best.Index != 1 {
		t.Errorf("expected best index 1, got %d", res.Best.Index)
	}
	if res.Best.Score != 100 {
		t.Errorf("expected score 100, got %g", res.Best.Score)
	}
	if res.Candidates[0].Score != -1 {
		t.Errorf("expected score -1 for the alarm-only candidate, got %g", res.Candidates[0].Score)
	}
}

func TestSearchTieBreaksOnEnumerationOrder(t *testing.T) {
	// Identical factors: every candidate scores the same, so the first
	// enumerated one must win no matter how workers interleave.
	dates := make([]time.Time, 10)
	for i := range dates {
		dates[i] = day("2021-02-01").AddDate(0, 0, i)
	}
	tbl := dataset.New(dates)
	s := make([]float64, 10)
	for i := range s {
		s[i] = -3
	}
	s[4] = 3
	sCopy := append([]float64(nil), s...)
	if err := tbl.Set("a_z", s); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Set("b_z", sCopy); err != nil {
		t.Fatal(err)
	}

	opt := NewOptimizer(logger.NewNop())
	for trial := 0; trial < 5; trial++ {
		res, err := opt.Search(context.Background(), tbl, SearchConfig{
			Grid:        twoFactorGrid(),
			Combine:     searchCombine,
			Peaks:       []time.Time{day("2021-02-08")},
			AdvanceDays: 5,
			Workers:     4,
		})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if res.Best.Index != 0 {
			t.Fatalf("trial %d: tie must go to the first candidate, got %d", trial, res.Best.Index)
		}
	}
}

func TestSearchCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := NewOptimizer(logger.NewNop())
	_, err := opt.Search(ctx, searchTable(t), SearchConfig{
		Grid:        twoFactorGrid(),
		Combine:     searchCombine,
		Peaks:       []time.Time{day("2021-02-08")},
		AdvanceDays: 5,
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestSearchEmptyGrid(t *testing.T) {
	grid := twoFactorGrid()
	grid.Step = 0.3

	opt := NewOptimizer(logger.NewNop())
	_, err := opt.Search(context.Background(), searchTable(t), SearchConfig{
		Grid:        grid,
		Combine:     searchCombine,
		Peaks:       []time.Time{day("2021-02-08")},
		AdvanceDays: 5,
	})
	if err == nil {
		t.Fatal("expected ErrEmptyGrid")
	}
}
