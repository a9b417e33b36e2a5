package dataset

import (
	"testing"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewSortsAndDedupes(t *testing.T) {
	tbl := New([]time.Time{day("2021-01-03"), day("2021-01-01"), day("2021-01-03"), day("2021-01-02")})

	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	dates := tbl.Dates()
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			t.Errorf("dates not strictly increasing at %d", i)
		}
	}
}

func TestColumnErrors(t *testing.T) {
	tbl := New([]time.Time{day("2021-01-01")})

	if _, err := tbl.Column("nope"); err == nil {
		t.Error("expected SchemaError for absent column")
	}

	col := tbl.ColumnOr("nope")
	if len(col) != 1 || !rolling.IsMissing(col[0]) {
		t.Error("ColumnOr should be all-missing for an absent column")
	}

	if err := tbl.Set("short", []float64{1, 2}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestForwardFill(t *testing.T) {
	nan := rolling.Missing()
	tbl := New([]time.Time{day("2021-01-01"), day("2021-01-02"), day("2021-01-03"), day("2021-01-04")})
	_ = tbl.Set("margin_total", []float64{nan, 100, nan, nan})
	_ = tbl.Set("hs300_close", []float64{1, nan, 3, nan})

	tbl.ForwardFill("margin_total")

	m, _ := tbl.Column("margin_total")
	if !rolling.IsMissing(m[0]) {
		t.Error("leading gap must stay missing")
	}
	if m[1] != 100 || m[2] != 100 || m[3] != 100 {
		t.Errorf("forward fill failed: %v", m)
	}

	// Untouched column keeps its gaps.
	c, _ := tbl.Column("hs300_close")
	if !rolling.IsMissing(c[1]) || !rolling.IsMissing(c[3]) {
		t.Error("fill must not touch unlisted columns")
	}
}

func TestMergeOuter(t *testing.T) {
	a := New([]time.Time{day("2021-01-01"), day("2021-01-02")})
	_ = a.Set("x", []float64{1, 2})
	b := New([]time.Time{day("2021-01-02"), day("2021-01-03")})
	_ = b.Set("y", []float64{20, 30})

	m := MergeOuter(a, b)

	if m.Len() != 3 {
		t.Fatalf("expected union of 3 dates, got %d", m.Len())
	}
	if m.At("x", 0) != 1 || m.At("x", 1) != 2 || !rolling.IsMissing(m.At("x", 2)) {
		t.Error("x misaligned after outer merge")
	}
	if !rolling.IsMissing(m.At("y", 0)) || m.At("y", 1) != 20 || m.At("y", 2) != 30 {
		t.Error("y misaligned after outer merge")
	}
}

func TestMergeLeft(t *testing.T) {
	left := New([]time.Time{day("2021-01-01"), day("2021-01-02")})
	_ = left.Set("x", []float64{1, 2})
	right := New([]time.Time{day("2021-01-02"), day("2021-01-05")})
	_ = right.Set("y", []float64{20, 50})

	m := MergeLeft(left, right)

	// Left axis wins: the 01-05 row is dropped.
	if m.Len() != 2 {
		t.Fatalf("expected left axis of 2 dates, got %d", m.Len())
	}
	if !rolling.IsMissing(m.At("y", 0)) || m.At("y", 1) != 20 {
		t.Errorf("y misaligned after left merge")
	}
}

func TestDateIndex(t *testing.T) {
	tbl := New([]time.Time{day("2021-01-01"), day("2021-01-04")})

	if got := tbl.DateIndex(day("2021-01-04")); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := tbl.DateIndex(day("2021-01-02")); got != -1 {
		t.Errorf("expected -1 for absent date, got %d", got)
	}
}
