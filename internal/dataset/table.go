package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

// Table is a row-per-date time series table. Dates are strictly
// increasing and unique; each column is a float64 series aligned to the
// date axis with NaN marking missing observations.
type Table struct {
	dates []time.Time
	cols  map[string][]float64
	order []string
}

// SchemaError reports an absent required column or date column in a
// source. It is distinct from scattered missing values, which are
// tolerated and propagated.
type SchemaError struct {
	Source string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s: required column %q is missing", e.Source, e.Column)
}

// New creates a table over the given dates. Dates are normalized to
// midnight UTC, sorted and deduplicated (first occurrence wins on the
// original order, values must be attached afterwards).
func New(dates []time.Time) *Table {
	norm := make([]time.Time, 0, len(dates))
	seen := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		nd := Normalize(d)
		if _, ok := seen[nd]; ok {
			continue
		}
		seen[nd] = struct{}{}
		norm = append(norm, nd)
	}
	sort.Slice(norm, func(i, j int) bool { return norm[i].Before(norm[j]) })

	return &Table{
		dates: norm,
		cols:  make(map[string][]float64),
	}
}

// Normalize truncates a date to midnight UTC, the canonical key of the
// date axis.
func Normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.dates)
}

// Dates returns the date axis. Callers must not modify it.
func (t *Table) Dates() []time.Time {
	return t.dates
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the named series, or a SchemaError if the column does
// not exist.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, &SchemaError{Source: "table", Column: name}
	}
	return col, nil
}

// ColumnOr returns the named series, or an all-missing series when the
// column does not exist. Used for optional factors that degrade to
// missing instead of failing the run.
func (t *Table) ColumnOr(name string) []float64 {
	if col, ok := t.cols[name]; ok {
		return col
	}
	out := make([]float64, t.Len())
	for i := range out {
		out[i] = rolling.Missing()
	}
	return out
}

// Set attaches a column. The series length must match the date axis.
func (t *Table) Set(name string, values []float64) error {
	if len(values) != len(t.dates) {
		return fmt.Errorf("column %s: length %d does not match %d rows", name, len(values), len(t.dates))
	}
	if _, exists := t.cols[name]; !exists {
		t.order = append(t.order, name)
	}
	t.cols[name] = values
	return nil
}

// At returns the value of a column at row i, missing if the column is
// absent.
func (t *Table) At(name string, i int) float64 {
	col, ok := t.cols[name]
	if !ok {
		return rolling.Missing()
	}
	return col[i]
}

// DateIndex returns the row index for a date, or -1.
func (t *Table) DateIndex(d time.Time) int {
	nd := Normalize(d)
	i := sort.Search(len(t.dates), func(i int) bool { return !t.dates[i].Before(nd) })
	if i < len(t.dates) && t.dates[i].Equal(nd) {
		return i
	}
	return -1
}

// ForwardFill replaces missing values in the named columns with the last
// preceding non-missing value. Leading gaps stay missing. Used for
// slowly-changing series (margin balances, search volume, valuation)
// after alignment.
func (t *Table) ForwardFill(names ...string) {
	if len(names) == 0 {
		names = t.order
	}
	for _, name := range names {
		col, ok := t.cols[name]
		if !ok {
			continue
		}
		last := rolling.Missing()
		for i, v := range col {
			if rolling.IsMissing(v) {
				col[i] = last
			} else {
				last = v
			}
		}
	}
}
