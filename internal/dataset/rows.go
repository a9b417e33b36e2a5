package dataset

import (
	"sort"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

// row is one parsed CSV data row with its normalized date.
type row struct {
	date  time.Time
	cells []string
}

// sortedRows parses the date column of every data row, drops rows whose
// date cannot be parsed (ParseError semantics: coerce, do not fail), and
// returns the rows sorted ascending by date.
func sortedRows(raw *RawCSV, dateIdx int) []row {
	rows := make([]row, 0, len(raw.Rows))
	for _, cells := range raw.Rows {
		if dateIdx >= len(cells) {
			continue
		}
		d, err := ParseDate(cells[dateIdx])
		if err != nil {
			continue
		}
		rows = append(rows, row{date: d, cells: cells})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	return rows
}

// cell parses the numeric cell at idx, returning missing when the index
// is out of range or negative.
func cell(cells []string, idx int) float64 {
	if idx < 0 || idx >= len(cells) {
		return rolling.Missing()
	}
	return ParseNumber(cells[idx])
}
