package backtest

import (
	"time"

	"github.com/quantlab/topescape/internal/dataset"
)

// Outcome is the retrospective score of one signal series against the
// known peak set.
type Outcome struct {
	TP              int `json:"tp"`
	FP              int `json:"fp"`
	TotalSignalDays int `json:"total_signal_days"`
}

// Evaluate scores a per-date signal series against known historical
// peaks. For each peak p the hit window is the calendar-day range
// [p-advanceDays, p-1]; the peak is a true positive when at least one
// signal date falls inside, and counts at most once no matter how many
// signals land there. Signal dates inside any peak's window are marked
// used; the false-positive count is the number of distinct signal dates
// used by no window. Overlapping windows may share signal dates.
func Evaluate(dates []time.Time, signal []int, peaks []time.Time, advanceDays int) Outcome {
	signalDates := make([]time.Time, 0)
	for i, s := range signal {
		if i < len(dates) && s != 0 {
			signalDates = append(signalDates, dataset.Normalize(dates[i]))
		}
	}

	used := make(map[time.Time]bool, len(signalDates))
	tp := 0
	for _, p := range peaks {
		start := dataset.Normalize(p).AddDate(0, 0, -advanceDays)
		end := dataset.Normalize(p).AddDate(0, 0, -1)

		hit := false
		for _, d := range signalDates {
			if d.Before(start) || d.After(end) {
				continue
			}
			hit = true
			used[d] = true
		}
		if hit {
			tp++
		}
	}

	fp := 0
	for _, d := range signalDates {
		if !used[d] {
			fp++
		}
	}

	return Outcome{TP: tp, FP: fp, TotalSignalDays: len(signalDates)}
}
