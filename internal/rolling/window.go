package rolling

import (
	"math"
	"sort"
)

// Missing is the canonical missing-value marker for all series in this
// module. Absent observations are NaN, never zero.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Median returns a causal rolling median: the value at index i is the
// median of the non-missing values in s[max(0,i-window+1) .. i]. Windows
// with fewer than minPeriods non-missing observations yield missing.
func Median(s []float64, window, minPeriods int) []float64 {
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make([]float64, len(s))
	buf := make([]float64, 0, window)

	for i := range s {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		buf = buf[:0]
		for j := start; j <= i; j++ {
			if !IsMissing(s[j]) {
				buf = append(buf, s[j])
			}
		}

		if len(buf) < minPeriods {
			out[i] = Missing()
			continue
		}
		out[i] = median(buf)
	}

	return out
}

// Mean returns a causal rolling mean over non-missing values, requiring at
// least minPeriods observations per window.
func Mean(s []float64, window, minPeriods int) []float64 {
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make([]float64, len(s))
	for i := range s {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		sum := 0.0
		n := 0
		for j := start; j <= i; j++ {
			if !IsMissing(s[j]) {
				sum += s[j]
				n++
			}
		}

		if n < minPeriods {
			out[i] = Missing()
			continue
		}
		out[i] = sum / float64(n)
	}

	return out
}

// Compound returns the trailing compounded return over the window:
// prod(1+r) - 1 across the non-missing returns in each window, with at
// least minPeriods observations.
func Compound(s []float64, window, minPeriods int) []float64 {
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make([]float64, len(s))
	for i := range s {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		prod := 1.0
		n := 0
		for j := start; j <= i; j++ {
			if !IsMissing(s[j]) {
				prod *= 1 + s[j]
				n++
			}
		}

		if n < minPeriods {
			out[i] = Missing()
			continue
		}
		out[i] = prod - 1
	}

	return out
}

// Clip bounds every non-missing value of s to [lo, hi]. Missing values
// stay missing. Clipping an already-clipped series is a no-op.
func Clip(s []float64, lo, hi float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		switch {
		case IsMissing(v):
			out[i] = v
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// median computes the median of buf in place (buf is scratch space).
func median(buf []float64) float64 {
	sort.Float64s(buf)
	n := len(buf)
	if n%2 == 1 {
		return buf[n/2]
	}
	return (buf[n/2-1] + buf[n/2]) / 2
}
