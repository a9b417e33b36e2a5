package rolling

// EWMA smooths a series with an exponentially weighted moving average of
// the given span: alpha = 2/(span+1), recursive form, seeded by the first
// non-missing value. Missing inputs emit missing and leave the smoothing
// state untouched, so a gap does not reset the average.
func EWMA(s []float64, span int) []float64 {
	out := make([]float64, len(s))
	if span < 1 {
		span = 1
	}
	alpha := 2.0 / (float64(span) + 1.0)

	state := Missing()
	for i, v := range s {
		if IsMissing(v) {
			out[i] = Missing()
			continue
		}

		if IsMissing(state) {
			state = v
		} else {
			state = alpha*v + (1-alpha)*state
		}
		out[i] = state
	}

	return out
}
