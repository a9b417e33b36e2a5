package rolling

// madConsistency makes the median absolute deviation a consistent
// estimator of the standard deviation under normality.
const madConsistency = 1.4826

// ZClip is the bound applied to robust z-scores.
const ZClip = 3.0

// ZParams parameterizes a robust rolling z-score.
type ZParams struct {
	// Window is the lookback for the rolling median and MAD.
	Window int

	// TrendWindow, when positive, is the lookback for a long rolling
	// median that is subtracted from the raw series before scoring
	// (detrending). Zero disables detrending.
	TrendWindow int

	// MinPeriods is the minimum number of non-missing observations a
	// window needs before it produces a value. Zero means the default
	// max(3, Window/2).
	MinPeriods int
}

// minPeriodsOrDefault resolves the effective min_periods.
func (p ZParams) minPeriodsOrDefault() int {
	if p.MinPeriods > 0 {
		return p.MinPeriods
	}
	mp := p.Window / 2
	if mp < 3 {
		mp = 3
	}
	return mp
}

// RobustZ converts a raw series into a causal, outlier-resistant z-score:
// deviation from a rolling median scaled by 1.4826 times the rolling
// median absolute deviation. Every stage only looks backward, so the
// value at index i depends on s[0..i] alone.
//
// Missing inputs stay missing, and a flat window (zero MAD) yields
// missing rather than an infinite score. The result is clipped to
// [-ZClip, ZClip].
func RobustZ(s []float64, p ZParams) []float64 {
	minPeriods := p.minPeriodsOrDefault()

	// Detrend against the long rolling median when requested.
	resid := s
	if p.TrendWindow > 0 {
		trend := Median(s, p.TrendWindow, 1)
		resid = make([]float64, len(s))
		for i := range s {
			if IsMissing(s[i]) || IsMissing(trend[i]) {
				resid[i] = Missing()
				continue
			}
			resid[i] = s[i] - trend[i]
		}
	}

	center := Median(resid, p.Window, minPeriods)

	absDev := make([]float64, len(s))
	for i := range resid {
		if IsMissing(resid[i]) || IsMissing(center[i]) {
			absDev[i] = Missing()
			continue
		}
		d := resid[i] - center[i]
		if d < 0 {
			d = -d
		}
		absDev[i] = d
	}

	mad := Median(absDev, p.Window, minPeriods)

	z := make([]float64, len(s))
	for i := range s {
		if IsMissing(resid[i]) || IsMissing(center[i]) || IsMissing(mad[i]) {
			z[i] = Missing()
			continue
		}

		scale := mad[i] * madConsistency
		if scale == 0 {
			// Degenerate scale: flat window, score undefined.
			z[i] = Missing()
			continue
		}
		z[i] = (resid[i] - center[i]) / scale
	}

	return Clip(z, -ZClip, ZClip)
}
