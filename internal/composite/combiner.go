package composite

import (
	"fmt"
	"math"

	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
)

// Risk levels assigned from the smoothed escape index. Thresholds are
// fixed: >=85 extreme, >=75 strong, >=60 watch, else safe.
const (
	LevelExtreme = "extreme-warning"
	LevelStrong  = "strong-warning"
	LevelWatch   = "watch"
	LevelSafe    = "relatively-safe"
	LevelNA      = "NA"
)

const (
	levelExtremeMin = 85
	levelStrongMin  = 75
	levelWatchMin   = 60
)

// logisticClip bounds the logistic exponent so extreme crowding scores
// cannot overflow the float64 exponential.
const logisticClip = 50.0

// Params holds the combiner tunables.
type Params struct {
	// LogisticK is the steepness of the 0-100 mapping.
	LogisticK float64 `yaml:"logistic_k" json:"logistic_k"`

	// LogisticX0 is the crowding score mapped to 50.
	LogisticX0 float64 `yaml:"logistic_x0" json:"logistic_x0"`

	// SmoothSpan is the EWMA span applied to the raw index.
	SmoothSpan int `yaml:"smooth_span" json:"smooth_span"`

	// SignalThreshold fires the binary signal when the smoothed index
	// reaches it. Range [0, 100].
	SignalThreshold float64 `yaml:"signal_threshold" json:"signal_threshold"`
}

// Weights maps factor name to a non-negative weight. Weights need not
// sum to one; the combiner renormalizes per row over the factors that
// are available on that row.
type Weights map[string]float64

// Result holds the composite columns, aligned to the input table's date
// axis.
type Result struct {
	CrowdingZ []float64 // weighted sum of available factor z-scores
	Raw       []float64 // logistic 0-100 mapping of CrowdingZ
	Smoothed  []float64 // EWMA of Raw
	Signal    []int     // 1 when Smoothed >= SignalThreshold
	Level     []string  // discrete risk label
}

// Validate rejects malformed combiner parameters.
func (p Params) Validate() error {
	if p.LogisticK <= 0 {
		return fmt.Errorf("logistic_k must be positive, got %g", p.LogisticK)
	}
	if p.SmoothSpan < 1 {
		return fmt.Errorf("smooth_span must be at least 1, got %d", p.SmoothSpan)
	}
	if p.SignalThreshold < 0 || p.SignalThreshold > 100 {
		return fmt.Errorf("signal_threshold must be in [0,100], got %g", p.SignalThreshold)
	}
	return nil
}

// Validate rejects negative weights and requires at least one positive
// weight.
func (w Weights) Validate() error {
	positive := false
	for name, v := range w {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %g", name, v)
		}
		if v > 0 {
			positive = true
		}
	}
	if !positive {
		return fmt.Errorf("weight vector has no positive weight")
	}
	return nil
}

// Combine aggregates the factor z-score columns of t into the crowding
// score, escape index, signal and level series. factorOrder fixes the
// iteration order over factors; it is part of the determinism contract.
//
// Pure function of its inputs: t is only read.
func Combine(t *dataset.Table, factorOrder []string, w Weights, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	n := t.Len()
	res := &Result{
		CrowdingZ: make([]float64, n),
		Raw:       make([]float64, n),
		Smoothed:  make([]float64, n),
		Signal:    make([]int, n),
		Level:     make([]string, n),
	}

	for i := 0; i < n; i++ {
		// Renormalize over the factors available on this row. Missing
		// factors contribute nothing; defaulting them to zero would
		// bias the composite toward neutral.
		wSum := 0.0
		acc := 0.0
		for _, name := range factorOrder {
			wf, ok := w[name]
			if !ok || wf == 0 {
				continue
			}
			z := t.At(name, i)
			if rolling.IsMissing(z) {
				continue
			}
			wSum += wf
			acc += wf * z
		}

		if wSum == 0 {
			res.CrowdingZ[i] = rolling.Missing()
			res.Raw[i] = rolling.Missing()
			continue
		}

		crowding := acc / wSum
		res.CrowdingZ[i] = crowding
		res.Raw[i] = logistic(crowding, p.LogisticK, p.LogisticX0)
	}

	res.Smoothed = rolling.EWMA(res.Raw, p.SmoothSpan)

	for i := 0; i < n; i++ {
		s := res.Smoothed[i]
		if rolling.IsMissing(s) {
			res.Signal[i] = 0
			res.Level[i] = LevelNA
			continue
		}
		if s >= p.SignalThreshold {
			res.Signal[i] = 1
		}
		res.Level[i] = levelOf(s)
	}

	return res, nil
}

// logistic maps a crowding score to (0, 100).
func logistic(x, k, x0 float64) float64 {
	e := (x - x0) * k
	if e > logisticClip {
		e = logisticClip
	} else if e < -logisticClip {
		e = -logisticClip
	}
	return 100.0 / (1.0 + math.Exp(-e))
}

// levelOf assigns the discrete risk label for a defined smoothed score.
func levelOf(s float64) string {
	switch {
	case s >= levelExtremeMin:
		return LevelExtreme
	case s >= levelStrongMin:
		return LevelStrong
	case s >= levelWatchMin:
		return LevelWatch
	default:
		return LevelSafe
	}
}
