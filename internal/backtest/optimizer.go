package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/pkg/logger"
)

// Scoring constants: missing a known top is penalized far more than one
// noisy extra alert.
const (
	tpReward  = 100.0
	fpPenalty = 1.0
)

// SearchConfig drives one grid search run.
type SearchConfig struct {
	Grid        Grid
	Combine     composite.Params
	Peaks       []time.Time
	AdvanceDays int

	// Workers caps the worker pool; zero means GOMAXPROCS. Candidates
	// are independent, so the search parallelizes freely; the best
	// reduction stays deterministic because results are keyed by
	// candidate index.
	Workers int
}

// CandidateResult is the scored outcome of one weight combination.
type CandidateResult struct {
	Index        int
	GroupWeights []float64
	Weights      composite.Weights
	Outcome      Outcome
	Score        float64
}

// SearchResult is the full grid log plus the best candidate.
type SearchResult struct {
	Best       CandidateResult
	Candidates []CandidateResult
	Elapsed    time.Duration
}

// Optimizer enumerates the weight grid and scores each candidate by
// running the combiner and the evaluator over the prepared feature
// table.
type Optimizer struct {
	logger *logger.Logger
}

// NewOptimizer creates a grid search optimizer.
func NewOptimizer(log *logger.Logger) *Optimizer {
	return &Optimizer{logger: log}
}

// Search runs the full grid. The feature table must already carry every
// factor z-score the grid references. The best candidate is selected by
// strict improvement (score > best), so the earliest-enumerated
// candidate wins ties regardless of worker scheduling.
func (o *Optimizer) Search(ctx context.Context, t *dataset.Table, cfg SearchConfig) (*SearchResult, error) {
	candidates, err := cfg.Grid.Enumerate()
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	o.logger.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"step":       cfg.Grid.Step,
		"workers":    workers,
		"peaks":      len(cfg.Peaks),
		"advance":    cfg.AdvanceDays,
	}).Info("Starting grid search")

	start := time.Now()
	factorOrder := cfg.Grid.FactorNames()

	// Each worker writes only results[c.Index], so the slice needs no
	// lock and the final scan is index-ordered by construction.
	results := make([]CandidateResult, len(candidates))
	jobs := make(chan Candidate)

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				res, err := o.score(t, c, cfg, factorOrder)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				results[c.Index] = res
			}
		}()
	}

feed:
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- c:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, fmt.Errorf("grid search: %w", firstErr)
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}

	elapsed := time.Since(start)
	o.logger.WithFields(map[string]interface{}{
		"best_index": best.Index,
		"best_score": best.Score,
		"tp":         best.Outcome.TP,
		"fp":         best.Outcome.FP,
		"elapsed":    elapsed,
	}).Info("Grid search completed")

	return &SearchResult{Best: best, Candidates: results, Elapsed: elapsed}, nil
}

// score combines with the candidate's weights and evaluates the signal
// series against the peaks.
func (o *Optimizer) score(t *dataset.Table, c Candidate, cfg SearchConfig, factorOrder []string) (CandidateResult, error) {
	combined, err := composite.Combine(t, factorOrder, c.Weights, cfg.Combine)
	if err != nil {
		return CandidateResult{}, fmt.Errorf("candidate %d: %w", c.Index, err)
	}

	outcome := Evaluate(t.Dates(), combined.Signal, cfg.Peaks, cfg.AdvanceDays)

	return CandidateResult{
		Index:        c.Index,
		GroupWeights: c.GroupWeights,
		Weights:      c.Weights,
		Outcome:      outcome,
		Score:        float64(outcome.TP)*tpReward - float64(outcome.FP)*fpPenalty,
	}, nil
}
