package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/topescape/internal/backtest"
	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
)

// Repository persists indicator runs, daily index rows and grid search
// results.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Run identifies one pipeline execution, tagged with the profile hash
// that produced it for reproducibility.
type Run struct {
	ID          int64
	ProfileID   string
	ProfileHash string
	CreatedAt   time.Time
}

// CreateRun inserts a run record and returns its id.
func (r *Repository) CreateRun(ctx context.Context, profileID, profileHash string) (int64, error) {
	query := `
		INSERT INTO escape.runs (profile_id, profile_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, profileID, profileHash).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// SaveIndicatorRows upserts the per-date composite rows of a run.
// Missing values are stored as NULL, never as zero.
func (r *Repository) SaveIndicatorRows(ctx context.Context, runID int64, t *dataset.Table, res *composite.Result) error {
	query := `
		INSERT INTO escape.index_daily (
			run_id, date, crowding_z, index_raw, index_smoothed, signal, level
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, date) DO UPDATE SET
			crowding_z = EXCLUDED.crowding_z,
			index_raw = EXCLUDED.index_raw,
			index_smoothed = EXCLUDED.index_smoothed,
			signal = EXCLUDED.signal,
			level = EXCLUDED.level
	`

	batch := &pgx.Batch{}
	dates := t.Dates()
	for i := range dates {
		batch.Queue(query,
			runID, dates[i],
			nullable(res.CrowdingZ[i]),
			nullable(res.Raw[i]),
			nullable(res.Smoothed[i]),
			res.Signal[i],
			res.Level[i],
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range dates {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save indicator row: %w", err)
		}
	}
	return nil
}

// SaveGridResults inserts the full candidate log of a grid search.
func (r *Repository) SaveGridResults(ctx context.Context, runID int64, candidates []backtest.CandidateResult) error {
	query := `
		INSERT INTO escape.grid_results (
			run_id, candidate_idx, tp, fp, total_signal_days, score, weights
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, c := range candidates {
		weightsJSON, err := json.Marshal(c.Weights)
		if err != nil {
			return fmt.Errorf("failed to marshal weights: %w", err)
		}
		batch.Queue(query,
			runID, c.Index,
			c.Outcome.TP, c.Outcome.FP, c.Outcome.TotalSignalDays,
			c.Score, weightsJSON,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range candidates {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save grid result: %w", err)
		}
	}
	return nil
}

// SaveBestWeights upserts the winning weight vector of a run.
func (r *Repository) SaveBestWeights(ctx context.Context, runID int64, best backtest.CandidateResult) error {
	weightsJSON, err := json.Marshal(best.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	query := `
		INSERT INTO escape.best_weights (run_id, candidate_idx, score, tp, fp, weights)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			candidate_idx = EXCLUDED.candidate_idx,
			score = EXCLUDED.score,
			tp = EXCLUDED.tp,
			fp = EXCLUDED.fp,
			weights = EXCLUDED.weights
	`

	if _, err := r.pool.Exec(ctx, query,
		runID, best.Index, best.Score, best.Outcome.TP, best.Outcome.FP, weightsJSON,
	); err != nil {
		return fmt.Errorf("failed to save best weights: %w", err)
	}
	return nil
}

// nullable converts the missing marker to a SQL NULL.
func nullable(v float64) interface{} {
	if rolling.IsMissing(v) {
		return nil
	}
	return v
}
