package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/quantlab/topescape/internal/indexconfig"
	"github.com/quantlab/topescape/internal/pipeline"
	"github.com/quantlab/topescape/internal/provider"
	"github.com/quantlab/topescape/internal/store"
	"github.com/quantlab/topescape/pkg/logger"
)

// historyStart bounds the fetched history. The composite needs a year
// of warm-up ahead of anything it scores, so fetch from well before.
var historyStart = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// RefreshJob refetches the source CSVs, recomputes the index and, when
// a repository is configured, persists the run.
type RefreshJob struct {
	provider *provider.Provider
	service  *pipeline.Service
	cfg      *indexconfig.Config
	repo     *store.Repository
	logger   *logger.Logger
}

// NewRefreshJob creates a new refresh job. repo may be nil.
func NewRefreshJob(
	prov *provider.Provider,
	svc *pipeline.Service,
	cfg *indexconfig.Config,
	repo *store.Repository,
	log *logger.Logger,
) *RefreshJob {
	return &RefreshJob{
		provider: prov,
		service:  svc,
		cfg:      cfg,
		repo:     repo,
		logger:   log,
	}
}

// Name returns the job name.
func (j *RefreshJob) Name() string {
	return "index_refresh"
}

// Schedule runs after the mainland close, 17:00 CST daily.
func (j *RefreshJob) Schedule() string {
	return "0 0 17 * * 1-5"
}

// Run fetches sources, recomputes and persists.
func (j *RefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled index refresh")

	now := time.Now()

	indices := []struct {
		secID string
		path  string
	}{
		{provider.SecIDHS300, j.cfg.Data.HS300},
		{provider.SecIDCSIAll, j.cfg.Data.CSIAll},
		{provider.SecIDShanghai, j.cfg.Data.Shanghai},
	}
	for _, idx := range indices {
		if idx.path == "" {
			continue
		}
		bars, err := j.provider.FetchIndexDaily(ctx, idx.secID, historyStart, now)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", idx.secID, err)
		}
		if err := provider.WriteIndexCSV(idx.path, bars); err != nil {
			return fmt.Errorf("write %s: %w", idx.path, err)
		}
	}

	if j.cfg.Data.Margin != "" {
		rows, err := j.provider.FetchMarginDaily(ctx, historyStart, now)
		if err != nil {
			// Margin is an optional source; the dependent factor
			// degrades to missing.
			j.logger.WithError(err).Warn("Margin fetch failed, keeping previous file")
		} else if err := provider.WriteMarginCSV(j.cfg.Data.Margin, rows); err != nil {
			return fmt.Errorf("write %s: %w", j.cfg.Data.Margin, err)
		}
	}

	if err := j.service.Refresh(); err != nil {
		return fmt.Errorf("recompute index: %w", err)
	}

	if j.repo != nil {
		if err := j.persist(ctx); err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
	}

	j.logger.Info("Index refresh completed")
	return nil
}

// persist writes the fresh snapshot to the database.
func (j *RefreshJob) persist(ctx context.Context) error {
	snap, ok := j.service.Snapshot()
	if !ok {
		return fmt.Errorf("no snapshot after refresh")
	}

	hash, err := indexconfig.Hash(j.cfg)
	if err != nil {
		return err
	}

	runID, err := j.repo.CreateRun(ctx, j.cfg.Meta.ProfileID, hash)
	if err != nil {
		return err
	}
	return j.repo.SaveIndicatorRows(ctx, runID, snap.Table, snap.Result)
}
