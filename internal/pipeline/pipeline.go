package pipeline

import (
	"fmt"

	"github.com/quantlab/topescape/internal/composite"
	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/factors"
	"github.com/quantlab/topescape/internal/indexconfig"
	"github.com/quantlab/topescape/pkg/logger"
)

// Pipeline wires the aligner, factor builder and combiner for one
// profile: load sources -> align -> derive -> score -> combine.
type Pipeline struct {
	cfg    *indexconfig.Config
	logger *logger.Logger
}

// New creates a pipeline for the given profile.
func New(cfg *indexconfig.Config, log *logger.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: log}
}

// LoadTable loads and aligns every configured source onto one canonical
// date axis. The two index histories are required and merged outer; the
// remaining sources are optional, merged left, and a load failure only
// logs a warning — the dependent factors degrade to missing.
func (p *Pipeline) LoadTable() (*dataset.Table, error) {
	hs300, err := dataset.LoadIndex(p.cfg.Data.HS300, "hs300", "hs300", dataset.IndexOptions{
		TurnoverLog:  true,
		TurnoverRate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load hs300: %w", err)
	}

	csiall, err := dataset.LoadIndex(p.cfg.Data.CSIAll, "csiall", "csi", dataset.IndexOptions{
		TurnoverAmt: true,
		TurnoverLog: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load csiall: %w", err)
	}

	merged := dataset.MergeOuter(hs300, csiall)

	type optional struct {
		name string
		path string
		load func(string) (*dataset.Table, error)
	}
	optionals := []optional{
		{"shanghai", p.cfg.Data.Shanghai, func(path string) (*dataset.Table, error) {
			return dataset.LoadIndex(path, "shanghai", "shanghai", dataset.IndexOptions{})
		}},
		{"margin", p.cfg.Data.Margin, dataset.LoadMargin},
		{"search", p.cfg.Data.Search, dataset.LoadSearch},
		{"pe", p.cfg.Data.PE, dataset.LoadPE},
	}

	for _, opt := range optionals {
		if opt.path == "" {
			continue
		}
		t, err := opt.load(opt.path)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"source": opt.name,
				"path":   opt.path,
				"error":  err.Error(),
			}).Warn("Optional source failed to load, its factors degrade to missing")
			continue
		}
		merged = dataset.MergeLeft(merged, t)
	}

	merged.ForwardFill(p.cfg.Data.ForwardFill...)

	p.logger.WithFields(map[string]interface{}{
		"rows":    merged.Len(),
		"columns": len(merged.Columns()),
	}).Info("Loaded and aligned sources")

	return merged, nil
}

// BuildFeatures derives the intermediate series and attaches every
// factor z-score column.
func (p *Pipeline) BuildFeatures(t *dataset.Table) error {
	builder := factors.NewBuilder(p.cfg.Factors, p.cfg.Derive, p.logger)
	return builder.Build(t)
}

// Combine runs the combiner with the given weights over a prepared
// feature table.
func (p *Pipeline) Combine(t *dataset.Table, w composite.Weights) (*composite.Result, error) {
	return composite.Combine(t, p.cfg.Factors.Names(), w, p.cfg.Combine)
}

// Run executes the full pipeline with the profile's default weights.
func (p *Pipeline) Run() (*dataset.Table, *composite.Result, error) {
	t, err := p.LoadTable()
	if err != nil {
		return nil, nil, err
	}
	if err := p.BuildFeatures(t); err != nil {
		return nil, nil, err
	}
	res, err := p.Combine(t, p.cfg.Weights)
	if err != nil {
		return nil, nil, err
	}
	return t, res, nil
}
