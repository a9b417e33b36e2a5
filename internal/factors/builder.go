package factors

import (
	"fmt"

	"github.com/quantlab/topescape/internal/dataset"
	"github.com/quantlab/topescape/internal/rolling"
	"github.com/quantlab/topescape/pkg/logger"
)

// Builder turns the aligned feature table into factor z-score columns
// according to its registry.
type Builder struct {
	registry Registry
	derive   DeriveParams
	logger   *logger.Logger
}

// NewBuilder creates a factor builder.
func NewBuilder(registry Registry, derive DeriveParams, log *logger.Logger) *Builder {
	return &Builder{
		registry: registry,
		derive:   derive,
		logger:   log,
	}
}

// Registry returns the builder's factor registry.
func (b *Builder) Registry() Registry {
	return b.registry
}

// Build derives the intermediate features and scores every factor in the
// registry, attaching one z-score column per factor to the table.
//
// A required factor whose source column is absent is a schema error and
// aborts the build. An optional factor degrades: its z column is
// all-missing and the combiner renormalizes around it.
func (b *Builder) Build(t *dataset.Table) error {
	if err := b.registry.Validate(); err != nil {
		return fmt.Errorf("factor registry: %w", err)
	}
	if err := Derive(t, b.derive); err != nil {
		return fmt.Errorf("derive features: %w", err)
	}

	for _, d := range b.registry {
		src, err := t.Column(d.Source)
		if err != nil {
			if !d.Optional {
				return &dataset.SchemaError{Source: d.Name, Column: d.Source}
			}
			b.logger.WithFields(map[string]interface{}{
				"factor": d.Name,
				"source": d.Source,
			}).Warn("Optional factor source missing, factor degrades to missing")
			src = t.ColumnOr(d.Source)
		}

		z := rolling.RobustZ(src, rolling.ZParams{
			Window:      d.Window,
			TrendWindow: d.TrendWindow,
			MinPeriods:  d.MinPeriods,
		})
		if err := t.Set(d.Name, z); err != nil {
			return fmt.Errorf("factor %s: %w", d.Name, err)
		}

		b.logger.WithFields(map[string]interface{}{
			"factor":  d.Name,
			"window":  d.Window,
			"defined": defined(z),
			"rows":    len(z),
		}).Debug("Built factor")
	}

	return nil
}

// defined counts non-missing values.
func defined(s []float64) int {
	n := 0
	for _, v := range s {
		if !rolling.IsMissing(v) {
			n++
		}
	}
	return n
}
