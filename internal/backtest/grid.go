package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/quantlab/topescape/internal/composite"
)

// ErrEmptyGrid is returned when no group-weight combination sums to 1.0
// within tolerance for the chosen step.
var ErrEmptyGrid = errors.New("grid search: no weight combination sums to 1.0 for the chosen step")

// simplexTolerance is the floating tolerance for the sum-to-one
// constraint on group weights.
const simplexTolerance = 1e-9

// Member is one sub-factor of a grid group with its fixed share of the
// group weight.
type Member struct {
	Factor string  `yaml:"factor" json:"factor"`
	Share  float64 `yaml:"share" json:"share"`
}

// Group is one top-level grid dimension. Its weight is distributed
// across its members by the fixed shares.
type Group struct {
	Name    string   `yaml:"name" json:"name"`
	Members []Member `yaml:"members" json:"members"`
}

// Grid defines the coarse weight search space: a step size dividing
// [0,1] into candidate values per group, with group weights constrained
// to the unit simplex.
type Grid struct {
	Step   float64 `yaml:"step" json:"step"`
	Groups []Group `yaml:"groups" json:"groups"`
}

// Candidate is one enumerated point of the grid. Index is its position
// in the canonical enumeration order and is the tie-break key for best
// selection.
type Candidate struct {
	Index        int
	GroupWeights []float64
	Weights      composite.Weights
}

// Validate checks the grid definition: usable step, non-empty groups,
// and per-group shares that sum to 1.
func (g Grid) Validate() error {
	if g.Step <= 0 || g.Step > 1 {
		return fmt.Errorf("grid step must be in (0,1], got %g", g.Step)
	}
	if len(g.Groups) == 0 {
		return fmt.Errorf("grid has no groups")
	}
	for _, grp := range g.Groups {
		if len(grp.Members) == 0 {
			return fmt.Errorf("grid group %s has no members", grp.Name)
		}
		sum := 0.0
		for _, m := range grp.Members {
			if m.Share < 0 {
				return fmt.Errorf("grid group %s: negative share for %s", grp.Name, m.Factor)
			}
			sum += m.Share
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("grid group %s: member shares sum to %g, want 1.0", grp.Name, sum)
		}
	}
	return nil
}

// Enumerate lists every candidate whose group weights sum to 1.0 within
// tolerance. Enumeration order is part of the contract: nested loops
// over the groups in definition order, each dimension ascending from 0
// to 1 in steps of Step. The first enumerated optimum wins ties, so this
// order must be reproducible.
func (g Grid) Enumerate() ([]Candidate, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	steps := int(math.Round(1.0/g.Step)) + 1
	choices := make([]float64, steps)
	for i := range choices {
		choices[i] = float64(i) * g.Step
	}

	var candidates []Candidate
	weights := make([]float64, len(g.Groups))

	var walk func(dim int, sum float64)
	walk = func(dim int, sum float64) {
		if dim == len(g.Groups) {
			if math.Abs(sum-1.0) > simplexTolerance {
				return
			}
			candidates = append(candidates, g.candidate(len(candidates), weights))
			return
		}
		for _, c := range choices {
			if sum+c > 1.0+simplexTolerance {
				break
			}
			weights[dim] = c
			walk(dim+1, sum+c)
		}
	}
	walk(0, 0)

	if len(candidates) == 0 {
		return nil, ErrEmptyGrid
	}
	return candidates, nil
}

// candidate expands group weights into the full per-factor weight
// vector via the fixed intra-group shares.
func (g Grid) candidate(index int, groupWeights []float64) Candidate {
	gw := make([]float64, len(groupWeights))
	copy(gw, groupWeights)

	w := make(composite.Weights, 8)
	for i, grp := range g.Groups {
		for _, m := range grp.Members {
			w[m.Factor] = gw[i] * m.Share
		}
	}

	return Candidate{Index: index, GroupWeights: gw, Weights: w}
}

// FactorNames returns every sub-factor in group/member order.
func (g Grid) FactorNames() []string {
	var names []string
	for _, grp := range g.Groups {
		for _, m := range grp.Members {
			names = append(names, m.Factor)
		}
	}
	return names
}

// GroupNames returns the group names in definition order.
func (g Grid) GroupNames() []string {
	names := make([]string, len(g.Groups))
	for i, grp := range g.Groups {
		names[i] = grp.Name
	}
	return names
}

// DefaultGrid returns the five-group search space: liquidity (split
// 50/50 across value and rate turnover heat), search interest, margin
// leverage, price momentum (split 60/25/15) and amplitude.
func DefaultGrid(step float64) Grid {
	return Grid{
		Step: step,
		Groups: []Group{
			{Name: "liquidity", Members: []Member{
				{Factor: "turnover_heat_z", Share: 0.5},
				{Factor: "turnover_rate_heat_z", Share: 0.5},
			}},
			{Name: "search", Members: []Member{
				{Factor: "search_heat_z", Share: 1.0},
			}},
			{Name: "margin", Members: []Member{
				{Factor: "margin_heat_z", Share: 1.0},
			}},
			{Name: "price", Members: []Member{
				{Factor: "price_accel_z", Share: 0.60},
				{Factor: "ma_spread_z", Share: 0.25},
				{Factor: "up_ratio_z", Share: 0.15},
			}},
			{Name: "amplitude", Members: []Member{
				{Factor: "amplitude_heat_z", Share: 1.0},
			}},
		},
	}
}
