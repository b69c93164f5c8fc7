// Package optimizer searches a bounded grid of plan variants, drives
// the Monte Carlo pipeline for each one under common random numbers and
// ranks the outcomes.
package optimizer

import (
	"math"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/montecarlo"
)

// GridConfig bounds the candidate grid.
type GridConfig struct {
	// SplitSteps is the number of intervals for the cash/equity
	// contribution split, producing SplitSteps+1 fractions. Default 4.
	SplitSteps int `yaml:"split_steps" json:"split_steps"`

	// Payout axis (maximize-payout objective).
	PayoutMin     float64 `yaml:"payout_min" json:"payout_min"`
	PayoutMax     float64 `yaml:"payout_max" json:"payout_max"`
	PayoutStep    float64 `yaml:"payout_step" json:"payout_step"`
	PercentPayout bool    `yaml:"percent_payout" json:"percent_payout"`

	// Budget axis (minimize-budget objective).
	BudgetMin  float64 `yaml:"budget_min" json:"budget_min"`
	BudgetMax  float64 `yaml:"budget_max" json:"budget_max"`
	BudgetStep float64 `yaml:"budget_step" json:"budget_step"`

	// MaxCandidates caps the grid size. Default 200.
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`
}

// WithDefaults fills unset bounds.
func (g GridConfig) WithDefaults() GridConfig {
	if g.SplitSteps <= 0 {
		g.SplitSteps = 4
	}
	if g.MaxCandidates <= 0 {
		g.MaxCandidates = 200
	}
	return g
}

func (g GridConfig) splits() []float64 {
	out := make([]float64, 0, g.SplitSteps+1)
	for i := 0; i <= g.SplitSteps; i++ {
		out = append(out, float64(i)/float64(g.SplitSteps))
	}
	return out
}

// Candidate is one grid point: a parameter variant plus its evaluation.
// Candidates are independent of each other; only the seed derivation
// rule is shared.
type Candidate struct {
	Index  int
	Params engine.Parameters

	Result       *montecarlo.AggregateResult
	Score        float64
	Disqualified bool
}

// Objective is the closed optimization strategy: it spans the grid and
// turns an aggregate summary into a comparable score.
type Objective interface {
	Name() string
	Generate(base engine.Parameters, grid GridConfig) []Candidate
	Score(c *Candidate, s *montecarlo.Summary, cfg ScoreConfig) float64
}

// MaximizePayout searches for the highest sustainable payout under a
// fixed total monthly contribution budget.
type MaximizePayout struct {
	// Budget is the total monthly contribution split across cash and
	// equity. Zero keeps the base parameters' combined contribution.
	Budget float64
}

// Name implements Objective.
func (MaximizePayout) Name() string { return "maximize-payout" }

// Generate spans the split x payout grid, capped at MaxCandidates.
func (o MaximizePayout) Generate(base engine.Parameters, grid GridConfig) []Candidate {
	grid = grid.WithDefaults()
	budget := o.Budget
	if budget <= 0 {
		budget = base.MonthlyCashContribution + base.MonthlyEquityContribution
	}

	step := grid.PayoutStep
	if step <= 0 {
		step = math.Max(grid.PayoutMax-grid.PayoutMin, 1)
	}

	var cands []Candidate
	for _, frac := range grid.splits() {
		for v := grid.PayoutMin; v <= grid.PayoutMax+1e-9; v += step {
			if len(cands) >= grid.MaxCandidates {
				return cands
			}
			payout := engine.FixedPayout(v)
			if grid.PercentPayout {
				payout = engine.PercentPayout(v)
			}
			cands = append(cands, Candidate{
				Index: len(cands),
				Params: base.With(
					engine.WithContributions(budget*frac, budget*(1-frac)),
					engine.WithPayout(payout),
				),
			})
		}
	}
	return cands
}

// Score implements Objective: the objective term is the payout value.
func (o MaximizePayout) Score(c *Candidate, s *montecarlo.Summary, cfg ScoreConfig) float64 {
	payout := c.Params.Payout.MonthlyAt(s.MedianWealthAtRetirement)
	return scoreCommon(payout, c, s, cfg)
}

// MinimizeBudget searches for the smallest total monthly contribution
// that still sustains a fixed payout target.
type MinimizeBudget struct {
	// TargetPayout is applied to every candidate.
	TargetPayout engine.Payout
}

// Name implements Objective.
func (MinimizeBudget) Name() string { return "minimize-budget" }

// Generate spans the split x budget grid, capped at MaxCandidates.
func (o MinimizeBudget) Generate(base engine.Parameters, grid GridConfig) []Candidate {
	grid = grid.WithDefaults()
	step := grid.BudgetStep
	if step <= 0 {
		step = math.Max(grid.BudgetMax-grid.BudgetMin, 1)
	}

	var cands []Candidate
	for _, frac := range grid.splits() {
		for b := grid.BudgetMin; b <= grid.BudgetMax+1e-9; b += step {
			if len(cands) >= grid.MaxCandidates {
				return cands
			}
			cands = append(cands, Candidate{
				Index: len(cands),
				Params: base.With(
					engine.WithContributions(b*frac, b*(1-frac)),
					engine.WithPayout(o.TargetPayout),
				),
			})
		}
	}
	return cands
}

// Score implements Objective: the objective term is the negated budget,
// so cheaper plans score higher.
func (o MinimizeBudget) Score(c *Candidate, s *montecarlo.Summary, cfg ScoreConfig) float64 {
	budget := c.Params.MonthlyCashContribution + c.Params.MonthlyEquityContribution
	return scoreCommon(-budget, c, s, cfg)
}
