package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/montecarlo"
)

// ErrNoViableCandidate is returned when every candidate in the grid is
// disqualified. It is a distinguished empty outcome, not a failure of
// the pipeline.
var ErrNoViableCandidate = errors.New("optimizer: no viable candidate")

// ScoreConfig weights the scoring formula. The zero value selects the
// defaults documented per field.
type ScoreConfig struct {
	// SuccessTarget disqualifies candidates whose success rate falls
	// below it. Default 0.8.
	SuccessTarget float64 `yaml:"success_target" json:"success_target"`
	// ObjectiveWeight scales the payout/budget term. Default 1.
	ObjectiveWeight float64 `yaml:"objective_weight" json:"objective_weight"`
	// EndWealthScale scales the median real end wealth contribution
	// down. Default 1e-3.
	EndWealthScale float64 `yaml:"end_wealth_scale" json:"end_wealth_scale"`
	// RuinPenalty is subtracted per unit of ruin probability. Default 1000.
	RuinPenalty float64 `yaml:"ruin_penalty" json:"ruin_penalty"`
	// EmergencyWeight scales the emergency-fund term. Default 100.
	EmergencyWeight float64 `yaml:"emergency_weight" json:"emergency_weight"`
	// StrictEmergency additionally disqualifies candidates whose fill
	// probability is below MinFillProbability.
	StrictEmergency bool `yaml:"strict_emergency" json:"strict_emergency"`
	// MinFillProbability is the strict-mode bar. Default 0.9.
	MinFillProbability float64 `yaml:"min_fill_probability" json:"min_fill_probability"`
}

// WithDefaults fills unset weights.
func (c ScoreConfig) WithDefaults() ScoreConfig {
	if c.SuccessTarget <= 0 {
		c.SuccessTarget = 0.8
	}
	if c.ObjectiveWeight == 0 {
		c.ObjectiveWeight = 1
	}
	if c.EndWealthScale == 0 {
		c.EndWealthScale = 1e-3
	}
	if c.RuinPenalty == 0 {
		c.RuinPenalty = 1000
	}
	if c.EmergencyWeight == 0 {
		c.EmergencyWeight = 100
	}
	if c.MinFillProbability <= 0 {
		c.MinFillProbability = 0.9
	}
	return c
}

// scoreCommon applies the shared scoring formula around an objective
// term. Disqualification returns -Inf so any qualified candidate beats
// every disqualified one.
func scoreCommon(objectiveTerm float64, c *Candidate, s *montecarlo.Summary, cfg ScoreConfig) float64 {
	cfg = cfg.WithDefaults()

	if s.SuccessRate < cfg.SuccessTarget {
		return math.Inf(-1)
	}

	emergency := 0.0
	if c.Params.CashTarget > 0 {
		if s.EmergencyFillProbability == 0 {
			return math.Inf(-1)
		}
		if cfg.StrictEmergency && s.EmergencyFillProbability < cfg.MinFillProbability {
			return math.Inf(-1)
		}
		// Blend fill probability with how early the fund fills.
		speed := 0.0
		if acc := float64(c.Params.AccumulationMonths()); acc > 0 && s.MeanFillMonth > 0 {
			speed = 1 - s.MeanFillMonth/acc
			if speed < 0 {
				speed = 0
			}
		}
		emergency = cfg.EmergencyWeight * (0.6*s.EmergencyFillProbability + 0.4*speed)
	}

	return cfg.ObjectiveWeight*objectiveTerm +
		cfg.EndWealthScale*s.MedianRealEndWealth -
		cfg.RuinPenalty*s.RuinProbability +
		emergency
}

// BetterOf merges two evaluated candidates: a qualified candidate beats
// a disqualified one, higher score wins, and equal scores resolve to
// the lower index.
func BetterOf(a, b *Candidate) *Candidate {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Disqualified != b.Disqualified:
		if a.Disqualified {
			return b
		}
		return a
	case a.Score != b.Score:
		if a.Score > b.Score {
			return a
		}
		return b
	case a.Index <= b.Index:
		return a
	default:
		return b
	}
}

// CandidateSeed derives the Monte Carlo base seed of candidate k from
// the shared base seed. Distinct indices map to distinct seeds and the
// mapping is deterministic, so re-running a candidate reproduces its
// score exactly.
func CandidateSeed(base int64, k int) int64 {
	return montecarlo.DeriveSeed(base, k)
}

// Optimizer drives the full pipeline over a candidate grid.
type Optimizer struct {
	Base      engine.Parameters
	Objective Objective
	Grid      GridConfig
	Score     ScoreConfig
	MC        montecarlo.Options

	// OnCandidate, when set, receives per-candidate progress.
	OnCandidate func(done, total int, best *Candidate)

	Logger *zap.Logger
}

// New builds an optimizer with the given strategy.
func New(base engine.Parameters, obj Objective, grid GridConfig, score ScoreConfig, mc montecarlo.Options, log *zap.Logger) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{Base: base, Objective: obj, Grid: grid, Score: score, MC: mc, Logger: log}
}

// Run generates the grid and evaluates every candidate, returning the
// best non-disqualified one or ErrNoViableCandidate.
func (o *Optimizer) Run(ctx context.Context) (*Candidate, error) {
	cands := o.Objective.Generate(o.Base, o.Grid)
	return o.evaluate(ctx, cands)
}

// EvaluateRange evaluates the candidate slice [start, start+count) of
// the full grid, preserving global indices. Range results from pooled
// evaluation merge through BetterOf without losing tie-break semantics.
func (o *Optimizer) EvaluateRange(ctx context.Context, start, count int) (*Candidate, error) {
	cands := o.Objective.Generate(o.Base, o.Grid)
	if start < 0 || start >= len(cands) {
		return nil, fmt.Errorf("candidate range start %d out of grid of %d", start, len(cands))
	}
	end := start + count
	if end > len(cands) {
		end = len(cands)
	}
	return o.evaluate(ctx, cands[start:end])
}

// GridSize returns the number of candidates the configured grid spans.
func (o *Optimizer) GridSize() int {
	return len(o.Objective.Generate(o.Base, o.Grid))
}

func (o *Optimizer) evaluate(ctx context.Context, cands []Candidate) (*Candidate, error) {
	if len(cands) == 0 {
		return nil, ErrNoViableCandidate
	}

	o.Logger.Info("optimizer evaluation starting",
		zap.String("objective", o.Objective.Name()),
		zap.Int("candidates", len(cands)))

	var best *Candidate
	for i := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &cands[i]

		mcOpts := o.MC
		mcOpts.BaseSeed = CandidateSeed(o.MC.BaseSeed, c.Index)
		mcOpts.Progress = nil
		mcOpts.SamplePaths = 0

		res, err := montecarlo.Run(ctx, c.Params, mcOpts, o.Logger)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", c.Index, err)
		}

		c.Result = res
		c.Score = o.Objective.Score(c, &res.Summary, o.Score)
		c.Disqualified = math.IsInf(c.Score, -1)

		prev := best
		best = BetterOf(best, c)
		if prev != nil && prev != best {
			prev.Result = nil // only the running best keeps its aggregate
		}
		if best != c {
			c.Result = nil
		}

		if o.OnCandidate != nil {
			o.OnCandidate(i+1, len(cands), best)
		}
		o.Logger.Debug("candidate evaluated",
			zap.Int("index", c.Index),
			zap.Float64("score", c.Score),
			zap.Bool("disqualified", c.Disqualified))
	}

	if best == nil || best.Disqualified {
		return nil, ErrNoViableCandidate
	}
	o.Logger.Info("optimizer evaluation finished",
		zap.Int("best_index", best.Index),
		zap.Float64("best_score", best.Score))
	return best, nil
}
