// Package metrics reduces a single simulation history to the scalar
// outcomes the Monte Carlo layer aggregates: success, ruin, capital
// preservation, emergency-fund fill and the early-return input for
// sequence-of-returns risk.
package metrics

import (
	"math"

	"github.com/your-org/wealthpath/internal/engine"
)

// Config tunes outcome classification. The zero value selects the
// defaults documented on each field.
type Config struct {
	// SuccessThreshold overrides the success bar on inflation-adjusted
	// end wealth. 0 selects the default of 12x the monthly payout.
	SuccessThreshold float64
	// RuinWealthFraction marks ruin when a withdrawal-phase month's
	// wealth drops below this fraction of the wealth at retirement
	// start. Default 0.1.
	RuinWealthFraction float64
	// ShortfallAbsTolerance is the absolute floor below which a
	// shortfall is ignored. Default 1.0.
	ShortfallAbsTolerance float64
	// ShortfallPctTolerance tolerates shortfalls up to this fraction of
	// the requested amount. Default 0.05.
	ShortfallPctTolerance float64
	// EarlyWindowMonths bounds the withdrawal-phase window used for the
	// sequence-of-returns input. Default 60.
	EarlyWindowMonths int
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.RuinWealthFraction <= 0 {
		c.RuinWealthFraction = 0.1
	}
	if c.ShortfallAbsTolerance <= 0 {
		c.ShortfallAbsTolerance = 1.0
	}
	if c.ShortfallPctTolerance <= 0 {
		c.ShortfallPctTolerance = 0.05
	}
	if c.EarlyWindowMonths <= 0 {
		c.EarlyWindowMonths = 60
	}
	return c
}

// PathMetrics are the derived outcomes of one history. Computed once,
// never mutated.
type PathMetrics struct {
	Success          bool
	Ruin             bool
	CapitalPreserved bool

	EndWealth          float64
	RealEndWealth      float64
	WealthAtRetirement float64

	// EmergencyFillMonth is the 1-based month the cash reserve first
	// reached its target, 0 when there is no target or it never fills.
	EmergencyFillMonth int

	// EarlyReturn is the time-weighted return over the early withdrawal
	// window, the per-path input to the SoRR score.
	EarlyReturn float64

	MaxShortfall float64
}

// Extract computes the metrics for one history. It is a pure function
// of its inputs.
func Extract(hist engine.History, params engine.Parameters, cfg Config) PathMetrics {
	cfg = cfg.WithDefaults()

	var pm PathMetrics
	if len(hist) == 0 {
		return pm
	}

	final := hist.Final()
	pm.EndWealth = final.Wealth()
	pm.RealEndWealth = final.RealWealth()

	pm.WealthAtRetirement = params.StartCash + params.StartEquity
	if rec, ok := hist.AtRetirementStart(params); ok {
		pm.WealthAtRetirement = rec.Wealth()
	}

	pm.EmergencyFillMonth = emergencyFillMonth(hist, params)
	pm.Ruin = detectRuin(hist, params, cfg, pm.WealthAtRetirement, &pm.MaxShortfall)
	pm.CapitalPreserved = pm.EndWealth >= pm.WealthAtRetirement
	pm.EarlyReturn = earlyReturn(hist, params, cfg.EarlyWindowMonths)

	threshold := cfg.SuccessThreshold
	if threshold <= 0 {
		threshold = 12 * params.Payout.MonthlyAt(pm.WealthAtRetirement)
	}
	pm.Success = pm.RealEndWealth > threshold

	return pm
}

func emergencyFillMonth(hist engine.History, params engine.Parameters) int {
	if params.CashTarget <= 0 {
		return 0
	}
	for _, rec := range hist {
		if rec.Cash >= params.CashTarget-1e-9 {
			return rec.Month
		}
	}
	return 0
}

func detectRuin(hist engine.History, params engine.Parameters, cfg Config, wealthAtRetirement float64, maxShortfall *float64) bool {
	ruinFloor := cfg.RuinWealthFraction * wealthAtRetirement
	ruined := false
	for _, rec := range hist {
		if rec.Shortfall > *maxShortfall {
			*maxShortfall = rec.Shortfall
		}
		tolerance := math.Max(cfg.ShortfallAbsTolerance, cfg.ShortfallPctTolerance*rec.WithdrawalRequested)
		if rec.Shortfall > tolerance {
			ruined = true
		}
		if rec.Phase == engine.PhaseWithdrawal && rec.Wealth() < ruinFloor {
			ruined = true
		}
	}
	return ruined
}

// earlyReturn computes the time-weighted return over the first months
// of the withdrawal phase, adding paid outflows back so the return
// reflects market performance rather than spending.
func earlyReturn(hist engine.History, params engine.Parameters, window int) float64 {
	start := params.AccumulationMonths()
	if start >= len(hist) {
		return 0
	}
	end := start + window
	if end > len(hist) {
		end = len(hist)
	}

	growth := 1.0
	prevWealth := params.StartCash + params.StartEquity
	if start > 0 {
		prevWealth = hist[start-1].Wealth()
	}
	for i := start; i < end; i++ {
		if prevWealth <= 0 {
			break
		}
		rec := hist[i]
		r := (rec.Wealth() + rec.WithdrawalPaid + rec.TaxPaid - rec.Contribution) / prevWealth
		growth *= r
		prevWealth = rec.Wealth()
	}
	return growth - 1
}
