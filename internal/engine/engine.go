// Package engine implements the month-stepped two-phase wealth plan
// simulation over a cash bucket and a tax-lot-tracked equity bucket.
package engine

import (
	"math"
	"math/rand"

	"github.com/your-org/wealthpath/internal/ledger"
)

const epsilon = 1e-9

// Options tunes a single simulation run.
type Options struct {
	// Seed feeds the run-local random generator. Only used when the
	// volatility passed to Simulate is positive.
	Seed int64
}

// MonthlyRate converts an annual rate into its compounding monthly
// equivalent: (1+annual)^(1/12) - 1.
func MonthlyRate(annual float64) float64 {
	return math.Pow(1+annual, 1.0/12) - 1
}

// Simulate runs the full plan and returns the ordered month history.
// With volatility == 0 the run is fully deterministic; otherwise the
// monthly equity return is drawn from a run-local seeded generator so
// concurrent runs never share generator state.
func Simulate(params Parameters, volatility float64, opts *Options) (History, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if volatility > 0 {
		seed := int64(1)
		if opts != nil {
			seed = opts.Seed
		}
		rng = rand.New(rand.NewSource(seed))
	}

	months := params.Months()
	accMonths := params.AccumulationMonths()

	cashRate := MonthlyRate(params.CashRate)
	equityRate := MonthlyRate(params.EquityRate)
	inflationRate := MonthlyRate(params.AnnualInflation)

	// Log-space parameters for stochastic draws; the mean is adjusted so
	// the expected growth matches the deterministic monthly rate.
	sigma := volatility / math.Sqrt(12)
	logMean := math.Log(1+equityRate) - 0.5*sigma*sigma

	s := &runState{
		params:       params,
		lots:         &ledger.Ledger{},
		allowance:    ledger.NewAllowance(params.AnnualAllowance),
		cash:         params.StartCash,
		price:        1.0,
		inflation:    1.0,
		targetFilled: params.CashTarget > 0 && params.StartCash >= params.CashTarget,
	}
	if params.StartEquity > 0 {
		s.lots.Buy(params.StartEquity, s.price, 0)
	}

	hist := make(History, 0, months)
	payoutFrozen := false
	monthlyPayout := 0.0

	for m := 0; m < months; m++ {
		s.allowance.ResetIfNewYear(m)

		// Compound cash, equity price and the inflation index.
		interest := s.cash * cashRate
		s.cash += interest
		if rng != nil {
			s.price *= math.Exp(logMean + sigma*rng.NormFloat64())
		} else {
			s.price *= 1 + equityRate
		}
		s.inflation *= 1 + inflationRate

		phase := PhaseAccumulation
		if m >= accMonths {
			phase = PhaseWithdrawal
		}

		contribution := 0.0
		request := 0.0

		if phase == PhaseAccumulation {
			contribution = s.contribute(m)
		} else {
			if !payoutFrozen {
				// Percent payouts are fixed once, from the wealth the
				// withdrawal phase starts with.
				monthlyPayout = params.Payout.MonthlyAt(s.wealthBefore(hist))
				payoutFrozen = true
			}
			request += monthlyPayout
		}
		if params.LumpSum.DueAt(m) {
			request += params.LumpSum.Amount
		}

		paid, tax, shortfall := s.serveWaterfall(request, m)

		if phase == PhaseAccumulation {
			s.sweepOverflow(m)
		}

		hist = append(hist, MonthRecord{
			Month:               m + 1,
			Phase:               phase,
			Cash:                s.cash,
			EquityValue:         s.lots.Value(s.price),
			Contribution:        contribution,
			Interest:            interest,
			WithdrawalRequested: request,
			WithdrawalPaid:      paid,
			TaxPaid:             tax,
			Shortfall:           shortfall,
			InflationIndex:      s.inflation,
		})
	}

	return hist, nil
}

// runState is the mutable per-run simulation state. Every run owns its
// own instance; nothing here is shared across goroutines.
type runState struct {
	params       Parameters
	lots         *ledger.Ledger
	allowance    *ledger.Allowance
	cash         float64
	price        float64
	inflation    float64
	targetFilled bool
}

// wealthBefore returns the wealth at the end of the previous month, or
// the starting balances for the very first month.
func (s *runState) wealthBefore(hist History) float64 {
	if len(hist) > 0 {
		return hist[len(hist)-1].Wealth()
	}
	return s.params.StartCash + s.params.StartEquity
}

// contribute applies the raise-scaled monthly contributions. Once the
// cash target is filled the cash share is routed into equity instead.
func (s *runState) contribute(m int) float64 {
	p := s.params
	scale := math.Pow(1+p.AnnualRaise, float64(m/12))
	cashPart := p.MonthlyCashContribution * scale
	equityPart := p.MonthlyEquityContribution * scale

	if p.CashTarget > 0 && s.cash >= p.CashTarget {
		s.targetFilled = true
	}
	if s.targetFilled {
		equityPart += cashPart
		cashPart = 0
	}

	s.cash += cashPart
	if equityPart > 0 {
		s.lots.Buy(equityPart, s.price, m)
	}
	return cashPart + equityPart
}

// sweepOverflow moves cash above the target into equity. Only the
// accumulation phase sweeps.
func (s *runState) sweepOverflow(m int) {
	if s.params.CashTarget <= 0 {
		return
	}
	if excess := s.cash - s.params.CashTarget; excess > epsilon {
		s.cash = s.params.CashTarget
		s.lots.Buy(excess, s.price, m)
		s.targetFilled = true
	}
}

// serveWaterfall raises the requested net amount in the authoritative
// order: cash above the target first, then lot sales, then drawing the
// cash reserve down. Whatever remains unmet is reported as shortfall,
// never as an error.
func (s *runState) serveWaterfall(request float64, m int) (paid, tax, shortfall float64) {
	if request <= epsilon {
		return 0, 0, 0
	}
	p := s.params
	remaining := request

	// Cash overflow above the target. Without a target the whole
	// reserve counts as overflow.
	if overflow := s.cash - p.CashTarget; overflow > epsilon {
		take := math.Min(overflow, remaining)
		s.cash -= take
		paid += take
		remaining -= take
	}

	// Lot sales.
	if remaining > epsilon {
		res := s.lots.Sell(remaining, s.price, s.allowance, p.ExemptionFactor, p.TaxRate, p.LotOrder)
		paid += res.Net
		tax += res.Tax
		remaining -= res.Net
	}

	// Cash drawdown below the target. Breaching the target reverts the
	// filled status so accumulation contributions refill the reserve.
	if remaining > epsilon && s.cash > epsilon {
		take := math.Min(s.cash, remaining)
		s.cash -= take
		paid += take
		remaining -= take
		if s.cash < p.CashTarget {
			s.targetFilled = false
		}
	}

	if remaining > epsilon {
		shortfall = remaining
	}
	return paid, tax, shortfall
}
