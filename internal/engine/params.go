package engine

import (
	"encoding/json"
	"fmt"

	"github.com/your-org/wealthpath/internal/ledger"
)

// PayoutKind discriminates the payout union.
type PayoutKind int

const (
	// PayoutFixed pays a constant net amount per month.
	PayoutFixed PayoutKind = iota
	// PayoutPercentOfWealth pays an annual percentage of the wealth at
	// retirement start, fixed once, divided into monthly amounts.
	PayoutPercentOfWealth
)

// Payout is the withdrawal target: either a fixed monthly net amount or
// a percentage of wealth frozen at retirement start.
type Payout struct {
	kind    PayoutKind
	amount  float64
	percent float64
}

// FixedPayout builds a fixed-amount payout.
func FixedPayout(amount float64) Payout {
	return Payout{kind: PayoutFixed, amount: amount}
}

// PercentPayout builds a percent-of-wealth payout. pct is the annual
// fraction, e.g. 0.04 for a 4% rule.
func PercentPayout(pct float64) Payout {
	return Payout{kind: PayoutPercentOfWealth, percent: pct}
}

// Kind returns the payout variant.
func (p Payout) Kind() PayoutKind { return p.kind }

// Amount returns the fixed monthly amount (zero for percent payouts).
func (p Payout) Amount() float64 { return p.amount }

// Percent returns the annual percentage (zero for fixed payouts).
func (p Payout) Percent() float64 { return p.percent }

// MonthlyAt resolves the monthly payout amount given the wealth at
// retirement start.
func (p Payout) MonthlyAt(wealthAtRetirement float64) float64 {
	if p.kind == PayoutPercentOfWealth {
		return wealthAtRetirement * p.percent / 12
	}
	return p.amount
}

type payoutJSON struct {
	Kind    string  `json:"kind"`
	Amount  float64 `json:"amount,omitempty"`
	Percent float64 `json:"percent,omitempty"`
}

// MarshalJSON encodes the union with an explicit kind tag.
func (p Payout) MarshalJSON() ([]byte, error) {
	out := payoutJSON{Kind: "fixed", Amount: p.amount}
	if p.kind == PayoutPercentOfWealth {
		out = payoutJSON{Kind: "percent", Percent: p.percent}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged union form.
func (p *Payout) UnmarshalJSON(data []byte) error {
	var in payoutJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "fixed", "":
		*p = FixedPayout(in.Amount)
	case "percent":
		*p = PercentPayout(in.Percent)
	default:
		return fmt.Errorf("unknown payout kind %q", in.Kind)
	}
	return nil
}

// LumpSum is a periodic extra outflow serviced through the withdrawal
// waterfall. EveryMonths == 0 disables the schedule.
type LumpSum struct {
	Amount      float64 `json:"amount"`
	EveryMonths int     `json:"every_months"`
}

// DueAt reports whether the schedule fires in the given zero-based month.
func (ls LumpSum) DueAt(month int) bool {
	return ls.EveryMonths > 0 && ls.Amount > 0 && (month+1)%ls.EveryMonths == 0
}

// Parameters is the immutable per-run input. Construct it once and
// derive variants through With; never mutate a value that has been
// handed to a simulation.
type Parameters struct {
	StartCash   float64 `json:"start_cash"`
	StartEquity float64 `json:"start_equity"`

	MonthlyCashContribution   float64 `json:"monthly_cash_contribution"`
	MonthlyEquityContribution float64 `json:"monthly_equity_contribution"`
	AnnualRaise               float64 `json:"annual_raise"`

	CashRate        float64 `json:"cash_rate"`
	EquityRate      float64 `json:"equity_rate"`
	AnnualInflation float64 `json:"annual_inflation"`

	CashTarget float64 `json:"cash_target"`

	AccumulationYears int `json:"accumulation_years"`
	WithdrawalYears   int `json:"withdrawal_years"`

	TaxRate         float64 `json:"tax_rate"`
	ExemptionFactor float64 `json:"exemption_factor"`
	AnnualAllowance float64 `json:"annual_allowance"`

	Payout   Payout          `json:"payout"`
	LumpSum  LumpSum         `json:"lump_sum"`
	LotOrder ledger.LotOrder `json:"lot_order"`
}

// Months returns the fixed history length of a run.
func (p Parameters) Months() int {
	return (p.AccumulationYears + p.WithdrawalYears) * 12
}

// AccumulationMonths returns the month index of the phase transition.
func (p Parameters) AccumulationMonths() int {
	return p.AccumulationYears * 12
}

// Validate rejects out-of-range input before any simulation starts.
func (p Parameters) Validate() error {
	switch {
	case p.AccumulationYears < 0 || p.WithdrawalYears < 0:
		return fmt.Errorf("phase lengths must not be negative")
	case p.Months() == 0:
		return fmt.Errorf("simulation horizon is empty")
	case p.StartCash < 0 || p.StartEquity < 0:
		return fmt.Errorf("starting balances must not be negative")
	case p.MonthlyCashContribution < 0 || p.MonthlyEquityContribution < 0:
		return fmt.Errorf("contributions must not be negative")
	case p.CashRate <= -1 || p.EquityRate <= -1:
		return fmt.Errorf("annual rates must be greater than -100%%")
	case p.AnnualInflation <= -1:
		return fmt.Errorf("inflation must be greater than -100%%")
	case p.TaxRate < 0 || p.TaxRate > 1:
		return fmt.Errorf("tax rate must be within [0,1]")
	case p.ExemptionFactor < 0 || p.ExemptionFactor > 1:
		return fmt.Errorf("exemption factor must be within [0,1]")
	case p.AnnualAllowance < 0:
		return fmt.Errorf("annual allowance must not be negative")
	case p.CashTarget < 0:
		return fmt.Errorf("cash target must not be negative")
	case p.Payout.Amount() < 0 || p.Payout.Percent() < 0:
		return fmt.Errorf("payout must not be negative")
	case p.LumpSum.Amount < 0 || p.LumpSum.EveryMonths < 0:
		return fmt.Errorf("lump sum schedule must not be negative")
	}
	return nil
}

// Override names a single parameter change applied by With.
type Override func(*Parameters)

// With returns a copy of p with the overrides applied. Parameters holds
// no reference types, so candidates derived this way never alias.
func (p Parameters) With(overrides ...Override) Parameters {
	out := p
	for _, o := range overrides {
		o(&out)
	}
	return out
}

// WithContributions overrides the monthly cash/equity contribution split.
func WithContributions(cash, equity float64) Override {
	return func(p *Parameters) {
		p.MonthlyCashContribution = cash
		p.MonthlyEquityContribution = equity
	}
}

// WithPayout overrides the withdrawal target.
func WithPayout(payout Payout) Override {
	return func(p *Parameters) { p.Payout = payout }
}

// WithCashTarget overrides the emergency-fund target.
func WithCashTarget(target float64) Override {
	return func(p *Parameters) { p.CashTarget = target }
}

// WithLotOrder overrides the lot-selection policy.
func WithLotOrder(order ledger.LotOrder) Override {
	return func(p *Parameters) { p.LotOrder = order }
}
